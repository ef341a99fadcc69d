package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	InsertPaymentMethod(ctx context.Context, db *gorm.DB, method *PaymentMethod) error
	// ClearDefaultPaymentMethod drops the default flag from every method the
	// customer currently has.
	ClearDefaultPaymentMethod(ctx context.Context, db *gorm.DB, customerID uuid.UUID, now time.Time) error
	ListPaymentMethods(ctx context.Context, db *gorm.DB, customerID uuid.UUID) ([]*PaymentMethod, error)
	InsertPayment(ctx context.Context, db *gorm.DB, payment *Payment) error
	ListPayments(ctx context.Context, db *gorm.DB, invoiceID uuid.UUID) ([]*Payment, error)
}
