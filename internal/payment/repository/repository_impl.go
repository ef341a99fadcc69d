package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tallyhq/tally/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertPaymentMethod(ctx context.Context, db *gorm.DB, method *domain.PaymentMethod) error {
	return db.WithContext(ctx).Create(method).Error
}

func (r *repo) ClearDefaultPaymentMethod(ctx context.Context, db *gorm.DB, customerID uuid.UUID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_methods SET is_default = ?, updated_at = ? WHERE customer_id = ? AND is_default = ?`,
		false, now, customerID, true,
	).Error
}

func (r *repo) ListPaymentMethods(ctx context.Context, db *gorm.DB, customerID uuid.UUID) ([]*domain.PaymentMethod, error) {
	var methods []*domain.PaymentMethod
	err := db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at desc, id desc").
		Find(&methods).Error
	if err != nil {
		return nil, err
	}
	return methods, nil
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) ListPayments(ctx context.Context, db *gorm.DB, invoiceID uuid.UUID) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	err := db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at desc, id desc").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
