package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	usagedomain "github.com/tallyhq/tally/internal/usage/domain"
	"github.com/tallyhq/tally/pkg/db/pagination"
	"gorm.io/gorm"
)

type UnbilledUsageFilter struct {
	SubscriptionID uuid.UUID
	From           *time.Time
	To             *time.Time
}

type InvoiceStatusUpdate struct {
	ID         uuid.UUID
	FromStatus InvoiceStatus
	Status     InvoiceStatus
	PaidAt     *time.Time
	UpdatedAt  time.Time
}

type Repository interface {
	InsertInvoice(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindInvoiceByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Invoice, error)
	// UpdateInvoiceStatus applies the transition only when the row still
	// holds FromStatus and reports how many rows changed.
	UpdateInvoiceStatus(ctx context.Context, db *gorm.DB, update InvoiceStatusUpdate) (int64, error)
	InsertLineItem(ctx context.Context, db *gorm.DB, item *LineItem) error
	FindLineItems(ctx context.Context, db *gorm.DB, invoiceID uuid.UUID) ([]*LineItem, error)
	FindUsageRecordByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*usagedomain.UsageRecord, error)
	// ClaimUsageRecord marks the record as billed by the given line item. The
	// update is conditional on the record being unclaimed; it reports how many
	// rows changed.
	ClaimUsageRecord(ctx context.Context, db *gorm.DB, usageRecordID, lineItemID uuid.UUID, now time.Time) (int64, error)
	RecomputeInvoiceTotal(ctx context.Context, db *gorm.DB, invoiceID uuid.UUID, now time.Time) error
	FindUnbilledUsage(ctx context.Context, db *gorm.DB, filter UnbilledUsageFilter, page pagination.Pagination) ([]*usagedomain.UsageRecord, error)
}
