package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tallyhq/tally/internal/invoice/domain"
	usagedomain "github.com/tallyhq/tally/internal/usage/domain"
	"github.com/tallyhq/tally/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertInvoice(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) FindInvoiceByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) UpdateInvoiceStatus(ctx context.Context, db *gorm.DB, update domain.InvoiceStatusUpdate) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, paid_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
		update.Status, update.PaidAt, update.UpdatedAt, update.ID, update.FromStatus,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) InsertLineItem(ctx context.Context, db *gorm.DB, item *domain.LineItem) error {
	return db.WithContext(ctx).Create(item).Error
}

func (r *repo) FindLineItems(ctx context.Context, db *gorm.DB, invoiceID uuid.UUID) ([]*domain.LineItem, error) {
	var items []*domain.LineItem
	err := db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindUsageRecordByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*usagedomain.UsageRecord, error) {
	var record usagedomain.UsageRecord
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) ClaimUsageRecord(ctx context.Context, db *gorm.DB, usageRecordID, lineItemID uuid.UUID, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE usage_records SET line_item_id = ?, updated_at = ? WHERE id = ? AND line_item_id IS NULL`,
		lineItemID, now, usageRecordID,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) RecomputeInvoiceTotal(ctx context.Context, db *gorm.DB, invoiceID uuid.UUID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET total_amount = (SELECT COALESCE(SUM(amount), 0) FROM line_items WHERE invoice_id = ?),
		     updated_at = ?
		 WHERE id = ?`,
		invoiceID, now, invoiceID,
	).Error
}

func (r *repo) FindUnbilledUsage(ctx context.Context, db *gorm.DB, filter domain.UnbilledUsageFilter, page pagination.Pagination) ([]*usagedomain.UsageRecord, error) {
	var records []*usagedomain.UsageRecord
	stmt := db.WithContext(ctx).
		Model(&usagedomain.UsageRecord{}).
		Where("subscription_id = ?", filter.SubscriptionID).
		Where("line_item_id IS NULL")
	if filter.From != nil {
		stmt = stmt.Where("timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("timestamp < ?", *filter.To)
	}
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		timestamp, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(timestamp, id) > (?, ?)", timestamp, cursor.ID)
	}
	if page.PageSize > 0 {
		stmt = stmt.Limit(page.PageSize + 1)
	}
	// Oldest first so aggregation walks the stream in event order.
	err := stmt.
		Order("timestamp asc, id asc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
