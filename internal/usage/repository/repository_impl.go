package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tallyhq/tally/internal/usage/domain"
	"github.com/tallyhq/tally/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.UsageRecord) (bool, error) {
	stmt := db.WithContext(ctx)
	if record.IdempotencyKey != nil {
		stmt = stmt.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		})
	}
	result := stmt.Create(record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*domain.UsageRecord, error) {
	var record domain.UsageRecord
	err := db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListUsageFilter, page pagination.Pagination) ([]*domain.UsageRecord, error) {
	var records []*domain.UsageRecord
	stmt := db.WithContext(ctx).Model(&domain.UsageRecord{})
	if filter.SubscriptionID != uuid.Nil {
		stmt = stmt.Where("subscription_id = ?", filter.SubscriptionID)
	}
	if filter.MetricName != "" {
		stmt = stmt.Where("metric_name = ?", filter.MetricName)
	}
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339, cursor.CreatedAt)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(created_at, id) < (?, ?)", createdAt, cursor.ID)
	}
	if page.PageSize > 0 {
		stmt = stmt.Limit(page.PageSize + 1)
	}
	err := stmt.
		Order("created_at desc, id desc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
