package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tallyhq/tally/internal/subscription/domain"
	"github.com/tallyhq/tally/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	return db.WithContext(ctx).Create(subscription).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*domain.Subscription, error) {
	var subscription domain.Subscription
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListSubscriptionFilter, page pagination.Pagination) ([]*domain.Subscription, error) {
	var subscriptions []*domain.Subscription
	stmt := db.WithContext(ctx).Model(&domain.Subscription{})
	if filter.CustomerID != uuid.Nil {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
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
		Find(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, update domain.StatusUpdate) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET status = ?, end_date = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		update.Status,
		update.EndDate,
		update.UpdatedAt,
		update.ID,
		update.FromVersion,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
