package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/tallyhq/tally/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListUsageFilter struct {
	SubscriptionID uuid.UUID
	MetricName     string
}

type Repository interface {
	// Insert stores the record. When it carries an idempotency key the
	// insert is conflict-tolerant: a duplicate key inserts nothing and
	// returns false.
	Insert(ctx context.Context, db *gorm.DB, record *UsageRecord) (bool, error)
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*UsageRecord, error)
	List(ctx context.Context, db *gorm.DB, filter ListUsageFilter, page pagination.Pagination) ([]*UsageRecord, error)
}
