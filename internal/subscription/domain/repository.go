package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tallyhq/tally/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListSubscriptionFilter struct {
	CustomerID uuid.UUID
	Status     SubscriptionStatus
}

type StatusUpdate struct {
	ID          uuid.UUID
	FromVersion int64
	Status      SubscriptionStatus
	EndDate     *time.Time
	UpdatedAt   time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Subscription, error)
	List(ctx context.Context, db *gorm.DB, filter ListSubscriptionFilter, page pagination.Pagination) ([]*Subscription, error)
	// UpdateStatus applies the transition iff the row still carries
	// FromVersion, bumping the version. Returns the number of rows updated;
	// zero means a concurrent transition won.
	UpdateStatus(ctx context.Context, db *gorm.DB, update StatusUpdate) (int64, error)
}
