package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/tallyhq/tally/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListCustomerFilter struct {
	Name  string
	Email string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, filter ListCustomerFilter, page pagination.Pagination) ([]*Customer, error)
}
