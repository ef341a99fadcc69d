package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tallyhq/tally/internal/customer/domain"
	"github.com/tallyhq/tally/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Create(customer).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListCustomerFilter, page pagination.Pagination) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	stmt := db.WithContext(ctx).Model(&domain.Customer{})
	if filter.Name != "" {
		stmt = stmt.Where("name = ?", filter.Name)
	}
	if filter.Email != "" {
		stmt = stmt.Where("email = ?", filter.Email)
	}
	stmt, err := applyCursor(stmt, page)
	if err != nil {
		return nil, err
	}
	err = stmt.
		Order("created_at desc, id desc").
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func applyCursor(stmt *gorm.DB, page pagination.Pagination) (*gorm.DB, error) {
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
		// One extra row to detect whether more pages exist.
		stmt = stmt.Limit(page.PageSize + 1)
	}
	return stmt, nil
}
