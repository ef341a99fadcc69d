package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tallyhq/tally/internal/product/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.Product, error) {
	var products []domain.Product
	err := db.WithContext(ctx).
		Order("created_at desc, id desc").
		Find(&products).Error
	return products, err
}
