package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tallyhq/tally/internal/plan/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, plan *domain.Plan) error {
	return db.WithContext(ctx).Create(plan).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*domain.Plan, error) {
	var plan domain.Plan
	err := db.WithContext(ctx).Where("id = ?", id).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, productID uuid.UUID) ([]domain.Plan, error) {
	var plans []domain.Plan
	stmt := db.WithContext(ctx).Model(&domain.Plan{})
	if productID != uuid.Nil {
		stmt = stmt.Where("product_id = ?", productID)
	}
	err := stmt.Order("created_at desc, id desc").Find(&plans).Error
	return plans, err
}

func (r *repo) InsertPrice(ctx context.Context, db *gorm.DB, price *domain.Price) error {
	return db.WithContext(ctx).Create(price).Error
}

func (r *repo) FindPriceByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*domain.Price, error) {
	var price domain.Price
	err := db.WithContext(ctx).Where("id = ?", id).First(&price).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &price, nil
}

func (r *repo) ListPrices(ctx context.Context, db *gorm.DB, planID uuid.UUID) ([]domain.Price, error) {
	var prices []domain.Price
	stmt := db.WithContext(ctx).Model(&domain.Price{})
	if planID != uuid.Nil {
		stmt = stmt.Where("plan_id = ?", planID)
	}
	err := stmt.Order("created_at desc, id desc").Find(&prices).Error
	return prices, err
}
