package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreatePlanRequest struct {
	ProductID   string
	Name        string
	Description string
}

type CreatePriceRequest struct {
	PlanID            string
	Currency          string
	UnitAmount        int64
	RecurringInterval string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, plan *Plan) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Plan, error)
	List(ctx context.Context, db *gorm.DB, productID uuid.UUID) ([]Plan, error)
	InsertPrice(ctx context.Context, db *gorm.DB, price *Price) error
	FindPriceByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Price, error)
	ListPrices(ctx context.Context, db *gorm.DB, planID uuid.UUID) ([]Price, error)
}

type Service interface {
	Create(context.Context, CreatePlanRequest) (Plan, error)
	GetByID(ctx context.Context, id string) (Plan, error)
	List(ctx context.Context, productID string) ([]Plan, error)
	CreatePrice(context.Context, CreatePriceRequest) (Price, error)
	GetPriceByID(ctx context.Context, id string) (Price, error)
	ListPrices(ctx context.Context, planID string) ([]Price, error)
}

var (
	ErrInvalidName       = errors.New("invalid_plan_name")
	ErrInvalidID         = errors.New("invalid_plan_id")
	ErrInvalidProduct    = errors.New("invalid_product_id")
	ErrInvalidPriceID    = errors.New("invalid_price_id")
	ErrInvalidCurrency   = errors.New("invalid_currency")
	ErrInvalidUnitAmount = errors.New("invalid_unit_amount")
	ErrInvalidInterval   = errors.New("invalid_recurring_interval")
	ErrProductNotFound   = errors.New("product_not_found")
	ErrNotFound          = errors.New("plan_not_found")
	ErrPriceNotFound     = errors.New("price_not_found")
)
