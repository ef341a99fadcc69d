package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateProductRequest struct {
	Name        string
	Description string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Product, error)
	List(ctx context.Context, db *gorm.DB) ([]Product, error)
}

type Service interface {
	Create(context.Context, CreateProductRequest) (Product, error)
	GetByID(ctx context.Context, id string) (Product, error)
	List(context.Context) ([]Product, error)
}

var (
	ErrInvalidName = errors.New("invalid_product_name")
	ErrInvalidID   = errors.New("invalid_product_id")
	ErrNameTaken   = errors.New("product_name_taken")
	ErrNotFound    = errors.New("product_not_found")
)
