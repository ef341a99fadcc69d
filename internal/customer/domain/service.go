package domain

import (
	"context"
	"errors"

	"github.com/tallyhq/tally/pkg/db/pagination"
)

type CreateCustomerRequest struct {
	Name               string
	Email              string
	ExternalPaymentRef string
}

type GetCustomerRequest struct {
	ID string
}

type ListCustomerRequest struct {
	PageToken string
	PageSize  int32
	Name      string
	Email     string
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	GetByID(context.Context, GetCustomerRequest) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidID    = errors.New("invalid_id")
	ErrEmailTaken   = errors.New("email_taken")
	ErrNotFound     = errors.New("customer_not_found")
)
