package domain

import (
	"context"
	"errors"

	"github.com/tallyhq/tally/pkg/db/pagination"
)

type CreateSubscriptionRequest struct {
	CustomerID string
	PlanID     string
}

type UpdateSubscriptionStatusRequest struct {
	ID string
	// Status is the target lifecycle state. Empty means no-op: the current
	// subscription is returned unchanged.
	Status string
}

type ListSubscriptionRequest struct {
	CustomerID string
	Status     string
	PageToken  string
	PageSize   int32
}

type ListSubscriptionResponse struct {
	pagination.PageInfo
	Subscriptions []Subscription `json:"subscriptions"`
}

type Service interface {
	Create(context.Context, CreateSubscriptionRequest) (Subscription, error)
	UpdateStatus(context.Context, UpdateSubscriptionStatusRequest) (Subscription, error)
	GetByID(ctx context.Context, id string) (Subscription, error)
	List(context.Context, ListSubscriptionRequest) (ListSubscriptionResponse, error)
}

var (
	ErrInvalidID         = errors.New("invalid_subscription_id")
	ErrInvalidCustomer   = errors.New("invalid_customer_id")
	ErrInvalidPlan       = errors.New("invalid_plan_id")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrConcurrentUpdate  = errors.New("concurrent_update")
	ErrCustomerNotFound  = errors.New("customer_not_found")
	ErrPlanNotFound      = errors.New("plan_not_found")
	ErrNotFound          = errors.New("subscription_not_found")
)
