package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tallyhq/tally/internal/clock"
	customerdomain "github.com/tallyhq/tally/internal/customer/domain"
	"github.com/tallyhq/tally/internal/events"
	plandomain "github.com/tallyhq/tally/internal/plan/domain"
	"github.com/tallyhq/tally/internal/subscription/domain"
	"github.com/tallyhq/tally/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Repo        domain.Repository
	CustomerSvc customerdomain.Service
	PlanSvc     plandomain.Service
	Outbox      *events.Outbox `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	repo        domain.Repository
	customerSvc customerdomain.Service
	planSvc     plandomain.Service
	outbox      *events.Outbox
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("subscription.service"),
		clock:       p.Clock,
		repo:        p.Repo,
		customerSvc: p.CustomerSvc,
		planSvc:     p.PlanSvc,
		outbox:      p.Outbox,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateSubscriptionRequest) (domain.Subscription, error) {
	customerID, err := uuid.Parse(strings.TrimSpace(req.CustomerID))
	if err != nil {
		return domain.Subscription{}, domain.ErrInvalidCustomer
	}
	planID, err := uuid.Parse(strings.TrimSpace(req.PlanID))
	if err != nil {
		return domain.Subscription{}, domain.ErrInvalidPlan
	}

	// Referential checks happen before any write; a failed lookup leaves no
	// partial state behind.
	if _, err := s.customerSvc.GetByID(ctx, customerdomain.GetCustomerRequest{ID: customerID.String()}); err != nil {
		if errors.Is(err, customerdomain.ErrNotFound) {
			return domain.Subscription{}, domain.ErrCustomerNotFound
		}
		return domain.Subscription{}, err
	}
	if _, err := s.planSvc.GetByID(ctx, planID.String()); err != nil {
		if errors.Is(err, plandomain.ErrNotFound) {
			return domain.Subscription{}, domain.ErrPlanNotFound
		}
		return domain.Subscription{}, err
	}

	now := s.clock.Now().UTC()
	subscription := domain.Subscription{
		ID:         uuid.New(),
		CustomerID: customerID,
		PlanID:     planID,
		Status:     domain.SubscriptionStatusActive,
		StartDate:  now,
		Version:    1,
		Metadata:   datatypes.JSONMap{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Insert(ctx, s.db, &subscription); err != nil {
		return domain.Subscription{}, err
	}

	s.emit(events.EventSubscriptionCreated, subscription)

	return subscription, nil
}

func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateSubscriptionStatusRequest) (domain.Subscription, error) {
	id, err := uuid.Parse(strings.TrimSpace(req.ID))
	if err != nil {
		return domain.Subscription{}, domain.ErrInvalidID
	}

	current, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Subscription{}, err
	}
	if current == nil {
		return domain.Subscription{}, domain.ErrNotFound
	}

	rawStatus := strings.TrimSpace(req.Status)
	if rawStatus == "" {
		return *current, nil
	}

	target, ok := domain.ParseStatus(rawStatus)
	if !ok {
		return domain.Subscription{}, domain.ErrInvalidStatus
	}

	// Re-canceling a canceled subscription is an idempotent no-op: the
	// original end_date is returned, never restamped.
	if target == current.Status {
		return *current, nil
	}

	if !domain.CanTransition(current.Status, target) {
		return domain.Subscription{}, domain.ErrInvalidTransition
	}

	now := s.clock.Now().UTC()
	update := domain.StatusUpdate{
		ID:          id,
		FromVersion: current.Version,
		Status:      target,
		EndDate:     current.EndDate,
		UpdatedAt:   now,
	}
	if target == domain.SubscriptionStatusCanceled {
		update.EndDate = &now
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.UpdateStatus(ctx, tx, update)
		if err != nil {
			return err
		}
		if affected == 0 {
			// A concurrent transition won the race; the caller decides
			// whether to re-read and retry.
			return domain.ErrConcurrentUpdate
		}
		return nil
	})
	if err != nil {
		return domain.Subscription{}, err
	}

	updated := *current
	updated.Status = target
	updated.EndDate = update.EndDate
	updated.Version = current.Version + 1
	updated.UpdatedAt = now

	s.emit(events.EventSubscriptionUpdated, updated)

	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Subscription, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return domain.Subscription{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Subscription{}, err
	}
	if item == nil {
		return domain.Subscription{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListSubscriptionRequest) (domain.ListSubscriptionResponse, error) {
	filter := domain.ListSubscriptionFilter{}

	if value := strings.TrimSpace(req.CustomerID); value != "" {
		customerID, err := uuid.Parse(value)
		if err != nil {
			return domain.ListSubscriptionResponse{}, domain.ErrInvalidCustomer
		}
		filter.CustomerID = customerID
	}

	if value := strings.TrimSpace(req.Status); value != "" {
		status, ok := domain.ParseStatus(value)
		if !ok {
			return domain.ListSubscriptionResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListSubscriptionResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *domain.Subscription) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	subscriptions := make([]domain.Subscription, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		subscriptions = append(subscriptions, *item)
	}

	resp := domain.ListSubscriptionResponse{Subscriptions: subscriptions}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) emit(eventType string, subscription domain.Subscription) {
	if s.outbox == nil {
		return
	}
	payload := map[string]any{
		"subscription_id": subscription.ID.String(),
		"customer_id":     subscription.CustomerID.String(),
		"plan_id":         subscription.PlanID.String(),
		"status":          string(subscription.Status),
	}
	if subscription.EndDate != nil {
		payload["end_date"] = subscription.EndDate.UTC().Format(time.RFC3339)
	}
	s.outbox.PublishAsync(events.Event{
		Type:      eventType,
		Payload:   payload,
		DedupeKey: eventType + ":" + subscription.ID.String() + ":" + string(subscription.Status),
	})
}
