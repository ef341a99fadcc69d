package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tallyhq/tally/internal/clock"
	"github.com/tallyhq/tally/internal/customer/domain"
	"github.com/tallyhq/tally/pkg/db"
	"github.com/tallyhq/tally/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customer.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Customer{}, domain.ErrInvalidEmail
	}

	now := s.clock.Now().UTC()
	customer := domain.Customer{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ref := strings.TrimSpace(req.ExternalPaymentRef); ref != "" {
		customer.ExternalPaymentRef = &ref
	}

	// Uniqueness is enforced by the index, not a check-then-insert, so
	// concurrent creates with the same email cannot both land.
	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Customer{}, domain.ErrEmailTaken
		}
		return domain.Customer{}, err
	}

	return customer, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCustomerRequest) (domain.Customer, error) {
	id, err := uuid.Parse(strings.TrimSpace(req.ID))
	if err != nil {
		return domain.Customer{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, domain.ListCustomerFilter{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
	}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(customer *domain.Customer) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        customer.ID.String(),
			CreatedAt: customer.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		customers = append(customers, *item)
	}

	resp := domain.ListCustomerResponse{Customers: customers}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}
