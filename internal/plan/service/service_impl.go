package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/tallyhq/tally/internal/clock"
	"github.com/tallyhq/tally/internal/plan/domain"
	productdomain "github.com/tallyhq/tally/internal/product/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Repo       domain.Repository
	ProductSvc productdomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	repo       domain.Repository
	productSvc productdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("plan.service"),
		clock:      p.Clock,
		repo:       p.Repo,
		productSvc: p.ProductSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePlanRequest) (domain.Plan, error) {
	productID, err := uuid.Parse(strings.TrimSpace(req.ProductID))
	if err != nil {
		return domain.Plan{}, domain.ErrInvalidProduct
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Plan{}, domain.ErrInvalidName
	}

	if _, err := s.productSvc.GetByID(ctx, productID.String()); err != nil {
		if err == productdomain.ErrNotFound {
			return domain.Plan{}, domain.ErrProductNotFound
		}
		return domain.Plan{}, err
	}

	now := s.clock.Now().UTC()
	plan := domain.Plan{
		ID:        uuid.New(),
		ProductID: productID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if desc := strings.TrimSpace(req.Description); desc != "" {
		plan.Description = &desc
	}

	if err := s.repo.Insert(ctx, s.db, &plan); err != nil {
		return domain.Plan{}, err
	}

	return plan, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Plan, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return domain.Plan{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Plan{}, err
	}
	if item == nil {
		return domain.Plan{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) List(ctx context.Context, rawProductID string) ([]domain.Plan, error) {
	productID := uuid.Nil
	if value := strings.TrimSpace(rawProductID); value != "" {
		parsed, err := uuid.Parse(value)
		if err != nil {
			return nil, domain.ErrInvalidProduct
		}
		productID = parsed
	}
	return s.repo.List(ctx, s.db, productID)
}

func (s *Service) CreatePrice(ctx context.Context, req domain.CreatePriceRequest) (domain.Price, error) {
	planID, err := uuid.Parse(strings.TrimSpace(req.PlanID))
	if err != nil {
		return domain.Price{}, domain.ErrInvalidID
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 {
		return domain.Price{}, domain.ErrInvalidCurrency
	}

	if req.UnitAmount < 0 {
		return domain.Price{}, domain.ErrInvalidUnitAmount
	}

	interval := strings.ToLower(strings.TrimSpace(req.RecurringInterval))
	switch interval {
	case "", "month", "year":
	default:
		return domain.Price{}, domain.ErrInvalidInterval
	}

	plan, err := s.repo.FindByID(ctx, s.db, planID)
	if err != nil {
		return domain.Price{}, err
	}
	if plan == nil {
		return domain.Price{}, domain.ErrNotFound
	}

	now := s.clock.Now().UTC()
	price := domain.Price{
		ID:                uuid.New(),
		PlanID:            planID,
		Currency:          currency,
		UnitAmount:        req.UnitAmount,
		RecurringInterval: interval,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.InsertPrice(ctx, s.db, &price); err != nil {
		return domain.Price{}, err
	}

	return price, nil
}

func (s *Service) GetPriceByID(ctx context.Context, rawID string) (domain.Price, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return domain.Price{}, domain.ErrInvalidPriceID
	}

	item, err := s.repo.FindPriceByID(ctx, s.db, id)
	if err != nil {
		return domain.Price{}, err
	}
	if item == nil {
		return domain.Price{}, domain.ErrPriceNotFound
	}

	return *item, nil
}

func (s *Service) ListPrices(ctx context.Context, rawPlanID string) ([]domain.Price, error) {
	planID := uuid.Nil
	if value := strings.TrimSpace(rawPlanID); value != "" {
		parsed, err := uuid.Parse(value)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		planID = parsed
	}
	return s.repo.ListPrices(ctx, s.db, planID)
}
