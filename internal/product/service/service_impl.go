package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/tallyhq/tally/internal/clock"
	"github.com/tallyhq/tally/internal/product/domain"
	"github.com/tallyhq/tally/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
		log:   p.Log.Named("product.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateProductRequest) (domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, domain.ErrInvalidName
	}

	now := s.clock.Now().UTC()
	product := domain.Product{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if desc := strings.TrimSpace(req.Description); desc != "" {
		product.Description = &desc
	}

	if err := s.repo.Insert(ctx, s.db, &product); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Product{}, domain.ErrNameTaken
		}
		return domain.Product{}, err
	}

	return product, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Product, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return domain.Product{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Product{}, err
	}
	if item == nil {
		return domain.Product{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	return s.repo.List(ctx, s.db)
}
