package product

import (
	"github.com/tallyhq/tally/internal/product/repository"
	"github.com/tallyhq/tally/internal/product/service"
	"go.uber.org/fx"
)

var Module = fx.Module("product.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
