package invoice

import (
	"github.com/tallyhq/tally/internal/invoice/repository"
	"github.com/tallyhq/tally/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
