package subscription

import (
	"github.com/tallyhq/tally/internal/subscription/repository"
	"github.com/tallyhq/tally/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
