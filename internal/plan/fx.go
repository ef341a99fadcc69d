package plan

import (
	"github.com/tallyhq/tally/internal/plan/repository"
	"github.com/tallyhq/tally/internal/plan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
