package payment

import (
	"github.com/tallyhq/tally/internal/payment/repository"
	"github.com/tallyhq/tally/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
