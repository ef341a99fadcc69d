package migration

import (
	"github.com/tallyhq/tally/internal/config"
	customerdomain "github.com/tallyhq/tally/internal/customer/domain"
	"github.com/tallyhq/tally/internal/events"
	invoicedomain "github.com/tallyhq/tally/internal/invoice/domain"
	paymentdomain "github.com/tallyhq/tally/internal/payment/domain"
	plandomain "github.com/tallyhq/tally/internal/plan/domain"
	productdomain "github.com/tallyhq/tally/internal/product/domain"
	subscriptiondomain "github.com/tallyhq/tally/internal/subscription/domain"
	usagedomain "github.com/tallyhq/tally/internal/usage/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// Versioned SQL targets postgres; dev targets fall back to the
			// model-driven schema.
			return autoMigrate(conn)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)

func autoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&customerdomain.Customer{},
		&productdomain.Product{},
		&plandomain.Plan{},
		&plandomain.Price{},
		&subscriptiondomain.Subscription{},
		&usagedomain.UsageRecord{},
		&invoicedomain.Invoice{},
		&invoicedomain.LineItem{},
		&paymentdomain.PaymentMethod{},
		&paymentdomain.Payment{},
		&events.OutboxEvent{},
	)
}
