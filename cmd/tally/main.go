package main

import (
	"github.com/tallyhq/tally/internal/clock"
	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/logger"
	"github.com/tallyhq/tally/internal/migration"
	"github.com/tallyhq/tally/internal/server"
	"github.com/tallyhq/tally/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		clock.Module,
		db.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}
