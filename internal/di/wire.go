//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/rlagosf/rafc-go-backend/internal/app"
	"github.com/rlagosf/rafc-go-backend/internal/observability"
)

func InitializeApp() (*app.App, error) {
	panic(wire.Build(
		ConfigSet,
		ObservabilitySet,
		RuntimeInfraSet,
		RepositorySet,
		SecuritySet,
		ServiceSet,
		HTTPSet,
		AppSet,
	))
}

func InitializeMigrationRunner() (*MigrationRunner, error) {
	panic(wire.Build(
		ConfigSet,
		observability.NewLogger,
		provideOpenDB,
		NewMigrationRunner,
	))
}
