//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"context"

	"github.com/bionicotaku/lingo-services-analysis/internal/clients"
	"github.com/bionicotaku/lingo-services-analysis/internal/controllers"
	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/database"
	grpcserver "github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/grpc_server"
	loginfra "github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/logger"
	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/storage"
	"github.com/bionicotaku/lingo-services-analysis/internal/repositories"
	"github.com/bionicotaku/lingo-services-analysis/internal/server"
	"github.com/bionicotaku/lingo-services-analysis/internal/services"

	"github.com/google/wire"
)

//go:generate go run github.com/google/wire/cmd/wire

// wireApp init kratos application.
func wireApp(context.Context, configloader.Params) (*analysisApp, func(), error) {
	panic(wire.Build(
		configloader.ProviderSet,
		loginfra.ProviderSet,
		database.ProviderSet,
		repositories.ProviderSet,
		storage.ProviderSet,
		clients.ProviderSet,
		services.ProviderSet,
		controllers.ProviderSet,
		server.ProviderSet,
		grpcserver.ProviderSet,
		newApp,
		newAnalysisApp,
	))
}
