//go:build wireinject
// +build wireinject

// Package main 为 sweep 任务 CLI 提供 Wire 依赖注入定义。
package main

import (
	"context"

	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/database"
	loginfra "github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/logger"
	"github.com/bionicotaku/lingo-services-analysis/internal/repositories"
	"github.com/bionicotaku/lingo-services-analysis/internal/services"
	sweeptask "github.com/bionicotaku/lingo-services-analysis/internal/tasks/sweep"

	"github.com/google/wire"
)

//go:generate go run github.com/google/wire/cmd/wire

func wireSweepTask(context.Context, configloader.Params) (*sweepTaskApp, func(), error) {
	panic(wire.Build(
		configloader.ProviderSet,
		loginfra.ProviderSet,
		database.ProviderSet,
		repositories.NewReportRepository,
		repositories.NewChallengeRepository,
		services.ProvideChallengeExtractor,
		services.NewChallengeService,
		wire.Bind(new(services.ReportStore), new(*repositories.ReportRepository)),
		wire.Bind(new(services.ChallengeStore), new(*repositories.ChallengeRepository)),
		sweeptask.ProvideRunner,
		newSweepTaskApp,
	))
}
