// Package main 提供每日挑战过期扫描的独立进程入口。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/configloader"
	sweeptask "github.com/bionicotaku/lingo-services-analysis/internal/tasks/sweep"

	"github.com/bionicotaku/lingo-utils/observability"
	"github.com/go-kratos/kratos/v2/log"

	_ "time/tzdata"
)

type sweepTaskApp struct {
	Runner  *sweeptask.Runner
	Logger  log.Logger
	Obs     observability.ObservabilityConfig
	Service configloader.ServiceMetadata
}

func newSweepTaskApp(
	logger log.Logger,
	runner *sweeptask.Runner,
	obs observability.ObservabilityConfig,
	meta configloader.ServiceMetadata,
) (*sweepTaskApp, error) {
	if runner == nil || logger == nil {
		return nil, fmt.Errorf("sweep task not initialized")
	}
	return &sweepTaskApp{Runner: runner, Logger: logger, Obs: obs, Service: meta}, nil
}

func main() {
	ctx := context.Background()

	confFlag := flag.String("conf", "", "config path or directory, eg: -conf configs/config.yaml")
	onceFlag := flag.Bool("once", false, "run a single sweep for today and exit")
	flag.Parse()

	params := configloader.Params{ConfPath: *confFlag}
	app, cleanup, err := wireSweepTask(ctx, params)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	helper := log.NewHelper(app.Logger)

	obsShutdown, err := observability.Init(ctx, app.Obs,
		observability.WithLogger(app.Logger),
		observability.WithServiceName(app.Service.Name),
		observability.WithServiceVersion(app.Service.Version),
		observability.WithEnvironment(app.Service.Environment),
	)
	if err != nil {
		panic(err)
	}
	defer func() {
		if obsShutdown == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obsShutdown(shutdownCtx); err != nil {
			helper.Warnf("shutdown observability: %v", err)
		}
	}()

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *onceFlag {
		if _, err := app.Runner.RunOnce(runCtx); err != nil {
			helper.Errorf("challenge sweep failed: %v", err)
			os.Exit(1)
		}
		return
	}

	helper.Info("starting challenge sweep runner")
	if err := app.Runner.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		helper.Errorf("challenge sweep runner stopped unexpectedly: %v", err)
		os.Exit(1)
	}
	helper.Info("challenge sweep runner stopped")
}
