// Package main 启动视频分析服务：HTTP 业务接口与 gRPC 健康检查。
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-analysis/internal/services"

	"github.com/bionicotaku/lingo-utils/observability"
	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/go-kratos/kratos/v2/transport/grpc"

	_ "go.uber.org/automaxprocs"
	_ "time/tzdata"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name string
	// Version is the version of the compiled software.
	Version string
)

const defaultShutdownTimeout = 30 * time.Second

type analysisApp struct {
	App     *kratos.App
	Logger  log.Logger
	Obs     observability.ObservabilityConfig
	Service configloader.ServiceMetadata
}

func newApp(
	meta configloader.ServiceMetadata,
	pipelineCfg configloader.PipelineConfig,
	logger log.Logger,
	hs *khttp.Server,
	gs *grpc.Server,
	pipeline *services.PipelineOrchestrator,
) *kratos.App {
	shutdownTimeout := pipelineCfg.ShutdownTimeout.Std()
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	return kratos.New(
		kratos.ID(meta.InstanceID),
		kratos.Name(meta.Name),
		kratos.Version(meta.Version),
		kratos.Metadata(map[string]string{"environment": meta.Environment}),
		kratos.Logger(logger),
		kratos.Server(hs, gs),
		// 服务器停止接收请求后再等待后台流水线排空。
		kratos.AfterStop(func(ctx context.Context) error {
			drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := pipeline.Shutdown(drainCtx); err != nil {
				log.NewHelper(logger).Warnf("pipeline shutdown: %v", err)
			}
			return nil
		}),
	)
}

func newAnalysisApp(
	app *kratos.App,
	logger log.Logger,
	obs observability.ObservabilityConfig,
	meta configloader.ServiceMetadata,
) *analysisApp {
	return &analysisApp{App: app, Logger: logger, Obs: obs, Service: meta}
}

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	confPath, err := configloader.ParseConfPath(fs, os.Args[1:])
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	app, cleanup, err := wireApp(ctx, configloader.Params{ConfPath: confPath, Name: Name, Version: Version})
	if err != nil {
		panic(err)
	}
	defer cleanup()

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
			log.NewHelper(app.Logger).Warnf("shutdown observability: %v", err)
		}
	}()

	if err := app.App.Run(); err != nil {
		panic(err)
	}
}
