package sweep

import (
	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-analysis/internal/services"

	"github.com/go-kratos/kratos/v2/log"
)

// ProvideRunner 装配 Sweep Runner。
func ProvideRunner(svc *services.ChallengeService, cfg configloader.SweepConfig, logger log.Logger) (*Runner, error) {
	return NewRunner(RunnerParams{
		Sweeper: svc,
		Config:  cfg,
		Logger:  logger,
	})
}
