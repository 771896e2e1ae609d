package database

import (
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProviderSet 暴露连接池、事务管理器与就绪探针。
var ProviderSet = wire.NewSet(
	NewPgxPool,
	NewTxManager,
	NewReadiness,
)

// NewTxManager 基于连接池构造 txmanager.Manager。
func NewTxManager(pool *pgxpool.Pool, cfg txmanager.Config, logger log.Logger) (txmanager.Manager, error) {
	return txmanager.NewManager(pool, cfg, txmanager.Dependencies{Logger: logger})
}
