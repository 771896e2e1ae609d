package grpcserver

import (
	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/database"

	"github.com/google/wire"
)

// ProviderSet bundles the gRPC server provider for Wire.
var ProviderSet = wire.NewSet(
	NewGRPCServer,
	wire.Bind(new(ReadinessChecker), new(*database.Readiness)),
)
