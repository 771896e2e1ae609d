// Package clients 汇总外部服务网关的 Wire 构造器。
package clients

import (
	"github.com/bionicotaku/lingo-services-analysis/internal/clients/aianalysis"
	"github.com/bionicotaku/lingo-services-analysis/internal/clients/speech"
	"github.com/google/wire"
)

// ProviderSet bundles outbound gateway providers for Wire.
var ProviderSet = wire.NewSet(speech.NewClient, aianalysis.NewClient)
