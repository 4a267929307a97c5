package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/modguard/modguard/pkg/observability"
)

// logScanHooks traces pipeline stages at debug level.
type logScanHooks struct {
	observability.NoopScanHooks
	logger *log.Logger
}

func (h *logScanHooks) OnStageStart(_ context.Context, stage string) {
	h.logger.Debug("stage start", "stage", stage)
}

func (h *logScanHooks) OnStageComplete(_ context.Context, stage string, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("stage failed", "stage", stage, "duration", d, "err", err)
		return
	}
	h.logger.Debug("stage complete", "stage", stage, "duration", d)
}

func (h *logScanHooks) OnCollision(_ context.Context, module, severity string) {
	h.logger.Debug("collision", "module", module, "severity", severity)
}

// logIndexHooks traces package-index requests at debug level.
type logIndexHooks struct {
	observability.NoopIndexHooks
	logger *log.Logger
}

func (h *logIndexHooks) OnRequest(_ context.Context, pkg string) {
	h.logger.Debug("index request", "package", pkg)
}

func (h *logIndexHooks) OnResponse(_ context.Context, pkg string, status int, d time.Duration) {
	h.logger.Debug("index response", "package", pkg, "status", status, "duration", d)
}

func (h *logIndexHooks) OnError(_ context.Context, pkg string, err error) {
	h.logger.Debug("index error", "package", pkg, "err", err)
}
