// Package assist implements the CRM's AI features on top of the provider
// invoker. Every adapter returns a usable result: provider or decode failures
// are logged and answered from the deterministic fallback generator.
package assist

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/crm-assist/internal/extract"
	"github.com/sells-group/crm-assist/internal/metrics"
	"github.com/sells-group/crm-assist/internal/provider"
)

// Completer runs a generation request across the configured providers.
// *provider.Invoker satisfies it.
type Completer interface {
	Invoke(ctx context.Context, req provider.Request) (*provider.Result, error)
}

// Adapter names used in logs and metrics.
const (
	adapterLead    = "lead_analysis"
	adapterMessage = "message"
	adapterSearch  = "search"
	adapterTasks   = "tasks"
)

// Fallback reasons.
const (
	reasonProviders = "providers_failed"
	reasonDecode    = "decode"
	reasonEmpty     = "empty"
)

func fallbackReason(err error) string {
	var de *extract.DecodeError
	if errors.As(err, &de) {
		return reasonDecode
	}
	return reasonProviders
}

func recordFallback(adapter, reason string, err error) {
	metrics.Fallbacks.WithLabelValues(adapter, reason).Inc()
	fields := []zap.Field{
		zap.String("adapter", adapter),
		zap.String("reason", reason),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	zap.L().Warn("assist: serving fallback", fields...)
}

type clock func() time.Time
