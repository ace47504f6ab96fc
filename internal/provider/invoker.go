package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sells-group/crm-assist/internal/cost"
	"github.com/sells-group/crm-assist/internal/metrics"
	"github.com/sells-group/crm-assist/internal/resilience"
)

const tracerName = "github.com/sells-group/crm-assist/internal/provider"

// Result is the first usable text produced for a request.
type Result struct {
	Text     string
	Provider string
	// Failures lists the providers tried before Provider succeeded.
	Failures []ProviderFailure
}

// Invoker tries the registry's enabled providers strictly in order and
// returns the first non-empty text. A failed provider is never retried
// within the same invocation.
type Invoker struct {
	registry *Registry
	breakers *resilience.Breakers
	tracer   trace.Tracer
	costs    *cost.Calculator
	now      func() time.Time
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithBreakerConfig sets the per-provider circuit breaker settings. Only
// transient failures (throttling, 5xx, timeouts) count toward tripping.
func WithBreakerConfig(cfg resilience.BreakerConfig) InvokerOption {
	return func(inv *Invoker) {
		inv.breakers = newBreakers(cfg)
	}
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) InvokerOption {
	return func(inv *Invoker) {
		inv.tracer = t
	}
}

// WithCostCalculator sets the pricing used to estimate spend per completion.
func WithCostCalculator(c *cost.Calculator) InvokerOption {
	return func(inv *Invoker) {
		inv.costs = c
	}
}

// NewInvoker creates an Invoker over reg.
func NewInvoker(reg *Registry, opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		registry: reg,
		breakers: newBreakers(resilience.DefaultBreakerConfig()),
		tracer:   otel.Tracer(tracerName),
		costs:    cost.NewCalculator(cost.DefaultRates()),
		now:      time.Now,
	}
	for _, o := range opts {
		o(inv)
	}
	return inv
}

func newBreakers(cfg resilience.BreakerConfig) *resilience.Breakers {
	if cfg.Trips == nil {
		cfg.Trips = resilience.IsTransient
	}
	if cfg.OnTransition == nil {
		cfg.OnTransition = func(name string, from, to resilience.State) {
			zap.L().Warn("provider: circuit state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
	}
	return resilience.NewBreakers(cfg)
}

// BreakerStates snapshots the circuit state of every provider tried so far.
func (inv *Invoker) BreakerStates() map[string]resilience.State {
	return inv.breakers.States()
}

// Invoke runs req against each enabled provider in priority order until one
// returns non-empty text. If none does, it returns *AllProvidersFailedError
// with one failure per enabled provider attempted, and the context error as
// Cause when ctx ended first.
func (inv *Invoker) Invoke(ctx context.Context, req Request) (*Result, error) {
	var failures []ProviderFailure

	for _, e := range inv.registry.entries {
		if !e.provider.Enabled() {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		text, failure := inv.attempt(ctx, e, req)
		if failure == nil {
			return &Result{Text: text, Provider: e.info.Name, Failures: failures}, nil
		}
		failures = append(failures, *failure)
	}

	return nil, &AllProvidersFailedError{Failures: failures, Cause: ctx.Err()}
}

func (inv *Invoker) attempt(ctx context.Context, e entry, req Request) (string, *ProviderFailure) {
	name := e.info.Name

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	ctx, span := inv.tracer.Start(ctx, "provider.complete", trace.WithAttributes(
		attribute.String("provider.name", name),
		attribute.String("provider.kind", string(e.info.Kind)),
		attribute.String("provider.model", e.info.Model),
	))
	defer span.End()

	start := inv.now()
	resp, err := inv.call(ctx, e, req)
	latency := inv.now().Sub(start)

	if err == nil {
		metrics.ProviderAttempts.WithLabelValues(name, metrics.OutcomeSuccess).Inc()
		metrics.ProviderLatency.WithLabelValues(name).Observe(latency.Seconds())
		spend := inv.recordUsage(e, resp)
		span.SetAttributes(
			attribute.Int("provider.tokens.input", resp.InputTokens),
			attribute.Int("provider.tokens.output", resp.OutputTokens),
		)
		span.SetStatus(codes.Ok, "")
		zap.L().Info("provider: completion succeeded",
			zap.String("provider", name),
			zap.Duration("latency", latency),
			zap.Int("chars", len(resp.Text)),
			zap.Int("input_tokens", resp.InputTokens),
			zap.Int("output_tokens", resp.OutputTokens),
			zap.Float64("cost_usd", spend),
		)
		return resp.Text, nil
	}

	f := classify(ctx, name, err)
	metrics.ProviderAttempts.WithLabelValues(name, f.Reason).Inc()
	if f.Reason != metrics.OutcomeCircuitOpen {
		metrics.ProviderLatency.WithLabelValues(name).Observe(latency.Seconds())
	}
	span.SetAttributes(attribute.String("provider.outcome", f.Reason))
	if f.StatusCode > 0 {
		span.SetAttributes(attribute.Int("http.status_code", f.StatusCode))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, f.Reason)
	zap.L().Warn("provider: completion failed, trying next",
		zap.String("provider", name),
		zap.String("reason", f.Reason),
		zap.Int("status", f.StatusCode),
		zap.Duration("latency", latency),
		zap.Error(err),
	)
	return "", &f
}

// recordUsage exports token counts and estimated spend, returning the spend.
func (inv *Invoker) recordUsage(e entry, resp *RawResponse) float64 {
	name := e.info.Name
	metrics.ProviderTokens.WithLabelValues(name, "input").Add(float64(resp.InputTokens))
	metrics.ProviderTokens.WithLabelValues(name, "output").Add(float64(resp.OutputTokens))
	spend, ok := inv.costs.Completion(e.info.Model, resp.InputTokens, resp.OutputTokens)
	if ok {
		metrics.ProviderCost.WithLabelValues(name).Add(spend)
	}
	return spend
}

func (inv *Invoker) call(ctx context.Context, e entry, req Request) (*RawResponse, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, &rateLimitError{err: err}
		}
	}

	breaker := inv.breakers.Get(e.info.Name)
	resp, err := resilience.Guard(ctx, breaker, func(ctx context.Context) (*RawResponse, error) {
		resp, err := e.provider.Complete(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp == nil || strings.TrimSpace(resp.Text) == "" {
			return resp, errEmptyText
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

type rateLimitError struct{ err error }

func (e *rateLimitError) Error() string { return "provider: rate limit wait: " + e.err.Error() }
func (e *rateLimitError) Unwrap() error { return e.err }

func classify(ctx context.Context, name string, err error) ProviderFailure {
	f := ProviderFailure{Provider: name, Err: err, StatusCode: StatusCode(err)}
	var rl *rateLimitError
	switch {
	case errors.Is(err, resilience.ErrOpen):
		f.Reason = metrics.OutcomeCircuitOpen
	case errors.Is(err, errEmptyText):
		f.Reason = metrics.OutcomeEmpty
	case errors.As(err, &rl):
		f.Reason = metrics.OutcomeRateLimited
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		f.Reason = metrics.OutcomeTimeout
	case f.StatusCode > 0:
		f.Reason = metrics.OutcomeStatus
	default:
		f.Reason = metrics.OutcomeTransport
	}
	return f
}
