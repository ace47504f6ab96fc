package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crm-assist/internal/assist"
	"github.com/sells-group/crm-assist/internal/fallback"
	"github.com/sells-group/crm-assist/internal/policy"
	"github.com/sells-group/crm-assist/internal/provider"
	"github.com/sells-group/crm-assist/internal/resilience"
	"github.com/sells-group/crm-assist/internal/store"
	"github.com/sells-group/crm-assist/internal/tasks"
)

// appEnv holds the store, the provider chain and the adapters needed by the
// serve/analyze/tasks commands.
type appEnv struct {
	Store        store.Store
	Registry     *provider.Registry
	Invoker      *provider.Invoker
	Lead         *assist.LeadAnalyzer
	Messages     *assist.MessageWriter
	Search       *assist.Searcher
	Suggester    *assist.TaskSuggester
	Materializer *tasks.Materializer
	Batch        *tasks.Batch
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured store, retrying transient connection
// failures.
func initStore(ctx context.Context) (store.Store, error) {
	var open func(ctx context.Context) (store.Store, error)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "crm-assist.db"
		}
		open = func(context.Context) (store.Store, error) { return store.NewSQLite(dsn) }
	case "postgres":
		poolCfg := &store.PoolConfig{MaxConns: cfg.Store.MaxConns, MinConns: cfg.Store.MinConns}
		open = func(ctx context.Context) (store.Store, error) {
			return store.NewPostgres(ctx, cfg.Store.DatabaseURL, poolCfg)
		}
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}

	retry := resilience.DefaultRetryPolicy()
	retry.OnRetry = resilience.LogRetry("store connect")
	return resilience.Retry(ctx, retry, open)
}

// initApp opens and migrates the store, builds the provider registry once and
// wires the adapters. Callers should defer env.Close().
func initApp(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	reg, err := provider.NewRegistry(cfg.ProviderConfigs())
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "build provider registry")
	}
	if reg.EnabledCount() == 0 {
		zap.L().Warn("no providers have credentials, every request will use the fallback generator")
	}

	var templates []fallback.Option
	if path := cfg.Fallback.TemplatesPath; path != "" {
		t, err := fallback.LoadTemplates(path)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		templates = append(templates, fallback.WithTemplates(t))
	}

	inv := provider.NewInvoker(reg,
		provider.WithBreakerConfig(cfg.BreakerConfig()),
		provider.WithCostCalculator(cfg.CostCalculator()),
	)
	env := buildEnv(st, inv, cfg.DueWindow(), cfg.Assist.HistoryLimit, templates...)
	env.Registry = reg
	env.Invoker = inv

	zap.L().Info("assistant ready",
		zap.String("store", cfg.Store.Driver),
		zap.Int("providers", len(reg.Describe())),
		zap.Int("enabled", reg.EnabledCount()),
	)
	return env, nil
}

// buildEnv wires the adapters around an already-open store and completer.
func buildEnv(st store.Store, c assist.Completer, window policy.DueWindow, historyLimit int, opts ...fallback.Option) *appEnv {
	fb := fallback.New(window, opts...)
	suggester := assist.NewTaskSuggester(c, fb, window)
	materializer := tasks.NewMaterializer(st, window)
	return &appEnv{
		Store:        st,
		Lead:         assist.NewLeadAnalyzer(c, fb, historyLimit),
		Messages:     assist.NewMessageWriter(c, fb),
		Search:       assist.NewSearcher(c, fb),
		Suggester:    suggester,
		Materializer: materializer,
		Batch:        tasks.NewBatch(suggester, materializer),
	}
}
