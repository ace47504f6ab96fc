package provider

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Info describes a registered provider for listings.
type Info struct {
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	Model    string `json:"model"`
	Priority int    `json:"priority"`
	Enabled  bool   `json:"enabled"`
}

type entry struct {
	provider Provider
	info     Info
	timeout  time.Duration
	limiter  *rate.Limiter
}

// Registry is the ordered, read-only set of providers built at startup.
// It is safe for concurrent use.
type Registry struct {
	entries []entry
}

// NewRegistry builds one provider per config, ordered by ascending Priority
// (config order breaks ties). A config without an API key yields a disabled
// provider; an unknown kind or duplicate name is an error.
func NewRegistry(cfgs []Config) (*Registry, error) {
	sorted := make([]Config, len(cfgs))
	copy(sorted, cfgs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	seen := make(map[string]bool, len(sorted))
	r := &Registry{entries: make([]entry, 0, len(sorted))}
	for _, cfg := range sorted {
		cfg.Name = strings.TrimSpace(cfg.Name)
		if cfg.Name == "" {
			return nil, eris.New("provider: config missing name")
		}
		if seen[cfg.Name] {
			return nil, eris.Errorf("provider: duplicate provider %q", cfg.Name)
		}
		seen[cfg.Name] = true
		cfg.Kind = normalizeKind(cfg.Kind)

		p, err := New(cfg)
		if err != nil {
			return nil, err
		}
		if !p.Enabled() {
			zap.L().Info("provider: disabled, no api key",
				zap.String("provider", cfg.Name),
				zap.String("kind", string(cfg.Kind)),
			)
		}
		r.entries = append(r.entries, newEntry(p, cfg))
	}
	return r, nil
}

// NewRegistryFrom wraps already-built providers, keeping their order.
func NewRegistryFrom(providers ...Provider) *Registry {
	r := &Registry{entries: make([]entry, 0, len(providers))}
	for i, p := range providers {
		r.entries = append(r.entries, newEntry(p, Config{Name: p.Name(), Priority: i}))
	}
	return r
}

func newEntry(p Provider, cfg Config) entry {
	e := entry{
		provider: p,
		info: Info{
			Name:     p.Name(),
			Kind:     cfg.Kind,
			Model:    cfg.Model,
			Priority: cfg.Priority,
			Enabled:  p.Enabled(),
		},
		timeout: cfg.Timeout,
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if cfg.RateLimit > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return e
}

// New builds the provider for cfg.Kind. An empty kind means KindChat.
func New(cfg Config) (Provider, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := &http.Client{Timeout: timeout}

	switch normalizeKind(cfg.Kind) {
	case KindChat:
		if cfg.Endpoint == "" {
			return nil, eris.Errorf("provider: %s: chat provider requires an endpoint", cfg.Name)
		}
		return newChatProvider(cfg, hc), nil
	case KindOpenAI:
		return newOpenAIProvider(cfg, hc), nil
	case KindAnthropic:
		return newAnthropicProvider(cfg, hc), nil
	default:
		return nil, eris.Errorf("provider: %s: unknown kind %q", cfg.Name, cfg.Kind)
	}
}

func normalizeKind(k Kind) Kind {
	k = Kind(strings.ToLower(strings.TrimSpace(string(k))))
	if k == "" {
		return KindChat
	}
	return k
}

// Providers returns the providers in priority order.
func (r *Registry) Providers() []Provider {
	out := make([]Provider, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.provider
	}
	return out
}

// Describe lists every provider in priority order.
func (r *Registry) Describe() []Info {
	out := make([]Info, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.info
	}
	return out
}

// EnabledCount returns the number of providers with a credential.
func (r *Registry) EnabledCount() int {
	n := 0
	for _, e := range r.entries {
		if e.provider.Enabled() {
			n++
		}
	}
	return n
}
