package provider

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-assist/internal/resilience"
	"github.com/sells-group/crm-assist/pkg/anthropic"
)

const defaultAnthropicMaxTokens = 1024

// anthropicProvider maps chat messages onto the Messages API. System turns
// become system blocks.
type anthropicProvider struct {
	cfg    Config
	client anthropic.Client
}

func newAnthropicProvider(cfg Config, hc *http.Client) *anthropicProvider {
	var opts []anthropic.Option
	if cfg.Endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.Endpoint))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, anthropic.WithHeaders(cfg.Headers))
	}
	if hc != nil {
		opts = append(opts, anthropic.WithHTTPClient(hc))
	}
	return &anthropicProvider{cfg: cfg, client: anthropic.NewClient(cfg.APIKey, opts...)}
}

func (p *anthropicProvider) Name() string  { return p.cfg.Name }
func (p *anthropicProvider) Enabled() bool { return p.cfg.APIKey != "" }

func (p *anthropicProvider) Complete(ctx context.Context, req Request) (*RawResponse, error) {
	var (
		system []anthropic.SystemBlock
		msgs   []anthropic.Message
	)
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			system = append(system, anthropic.SystemBlock{Text: m.Content})
			continue
		}
		msgs = append(msgs, anthropic.Message{Role: m.Role, Content: m.Content})
	}
	temp := req.Temperature

	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       p.cfg.Model,
		MaxTokens:   int64(maxTokens(req, p.cfg, defaultAnthropicMaxTokens)),
		System:      system,
		Messages:    msgs,
		Temperature: &temp,
	})
	if err != nil {
		return nil, resilience.MarkTransient(eris.Wrapf(err, "provider: %s complete", p.cfg.Name), StatusCode(err))
	}

	return &RawResponse{
		Provider:     p.cfg.Name,
		Text:         resp.Text(),
		StatusCode:   http.StatusOK,
		Success:      true,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}
