package provider

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-assist/internal/resilience"
	"github.com/sells-group/crm-assist/pkg/chatcompletion"
)

const defaultChatMaxTokens = 1024

// chatProvider talks to any OpenAI-compatible endpoint over plain HTTP.
type chatProvider struct {
	cfg    Config
	client chatcompletion.Client
}

func newChatProvider(cfg Config, hc *http.Client) *chatProvider {
	opts := []chatcompletion.Option{
		chatcompletion.WithModel(cfg.Model),
		chatcompletion.WithHeaders(cfg.Headers),
	}
	if hc != nil {
		opts = append(opts, chatcompletion.WithHTTPClient(hc))
	}
	return &chatProvider{
		cfg:    cfg,
		client: chatcompletion.NewClient(cfg.Endpoint, cfg.APIKey, opts...),
	}
}

func (p *chatProvider) Name() string  { return p.cfg.Name }
func (p *chatProvider) Enabled() bool { return p.cfg.APIKey != "" }

func (p *chatProvider) Complete(ctx context.Context, req Request) (*RawResponse, error) {
	msgs := make([]chatcompletion.Message, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = chatcompletion.Message{Role: m.Role, Content: m.Content}
	}
	temp := req.Temperature
	limit := maxTokens(req, p.cfg, defaultChatMaxTokens)

	resp, err := p.client.ChatCompletion(ctx, chatcompletion.Request{
		Model:       p.cfg.Model,
		Messages:    msgs,
		Temperature: &temp,
		MaxTokens:   &limit,
	})
	if err != nil {
		return nil, resilience.MarkTransient(eris.Wrapf(err, "provider: %s complete", p.cfg.Name), StatusCode(err))
	}

	return &RawResponse{
		Provider:     p.cfg.Name,
		Text:         resp.Text(),
		StatusCode:   http.StatusOK,
		Success:      true,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}
