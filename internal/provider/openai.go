package provider

import (
	"context"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"

	"github.com/sells-group/crm-assist/internal/resilience"
)

const defaultOpenAIMaxTokens = 1024

// openAIProvider uses the go-openai SDK, optionally pointed at a compatible
// endpoint through BaseURL.
type openAIProvider struct {
	cfg    Config
	client *openai.Client
}

func newOpenAIProvider(cfg Config, hc *http.Client) *openAIProvider {
	conf := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		conf.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	}
	if hc == nil {
		hc = &http.Client{}
	}
	if len(cfg.Headers) > 0 {
		base := hc.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		wrapped := *hc
		wrapped.Transport = &headerTransport{headers: cfg.Headers, base: base}
		hc = &wrapped
	}
	conf.HTTPClient = hc
	return &openAIProvider{cfg: cfg, client: openai.NewClientWithConfig(conf)}
}

func (p *openAIProvider) Name() string  { return p.cfg.Name }
func (p *openAIProvider) Enabled() bool { return p.cfg.APIKey != "" }

func (p *openAIProvider) Complete(ctx context.Context, req Request) (*RawResponse, error) {
	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.cfg.Model,
		Messages:    msgs,
		Temperature: float32(req.Temperature),
		MaxTokens:   maxTokens(req, p.cfg, defaultOpenAIMaxTokens),
	})
	if err != nil {
		return nil, resilience.MarkTransient(eris.Wrapf(err, "provider: %s complete", p.cfg.Name), StatusCode(err))
	}

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	return &RawResponse{
		Provider:     p.cfg.Name,
		Text:         text,
		StatusCode:   http.StatusOK,
		Success:      true,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// headerTransport adds fixed identification headers to each request.
type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	for k, v := range t.headers {
		r.Header.Set(k, v)
	}
	return t.base.RoundTrip(r)
}
