package provider

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-assist/pkg/chatcompletion"
)

func TestNewRegistry_OrdersByPriority(t *testing.T) {
	reg, err := NewRegistry([]Config{
		{Name: "openrouter", Kind: KindChat, Endpoint: "https://openrouter.ai/api/v1", APIKey: "k", Priority: 2},
		{Name: "groq", Kind: KindChat, Endpoint: "https://api.groq.com/openai/v1", APIKey: "k", Priority: 1},
		{Name: "claude", Kind: KindAnthropic, APIKey: "", Priority: 3, Model: "claude-haiku-4-5"},
		{Name: "mistral", Kind: "OpenAI", Endpoint: "https://api.mistral.ai/v1", APIKey: "k", Priority: 2},
	})
	require.NoError(t, err)

	info := reg.Describe()
	require.Len(t, info, 4)
	names := []string{info[0].Name, info[1].Name, info[2].Name, info[3].Name}
	assert.Equal(t, []string{"groq", "openrouter", "mistral", "claude"}, names, "stable on ties")
	assert.Equal(t, KindOpenAI, info[2].Kind)
	assert.False(t, info[3].Enabled)
	assert.Equal(t, 3, reg.EnabledCount())
	assert.Len(t, reg.Providers(), 4)
}

func TestNewRegistry_DefaultsKindAndTimeout(t *testing.T) {
	reg, err := NewRegistry([]Config{{Name: "x", Endpoint: "http://localhost"}})
	require.NoError(t, err)
	assert.Equal(t, KindChat, reg.Describe()[0].Kind)
	assert.Equal(t, DefaultTimeout, reg.entries[0].timeout)
	assert.Nil(t, reg.entries[0].limiter)

	reg, err = NewRegistry([]Config{{Name: "y", Endpoint: "http://localhost", Timeout: 5 * time.Second, RateLimit: 2}})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, reg.entries[0].timeout)
	assert.NotNil(t, reg.entries[0].limiter)
}

func TestNewRegistry_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfgs []Config
		want string
	}{
		{"unknown kind", []Config{{Name: "x", Kind: "grpc"}}, "unknown kind"},
		{"missing name", []Config{{Kind: KindOpenAI}}, "missing name"},
		{"duplicate", []Config{{Name: "a", Kind: KindOpenAI}, {Name: "a", Kind: KindOpenAI}}, "duplicate"},
		{"chat without endpoint", []Config{{Name: "a", Kind: KindChat}}, "requires an endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.cfgs)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewRegistry_DisabledWithoutKey(t *testing.T) {
	reg, err := NewRegistry([]Config{{Name: "groq", Endpoint: "http://localhost"}})
	require.NoError(t, err)
	assert.False(t, reg.Providers()[0].Enabled())
	assert.Equal(t, 0, reg.EnabledCount())
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, 0, StatusCode(nil))
	assert.Equal(t, 0, StatusCode(errors.New("x")))
	assert.Equal(t, 502, StatusCode(&chatcompletion.StatusError{StatusCode: 502}))
	assert.Equal(t, 429, StatusCode(statusErr(429)))
}
