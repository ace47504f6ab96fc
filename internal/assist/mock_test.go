package assist

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/crm-assist/internal/provider"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Invoke(ctx context.Context, req provider.Request) (*provider.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Result), args.Error(1)
}

func respond(text string) *mockCompleter {
	m := &mockCompleter{}
	m.On("Invoke", mock.Anything, mock.Anything).Return(&provider.Result{Text: text, Provider: "groq"}, nil)
	return m
}

func failAll() *mockCompleter {
	m := &mockCompleter{}
	m.On("Invoke", mock.Anything, mock.Anything).Return(nil, &provider.AllProvidersFailedError{
		Failures: []provider.ProviderFailure{
			{Provider: "groq", Reason: "status", StatusCode: 503},
			{Provider: "openai", Reason: "status", StatusCode: 500},
		},
	})
	return m
}
