package provider

import (
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sells-group/crm-assist/internal/resilience"
	"github.com/sells-group/crm-assist/pkg/anthropic"
	"github.com/sells-group/crm-assist/pkg/chatcompletion"
)

var errEmptyText = errors.New("provider: empty response text")

// ProviderFailure records why one provider did not produce usable text.
type ProviderFailure struct {
	Provider   string
	Reason     string
	StatusCode int
	Err        error
}

func (f ProviderFailure) Error() string {
	if f.StatusCode > 0 {
		return fmt.Sprintf("%s: %s %d", f.Provider, f.Reason, f.StatusCode)
	}
	return fmt.Sprintf("%s: %s", f.Provider, f.Reason)
}

func (f ProviderFailure) Unwrap() error { return f.Err }

// AllProvidersFailedError is returned when no enabled provider produced
// usable text, including when no provider is enabled at all.
type AllProvidersFailedError struct {
	Failures []ProviderFailure
	// Cause is the context error when the invocation stopped early.
	Cause error
}

func (e *AllProvidersFailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider: cancelled after %d failed providers: %v", len(e.Failures), e.Cause)
	}
	if len(e.Failures) == 0 {
		return "provider: no providers enabled"
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("provider: all %d providers failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

func (e *AllProvidersFailedError) Unwrap() error { return e.Cause }

// StatusCode extracts the HTTP status from any provider client error, or 0
// when the failure happened before a response was received.
func StatusCode(err error) int {
	if err == nil {
		return 0
	}
	var se *chatcompletion.StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	var ae *openai.APIError
	if errors.As(err, &ae) {
		return ae.HTTPStatusCode
	}
	var re *openai.RequestError
	if errors.As(err, &re) {
		return re.HTTPStatusCode
	}
	if code := anthropic.StatusCode(err); code > 0 {
		return code
	}
	var te *resilience.TransientError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}
