package assist

import (
	"context"
	"time"

	"github.com/sells-group/crm-assist/internal/extract"
	"github.com/sells-group/crm-assist/internal/fallback"
	"github.com/sells-group/crm-assist/internal/model"
	"github.com/sells-group/crm-assist/internal/policy"
	"github.com/sells-group/crm-assist/internal/provider"
)

const (
	taskTemperature = 0.5
	taskMaxTokens   = 900
)

// TaskSuggestion is the raw output of TaskSuggester, before correction.
type TaskSuggestion struct {
	Drafts   []model.TaskDraft
	Source   model.Source
	Provider string
}

// TaskSuggester proposes follow-up tasks for a client.
type TaskSuggester struct {
	completer Completer
	fallback  *fallback.Generator
	window    policy.DueWindow
	now       clock
}

// NewTaskSuggester creates a TaskSuggester that restricts due dates to window.
func NewTaskSuggester(c Completer, fb *fallback.Generator, window policy.DueWindow) *TaskSuggester {
	return &TaskSuggester{completer: c, fallback: fb, window: window, now: time.Now}
}

// Suggest asks for 2-3 tasks. On failure it returns the two canned fallback
// drafts. The drafts are uncorrected; see tasks.Materializer.
func (s *TaskSuggester) Suggest(ctx context.Context, client model.Client) TaskSuggestion {
	now := s.now()

	res, err := s.completer.Invoke(ctx, provider.Request{
		Messages: []provider.Message{
			provider.System(taskSystemPrompt),
			provider.User(buildTaskPrompt(client, s.window.AllowedLabels(now), now)),
		},
		Temperature: taskTemperature,
		MaxTokens:   taskMaxTokens,
	})
	if err == nil {
		var drafts []model.TaskDraft
		drafts, err = extract.DecodeTaskDrafts(res.Text)
		if err == nil {
			return TaskSuggestion{Drafts: drafts, Source: model.SourceAI, Provider: res.Provider}
		}
	}

	recordFallback(adapterTasks, fallbackReason(err), err)
	return TaskSuggestion{Drafts: s.fallback.TaskDrafts(client, now), Source: model.SourceFallback}
}
