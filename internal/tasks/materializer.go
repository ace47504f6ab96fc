// Package tasks turns task drafts into persisted suggested tasks.
package tasks

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/crm-assist/internal/metrics"
	"github.com/sells-group/crm-assist/internal/model"
	"github.com/sells-group/crm-assist/internal/policy"
)

// DefaultDuration is used when a draft has no positive estimated duration.
const DefaultDuration = 30

// TaskWriter persists a corrected task. store.Store satisfies it.
type TaskWriter interface {
	UpsertTask(ctx context.Context, t *model.SuggestedTask) error
}

// Materializer corrects drafts against the due-date and priority policies
// and writes them.
type Materializer struct {
	writer TaskWriter
	window policy.DueWindow
	now    func() time.Time
}

// NewMaterializer creates a Materializer.
func NewMaterializer(w TaskWriter, window policy.DueWindow) *Materializer {
	return &Materializer{writer: w, window: window, now: time.Now}
}

// Correct returns a valid SuggestedTask for draft. It never rejects a draft:
// every invalid field is replaced and the replacement is logged and counted.
// Source is left empty.
func (m *Materializer) Correct(client model.Client, draft model.TaskDraft) model.SuggestedTask {
	now := m.now()
	log := zap.L().With(zap.String("client_id", client.ID), zap.String("title", draft.Title))
	corrected := func(field string, from any) {
		metrics.TaskCorrections.WithLabelValues(field).Inc()
		log.Debug("tasks: corrected field", zap.String("field", field), zap.Any("from", from))
	}

	t := model.SuggestedTask{
		ClientID:          client.ID,
		Title:             strings.TrimSpace(draft.Title),
		Description:       strings.TrimSpace(draft.Description),
		EstimatedDuration: draft.EstimatedDuration,
		CreatedAt:         now,
	}

	if t.Title == "" {
		t.Title = "Follow up with " + strings.TrimSpace(client.Name)
		corrected("title", draft.Title)
	}

	due, ok := m.window.Parse(draft.DueDate)
	if !ok || due.Before(m.window.StartOfDay(now)) {
		due = m.window.Default(now)
		corrected("due_date", draft.DueDate)
	}
	t.DueDate = due

	if p, ok := model.ParsePriority(draft.Priority); ok {
		t.Priority = p
	} else {
		t.Priority = policy.Priority(client)
		corrected("priority", draft.Priority)
	}

	if typ, ok := model.ParseTaskType(string(draft.Type)); ok {
		t.Type = typ
	} else {
		t.Type = model.TaskTypeFollowUp
		corrected("type", draft.Type)
	}

	if t.EstimatedDuration <= 0 {
		t.EstimatedDuration = DefaultDuration
		corrected("estimated_duration", draft.EstimatedDuration)
	}

	return t
}

// Materialize corrects draft and writes it with the given source. Storage
// errors are returned unchanged and not retried.
func (m *Materializer) Materialize(ctx context.Context, client model.Client, draft model.TaskDraft, source model.Source) (model.SuggestedTask, error) {
	t := m.Correct(client, draft)
	t.Source = source
	if err := m.writer.UpsertTask(ctx, &t); err != nil {
		return t, err
	}
	metrics.TasksPersisted.WithLabelValues(string(source)).Inc()
	return t, nil
}
