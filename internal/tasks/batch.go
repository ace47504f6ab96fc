package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/crm-assist/internal/assist"
	"github.com/sells-group/crm-assist/internal/model"
)

// Suggester proposes task drafts for a client. *assist.TaskSuggester
// satisfies it.
type Suggester interface {
	Suggest(ctx context.Context, client model.Client) assist.TaskSuggestion
}

// Failure records a client whose tasks could not all be stored.
type Failure struct {
	ClientID string `json:"client_id"`
	Task     string `json:"task"`
	Error    string `json:"error"`
}

// Report summarizes a batch run.
type Report struct {
	Clients   int                   `json:"clients"`
	Created   []model.SuggestedTask `json:"created"`
	Failures  []Failure             `json:"failures"`
	Cancelled bool                  `json:"cancelled,omitempty"`
	Duration  time.Duration         `json:"duration"`
}

// Batch generates and stores tasks for many clients.
type Batch struct {
	suggester    Suggester
	materializer *Materializer
}

// NewBatch creates a Batch.
func NewBatch(s Suggester, m *Materializer) *Batch {
	return &Batch{suggester: s, materializer: m}
}

// Run processes clients one at a time, in order. Each client's drafts are
// stored in the order they were suggested. A storage failure is recorded and
// the remaining drafts of that client are skipped; the batch continues with
// the next client. Cancellation stops the batch between clients.
func (b *Batch) Run(ctx context.Context, clients []model.Client) *Report {
	start := time.Now()
	report := &Report{Created: []model.SuggestedTask{}, Failures: []Failure{}}
	log := zap.L().With(zap.Int("clients", len(clients)))

	for _, client := range clients {
		if ctx.Err() != nil {
			report.Cancelled = true
			log.Warn("tasks: batch cancelled", zap.Int("processed", report.Clients))
			break
		}
		report.Clients++

		suggestion := b.suggester.Suggest(ctx, client)
		for _, draft := range suggestion.Drafts {
			task, err := b.materializer.Materialize(ctx, client, draft, suggestion.Source)
			if err != nil {
				log.Error("tasks: store task failed",
					zap.String("client_id", client.ID),
					zap.String("title", task.Title),
					zap.Error(err),
				)
				report.Failures = append(report.Failures, Failure{
					ClientID: client.ID,
					Task:     task.Title,
					Error:    err.Error(),
				})
				break
			}
			report.Created = append(report.Created, task)
		}
	}

	report.Duration = time.Since(start)
	log.Info("tasks: batch complete",
		zap.Int("processed", report.Clients),
		zap.Int("created", len(report.Created)),
		zap.Int("failures", len(report.Failures)),
		zap.Duration("elapsed", report.Duration),
	)
	return report
}
