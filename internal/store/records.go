package store

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/crm-assist/internal/model"
)

// prepareClient assigns an ID and timestamps and fills defaults before a
// client is written.
func prepareClient(c *model.Client, now time.Time) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Type == "" {
		c.Type = model.ClientTypeLead
	}
	c.Status = strings.ToLower(strings.TrimSpace(c.Status))
	if c.Status == "" {
		c.Status = model.ClientStatusActive
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
}

func prepareInteraction(in *model.Interaction, now time.Time) {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	if in.Kind == "" {
		in.Kind = model.InteractionNote
	}
	if in.OccurredAt.IsZero() {
		in.OccurredAt = now
	}
}

func prepareTask(t *model.SuggestedTask, now time.Time) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
}
