// Package store persists clients, interactions and suggested tasks.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/sells-group/crm-assist/internal/model"
)

// ErrNotFound is wrapped by StorageError when a record does not exist.
var ErrNotFound = errors.New("not found")

// StorageError is returned by every Store method that fails.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a StorageError for a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func fail(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// ClientFilter specifies criteria for listing clients.
type ClientFilter struct {
	IDs    []string         `json:"ids,omitempty"`
	Type   model.ClientType `json:"type,omitempty"`
	Status string           `json:"status,omitempty"`
	Limit  int              `json:"limit,omitempty"`
	Offset int              `json:"offset,omitempty"`
}

// TaskFilter specifies criteria for listing tasks.
type TaskFilter struct {
	ClientID string `json:"client_id,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}

// Store defines the persistence interface for the CRM assistant.
type Store interface {
	// Clients
	UpsertClient(ctx context.Context, c *model.Client) error
	GetClient(ctx context.Context, id string) (*model.Client, error)
	ListClients(ctx context.Context, filter ClientFilter) ([]model.Client, error)
	UpdateLeadAnalysis(ctx context.Context, clientID string, a model.LeadAnalysis) error

	// Interactions
	AddInteraction(ctx context.Context, in *model.Interaction) error
	ListInteractions(ctx context.Context, clientID string, limit int) ([]model.Interaction, error)

	// Tasks
	UpsertTask(ctx context.Context, t *model.SuggestedTask) error
	ListTasks(ctx context.Context, filter TaskFilter) ([]model.SuggestedTask, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
