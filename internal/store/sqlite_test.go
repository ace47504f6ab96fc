package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-assist/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_MigrateIsIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.Ping(context.Background()))
}

func TestSQLite_Client_UpsertAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := &model.Client{Name: "Jane Doe", Email: "jane@acme.test", Type: model.ClientTypeCustomer, UpsellPotential: true, LeadScore: 85}
	require.NoError(t, st.UpsertClient(ctx, c))
	require.NotEmpty(t, c.ID)
	assert.Equal(t, model.ClientStatusActive, c.Status)

	got, err := st.GetClient(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.Name)
	assert.Equal(t, model.ClientTypeCustomer, got.Type)
	assert.True(t, got.UpsellPotential)
	assert.Equal(t, 85, got.LeadScore)
	assert.Nil(t, got.Analysis)

	c.Name = "Jane Smith"
	require.NoError(t, st.UpsertClient(ctx, c))
	got, err = st.GetClient(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", got.Name)
}

func TestSQLite_GetClient_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetClient(context.Background(), "missing")
	require.Error(t, err)

	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "get client", se.Op)
	assert.True(t, IsNotFound(err))
}

func TestSQLite_ListClients_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	var ids []string
	for i, typ := range []model.ClientType{model.ClientTypeLead, model.ClientTypeCustomer, model.ClientTypeLead} {
		c := &model.Client{Name: "client", Type: typ, CreatedAt: time.Date(2026, 1, i+1, 0, 0, 0, 0, time.UTC)}
		require.NoError(t, st.UpsertClient(ctx, c))
		ids = append(ids, c.ID)
	}

	all, err := st.ListClients(ctx, ClientFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, ids[0], all[0].ID)

	leads, err := st.ListClients(ctx, ClientFilter{Type: model.ClientTypeLead})
	require.NoError(t, err)
	assert.Len(t, leads, 2)

	picked, err := st.ListClients(ctx, ClientFilter{IDs: []string{ids[1], ids[2]}})
	require.NoError(t, err)
	assert.Len(t, picked, 2)

	limited, err := st.ListClients(ctx, ClientFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, ids[1], limited[0].ID)
}

func TestSQLite_UpdateLeadAnalysis(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := &model.Client{Name: "Jane"}
	require.NoError(t, st.UpsertClient(ctx, c))

	a := model.LeadAnalysis{LeadScore: 72, NextAction: "Call", ActionPriority: model.PriorityMedium, Source: model.SourceAI, Provider: "groq"}
	require.NoError(t, st.UpdateLeadAnalysis(ctx, c.ID, a))

	got, err := st.GetClient(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 72, got.LeadScore)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, a, *got.Analysis)

	err = st.UpdateLeadAnalysis(ctx, "missing", a)
	assert.True(t, IsNotFound(err))
}

func TestSQLite_Interactions_NewestFirst(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := &model.Client{Name: "Jane"}
	require.NoError(t, st.UpsertClient(ctx, c))

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, st.AddInteraction(ctx, &model.Interaction{
			ClientID:   c.ID,
			Kind:       model.InteractionCall,
			Summary:    string(rune('a' + i)),
			OccurredAt: base.AddDate(0, 0, i),
		}))
	}

	got, err := st.ListInteractions(ctx, c.ID, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].Summary)
	assert.Equal(t, "b", got[1].Summary)
	assert.Equal(t, model.InteractionCall, got[0].Kind)
}

func TestSQLite_Tasks_UpsertAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := &model.Client{Name: "Jane"}
	require.NoError(t, st.UpsertClient(ctx, c))

	due := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	task := &model.SuggestedTask{
		ClientID:          c.ID,
		Title:             "Call Jane",
		Type:              model.TaskTypeCall,
		Priority:          model.PriorityHigh,
		DueDate:           due,
		EstimatedDuration: 30,
		Source:            model.SourceAI,
	}
	require.NoError(t, st.UpsertTask(ctx, task))
	require.NotEmpty(t, task.ID)

	task.Title = "Call Jane again"
	require.NoError(t, st.UpsertTask(ctx, task))

	got, err := st.ListTasks(ctx, TaskFilter{ClientID: c.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Call Jane again", got[0].Title)
	assert.Equal(t, model.PriorityHigh, got[0].Priority)
	assert.True(t, due.Equal(got[0].DueDate))
	assert.Equal(t, model.SourceAI, got[0].Source)
}

func TestStorageError(t *testing.T) {
	base := errors.New("disk full")
	err := fail("upsert task", base)

	assert.Equal(t, "store: upsert task: disk full", err.Error())
	assert.ErrorIs(t, err, base)
	assert.NoError(t, fail("noop", nil))
}
