package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertSQL(t *testing.T) {
	got, err := UpsertSQL(UpsertConfig{
		Table:        "tasks",
		Columns:      []string{"id", "title", "due_date"},
		ConflictKeys: []string{"id"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "tasks" ("id", "title", "due_date") VALUES ($1, $2, $3) ON CONFLICT ("id") DO UPDATE SET "title" = EXCLUDED."title", "due_date" = EXCLUDED."due_date"`,
		got)
}

func TestUpsertSQL_ExplicitUpdateCols(t *testing.T) {
	got, err := UpsertSQL(UpsertConfig{
		Table:        "crm.clients",
		Columns:      []string{"id", "name", "created_at"},
		ConflictKeys: []string{"id"},
		UpdateCols:   []string{"name"},
	})
	require.NoError(t, err)
	assert.Contains(t, got, `INSERT INTO "crm"."clients"`)
	assert.Contains(t, got, `DO UPDATE SET "name" = EXCLUDED."name"`)
	assert.NotContains(t, got, `"created_at" = EXCLUDED`)
}

func TestUpsertSQL_OnlyKeysDoesNothing(t *testing.T) {
	got, err := UpsertSQL(UpsertConfig{
		Table:        "tags",
		Columns:      []string{"id"},
		ConflictKeys: []string{"id"},
	})
	require.NoError(t, err)
	assert.Contains(t, got, "DO NOTHING")
}

func TestUpsertSQL_NoColumns(t *testing.T) {
	_, err := UpsertSQL(UpsertConfig{Table: "tasks", ConflictKeys: []string{"id"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestUpsertSQL_NoConflictKeys(t *testing.T) {
	_, err := UpsertSQL(UpsertConfig{Table: "tasks", Columns: []string{"id", "name"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"crm.clients", `"crm"."clients"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeTable(tt.input))
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"id", "name", "value"`, quoteAndJoin([]string{"id", "name", "value"}))
}
