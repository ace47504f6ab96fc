package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-assist/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetClient_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, name, .* FROM clients WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetClient(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetClient(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "name", "email", "phone", "company", "type", "status",
		"lead_score", "upsell_potential", "notes", "analysis", "created_at", "updated_at"}).
		AddRow("c1", "Jane", "jane@acme.test", "", "Acme", "customer", "active",
			85, true, "", []byte(`{"lead_score":85,"source":"ai"}`), now, now)
	mock.ExpectQuery(`FROM clients WHERE id = \$1`).WithArgs("c1").WillReturnRows(rows)

	got, err := s.GetClient(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, model.ClientTypeCustomer, got.Type)
	assert.Equal(t, 85, got.LeadScore)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, model.SourceAI, got.Analysis.Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertClient(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO "clients" .* ON CONFLICT \("id"\) DO UPDATE`).
		WithArgs(pgxmock.AnyArg(), "Jane", "", "", "", "lead", "active", 0, false, "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	c := &model.Client{Name: "Jane"}
	require.NoError(t, s.UpsertClient(context.Background(), c))
	assert.NotEmpty(t, c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertTask_Failure(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO "tasks" .* ON CONFLICT \("id"\) DO UPDATE`).
		WithArgs(pgxmock.AnyArg(), "c1", "Call", "", pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err := s.UpsertTask(context.Background(), &model.SuggestedTask{ClientID: "c1", Title: "Call"})
	require.Error(t, err)

	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "upsert task", se.Op)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateLeadAnalysis_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE clients SET lead_score`).
		WithArgs(50, pgxmock.AnyArg(), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateLeadAnalysis(context.Background(), "missing", model.LeadAnalysis{LeadScore: 50})
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListInteractions(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "client_id", "kind", "summary", "outcome", "occurred_at"}).
		AddRow("i2", "c1", "email", "Sent pricing", "", now).
		AddRow("i1", "c1", "call", "Intro call", "positive", now.Add(-time.Hour))
	mock.ExpectQuery(`FROM interactions`).WithArgs("c1", 10).WillReturnRows(rows)

	got, err := s.ListInteractions(context.Background(), "c1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.InteractionEmail, got[0].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListClients_FilterArgs(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`AND id = ANY\(\$1\) AND type = \$2 ORDER BY created_at, id LIMIT \$3`).
		WithArgs([]string{"c1", "c2"}, "lead", 100).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	got, err := s.ListClients(context.Background(), ClientFilter{IDs: []string{"c1", "c2"}, Type: model.ClientTypeLead})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS clients`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
