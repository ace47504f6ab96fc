package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-assist/internal/db"
	"github.com/sells-group/crm-assist/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fail("open", eris.Wrap(err, "postgres: parse config"))
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, fail("open", eris.Wrap(err, "postgres: create pool"))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fail("open", eris.Wrap(err, "postgres: ping"))
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS clients (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name             TEXT NOT NULL,
	email            TEXT NOT NULL DEFAULT '',
	phone            TEXT NOT NULL DEFAULT '',
	company          TEXT NOT NULL DEFAULT '',
	type             TEXT NOT NULL DEFAULT 'lead',
	status           TEXT NOT NULL DEFAULT 'active',
	lead_score       INTEGER NOT NULL DEFAULT 0 CHECK (lead_score BETWEEN 0 AND 100),
	upsell_potential BOOLEAN NOT NULL DEFAULT false,
	notes            TEXT NOT NULL DEFAULT '',
	analysis         JSONB,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS interactions (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	client_id   TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
	kind        TEXT NOT NULL,
	summary     TEXT NOT NULL DEFAULT '',
	outcome     TEXT NOT NULL DEFAULT '',
	occurred_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	client_id          TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
	title              TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	type               TEXT NOT NULL,
	priority           TEXT NOT NULL CHECK (priority IN ('low', 'medium', 'high')),
	due_date           TIMESTAMPTZ NOT NULL,
	estimated_duration INTEGER NOT NULL CHECK (estimated_duration > 0),
	source             TEXT NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_clients_type ON clients(type);
CREATE INDEX IF NOT EXISTS idx_interactions_client ON interactions(client_id, occurred_at DESC);
CREATE INDEX IF NOT EXISTS idx_tasks_client ON tasks(client_id, due_date);
`

var (
	clientUpsertSQL = mustUpsertSQL(db.UpsertConfig{
		Table: "clients",
		Columns: []string{"id", "name", "email", "phone", "company", "type", "status",
			"lead_score", "upsell_potential", "notes", "created_at", "updated_at"},
		ConflictKeys: []string{"id"},
		UpdateCols: []string{"name", "email", "phone", "company", "type", "status",
			"lead_score", "upsell_potential", "notes", "updated_at"},
	})
	taskUpsertSQL = mustUpsertSQL(db.UpsertConfig{
		Table: "tasks",
		Columns: []string{"id", "client_id", "title", "description", "type", "priority",
			"due_date", "estimated_duration", "source", "created_at"},
		ConflictKeys: []string{"id"},
		UpdateCols: []string{"title", "description", "type", "priority",
			"due_date", "estimated_duration", "source"},
	})
)

func mustUpsertSQL(cfg db.UpsertConfig) string {
	q, err := db.UpsertSQL(cfg)
	if err != nil {
		panic(err)
	}
	return q
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return fail("ping", eris.Wrap(err, "postgres: ping"))
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return fail("migrate", eris.Wrap(err, "postgres: migrate"))
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertClient(ctx context.Context, c *model.Client) error {
	prepareClient(c, time.Now().UTC())
	_, err := s.pool.Exec(ctx, clientUpsertSQL,
		c.ID, c.Name, c.Email, c.Phone, c.Company, string(c.Type), c.Status,
		c.LeadScore, c.UpsellPotential, c.Notes, c.CreatedAt, c.UpdatedAt,
	)
	return fail("upsert client", eris.Wrapf(err, "postgres: upsert client %s", c.ID))
}

const pgClientColumns = `id, name, email, phone, company, type, status, lead_score, upsell_potential, notes, analysis, created_at, updated_at`

func (s *PostgresStore) GetClient(ctx context.Context, id string) (*model.Client, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgClientColumns+` FROM clients WHERE id = $1`, id)
	c, err := scanPgClient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fail("get client", eris.Wrapf(ErrNotFound, "client %s", id))
	}
	if err != nil {
		return nil, fail("get client", eris.Wrapf(err, "postgres: get client %s", id))
	}
	return c, nil
}

func (s *PostgresStore) ListClients(ctx context.Context, filter ClientFilter) ([]model.Client, error) {
	query := `SELECT ` + pgClientColumns + ` FROM clients WHERE true`
	args := []any{}
	argIdx := 1

	if len(filter.IDs) > 0 {
		query += fmt.Sprintf(` AND id = ANY($%d)`, argIdx)
		args = append(args, filter.IDs)
		argIdx++
	}
	if filter.Type != "" {
		query += fmt.Sprintf(` AND type = $%d`, argIdx)
		args = append(args, string(filter.Type))
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = lower($%d)`, argIdx)
		args = append(args, filter.Status)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at, id LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fail("list clients", eris.Wrap(err, "postgres: list clients"))
	}
	defer rows.Close()

	var clients []model.Client
	for rows.Next() {
		c, err := scanPgClient(rows)
		if err != nil {
			return nil, fail("list clients", eris.Wrap(err, "postgres: scan client"))
		}
		clients = append(clients, *c)
	}
	return clients, fail("list clients", eris.Wrap(rows.Err(), "postgres: list clients iterate"))
}

func (s *PostgresStore) UpdateLeadAnalysis(ctx context.Context, clientID string, a model.LeadAnalysis) error {
	analysisJSON, err := json.Marshal(a)
	if err != nil {
		return fail("update lead analysis", eris.Wrap(err, "postgres: marshal analysis"))
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE clients SET lead_score = $1, analysis = $2, updated_at = $3 WHERE id = $4`,
		a.LeadScore, analysisJSON, time.Now().UTC(), clientID,
	)
	if err != nil {
		return fail("update lead analysis", eris.Wrapf(err, "postgres: update lead analysis %s", clientID))
	}
	if tag.RowsAffected() == 0 {
		return fail("update lead analysis", eris.Wrapf(ErrNotFound, "client %s", clientID))
	}
	return nil
}

func (s *PostgresStore) AddInteraction(ctx context.Context, in *model.Interaction) error {
	prepareInteraction(in, time.Now().UTC())
	_, err := s.pool.Exec(ctx,
		`INSERT INTO interactions (id, client_id, kind, summary, outcome, occurred_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		in.ID, in.ClientID, string(in.Kind), in.Summary, in.Outcome, in.OccurredAt,
	)
	return fail("add interaction", eris.Wrapf(err, "postgres: insert interaction for client %s", in.ClientID))
}

func (s *PostgresStore) ListInteractions(ctx context.Context, clientID string, limit int) ([]model.Interaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, client_id, kind, summary, outcome, occurred_at FROM interactions
		 WHERE client_id = $1 ORDER BY occurred_at DESC LIMIT $2`,
		clientID, listLimit(limit),
	)
	if err != nil {
		return nil, fail("list interactions", eris.Wrap(err, "postgres: list interactions"))
	}
	defer rows.Close()

	var out []model.Interaction
	for rows.Next() {
		var in model.Interaction
		var kind string
		if err := rows.Scan(&in.ID, &in.ClientID, &kind, &in.Summary, &in.Outcome, &in.OccurredAt); err != nil {
			return nil, fail("list interactions", eris.Wrap(err, "postgres: scan interaction"))
		}
		in.Kind = model.InteractionKind(kind)
		out = append(out, in)
	}
	return out, fail("list interactions", eris.Wrap(rows.Err(), "postgres: list interactions iterate"))
}

func (s *PostgresStore) UpsertTask(ctx context.Context, t *model.SuggestedTask) error {
	prepareTask(t, time.Now().UTC())
	_, err := s.pool.Exec(ctx, taskUpsertSQL,
		t.ID, t.ClientID, t.Title, t.Description, string(t.Type), string(t.Priority),
		t.DueDate, t.EstimatedDuration, string(t.Source), t.CreatedAt,
	)
	return fail("upsert task", eris.Wrapf(err, "postgres: upsert task for client %s", t.ClientID))
}

func (s *PostgresStore) ListTasks(ctx context.Context, filter TaskFilter) ([]model.SuggestedTask, error) {
	query := `SELECT id, client_id, title, description, type, priority, due_date, estimated_duration, source, created_at FROM tasks WHERE true`
	args := []any{}
	argIdx := 1
	if filter.ClientID != "" {
		query += fmt.Sprintf(` AND client_id = $%d`, argIdx)
		args = append(args, filter.ClientID)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY due_date, created_at LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fail("list tasks", eris.Wrap(err, "postgres: list tasks"))
	}
	defer rows.Close()

	var out []model.SuggestedTask
	for rows.Next() {
		var t model.SuggestedTask
		var typ, priority, source string
		if err := rows.Scan(&t.ID, &t.ClientID, &t.Title, &t.Description, &typ, &priority,
			&t.DueDate, &t.EstimatedDuration, &source, &t.CreatedAt); err != nil {
			return nil, fail("list tasks", eris.Wrap(err, "postgres: scan task"))
		}
		t.Type = model.TaskType(typ)
		t.Priority = model.Priority(priority)
		t.Source = model.Source(source)
		out = append(out, t)
	}
	return out, fail("list tasks", eris.Wrap(rows.Err(), "postgres: list tasks iterate"))
}

func scanPgClient(row pgx.Row) (*model.Client, error) {
	var c model.Client
	var typ string
	var analysis []byte
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &typ, &c.Status,
		&c.LeadScore, &c.UpsellPotential, &c.Notes, &analysis, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Type = model.ClientType(typ)
	if len(analysis) > 0 {
		c.Analysis = &model.LeadAnalysis{}
		if err := json.Unmarshal(analysis, c.Analysis); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal analysis")
		}
	}
	return &c, nil
}
