package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/crm-assist/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fail("open", eris.Wrap(err, "sqlite: open"))
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, fail("open", eris.Wrapf(err, "sqlite: exec %s", pragma))
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS clients (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	email            TEXT NOT NULL DEFAULT '',
	phone            TEXT NOT NULL DEFAULT '',
	company          TEXT NOT NULL DEFAULT '',
	type             TEXT NOT NULL DEFAULT 'lead',
	status           TEXT NOT NULL DEFAULT 'active',
	lead_score       INTEGER NOT NULL DEFAULT 0,
	upsell_potential INTEGER NOT NULL DEFAULT 0,
	notes            TEXT NOT NULL DEFAULT '',
	analysis         TEXT,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS interactions (
	id          TEXT PRIMARY KEY,
	client_id   TEXT NOT NULL REFERENCES clients(id),
	kind        TEXT NOT NULL,
	summary     TEXT NOT NULL DEFAULT '',
	outcome     TEXT NOT NULL DEFAULT '',
	occurred_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id                 TEXT PRIMARY KEY,
	client_id          TEXT NOT NULL REFERENCES clients(id),
	title              TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	type               TEXT NOT NULL,
	priority           TEXT NOT NULL,
	due_date           DATETIME NOT NULL,
	estimated_duration INTEGER NOT NULL,
	source             TEXT NOT NULL,
	created_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_clients_type ON clients(type);
CREATE INDEX IF NOT EXISTS idx_interactions_client ON interactions(client_id, occurred_at DESC);
CREATE INDEX IF NOT EXISTS idx_tasks_client ON tasks(client_id, due_date);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return fail("ping", eris.Wrap(s.db.PingContext(ctx), "sqlite: ping"))
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return fail("migrate", eris.Wrap(err, "sqlite: migrate"))
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const clientColumns = `id, name, email, phone, company, type, status, lead_score, upsell_potential, notes, analysis, created_at, updated_at`

func (s *SQLiteStore) UpsertClient(ctx context.Context, c *model.Client) error {
	prepareClient(c, time.Now().UTC())

	analysis, err := marshalAnalysis(c.Analysis)
	if err != nil {
		return fail("upsert client", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO clients (`+clientColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, email = excluded.email, phone = excluded.phone,
			company = excluded.company, type = excluded.type, status = excluded.status,
			lead_score = excluded.lead_score, upsell_potential = excluded.upsell_potential,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		c.ID, c.Name, c.Email, c.Phone, c.Company, string(c.Type), c.Status,
		c.LeadScore, c.UpsellPotential, c.Notes, analysis, c.CreatedAt, c.UpdatedAt,
	)
	return fail("upsert client", eris.Wrapf(err, "sqlite: upsert client %s", c.ID))
}

func (s *SQLiteStore) GetClient(ctx context.Context, id string) (*model.Client, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fail("get client", eris.Wrapf(ErrNotFound, "client %s", id))
	}
	if err != nil {
		return nil, fail("get client", eris.Wrapf(err, "sqlite: get client %s", id))
	}
	return c, nil
}

func (s *SQLiteStore) ListClients(ctx context.Context, filter ClientFilter) ([]model.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE 1=1`
	var args []any

	if len(filter.IDs) > 0 {
		query += ` AND id IN (?` + strings.Repeat(", ?", len(filter.IDs)-1) + `)`
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Type))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, strings.ToLower(filter.Status))
	}
	query += ` ORDER BY created_at, id LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fail("list clients", eris.Wrap(err, "sqlite: list clients"))
	}
	defer rows.Close() //nolint:errcheck

	var clients []model.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fail("list clients", eris.Wrap(err, "sqlite: scan client"))
		}
		clients = append(clients, *c)
	}
	return clients, fail("list clients", eris.Wrap(rows.Err(), "sqlite: list clients iterate"))
}

func (s *SQLiteStore) UpdateLeadAnalysis(ctx context.Context, clientID string, a model.LeadAnalysis) error {
	analysis, err := marshalAnalysis(&a)
	if err != nil {
		return fail("update lead analysis", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE clients SET lead_score = ?, analysis = ?, updated_at = ? WHERE id = ?`,
		a.LeadScore, analysis, time.Now().UTC(), clientID,
	)
	if err != nil {
		return fail("update lead analysis", eris.Wrapf(err, "sqlite: update lead analysis %s", clientID))
	}
	return fail("update lead analysis", checkRowsAffected(res, "client", clientID))
}

func (s *SQLiteStore) AddInteraction(ctx context.Context, in *model.Interaction) error {
	prepareInteraction(in, time.Now().UTC())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interactions (id, client_id, kind, summary, outcome, occurred_at) VALUES (?, ?, ?, ?, ?, ?)`,
		in.ID, in.ClientID, string(in.Kind), in.Summary, in.Outcome, in.OccurredAt.UTC(),
	)
	return fail("add interaction", eris.Wrapf(err, "sqlite: insert interaction for client %s", in.ClientID))
}

func (s *SQLiteStore) ListInteractions(ctx context.Context, clientID string, limit int) ([]model.Interaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, client_id, kind, summary, outcome, occurred_at FROM interactions
		 WHERE client_id = ? ORDER BY occurred_at DESC LIMIT ?`,
		clientID, listLimit(limit),
	)
	if err != nil {
		return nil, fail("list interactions", eris.Wrap(err, "sqlite: list interactions"))
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Interaction
	for rows.Next() {
		var in model.Interaction
		if err := rows.Scan(&in.ID, &in.ClientID, &in.Kind, &in.Summary, &in.Outcome, &in.OccurredAt); err != nil {
			return nil, fail("list interactions", eris.Wrap(err, "sqlite: scan interaction"))
		}
		out = append(out, in)
	}
	return out, fail("list interactions", eris.Wrap(rows.Err(), "sqlite: list interactions iterate"))
}

const taskColumns = `id, client_id, title, description, type, priority, due_date, estimated_duration, source, created_at`

func (s *SQLiteStore) UpsertTask(ctx context.Context, t *model.SuggestedTask) error {
	prepareTask(t, time.Now().UTC())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, description = excluded.description, type = excluded.type,
			priority = excluded.priority, due_date = excluded.due_date,
			estimated_duration = excluded.estimated_duration, source = excluded.source`,
		t.ID, t.ClientID, t.Title, t.Description, string(t.Type), string(t.Priority),
		t.DueDate.UTC(), t.EstimatedDuration, string(t.Source), t.CreatedAt.UTC(),
	)
	return fail("upsert task", eris.Wrapf(err, "sqlite: upsert task for client %s", t.ClientID))
}

func (s *SQLiteStore) ListTasks(ctx context.Context, filter TaskFilter) ([]model.SuggestedTask, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any
	if filter.ClientID != "" {
		query += ` AND client_id = ?`
		args = append(args, filter.ClientID)
	}
	query += ` ORDER BY due_date, created_at LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fail("list tasks", eris.Wrap(err, "sqlite: list tasks"))
	}
	defer rows.Close() //nolint:errcheck

	var out []model.SuggestedTask
	for rows.Next() {
		var t model.SuggestedTask
		if err := rows.Scan(&t.ID, &t.ClientID, &t.Title, &t.Description, &t.Type, &t.Priority,
			&t.DueDate, &t.EstimatedDuration, &t.Source, &t.CreatedAt); err != nil {
			return nil, fail("list tasks", eris.Wrap(err, "sqlite: scan task"))
		}
		out = append(out, t)
	}
	return out, fail("list tasks", eris.Wrap(rows.Err(), "sqlite: list tasks iterate"))
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanClient(row scannable) (*model.Client, error) {
	var c model.Client
	var analysis sql.NullString
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.Type, &c.Status,
		&c.LeadScore, &c.UpsellPotential, &c.Notes, &analysis, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if analysis.Valid && analysis.String != "" {
		c.Analysis = &model.LeadAnalysis{}
		if err := json.Unmarshal([]byte(analysis.String), c.Analysis); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal analysis")
		}
	}
	return &c, nil
}

func marshalAnalysis(a *model.LeadAnalysis) (any, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal analysis")
	}
	return string(b), nil
}
