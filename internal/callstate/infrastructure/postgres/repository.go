package postgres

import (
	"context"
	"database/sql"
	"errors"

	callstate "callboard/internal/callstate/domain"
)

const defaultCapacity = 100

// Repository persists call state in Postgres so the display survives
// process restarts.
type Repository struct {
	db       *sql.DB
	capacity int
}

// Option configures the repository.
type Option func(*Repository)

// WithCapacity overrides the history retention bound.
func WithCapacity(capacity int) Option {
	return func(repo *Repository) {
		if capacity > 0 {
			repo.capacity = capacity
		}
	}
}

// NewRepository constructs a repository.
func NewRepository(db *sql.DB, opts ...Option) *Repository {
	repo := &Repository{db: db, capacity: defaultCapacity}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Migrate creates the call state tables when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("callstate repo: nil db")
	}
	statements := []string{
		`CREATE TABLE IF NOT EXISTS current_call (
			id INT PRIMARY KEY CHECK (id = 1),
			counter_label TEXT NOT NULL DEFAULT '',
			ticket_number TEXT NOT NULL DEFAULT '',
			called_at TIMESTAMPTZ
		)`,
		`INSERT INTO current_call (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,
		`CREATE TABLE IF NOT EXISTS call_history (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT UNIQUE NOT NULL,
			kind TEXT NOT NULL,
			ticket_number TEXT NOT NULL DEFAULT '',
			counter_label TEXT NOT NULL DEFAULT '',
			called_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, statement := range statements {
		if _, err := r.db.ExecContext(ctx, statement); err != nil {
			return err
		}
	}
	return nil
}

// Current returns the current call, or the zero state when unset.
func (r *Repository) Current(ctx context.Context) (callstate.CallState, error) {
	var state callstate.CallState
	var calledAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT counter_label, ticket_number, called_at FROM current_call WHERE id = 1`,
	).Scan(&state.CounterLabel, &state.TicketNumber, &calledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return callstate.CallState{}, nil
	}
	if err != nil {
		return callstate.CallState{}, err
	}
	if calledAt.Valid {
		state.CalledAt = calledAt.Time
	}
	return state, nil
}

// SetCurrent replaces the current call and appends its entry in one
// transaction, evicting entries past the retention bound.
func (r *Repository) SetCurrent(ctx context.Context, state callstate.CallState, entry callstate.HistoryEntry) error {
	if err := state.Validate(); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE current_call SET counter_label = $1, ticket_number = $2, called_at = $3 WHERE id = 1`,
		state.CounterLabel, state.TicketNumber, state.CalledAt,
	); err != nil {
		return err
	}
	if err := insertEntry(ctx, tx, entry); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM call_history WHERE seq NOT IN (SELECT seq FROM call_history ORDER BY seq DESC LIMIT $1)`,
		r.capacity,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// Reset clears the current call and appends the reset marker.
func (r *Repository) Reset(ctx context.Context, marker callstate.HistoryEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE current_call SET counter_label = '', ticket_number = '', called_at = NULL WHERE id = 1`,
	); err != nil {
		return err
	}
	marker.Kind = callstate.KindReset
	if err := insertEntry(ctx, tx, marker); err != nil {
		return err
	}
	return tx.Commit()
}

// AppendEntry appends a marker entry.
func (r *Repository) AppendEntry(ctx context.Context, entry callstate.HistoryEntry) error {
	return insertEntry(ctx, r.db, entry)
}

// History returns call entries after the last reset, most-recent-first.
func (r *Repository) History(ctx context.Context, limit int) ([]callstate.HistoryEntry, error) {
	if limit <= 0 {
		return nil, callstate.ErrInvalidLimit
	}
	if limit > r.capacity {
		limit = r.capacity
	}

	rows, err := r.db.QueryContext(ctx, `
WITH last_reset AS (
	SELECT COALESCE(MAX(seq), 0) AS reset_seq FROM call_history WHERE kind = 'reset'
)
SELECT id, kind, ticket_number, counter_label, called_at
FROM call_history, last_reset
WHERE seq > last_reset.reset_seq AND kind = 'call'
ORDER BY seq DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// DeskEvents returns call and closure entries for a desk after the last
// reset, in commit order.
func (r *Repository) DeskEvents(ctx context.Context, deskName string) ([]callstate.HistoryEntry, error) {
	if deskName == "" {
		return nil, callstate.ErrEmptyDeskName
	}

	rows, err := r.db.QueryContext(ctx, `
WITH last_reset AS (
	SELECT COALESCE(MAX(seq), 0) AS reset_seq FROM call_history WHERE kind = 'reset'
)
SELECT id, kind, ticket_number, counter_label, called_at
FROM call_history, last_reset
WHERE seq > last_reset.reset_seq AND counter_label = $1 AND kind IN ('call', 'desk_closed')
ORDER BY seq ASC`, deskName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// LastDeskEvent returns the latest entry for a desk, or nil.
func (r *Repository) LastDeskEvent(ctx context.Context, deskName string) (*callstate.HistoryEntry, error) {
	if deskName == "" {
		return nil, callstate.ErrEmptyDeskName
	}

	var entry callstate.HistoryEntry
	err := r.db.QueryRowContext(ctx, `
WITH last_reset AS (
	SELECT COALESCE(MAX(seq), 0) AS reset_seq FROM call_history WHERE kind = 'reset'
)
SELECT id, kind, ticket_number, counter_label, called_at
FROM call_history, last_reset
WHERE seq > last_reset.reset_seq AND counter_label = $1 AND kind IN ('call', 'desk_closed')
ORDER BY seq DESC
LIMIT 1`, deskName).Scan(&entry.ID, &entry.Kind, &entry.TicketNumber, &entry.CounterLabel, &entry.CalledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertEntry(ctx context.Context, db execer, entry callstate.HistoryEntry) error {
	if entry.ID == "" {
		return errors.New("callstate repo: empty entry id")
	}
	if entry.Kind == "" {
		entry.Kind = callstate.KindCall
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO call_history (id, kind, ticket_number, counter_label, called_at) VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, string(entry.Kind), entry.TicketNumber, entry.CounterLabel, entry.CalledAt,
	)
	return err
}

func scanEntries(rows *sql.Rows) ([]callstate.HistoryEntry, error) {
	var entries []callstate.HistoryEntry
	for rows.Next() {
		var entry callstate.HistoryEntry
		if err := rows.Scan(&entry.ID, &entry.Kind, &entry.TicketNumber, &entry.CounterLabel, &entry.CalledAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
