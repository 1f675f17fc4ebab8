package postgres

import (
	"context"
	"errors"

	"database/sql"

	announcements "callboard/internal/announcements/domain"
)

// Repository persists announcements in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the announcements table when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("announcements repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS announcements (
	seq BIGSERIAL PRIMARY KEY,
	id TEXT UNIQUE NOT NULL,
	message TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL
)`)
	return err
}

// Create appends a new announcement.
func (r *Repository) Create(ctx context.Context, announcement announcements.Announcement) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO announcements (id, message, active, created_at) VALUES ($1, $2, $3, $4)`,
		announcement.ID, announcement.Message, announcement.Active, announcement.CreatedAt,
	)
	return err
}

// SetActive toggles the active flag.
func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	return r.update(ctx, `UPDATE announcements SET active = $1 WHERE id = $2`, active, id)
}

// SetMessage replaces the announcement text.
func (r *Repository) SetMessage(ctx context.Context, id, message string) error {
	return r.update(ctx, `UPDATE announcements SET message = $1 WHERE id = $2`, message, id)
}

// Delete removes an announcement. Deleting an absent id is a no-op.
func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	return err
}

// List returns announcements in insertion order.
func (r *Repository) List(ctx context.Context) ([]announcements.Announcement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, message, active, created_at FROM announcements ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []announcements.Announcement
	for rows.Next() {
		var item announcements.Announcement
		if err := rows.Scan(&item.ID, &item.Message, &item.Active, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *Repository) update(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return announcements.ErrNotFound
	}
	return nil
}
