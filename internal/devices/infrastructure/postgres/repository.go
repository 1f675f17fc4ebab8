package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	devices "callboard/internal/devices/domain"
)

// Repository persists registered devices in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the devices table when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("devices repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS devices (
	id TEXT PRIMARY KEY,
	name TEXT UNIQUE NOT NULL,
	token TEXT NOT NULL DEFAULT '',
	ip_address TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
)`)
	return err
}

// Create stores a new device.
func (r *Repository) Create(ctx context.Context, device devices.Device) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO devices (id, name, token, ip_address, created_at) VALUES ($1, $2, $3, $4, $5)`,
		device.ID, device.Name, device.Token, device.IPAddress, device.CreatedAt,
	)
	if err != nil && strings.Contains(err.Error(), "devices_name_key") {
		return devices.ErrDuplicateName
	}
	return err
}

// Get loads a device by id.
func (r *Repository) Get(ctx context.Context, id string) (*devices.Device, error) {
	return r.one(ctx, `SELECT id, name, token, ip_address, created_at FROM devices WHERE id = $1`, id)
}

// GetByToken loads a device by its current token.
func (r *Repository) GetByToken(ctx context.Context, token string) (*devices.Device, error) {
	if token == "" {
		return nil, devices.ErrNotFound
	}
	return r.one(ctx, `SELECT id, name, token, ip_address, created_at FROM devices WHERE token = $1`, token)
}

// SetToken overwrites the device token.
func (r *Repository) SetToken(ctx context.Context, id, token string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE devices SET token = $1 WHERE id = $2`, token, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return devices.ErrNotFound
	}
	return nil
}

// SetIPAddress records the last-seen address for a device.
func (r *Repository) SetIPAddress(ctx context.Context, id, ip string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE devices SET ip_address = $1 WHERE id = $2`, ip, id)
	return err
}

// Delete removes a device. Deleting an absent id is a no-op.
func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = $1`, id)
	return err
}

// List returns devices in registration order.
func (r *Repository) List(ctx context.Context) ([]devices.Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, token, ip_address, created_at FROM devices ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []devices.Device
	for rows.Next() {
		var device devices.Device
		if err := rows.Scan(&device.ID, &device.Name, &device.Token, &device.IPAddress, &device.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, device)
	}
	return result, rows.Err()
}

func (r *Repository) one(ctx context.Context, query string, arg any) (*devices.Device, error) {
	var device devices.Device
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&device.ID, &device.Name, &device.Token, &device.IPAddress, &device.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, devices.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}
