// Package sqlstore persists dialogue records in a SQL table. It works over
// any sqlx connection; the embedded sqlite3 driver is the default, postgres
// is supported for deployments that already run one.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/botkit/core/dialogue"
)

// Store implements dialogue.Storage over a dialogues table with (key, data,
// format) columns. Per-key atomicity comes from single-row statements: each
// Get/Update/Remove is one statement, which every SQL backend executes
// atomically.
type Store struct {
	db  *sqlx.DB
	get string
	upd string
	del string
}

// New builds a store over db. The schema is expected to exist; see
// core/database.RunMigrations.
func New(db *sqlx.DB) *Store {
	return &Store{
		db: db,
		// Rebind translates ? placeholders to the driver's dialect.
		get: db.Rebind(`SELECT data, format FROM dialogues WHERE key = ?`),
		upd: db.Rebind(`INSERT INTO dialogues (key, data, format) VALUES (?, ?, ?)
			ON CONFLICT (key) DO UPDATE SET data = excluded.data, format = excluded.format`),
		del: db.Rebind(`DELETE FROM dialogues WHERE key = ?`),
	}
}

// Get returns the record for key, or nil if no row exists.
func (s *Store) Get(ctx context.Context, key int64) (*dialogue.Record, error) {
	var row struct {
		Data   []byte `db:"data"`
		Format string `db:"format"`
	}
	err := s.db.GetContext(ctx, &row, s.get, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &dialogue.StorageError{Op: "get", Key: key, Err: err}
	}
	return &dialogue.Record{Data: row.Data, Format: row.Format}, nil
}

// Update upserts the record for key.
func (s *Store) Update(ctx context.Context, key int64, rec dialogue.Record) error {
	if _, err := s.db.ExecContext(ctx, s.upd, key, rec.Data, rec.Format); err != nil {
		return &dialogue.StorageError{Op: "update", Key: key, Err: err}
	}
	return nil
}

// Remove deletes the record for key; deleting an absent row is a no-op.
func (s *Store) Remove(ctx context.Context, key int64) error {
	if _, err := s.db.ExecContext(ctx, s.del, key); err != nil {
		return &dialogue.StorageError{Op: "remove", Key: key, Err: err}
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }
