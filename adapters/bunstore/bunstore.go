// Package bunstore persists portal session state in a SQLite database. It
// suits shared workstations where several local tools need to observe the
// same session, which a plain file per process would not give them.
package bunstore

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type record struct {
	bun.BaseModel `bun:"table:portal_state"`

	Key       string    `bun:"key,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Store implements key value persistence on top of bun.
type Store struct {
	db *bun.DB
}

// New opens the database at dsn and ensures the backing table exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, goerrors.New("bunstore: dsn is required", goerrors.CategoryBadInput)
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "bunstore: could not open database").
			WithMetadata(map[string]any{"dsn": dsn})
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := db.NewCreateTable().
		Model((*record)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		_ = db.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "bunstore: could not create table")
	}

	return &Store{db: db}, nil
}

// NewWithDB wraps an existing bun handle; the caller keeps ownership of it.
func NewWithDB(ctx context.Context, db *bun.DB) (*Store, error) {
	if db == nil {
		return nil, goerrors.New("bunstore: db is required", goerrors.CategoryBadInput)
	}
	if _, err := db.NewCreateTable().
		Model((*record)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "bunstore: could not create table")
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	rec := new(record)
	err := s.db.NewSelect().
		Model(rec).
		Where("key = ?", key).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, goerrors.Wrap(err, goerrors.CategoryOperation, "bunstore: select failed").
			WithMetadata(map[string]any{"key": key})
	}
	return rec.Value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	rec := &record{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.db.NewInsert().
		Model(rec).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "bunstore: upsert failed").
			WithMetadata(map[string]any{"key": key})
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.NewDelete().
		Model((*record)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "bunstore: delete failed").
			WithMetadata(map[string]any{"key": key})
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
