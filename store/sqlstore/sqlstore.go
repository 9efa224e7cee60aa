// Package sqlstore is the structured store.Store on embedded SQLite.
//
// One feed_cache row (id is always 1) owns the ordered feed_item rows of the
// current snapshot. Insert deletes the existing cache row, which cascades to
// its items, then writes the new row and items in the same transaction, so
// at most one snapshot exists at any time.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/feedcache/feed"
	"github.com/unkn0wn-root/feedcache/internal/serial"
	"github.com/unkn0wn-root/feedcache/store"
)

const backend = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS feed_cache (
    id        INTEGER PRIMARY KEY CHECK (id = 1),
    timestamp INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS feed_item (
    cache_id    INTEGER NOT NULL REFERENCES feed_cache(id) ON DELETE CASCADE,
    position    INTEGER NOT NULL,
    id          TEXT    NOT NULL,
    description TEXT,
    location    TEXT,
    url         TEXT    NOT NULL,
    PRIMARY KEY (cache_id, position)
);`

type Store struct {
	db     *sql.DB
	ownsDB bool
	q      *serial.Queue
}

var _ store.Store = (*Store)(nil)

// New wraps an already opened database and ensures the schema exists. The
// caller keeps ownership of db; foreign keys must be enabled on its
// connections for deletes to cascade.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlstore: db is required")
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlstore: apply schema: %w", err)
	}
	return &Store{db: db, q: serial.New()}, nil
}

// Close waits for queued operations, stops the worker and closes the
// database when Open created it.
func (s *Store) Close() error {
	s.q.Close()
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Retrieve(ctx context.Context, done func(store.Lookup, error)) {
	err := s.q.Submit(func() {
		l, err := s.retrieve(ctx)
		if err != nil {
			done(store.Empty, store.Fail(store.OpRetrieve, backend, err))
			return
		}
		done(l, nil)
	})
	if err != nil {
		done(store.Empty, store.Fail(store.OpRetrieve, backend, err))
	}
}

func (s *Store) Insert(ctx context.Context, records []feed.Record, ts time.Time, done func(error)) {
	records = append([]feed.Record(nil), records...)
	err := s.q.Submit(func() {
		done(store.Fail(store.OpInsert, backend, s.insert(ctx, records, ts)))
	})
	if err != nil {
		done(store.Fail(store.OpInsert, backend, err))
	}
}

func (s *Store) Delete(ctx context.Context, done func(error)) {
	err := s.q.Submit(func() {
		done(store.Fail(store.OpDelete, backend, s.delete(ctx)))
	})
	if err != nil {
		done(store.Fail(store.OpDelete, backend, err))
	}
}

func (s *Store) retrieve(ctx context.Context) (store.Lookup, error) {
	var (
		l     store.Lookup
		found bool
	)
	err := runTx(ctx, s.db, func(tx *sql.Tx) error {
		var ns int64
		err := tx.QueryRowContext(ctx, `SELECT timestamp FROM feed_cache WHERE id = 1`).Scan(&ns)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		records, err := queryItems(ctx, tx)
		if err != nil {
			return err
		}
		l = store.Found(records, time.Unix(0, ns).UTC())
		found = true
		return nil
	})
	if err != nil || !found {
		return store.Empty, err
	}
	return l, nil
}

func queryItems(ctx context.Context, tx *sql.Tx) ([]feed.Record, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, description, location, url FROM feed_item WHERE cache_id = 1 ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []feed.Record{}
	for rows.Next() {
		var (
			id, imageURL          string
			description, location sql.NullString
		)
		if err := rows.Scan(&id, &description, &location, &imageURL); err != nil {
			return nil, err
		}
		uid, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", id, err)
		}
		if imageURL == "" {
			return nil, fmt.Errorf("item %s: empty url", id)
		}
		records = append(records, feed.Record{
			ID:          uid,
			Description: description.String,
			Location:    location.String,
			ImageURL:    imageURL,
		})
	}
	return records, rows.Err()
}

func (s *Store) insert(ctx context.Context, records []feed.Record, ts time.Time) error {
	return runTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM feed_cache`); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO feed_cache (id, timestamp) VALUES (1, ?)`, ts.UnixNano()); err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO feed_item (cache_id, position, id, description, location, url) VALUES (1, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, r := range records {
			if _, err := stmt.ExecContext(ctx, i, r.ID.String(),
				nullString(r.Description), nullString(r.Location), r.ImageURL); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		return nil
	})
}

func (s *Store) delete(ctx context.Context) error {
	return runTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM feed_cache`)
		return err
	})
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
