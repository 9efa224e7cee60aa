package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/unkn0wn-root/feedcache/internal/serial"
	"github.com/unkn0wn-root/feedcache/store"
	"github.com/unkn0wn-root/feedcache/store/storetest"
)

func newMemStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func exec(t *testing.T, s *Store, query string, args ...any) {
	t.Helper()
	if _, err := s.db.ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func countItems(t *testing.T, s *Store) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM feed_item`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestConformanceMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return newMemStore(t) })
}

func TestConformanceFile(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(filepath.Join(t.TempDir(), "nested", "feed.db"), WithMkdirAll())
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestNewRequiresDB(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestSnapshotSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.db")
	records, ts := storetest.Records(3), storetest.Timestamp()

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	storetest.MustInsert(t, s, records, ts)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = reopened.Close() })
	storetest.ExpectFound(t, reopened, records, ts)
}

func TestInsertReplacesItemsThroughCascade(t *testing.T) {
	s := newMemStore(t)
	storetest.MustInsert(t, s, storetest.Records(5), storetest.Timestamp())
	storetest.MustInsert(t, s, storetest.Records(2), storetest.Timestamp())

	if n := countItems(t, s); n != 2 {
		t.Fatalf("feed_item rows=%d want 2", n)
	}
	if err := storetest.Delete(t, s); err != nil {
		t.Fatal(err)
	}
	if n := countItems(t, s); n != 0 {
		t.Fatalf("feed_item rows after delete=%d want 0", n)
	}
}

func TestOptionalFieldsStoredAsNull(t *testing.T) {
	s := newMemStore(t)
	records := storetest.Records(2)
	storetest.MustInsert(t, s, records, storetest.Timestamp())

	var nulls int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM feed_item WHERE description IS NULL AND location IS NULL`).Scan(&nulls)
	if err != nil {
		t.Fatal(err)
	}
	if nulls != 1 {
		t.Fatalf("rows with NULL optionals=%d want 1", nulls)
	}
}

func TestRetrieveDeliversFailureOnInvalidRow(t *testing.T) {
	s := newMemStore(t)
	storetest.MustInsert(t, s, storetest.Records(1), storetest.Timestamp())
	exec(t, s, `UPDATE feed_item SET id = 'not-a-uuid'`)

	for i := 0; i < 2; i++ {
		if _, err := storetest.Retrieve(t, s); !errors.Is(err, store.ErrRetrieval) {
			t.Fatalf("retrieve #%d: err=%v want ErrRetrieval", i+1, err)
		}
	}
}

func TestRetrieveDeliversFailureOnMissingTable(t *testing.T) {
	s := newMemStore(t)
	exec(t, s, `DROP TABLE feed_item`)
	exec(t, s, `INSERT INTO feed_cache (id, timestamp) VALUES (1, 0)`)

	if _, err := storetest.Retrieve(t, s); !errors.Is(err, store.ErrRetrieval) {
		t.Fatalf("err=%v want ErrRetrieval", err)
	}
}

func TestInsertFailureLeavesPreviousSnapshot(t *testing.T) {
	s := newMemStore(t)
	records, ts := storetest.Records(2), storetest.Timestamp()
	storetest.MustInsert(t, s, records, ts)

	exec(t, s, `CREATE TRIGGER reject_item BEFORE INSERT ON feed_item
		BEGIN SELECT RAISE(ABORT, 'rejected'); END`)

	err := storetest.Insert(t, s, storetest.Records(3), ts.Add(1))
	if !errors.Is(err, store.ErrInsertion) {
		t.Fatalf("err=%v want ErrInsertion", err)
	}
	storetest.ExpectFound(t, s, records, ts)
}

func TestDeleteFailureLeavesSnapshot(t *testing.T) {
	s := newMemStore(t)
	records, ts := storetest.Records(2), storetest.Timestamp()
	storetest.MustInsert(t, s, records, ts)

	exec(t, s, `CREATE TRIGGER reject_delete BEFORE DELETE ON feed_cache
		BEGIN SELECT RAISE(ABORT, 'rejected'); END`)

	if err := storetest.Delete(t, s); !errors.Is(err, store.ErrDeletion) {
		t.Fatalf("err=%v want ErrDeletion", err)
	}
	storetest.ExpectFound(t, s, records, ts)
}

func TestCancelledContextFailsOperation(t *testing.T) {
	s := newMemStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	errc := make(chan error, 1)
	s.Insert(ctx, storetest.Records(1), storetest.Timestamp(), func(err error) { errc <- err })
	if err := <-errc; !errors.Is(err, store.ErrInsertion) || !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want ErrInsertion+Canceled", err)
	}
	storetest.ExpectEmpty(t, s)
}

func TestOperationsAfterCloseFail(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	if _, err := storetest.Retrieve(t, s); !errors.Is(err, serial.ErrClosed) {
		t.Fatalf("retrieve after close: %v", err)
	}
	if err := storetest.Delete(t, s); !errors.Is(err, store.ErrDeletion) {
		t.Fatalf("delete after close: %v", err)
	}
}

func TestIsBusy(t *testing.T) {
	cases := map[string]bool{
		"SQLITE_BUSY: database is locked": true,
		"database table is locked":        true,
		"no such table: feed_item":        false,
	}
	for msg, want := range cases {
		if got := isBusy(errors.New(msg)); got != want {
			t.Errorf("isBusy(%q)=%v want %v", msg, got, want)
		}
	}
	if isBusy(nil) {
		t.Error("isBusy(nil) = true")
	}
}
