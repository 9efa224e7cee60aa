// Package storetest is the conformance suite for store.Store backends.
//
//	func TestConformance(t *testing.T) {
//		storetest.Run(t, func(t *testing.T) store.Store { return newTestStore(t) })
//	}
//
// The factory must return a fresh, empty store and register its cleanup on t.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/feedcache/feed"
	"github.com/unkn0wn-root/feedcache/store"
)

const wait = 5 * time.Second

// Factory returns a fresh empty store.
type Factory func(t *testing.T) store.Store

// Run executes every conformance check against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("RetrieveDeliversEmptyOnEmptyCache", func(t *testing.T) {
		s := newStore(t)
		ExpectEmpty(t, s)
	})

	t.Run("RetrieveHasNoSideEffectsOnEmptyCache", func(t *testing.T) {
		s := newStore(t)
		ExpectEmpty(t, s)
		ExpectEmpty(t, s)
	})

	t.Run("RetrieveDeliversInsertedValues", func(t *testing.T) {
		s := newStore(t)
		records := Records(3)
		ts := Timestamp()

		MustInsert(t, s, records, ts)
		ExpectFound(t, s, records, ts)
	})

	t.Run("RetrieveHasNoSideEffectsOnNonEmptyCache", func(t *testing.T) {
		s := newStore(t)
		records := Records(2)
		ts := Timestamp()

		MustInsert(t, s, records, ts)
		ExpectFound(t, s, records, ts)
		ExpectFound(t, s, records, ts)
	})

	t.Run("InsertOverridesPreviouslyInsertedCache", func(t *testing.T) {
		s := newStore(t)
		MustInsert(t, s, Records(2), Timestamp().Add(-time.Hour))

		latest := Records(1)
		ts := Timestamp()
		MustInsert(t, s, latest, ts)
		ExpectFound(t, s, latest, ts)
	})

	t.Run("InsertEmptyRecordsIsFound", func(t *testing.T) {
		s := newStore(t)
		ts := Timestamp()
		MustInsert(t, s, []feed.Record{}, ts)
		ExpectFound(t, s, []feed.Record{}, ts)
	})

	t.Run("DeleteHasNoSideEffectsOnEmptyCache", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 3; i++ {
			if err := Delete(t, s); err != nil {
				t.Fatalf("delete #%d on empty cache: %v", i+1, err)
			}
		}
		ExpectEmpty(t, s)
	})

	t.Run("DeleteEmptiesPreviouslyInsertedCache", func(t *testing.T) {
		s := newStore(t)
		MustInsert(t, s, Records(2), Timestamp())
		if err := Delete(t, s); err != nil {
			t.Fatalf("delete: %v", err)
		}
		ExpectEmpty(t, s)
	})

	t.Run("SideEffectsRunSerially", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		var (
			mu    sync.Mutex
			order []string
			wg    sync.WaitGroup
		)
		record := func(name string) func(error) {
			return func(err error) {
				if err != nil {
					t.Errorf("%s: %v", name, err)
				}
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
				wg.Done()
			}
		}

		last := Records(1)
		ts := Timestamp()
		wg.Add(3)
		s.Insert(ctx, Records(2), ts, record("insert-1"))
		s.Delete(ctx, record("delete"))
		s.Insert(ctx, last, ts, record("insert-2"))
		waitGroup(t, &wg)

		want := []string{"insert-1", "delete", "insert-2"}
		if fmt.Sprint(order) != fmt.Sprint(want) {
			t.Fatalf("completion order=%v want %v", order, want)
		}
		ExpectFound(t, s, last, ts)
	})
}

// Records returns n distinct records.
func Records(n int) []feed.Record {
	out := make([]feed.Record, n)
	for i := range out {
		out[i] = feed.Record{
			ID:          uuid.New(),
			Description: fmt.Sprintf("description %d", i),
			Location:    fmt.Sprintf("location %d", i),
			ImageURL:    fmt.Sprintf("https://img.example/%d.png", i),
		}
	}
	if n > 1 {
		// one record without optional fields
		out[n-1].Description, out[n-1].Location = "", ""
	}
	return out
}

// Timestamp is a fixed-precision "now" that survives every backend.
func Timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func Retrieve(t *testing.T, s store.Store) (store.Lookup, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	l, err := store.RetrieveWait(ctx, s)
	if err == context.DeadlineExceeded {
		t.Fatal("retrieve never completed")
	}
	return l, err
}

func Insert(t *testing.T, s store.Store, records []feed.Record, ts time.Time) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	err := store.InsertWait(ctx, s, records, ts)
	if err == context.DeadlineExceeded {
		t.Fatal("insert never completed")
	}
	return err
}

func Delete(t *testing.T, s store.Store) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	err := store.DeleteWait(ctx, s)
	if err == context.DeadlineExceeded {
		t.Fatal("delete never completed")
	}
	return err
}

func MustInsert(t *testing.T, s store.Store, records []feed.Record, ts time.Time) {
	t.Helper()
	if err := Insert(t, s, records, ts); err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func ExpectEmpty(t *testing.T, s store.Store) {
	t.Helper()
	l, err := Retrieve(t, s)
	if err != nil {
		t.Fatalf("retrieve: expected empty, got error %v", err)
	}
	if l.Found {
		t.Fatalf("retrieve: expected empty, got %d records at %v", len(l.Snapshot.Records), l.Snapshot.Timestamp)
	}
}

func ExpectFound(t *testing.T, s store.Store, records []feed.Record, ts time.Time) {
	t.Helper()
	l, err := Retrieve(t, s)
	if err != nil {
		t.Fatalf("retrieve: expected found, got error %v", err)
	}
	if !l.Found {
		t.Fatal("retrieve: expected found, got empty")
	}
	if !feed.Equal(l.Snapshot.Records, records) {
		t.Fatalf("records: got %+v want %+v", l.Snapshot.Records, records)
	}
	if !l.Snapshot.Timestamp.Equal(ts) {
		t.Fatalf("timestamp: got %v want %v", l.Snapshot.Timestamp, ts)
	}
}

func waitGroup(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(wait):
		t.Fatal("operations never completed")
	}
}
