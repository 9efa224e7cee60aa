package store

import (
	"context"
	"time"

	"github.com/unkn0wn-root/feedcache/feed"
)

type lookupResult struct {
	lookup Lookup
	err    error
}

// RetrieveWait calls s.Retrieve and blocks until it completes or ctx is done.
func RetrieveWait(ctx context.Context, s Store) (Lookup, error) {
	ch := make(chan lookupResult, 1)
	s.Retrieve(ctx, func(l Lookup, err error) { ch <- lookupResult{l, err} })
	select {
	case r := <-ch:
		return r.lookup, r.err
	case <-ctx.Done():
		return Lookup{}, ctx.Err()
	}
}

// InsertWait calls s.Insert and blocks until it completes or ctx is done.
func InsertWait(ctx context.Context, s Store, records []feed.Record, ts time.Time) error {
	ch := make(chan error, 1)
	s.Insert(ctx, records, ts, func(err error) { ch <- err })
	return waitErr(ctx, ch)
}

// DeleteWait calls s.Delete and blocks until it completes or ctx is done.
func DeleteWait(ctx context.Context, s Store) error {
	ch := make(chan error, 1)
	s.Delete(ctx, func(err error) { ch <- err })
	return waitErr(ctx, ch)
}

func waitErr(ctx context.Context, ch <-chan error) error {
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
