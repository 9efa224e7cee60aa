package feed

import "context"

type loadResult struct {
	records []Record
	err     error
}

// Wait runs l.Load and blocks until it completes or ctx is done.
// A loader that never completes (for example one that was closed) returns
// ctx.Err() once ctx expires.
func Wait(ctx context.Context, l Loader) ([]Record, error) {
	ch := make(chan loadResult, 1)
	l.Load(ctx, func(records []Record, err error) {
		ch <- loadResult{records: records, err: err}
	})
	select {
	case r := <-ch:
		return r.records, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
