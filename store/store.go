// Package store defines the durable, single-slot snapshot storage the local
// feed cache runs on.
//
// Implementations MUST:
//   - keep at most one snapshot; Insert replaces the previous one wholesale,
//   - report Empty (Lookup.Found == false, nil error) when nothing is stored,
//   - report ErrRetrieval when stored data exists but cannot be decoded,
//   - treat Delete on an empty store as success,
//   - never mutate state from Retrieve,
//   - run operations issued against one instance in issue order and invoke
//     each done callback exactly once.
//
// done callbacks may run on any goroutine (typically the store's worker).
// Callers that need a specific execution context must re-dispatch.
package store

import (
	"context"
	"time"

	"github.com/unkn0wn-root/feedcache/feed"
)

// Snapshot is the whole persisted cache state.
type Snapshot struct {
	Records   []feed.Record `json:"items" cbor:"items" msgpack:"items"`
	Timestamp time.Time     `json:"timestamp" cbor:"timestamp" msgpack:"timestamp"`
}

// Lookup is the outcome of a successful Retrieve. Found is false for an empty
// store; failures are reported through the accompanying error instead.
type Lookup struct {
	Snapshot Snapshot
	Found    bool
}

// Empty is the Lookup of a store holding no snapshot.
var Empty = Lookup{}

// Found wraps a retrieved snapshot.
func Found(records []feed.Record, ts time.Time) Lookup {
	return Lookup{Snapshot: Snapshot{Records: records, Timestamp: ts}, Found: true}
}

type Store interface {
	// Retrieve reads the stored snapshot.
	Retrieve(ctx context.Context, done func(Lookup, error))
	// Insert persists records stamped with ts, replacing any previous snapshot.
	Insert(ctx context.Context, records []feed.Record, ts time.Time, done func(error))
	// Delete removes the stored snapshot, if any.
	Delete(ctx context.Context, done func(error))
}
