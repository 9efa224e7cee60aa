package feedcache

import "time"

// Hooks lightweight callbacks for high-signal cache events.
// Implementations MUST be cheap and non-blocking: the loader calls them on
// the store's worker goroutine. Wrap slow sinks with hooks/async.
type Hooks interface {
	// A stored snapshot was older than the policy allows.
	// op ∈ {"load", "validate"}
	SnapshotExpired(op string, timestamp time.Time, age time.Duration)

	// The store could not retrieve the snapshot (corrupt data, IO error).
	// op ∈ {"load", "validate"}
	RetrievalFailed(op string, err error)

	// Validation deleted the cache. err is the delete result.
	// reason ∈ {"expired", "retrieval_failed"}
	CacheCleanup(reason string, err error)

	// Save failed at stage ∈ {"delete", "insert"}; count records were dropped.
	SaveFailed(stage string, count int, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SnapshotExpired(string, time.Time, time.Duration) {}
func (NopHooks) RetrievalFailed(string, error)                    {}
func (NopHooks) CacheCleanup(string, error)                       {}
func (NopHooks) SaveFailed(string, int, error)                    {}
