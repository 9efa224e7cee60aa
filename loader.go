package feedcache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/feedcache/feed"
	"github.com/unkn0wn-root/feedcache/store"
)

type Options struct {
	// Store holds the snapshot. Required. The loader never closes it.
	Store store.Store
	// Now stamps saved snapshots and ages loaded ones. nil => time.Now.
	Now func() time.Time
	// Policy decides freshness. Zero value => 7 calendar days.
	Policy Policy

	Logger Logger
	Hooks  Hooks
}

// Cleanup names why validation deleted the cache.
type Cleanup string

const (
	CleanupNone            Cleanup = ""
	CleanupExpired         Cleanup = "expired"
	CleanupRetrievalFailed Cleanup = "retrieval_failed"
)

// LocalLoader is the cache orchestrator. It is safe for concurrent use;
// operations reach the store in call order.
//
// After Close nothing is delivered: pending completions are dropped and new
// calls return without touching the store.
type LocalLoader struct {
	store  store.Store
	now    func() time.Time
	policy Policy
	log    Logger
	hooks  Hooks

	closed atomic.Bool
}

var _ feed.Loader = (*LocalLoader)(nil)

func New(opts Options) (*LocalLoader, error) {
	if opts.Store == nil {
		return nil, ErrNilStore
	}
	opts = opts.withDefaults()
	return &LocalLoader{
		store:  opts.Store,
		now:    opts.Now,
		policy: opts.Policy,
		log:    opts.Logger,
		hooks:  opts.Hooks,
	}, nil
}

// Close tears the loader down. It does not close the store.
func (l *LocalLoader) Close() error {
	l.closed.Store(true)
	return nil
}

func (l *LocalLoader) gone() bool { return l.closed.Load() }

// Save replaces the cached snapshot with records stamped at Now. The old
// snapshot is deleted first; when that fails the error is delivered and no
// insert is attempted.
func (l *LocalLoader) Save(ctx context.Context, records []feed.Record, done func(error)) {
	if l.gone() {
		return
	}
	l.store.Delete(ctx, func(err error) {
		if l.gone() {
			return
		}
		if err != nil {
			l.saveFailed("delete", len(records), err)
			done(err)
			return
		}
		ts := l.now()
		l.store.Insert(ctx, records, ts, func(err error) {
			if l.gone() {
				return
			}
			if err != nil {
				l.saveFailed("insert", len(records), err)
			} else {
				l.log.Debug("feedcache saved", Fields{"count": len(records), "timestamp": ts})
			}
			done(err)
		})
	})
}

func (l *LocalLoader) saveFailed(stage string, n int, err error) {
	l.hooks.SaveFailed(stage, n, err)
	l.log.Warn("feedcache save failed", Fields{"stage": stage, "count": n, "err": err})
}

// Load delivers the cached records when the snapshot is fresh, an empty
// list when there is none or it expired, and the store error otherwise.
// Load never deletes; expired snapshots are left for ValidateCache.
func (l *LocalLoader) Load(ctx context.Context, done func([]feed.Record, error)) {
	if l.gone() {
		return
	}
	l.store.Retrieve(ctx, func(lk store.Lookup, err error) {
		if l.gone() {
			return
		}
		switch {
		case err != nil:
			l.hooks.RetrievalFailed("load", err)
			l.log.Warn("feedcache load failed", Fields{"err": err})
			done(nil, err)
		case !lk.Found:
			done([]feed.Record{}, nil)
		case l.fresh("load", lk.Snapshot.Timestamp):
			done(lk.Snapshot.Records, nil)
		default:
			done([]feed.Record{}, nil)
		}
	})
}

// ValidateCache deletes the cache when it cannot be retrieved or has
// expired. Outcomes are reported through Hooks and the Logger only.
func (l *LocalLoader) ValidateCache(ctx context.Context) {
	l.Validate(ctx, nil)
}

// Validate is ValidateCache with a completion: done receives the cleanup
// performed and the delete error, if any. done may be nil.
func (l *LocalLoader) Validate(ctx context.Context, done func(Cleanup, error)) {
	if l.gone() {
		return
	}
	finish := func(c Cleanup, err error) {
		if done != nil && !l.gone() {
			done(c, err)
		}
	}
	l.store.Retrieve(ctx, func(lk store.Lookup, err error) {
		if l.gone() {
			return
		}
		switch {
		case err != nil:
			l.hooks.RetrievalFailed("validate", err)
			l.cleanup(ctx, CleanupRetrievalFailed, finish)
		case lk.Found && !l.fresh("validate", lk.Snapshot.Timestamp):
			l.cleanup(ctx, CleanupExpired, finish)
		default:
			finish(CleanupNone, nil)
		}
	})
}

func (l *LocalLoader) cleanup(ctx context.Context, reason Cleanup, finish func(Cleanup, error)) {
	l.store.Delete(ctx, func(err error) {
		if l.gone() {
			return
		}
		l.hooks.CacheCleanup(string(reason), err)
		if err != nil {
			l.log.Warn("feedcache cleanup failed", Fields{"reason": string(reason), "err": err})
		} else {
			l.log.Info("feedcache cleaned up", Fields{"reason": string(reason)})
		}
		finish(reason, err)
	})
}

func (l *LocalLoader) fresh(op string, ts time.Time) bool {
	now := l.now()
	if l.policy.Valid(ts, now) {
		return true
	}
	age := now.Sub(ts)
	l.hooks.SnapshotExpired(op, ts, age)
	l.log.Debug("feedcache snapshot expired", Fields{"op": op, "timestamp": ts, "age": age})
	return false
}
