// Package asynchook moves feedcache.Hooks calls off the store worker.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{ExpiredEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	loader, _ := feedcache.New(feedcache.Options{
//	    Store: st,
//	    Hooks: hooks, // or `raw` if you don't want async
//	})
//
// Events are dropped, not queued, when the buffer is full; Dropped counts them.
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/feedcache"
)

type Hooks struct {
	inner   feedcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ feedcache.Hooks = (*Hooks)(nil)

func New(inner feedcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close delivers queued events and stops the workers. Events raised after
// Close are dropped.
func (h *Hooks) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.q)
	h.mu.Unlock()
	h.wg.Wait()
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) SnapshotExpired(op string, ts time.Time, age time.Duration) {
	h.try(func() { h.inner.SnapshotExpired(op, ts, age) })
}
func (h *Hooks) RetrievalFailed(op string, err error) {
	h.try(func() { h.inner.RetrievalFailed(op, err) })
}
func (h *Hooks) CacheCleanup(reason string, err error) {
	h.try(func() { h.inner.CacheCleanup(reason, err) })
}
func (h *Hooks) SaveFailed(stage string, n int, err error) {
	h.try(func() { h.inner.SaveFailed(stage, n, err) })
}
