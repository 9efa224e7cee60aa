// Package sloghooks reports feedcache.Hooks events through log/slog.
package sloghooks

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/feedcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all. Expiry repeats on every load
	// of a stale cache, so it is the one worth sampling.
	ExpiredEvery         uint64
	RetrievalFailedEvery uint64
	// Optional error redactor, e.g. to strip file paths. Defaults to err.Error().
	Redact func(error) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	expiredCtr   atomic.Uint64
	retrievalCtr atomic.Uint64
}

var _ feedcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(err error) string {
	if err == nil {
		return ""
	}
	if h.opts.Redact != nil {
		return h.opts.Redact(err)
	}
	return err.Error()
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) SnapshotExpired(op string, ts time.Time, age time.Duration) {
	if h.l == nil || !sample(h.opts.ExpiredEvery, &h.expiredCtr) {
		return
	}
	h.l.Debug("feedcache.snapshot_expired",
		"op", op,
		"timestamp", ts,
		"age", age)
}

func (h *Hooks) RetrievalFailed(op string, err error) {
	if h.l == nil || !sample(h.opts.RetrievalFailedEvery, &h.retrievalCtr) {
		return
	}
	h.l.Warn("feedcache.retrieval_failed",
		"op", op,
		"err", h.redact(err))
}

func (h *Hooks) CacheCleanup(reason string, err error) {
	if h.l == nil {
		return
	}
	if err != nil {
		h.l.Error("feedcache.cleanup_failed",
			"reason", reason,
			"err", h.redact(err))
		return
	}
	h.l.Info("feedcache.cleanup",
		"reason", reason)
}

func (h *Hooks) SaveFailed(stage string, count int, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("feedcache.save_failed",
		"stage", stage,
		"count", count,
		"err", h.redact(err))
}
