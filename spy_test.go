package feedcache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/feedcache/feed"
	"github.com/unkn0wn-root/feedcache/store"
)

// storeSpy records every message it receives and holds completions until
// the test delivers them, so completion order is fully test-controlled.
type storeSpy struct {
	mu       sync.Mutex
	messages []string
	inserted []store.Snapshot

	retrievals []func(store.Lookup, error)
	insertions []func(error)
	deletions  []func(error)
}

var _ store.Store = (*storeSpy)(nil)

func (s *storeSpy) Retrieve(_ context.Context, done func(store.Lookup, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, "retrieve")
	s.retrievals = append(s.retrievals, done)
}

func (s *storeSpy) Insert(_ context.Context, records []feed.Record, ts time.Time, done func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, "insert")
	s.inserted = append(s.inserted, store.Snapshot{Records: records, Timestamp: ts})
	s.insertions = append(s.insertions, done)
}

func (s *storeSpy) Delete(_ context.Context, done func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, "delete")
	s.deletions = append(s.deletions, done)
}

func (s *storeSpy) received() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprint(s.messages)
}

func (s *storeSpy) completeRetrieval(t *testing.T, i int, l store.Lookup, err error) {
	t.Helper()
	s.mu.Lock()
	if i >= len(s.retrievals) {
		s.mu.Unlock()
		t.Fatalf("no retrieval #%d", i)
	}
	done := s.retrievals[i]
	s.mu.Unlock()
	done(l, err)
}

func (s *storeSpy) completeInsertion(t *testing.T, i int, err error) {
	t.Helper()
	s.mu.Lock()
	if i >= len(s.insertions) {
		s.mu.Unlock()
		t.Fatalf("no insertion #%d", i)
	}
	done := s.insertions[i]
	s.mu.Unlock()
	done(err)
}

func (s *storeSpy) completeDeletion(t *testing.T, i int, err error) {
	t.Helper()
	s.mu.Lock()
	if i >= len(s.deletions) {
		s.mu.Unlock()
		t.Fatalf("no deletion #%d", i)
	}
	done := s.deletions[i]
	s.mu.Unlock()
	done(err)
}

type hookEvent struct {
	name   string
	reason string
	err    error
}

type recordingHooks struct {
	mu     sync.Mutex
	events []hookEvent
}

var _ Hooks = (*recordingHooks)(nil)

func (h *recordingHooks) add(e hookEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHooks) names() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.name+":"+e.reason)
	}
	return fmt.Sprint(out)
}

func (h *recordingHooks) SnapshotExpired(op string, _ time.Time, _ time.Duration) {
	h.add(hookEvent{name: "expired", reason: op})
}
func (h *recordingHooks) RetrievalFailed(op string, err error) {
	h.add(hookEvent{name: "retrieval_failed", reason: op, err: err})
}
func (h *recordingHooks) CacheCleanup(reason string, err error) {
	h.add(hookEvent{name: "cleanup", reason: reason, err: err})
}
func (h *recordingHooks) SaveFailed(stage string, _ int, err error) {
	h.add(hookEvent{name: "save_failed", reason: stage, err: err})
}
