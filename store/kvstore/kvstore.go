// Package kvstore is the store.Store over a byte provider.Provider. The
// snapshot is encoded and framed exactly like the file store and kept under
// a single key per namespace.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/feedcache/codec"
	"github.com/unkn0wn-root/feedcache/feed"
	"github.com/unkn0wn-root/feedcache/internal/serial"
	"github.com/unkn0wn-root/feedcache/internal/wire"
	"github.com/unkn0wn-root/feedcache/provider"
	"github.com/unkn0wn-root/feedcache/store"
)

// ErrRejected is returned when the provider refused to keep the snapshot.
var ErrRejected = errors.New("kvstore: provider rejected write")

type Options struct {
	// Namespace isolates independent caches sharing a provider. Default "default".
	Namespace string
	Provider  provider.Provider
	// Codec for the snapshot payload. nil => JSON.
	Codec codec.Snapshot
	// TTL passed to the provider; 0 => no expiry. Expiry is the policy's job,
	// a TTL only bounds how long an abandoned snapshot occupies the provider.
	TTL time.Duration
	// Backend names the provider in errors. Default "kv".
	Backend string
	// CloseProvider closes Provider on Close.
	CloseProvider bool
}

type Store struct {
	p       provider.Provider
	key     string
	codec   codec.Snapshot
	ttl     time.Duration
	backend string
	closeP  bool
	q       *serial.Queue
}

var _ store.Store = (*Store)(nil)

func New(opts Options) (*Store, error) {
	if opts.Provider == nil {
		return nil, errors.New("kvstore: provider is required")
	}
	if opts.Namespace == "" {
		opts.Namespace = "default"
	}
	if opts.Codec == nil {
		opts.Codec = codec.JSON[store.Snapshot]{}
	}
	if opts.Backend == "" {
		opts.Backend = "kv"
	}
	return &Store{
		p:       opts.Provider,
		key:     Key(opts.Namespace),
		codec:   opts.Codec,
		ttl:     opts.TTL,
		backend: opts.Backend,
		closeP:  opts.CloseProvider,
		q:       serial.New(),
	}, nil
}

// Key is the provider key holding the snapshot of namespace ns.
func Key(ns string) string { return "feed:" + ns + ":snapshot" }

// Close waits for queued operations, stops the worker and closes the
// provider when the store owns it.
func (s *Store) Close() error {
	s.q.Close()
	if s.closeP {
		return s.p.Close(context.Background())
	}
	return nil
}

func (s *Store) Retrieve(ctx context.Context, done func(store.Lookup, error)) {
	err := s.q.Submit(func() {
		l, err := s.retrieve(ctx)
		if err != nil {
			done(store.Empty, store.Fail(store.OpRetrieve, s.backend, err))
			return
		}
		done(l, nil)
	})
	if err != nil {
		done(store.Empty, store.Fail(store.OpRetrieve, s.backend, err))
	}
}

func (s *Store) Insert(ctx context.Context, records []feed.Record, ts time.Time, done func(error)) {
	snap := store.Snapshot{Records: append([]feed.Record(nil), records...), Timestamp: ts}
	err := s.q.Submit(func() {
		done(store.Fail(store.OpInsert, s.backend, s.insert(ctx, snap)))
	})
	if err != nil {
		done(store.Fail(store.OpInsert, s.backend, err))
	}
}

func (s *Store) Delete(ctx context.Context, done func(error)) {
	err := s.q.Submit(func() {
		if err := ctx.Err(); err != nil {
			done(store.Fail(store.OpDelete, s.backend, err))
			return
		}
		done(store.Fail(store.OpDelete, s.backend, s.p.Del(ctx, s.key)))
	})
	if err != nil {
		done(store.Fail(store.OpDelete, s.backend, err))
	}
}

func (s *Store) retrieve(ctx context.Context) (store.Lookup, error) {
	if err := ctx.Err(); err != nil {
		return store.Empty, err
	}
	raw, ok, err := s.p.Get(ctx, s.key)
	if err != nil {
		return store.Empty, err
	}
	if !ok {
		return store.Empty, nil
	}
	payload, err := wire.DecodeFor(s.codec.ID(), raw)
	if err != nil {
		return store.Empty, err
	}
	snap, err := s.codec.Decode(payload)
	if err != nil {
		return store.Empty, fmt.Errorf("decode %s snapshot: %w", s.codec.Name(), err)
	}
	if snap.Records == nil {
		snap.Records = []feed.Record{}
	}
	return store.Found(snap.Records, snap.Timestamp), nil
}

func (s *Store) insert(ctx context.Context, snap store.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := s.codec.Encode(snap)
	if err != nil {
		return fmt.Errorf("encode %s snapshot: %w", s.codec.Name(), err)
	}
	ok, err := s.p.Set(ctx, s.key, wire.Encode(s.codec.ID(), payload), s.ttl)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRejected
	}
	return nil
}
