package kvstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/feedcache/codec"
	"github.com/unkn0wn-root/feedcache/internal/wire"
	pr "github.com/unkn0wn-root/feedcache/provider"
	"github.com/unkn0wn-root/feedcache/provider/bigcache"
	"github.com/unkn0wn-root/feedcache/provider/ristretto"
	"github.com/unkn0wn-root/feedcache/store"
	"github.com/unkn0wn-root/feedcache/store/storetest"
)

type memEntry struct {
	v   []byte
	exp time.Time
}

type memProvider struct {
	mu     sync.Mutex
	m      map[string]memEntry
	closed bool
}

var _ pr.Provider = (*memProvider)(nil)

func newMemProvider() *memProvider { return &memProvider{m: make(map[string]memEntry)} }

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(p.m, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	p.m[key] = memEntry{v: value, exp: exp}
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.m, key)
	return nil
}

func (p *memProvider) Close(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *memProvider) raw(key string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.m[key]
	return e.v, ok
}

func (p *memProvider) put(key string, v []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[key] = memEntry{v: v}
}

type rejectingProvider struct{ *memProvider }

func (p *rejectingProvider) Set(context.Context, string, []byte, time.Duration) (bool, error) {
	return false, nil
}

type errProvider struct {
	*memProvider
	getErr, setErr, delErr error
}

func (p *errProvider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if p.getErr != nil {
		return nil, false, p.getErr
	}
	return p.memProvider.Get(ctx, key)
}

func (p *errProvider) Set(ctx context.Context, key string, v []byte, ttl time.Duration) (bool, error) {
	if p.setErr != nil {
		return false, p.setErr
	}
	return p.memProvider.Set(ctx, key, v, ttl)
}

func (p *errProvider) Del(ctx context.Context, key string) error {
	if p.delErr != nil {
		return p.delErr
	}
	return p.memProvider.Del(ctx, key)
}

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConformanceMemProvider(t *testing.T) {
	for _, name := range []string{"json", "cbor", "msgpack", "protobuf"} {
		c, err := codec.ForName(name)
		if err != nil {
			t.Fatal(err)
		}
		t.Run(name, func(t *testing.T) {
			storetest.Run(t, func(t *testing.T) store.Store {
				return newTestStore(t, Options{Provider: newMemProvider(), Codec: c})
			})
		})
	}
}

func TestConformanceBigcache(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		p, err := bigcache.New(bigcache.Config{})
		if err != nil {
			t.Fatal(err)
		}
		return newTestStore(t, Options{Provider: p, Backend: "bigcache", CloseProvider: true})
	})
}

func TestConformanceRistretto(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		p, err := ristretto.New(ristretto.DefaultConfig())
		if err != nil {
			t.Fatal(err)
		}
		return newTestStore(t, Options{Provider: p, Backend: "ristretto", CloseProvider: true})
	})
}

func TestNewRequiresProvider(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error for nil provider")
	}
}

func TestSnapshotKeyedByNamespace(t *testing.T) {
	mp := newMemProvider()
	a := newTestStore(t, Options{Provider: mp, Namespace: "a"})
	b := newTestStore(t, Options{Provider: mp, Namespace: "b"})

	records, ts := storetest.Records(2), storetest.Timestamp()
	storetest.MustInsert(t, a, records, ts)

	if _, ok := mp.raw("feed:a:snapshot"); !ok {
		t.Fatal("snapshot not stored under feed:a:snapshot")
	}
	storetest.ExpectFound(t, a, records, ts)
	storetest.ExpectEmpty(t, b)
}

func TestRetrieveDeliversFailureOnForeignValue(t *testing.T) {
	mp := newMemProvider()
	mp.put(Key("default"), []byte("not a frame"))
	s := newTestStore(t, Options{Provider: mp})

	for i := 0; i < 2; i++ {
		_, err := storetest.Retrieve(t, s)
		if !errors.Is(err, store.ErrRetrieval) || !errors.Is(err, wire.ErrCorrupt) {
			t.Fatalf("retrieve #%d: err=%v want ErrRetrieval+ErrCorrupt", i+1, err)
		}
	}
	if _, ok := mp.raw(Key("default")); !ok {
		t.Fatal("retrieve must not delete the value")
	}
}

func TestInsertDeliversFailureWhenProviderRejects(t *testing.T) {
	s := newTestStore(t, Options{Provider: &rejectingProvider{newMemProvider()}})

	err := storetest.Insert(t, s, storetest.Records(1), storetest.Timestamp())
	if !errors.Is(err, store.ErrInsertion) || !errors.Is(err, ErrRejected) {
		t.Fatalf("err=%v want ErrInsertion+ErrRejected", err)
	}
	storetest.ExpectEmpty(t, s)
}

func TestProviderErrorsMapToOperationKinds(t *testing.T) {
	boom := errors.New("boom")
	s := newTestStore(t, Options{
		Provider: &errProvider{memProvider: newMemProvider(), getErr: boom, setErr: boom, delErr: boom},
		Backend:  "fake",
	})

	if _, err := storetest.Retrieve(t, s); !errors.Is(err, store.ErrRetrieval) || !errors.Is(err, boom) {
		t.Fatalf("retrieve: %v", err)
	}
	if err := storetest.Insert(t, s, storetest.Records(1), storetest.Timestamp()); !errors.Is(err, store.ErrInsertion) || !errors.Is(err, boom) {
		t.Fatalf("insert: %v", err)
	}
	err := storetest.Delete(t, s)
	var se *store.Error
	if !errors.As(err, &se) || se.Op != store.OpDelete || se.Backend != "fake" {
		t.Fatalf("delete: %v", err)
	}
}

func TestCloseClosesOwnedProvider(t *testing.T) {
	owned, shared := newMemProvider(), newMemProvider()
	s1, _ := New(Options{Provider: owned, CloseProvider: true})
	s2, _ := New(Options{Provider: shared})
	_ = s1.Close()
	_ = s2.Close()

	if !owned.closed {
		t.Fatal("owned provider not closed")
	}
	if shared.closed {
		t.Fatal("shared provider closed")
	}
}

func TestTTLIsPassedToProvider(t *testing.T) {
	mp := newMemProvider()
	s := newTestStore(t, Options{Provider: mp, TTL: time.Nanosecond})
	storetest.MustInsert(t, s, storetest.Records(1), storetest.Timestamp())
	time.Sleep(time.Millisecond)
	storetest.ExpectEmpty(t, s)
}
