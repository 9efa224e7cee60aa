// Package redis is a shared provider on go-redis. Snapshots persisted here
// survive process restarts and are visible to every process using the same
// namespace.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pr "github.com/unkn0wn-root/feedcache/provider"
)

var ErrNilClient = errors.New("redis provider: nil client")

// DefaultOpTimeout bounds each command when Config.OpTimeout is zero.
// Store operations run one at a time, so a stalled server would otherwise
// hold every later operation behind it.
const DefaultOpTimeout = 5 * time.Second

type Provider struct {
	rdb         goredis.UniversalClient
	closeClient bool
	opTimeout   time.Duration
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this provider exclusively owns the client
	// OpTimeout per command; 0 => DefaultOpTimeout, < 0 => none.
	OpTimeout time.Duration
}

func New(cfg Config) (*Provider, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	p := &Provider{rdb: cfg.Client, closeClient: cfg.CloseClient, opTimeout: cfg.OpTimeout}
	if p.opTimeout == 0 {
		p.opTimeout = DefaultOpTimeout
	}
	return p, nil
}

// Dial builds a client from a redis:// URL and returns a provider owning it.
func Dial(rawURL string) (*Provider, error) {
	opts, err := goredis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return New(Config{Client: goredis.NewClient(opts), CloseClient: true})
}

func (p *Provider) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opTimeout < 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.opTimeout)
}

func (p *Provider) Ping(ctx context.Context) error {
	ctx, cancel := p.bound(ctx)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}

func (p *Provider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := p.bound(ctx)
	defer cancel()
	b, err := p.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, goredis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return b, true, nil
}

// Set always writes; Redis never refuses a value under memory pressure
// the way the in-process providers do, it errors instead.
func (p *Provider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ctx, cancel := p.bound(ctx)
	defer cancel()
	if ttl < 0 {
		ttl = 0
	}
	if err := p.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) Del(ctx context.Context, key string) error {
	ctx, cancel := p.bound(ctx)
	defer cancel()
	return p.rdb.Del(ctx, key).Err()
}

// Close releases the client when this provider owns it. Repeated calls are
// no-ops.
func (p *Provider) Close(context.Context) error {
	if !p.closeClient {
		return nil
	}
	if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
		return err
	}
	return nil
}
