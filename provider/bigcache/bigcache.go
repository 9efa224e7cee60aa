// Package bigcache is an in-process provider on allegro/bigcache. Entries
// live for the cache-wide LifeWindow; per-call TTLs are ignored.
package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	pr "github.com/unkn0wn-root/feedcache/provider"
)

type Provider struct {
	c *bc.BigCache
}

var _ pr.Provider = (*Provider)(nil)

// Config zero values fall back to sizes suited to a few snapshots rather
// than bigcache's defaults, which preallocate hundreds of megabytes.
type Config struct {
	LifeWindow         time.Duration // 0 => 7 days
	CleanWindow        time.Duration
	Shards             int // power of two; 0 => 16
	MaxEntriesInWindow int // 0 => 1024
	MaxEntrySize       int // initial bytes per entry; 0 => 4096
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Provider, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = 7 * 24 * time.Hour
	}
	conf := bc.DefaultConfig(life)
	conf.Shards = coalesce(cfg.Shards, 16)
	conf.MaxEntriesInWindow = coalesce(cfg.MaxEntriesInWindow, 1024)
	conf.MaxEntrySize = coalesce(cfg.MaxEntrySize, 4096)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	conf.Verbose = false
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	if err := p.c.Set(key, value); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	if err := p.c.Delete(key); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
		return err
	}
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	return p.c.Close()
}

func coalesce(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
