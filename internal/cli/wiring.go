package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/feedcache"
	"github.com/unkn0wn-root/feedcache/codec"
	"github.com/unkn0wn-root/feedcache/feed"
	asynchook "github.com/unkn0wn-root/feedcache/hooks/async"
	"github.com/unkn0wn-root/feedcache/internal/config"
	zaplog "github.com/unkn0wn-root/feedcache/log/zap"
	"github.com/unkn0wn-root/feedcache/provider"
	"github.com/unkn0wn-root/feedcache/provider/bigcache"
	"github.com/unkn0wn-root/feedcache/provider/redis"
	"github.com/unkn0wn-root/feedcache/provider/ristretto"
	"github.com/unkn0wn-root/feedcache/remote"
	"github.com/unkn0wn-root/feedcache/sloghooks"
	"github.com/unkn0wn-root/feedcache/store"
	"github.com/unkn0wn-root/feedcache/store/filestore"
	"github.com/unkn0wn-root/feedcache/store/kvstore"
	"github.com/unkn0wn-root/feedcache/store/sqlstore"
)

type closableStore interface {
	store.Store
	Close() error
}

// env is everything one command invocation needs.
type env struct {
	cfg    config.Config
	zl     *zap.Logger
	log    feedcache.Logger
	store  closableStore
	hooks  *asynchook.Hooks
	local  *feedcache.LocalLoader
	remote feed.Loader // nil without remote.url

	saves sync.WaitGroup
}

func newEnv(cfg config.Config, verbose bool, stderr io.Writer) (*env, error) {
	// zap and the hook handler write from different goroutines.
	w := zapcore.Lock(zapcore.AddSync(stderr))
	zl, err := newLogger(cfg.Log, verbose, w)
	if err != nil {
		return nil, err
	}
	log := zaplog.New(zl)

	st, err := openStore(cfg.Store)
	if err != nil {
		_ = zl.Sync()
		return nil, err
	}

	policy := feedcache.Policy{MaxAgeDays: cfg.Cache.MaxAgeDays}
	if cfg.Cache.Location != "" {
		loc, err := time.LoadLocation(cfg.Cache.Location)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("cache.location: %w", err)
		}
		policy.Location = loc
	}

	hooks := asynchook.New(sloghooks.New(newSlogger(cfg.Log, verbose, w), sloghooks.Options{
		ExpiredEvery: 10,
	}), 1, 256)

	local, err := feedcache.New(feedcache.Options{
		Store:  st,
		Policy: policy,
		Logger: log,
		Hooks:  hooks,
	})
	if err != nil {
		_ = st.Close()
		hooks.Close()
		return nil, err
	}

	e := &env{cfg: cfg, zl: zl, log: log, store: st, hooks: hooks, local: local}
	if cfg.Remote.URL != "" {
		e.remote = remote.New(cfg.Remote.URL, remote.HTTPClient{
			Client:    &http.Client{Timeout: cfg.Remote.Timeout},
			UserAgent: cfg.Remote.UserAgent,
		})
	}
	log.Debug("feedcache ready", feedcache.Fields{
		"backend": cfg.Store.Backend,
		"path":    cfg.Store.Path,
		"codec":   cfg.Store.Codec,
	})
	return e, nil
}

// Close waits for background saves and drains the store, then stops the
// loader and flushes hooks and logs.
func (e *env) Close() error {
	e.saves.Wait()
	err := e.store.Close()
	_ = e.local.Close()
	e.hooks.Close()
	if n := e.hooks.Dropped(); n > 0 {
		e.log.Warn("feedcache hook events dropped", feedcache.Fields{"count": n})
	}
	_ = e.zl.Sync()
	return err
}

var errNoRemote = errors.New("remote.url is not configured (set --url or FEEDCACHE_REMOTE_URL)")

// refreshing loads from the remote and saves to the cache; with fallback
// the cache answers when the remote fails.
func (e *env) refreshing(fallback bool) (feed.Loader, error) {
	if e.remote == nil {
		return nil, errNoRemote
	}
	cache := trackedSaver{s: e.local, wg: &e.saves}
	var l feed.Loader = feedcache.CachingLoader{Source: e.remote, Cache: cache, Logger: e.log}
	if fallback {
		l = feedcache.FallbackLoader{Primary: l, Fallback: e.local, Logger: e.log}
	}
	return l, nil
}

// trackedSaver detaches saves from the triggering request so they finish
// after it returns, and counts them so Close can wait.
type trackedSaver struct {
	s  feedcache.Saver
	wg *sync.WaitGroup
}

func (t trackedSaver) Save(ctx context.Context, records []feed.Record, done func(error)) {
	t.wg.Add(1)
	t.s.Save(context.WithoutCancel(ctx), records, func(err error) {
		defer t.wg.Done()
		done(err)
	})
}

func openStore(cfg config.StoreConfig) (closableStore, error) {
	c, err := codec.ForName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	if cfg.MaxDecodeBytes > 0 {
		c = codec.LimitCodec[store.Snapshot]{Inner: c, MaxDecode: cfg.MaxDecodeBytes}
	}

	switch cfg.Backend {
	case config.BackendFile:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
		return filestore.New(filestore.Options{Path: cfg.Path, Codec: c})
	case config.BackendSQLite:
		return sqlstore.Open(cfg.Path, sqlstore.WithMkdirAll())
	case config.BackendRedis, config.BackendBigcache, config.BackendRistretto:
		p, err := openProvider(cfg)
		if err != nil {
			return nil, err
		}
		return kvstore.New(kvstore.Options{
			Namespace:     cfg.Namespace,
			Provider:      p,
			Codec:         c,
			TTL:           cfg.TTL,
			Backend:       cfg.Backend,
			CloseProvider: true,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func openProvider(cfg config.StoreConfig) (provider.Provider, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		p, err := redis.Dial(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			_ = p.Close(context.Background())
			return nil, fmt.Errorf("redis: %w", err)
		}
		return p, nil
	case config.BackendBigcache:
		return bigcache.New(bigcache.Config{LifeWindow: cfg.TTL})
	default:
		return ristretto.New(ristretto.DefaultConfig())
	}
}
