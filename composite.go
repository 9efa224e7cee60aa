package feedcache

import (
	"context"

	"github.com/unkn0wn-root/feedcache/feed"
)

// Saver persists a feed. LocalLoader implements it.
type Saver interface {
	Save(ctx context.Context, records []feed.Record, done func(error))
}

var _ Saver = (*LocalLoader)(nil)

// CachingLoader loads from Source and, on success, saves the records to
// Cache before delivering them. Save outcomes are logged, never delivered.
type CachingLoader struct {
	Source feed.Loader
	Cache  Saver
	Logger Logger
}

var _ feed.Loader = CachingLoader{}

func (c CachingLoader) Load(ctx context.Context, done func([]feed.Record, error)) {
	log := orNop(c.Logger)
	c.Source.Load(ctx, func(records []feed.Record, err error) {
		if err != nil {
			done(nil, err)
			return
		}
		c.Cache.Save(ctx, records, func(err error) {
			if err != nil {
				log.Warn("feedcache caching loader: save failed", Fields{"count": len(records), "err": err})
			}
		})
		done(records, nil)
	})
}

// FallbackLoader delivers Primary's feed, or Fallback's when Primary fails.
// When both fail the result is a *FallbackError carrying both causes.
type FallbackLoader struct {
	Primary  feed.Loader
	Fallback feed.Loader
	Logger   Logger
}

var _ feed.Loader = FallbackLoader{}

func (f FallbackLoader) Load(ctx context.Context, done func([]feed.Record, error)) {
	log := orNop(f.Logger)
	f.Primary.Load(ctx, func(records []feed.Record, err error) {
		if err == nil {
			done(records, nil)
			return
		}
		log.Info("feedcache fallback loader: primary failed", Fields{"err": err})
		primaryErr := err
		f.Fallback.Load(ctx, func(records []feed.Record, err error) {
			if err != nil {
				done(nil, &FallbackError{Primary: primaryErr, Fallback: err})
				return
			}
			done(records, nil)
		})
	})
}
