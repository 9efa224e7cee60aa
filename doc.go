// Package feedcache implements a policy-driven local feed cache that sits
// between a remote feed source and durable local storage.
//
// Components:
//   - store.Store: single-slot snapshot storage (file, SQLite, or any byte
//     provider such as Redis, BigCache, Ristretto).
//   - Policy: decides whether a snapshot is still fresh.
//   - LocalLoader: saves, loads and validates the cache through a Store.
//   - CachingLoader, FallbackLoader: compose a remote source with the cache.
//
// Every operation completes through a done callback, usually on the store's
// worker goroutine. feed.Wait turns a load into a blocking call.
//
// Typical composition:
//
//	local, _ := feedcache.New(feedcache.Options{Store: st})
//	loader := feedcache.FallbackLoader{
//	    Primary:  feedcache.CachingLoader{Source: remote.New(url, client), Cache: local},
//	    Fallback: local,
//	}
//	records, err := feed.Wait(ctx, loader)
package feedcache
