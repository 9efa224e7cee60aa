// Package filestore is the flat-file store.Store: the whole snapshot is
// encoded with one codec, framed, and written to a single file.
//
// Inserts write a temporary file next to the target and rename it over the
// target, so readers see either the previous snapshot or the new one.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/unkn0wn-root/feedcache/codec"
	"github.com/unkn0wn-root/feedcache/feed"
	"github.com/unkn0wn-root/feedcache/internal/serial"
	"github.com/unkn0wn-root/feedcache/internal/wire"
	"github.com/unkn0wn-root/feedcache/store"
)

const backend = "file"

type Options struct {
	// Path of the cache file. Required. Its directory must exist.
	Path string
	// Codec for the snapshot payload. nil => JSON.
	Codec codec.Snapshot
	// FileMode of the cache file. 0 => 0600.
	FileMode fs.FileMode
}

type Store struct {
	path  string
	codec codec.Snapshot
	mode  fs.FileMode
	q     *serial.Queue
}

var _ store.Store = (*Store)(nil)

func New(opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("filestore: path is required")
	}
	s := &Store{
		path:  filepath.Clean(opts.Path),
		codec: opts.Codec,
		mode:  opts.FileMode,
		q:     serial.New(),
	}
	if s.codec == nil {
		s.codec = codec.JSON[store.Snapshot]{}
	}
	if s.mode == 0 {
		s.mode = 0o600
	}
	return s, nil
}

// Path returns the cache file location.
func (s *Store) Path() string { return s.path }

// Close waits for queued operations and stops the worker.
func (s *Store) Close() error {
	s.q.Close()
	return nil
}

func (s *Store) Retrieve(ctx context.Context, done func(store.Lookup, error)) {
	err := s.q.Submit(func() {
		if err := ctx.Err(); err != nil {
			done(store.Empty, store.Fail(store.OpRetrieve, backend, err))
			return
		}
		l, err := s.retrieve()
		done(l, store.Fail(store.OpRetrieve, backend, err))
	})
	if err != nil {
		done(store.Empty, store.Fail(store.OpRetrieve, backend, err))
	}
}

func (s *Store) Insert(ctx context.Context, records []feed.Record, ts time.Time, done func(error)) {
	snap := store.Snapshot{Records: append([]feed.Record(nil), records...), Timestamp: ts}
	err := s.q.Submit(func() {
		if err := ctx.Err(); err != nil {
			done(store.Fail(store.OpInsert, backend, err))
			return
		}
		done(store.Fail(store.OpInsert, backend, s.insert(snap)))
	})
	if err != nil {
		done(store.Fail(store.OpInsert, backend, err))
	}
}

func (s *Store) Delete(ctx context.Context, done func(error)) {
	err := s.q.Submit(func() {
		if err := ctx.Err(); err != nil {
			done(store.Fail(store.OpDelete, backend, err))
			return
		}
		done(store.Fail(store.OpDelete, backend, s.delete()))
	})
	if err != nil {
		done(store.Fail(store.OpDelete, backend, err))
	}
}

func (s *Store) retrieve() (store.Lookup, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return store.Empty, nil
	}
	if err != nil {
		return store.Empty, err
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

func (s *Store) insert(snap store.Snapshot) error {
	payload, err := s.codec.Encode(snap)
	if err != nil {
		return fmt.Errorf("encode %s snapshot: %w", s.codec.Name(), err)
	}
	return writeFileAtomic(s.path, wire.Encode(s.codec.ID(), payload), s.mode)
}

func (s *Store) delete() error {
	err := os.Remove(s.path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func writeFileAtomic(path string, data []byte, mode fs.FileMode) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp, mode); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
