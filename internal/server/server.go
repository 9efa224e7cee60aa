// Package server exposes a feed.Loader over HTTP:
//
//	GET  /feed           records in the remote wire shape
//	POST /feed/validate  runs cache validation
//	GET  /healthz        liveness
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/unkn0wn-root/feedcache"
	"github.com/unkn0wn-root/feedcache/feed"
	"github.com/unkn0wn-root/feedcache/remote"
)

// Validator runs cache validation. *feedcache.LocalLoader implements it.
type Validator interface {
	Validate(ctx context.Context, done func(feedcache.Cleanup, error))
}

type Options struct {
	// Feed answers GET /feed. Required.
	Feed feed.Loader
	// Validator answers POST /feed/validate; nil disables the route.
	Validator Validator
	Logger    feedcache.Logger
	// Timeout bounds how long a request waits for a completion. 0 => 30s.
	Timeout time.Duration
}

type handler struct {
	feed     feed.Loader
	validate Validator
	log      feedcache.Logger
	timeout  time.Duration
}

func NewHandler(opts Options) (http.Handler, error) {
	if opts.Feed == nil {
		return nil, errors.New("server: feed loader is required")
	}
	h := &handler{
		feed:     opts.Feed,
		validate: opts.Validator,
		log:      opts.Logger,
		timeout:  opts.Timeout,
	}
	if h.log == nil {
		h.log = feedcache.NopLogger{}
	}
	if h.timeout <= 0 {
		h.timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/feed", h.getFeed)
	if h.validate != nil {
		r.Post("/feed/validate", h.postValidate)
	}
	return r, nil
}

func (h *handler) getFeed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	records, err := feed.Wait(ctx, h.feed)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	body, err := remote.Encode(records)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type validateResult struct {
	cleanup feedcache.Cleanup
	err     error
}

func (h *handler) postValidate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ch := make(chan validateResult, 1)
	h.validate.Validate(ctx, func(c feedcache.Cleanup, err error) {
		ch <- validateResult{cleanup: c, err: err}
	})
	select {
	case res := <-ch:
		if res.err != nil {
			h.fail(w, r, res.err)
			return
		}
		cleanup := string(res.cleanup)
		if cleanup == "" {
			cleanup = "none"
		}
		writeJSON(w, http.StatusOK, map[string]string{"cleanup": cleanup})
	case <-ctx.Done():
		h.fail(w, r, ctx.Err())
	}
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// client went away
		status = 499
	}
	h.log.Warn("feedcache request failed", feedcache.Fields{
		"path":       r.URL.Path,
		"status":     status,
		"request_id": middleware.GetReqID(r.Context()),
		"err":        err,
	})
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debug("http request", feedcache.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Run serves h on addr until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, addr string, h http.Handler, log feedcache.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return Serve(ctx, ln, h, log)
}

// Serve is Run on an existing listener.
func Serve(ctx context.Context, ln net.Listener, h http.Handler, log feedcache.Logger) error {
	if log == nil {
		log = feedcache.NopLogger{}
	}
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	log.Info("feedcache server listening", feedcache.Fields{"addr": ln.Addr().String()})

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("feedcache server stopped", nil)
	return nil
}
