package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/unkn0wn-root/feedcache/feed"
)

type httpResult struct {
	resp Response
	err  error
}

func get(t *testing.T, c HTTPClient, url string) httpResult {
	t.Helper()
	ch := make(chan httpResult, 1)
	c.Get(context.Background(), url, func(r Response, err error) { ch <- httpResult{r, err} })
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("request never completed")
	}
	return httpResult{}
}

func TestHTTPClientDeliversStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.Header.Get("User-Agent") != "feedcache-test" {
			t.Errorf("method=%s ua=%q", r.Method, r.Header.Get("User-Agent"))
		}
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("body"))
	}))
	defer srv.Close()

	r := get(t, HTTPClient{Client: srv.Client(), UserAgent: "feedcache-test"}, srv.URL)
	if r.err != nil || r.resp.StatusCode != http.StatusTeapot || string(r.resp.Body) != "body" {
		t.Fatalf("got %+v", r)
	}
}

func TestHTTPClientFailsOnOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	if r := get(t, HTTPClient{Client: srv.Client(), MaxBody: 16}, srv.URL); r.err == nil {
		t.Fatal("expected error")
	}
}

func TestLoaderOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[{"id":"2b5ab5b2-6c1f-4d6f-9e1a-2f0bd3f5e4a1","image":"https://img.example/1.png"}]}`))
	}))
	defer srv.Close()

	l := New(srv.URL, HTTPClient{Client: srv.Client()})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	records, err := feed.Wait(ctx, l)
	if err != nil || len(records) != 1 || records[0].ImageURL != "https://img.example/1.png" {
		t.Fatalf("got %+v, %v", records, err)
	}
}

func TestLoaderOverHTTPConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	l := New(url, HTTPClient{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := feed.Wait(ctx, l); !errors.Is(err, ErrConnectivity) {
		t.Fatalf("err=%v want ErrConnectivity", err)
	}
}
