package hunter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// newTestClient returns a client pointed at srv with no rate limit.
func newTestClient(srv *httptest.Server) *Client {
	return NewClient("secret",
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithRateLimit(0),
		WithPollInterval(10*time.Millisecond),
	)
}

// TestDomainSearch tests the domain-search endpoint.
func TestDomainSearch(t *testing.T) {
	t.Parallel()

	t.Run("returns email objects and sends parameters", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/domain-search" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			q := r.URL.Query()
			if q.Get("domain") != "example.com" || q.Get("api_key") != "secret" || q.Get("limit") != "10" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":{"emails":[{"value":"a@b.com","confidence":87},"junk",{"value":"c@b.com"}]}}`))
		}))
		defer srv.Close()

		got := newTestClient(srv).DomainSearch(context.Background(), "example.com", 10)
		if len(got) != 2 {
			t.Fatalf("expected 2 items, got %v", got)
		}
		if got[0]["value"] != "a@b.com" || got[0]["confidence"] != float64(87) {
			t.Errorf("unexpected first item %v", got[0])
		}
	})

	t.Run("http error yields empty list", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		if got := newTestClient(srv).DomainSearch(context.Background(), "example.com", 10); len(got) != 0 {
			t.Errorf("expected empty list, got %v", got)
		}
	})

	t.Run("unexpected shape yields empty list", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data":{"emails":"none"}}`))
		}))
		defer srv.Close()

		if got := newTestClient(srv).DomainSearch(context.Background(), "example.com", 10); len(got) != 0 {
			t.Errorf("expected empty list, got %v", got)
		}
	})

	t.Run("empty domain makes no request", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
		}))
		defer srv.Close()

		if got := newTestClient(srv).DomainSearch(context.Background(), "", 10); len(got) != 0 {
			t.Errorf("expected empty list, got %v", got)
		}
		if calls.Load() != 0 {
			t.Error("expected no request")
		}
	})

	t.Run("unreachable server yields empty list", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		client := newTestClient(srv)
		srv.Close()

		if got := client.DomainSearch(context.Background(), "example.com", 10); len(got) != 0 {
			t.Errorf("expected empty list, got %v", got)
		}
	})
}

// TestVerifyEmail tests the email-verifier endpoint.
func TestVerifyEmail(t *testing.T) {
	t.Parallel()

	t.Run("polls pending verification until done", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("email") != "x@example.com" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusAccepted)
				return
			}
			_, _ = w.Write([]byte(`{"data":{"result":"deliverable","score":95}}`))
		}))
		defer srv.Close()

		got := newTestClient(srv).VerifyEmail(context.Background(), "x@example.com", true, time.Second)
		if got.Result() != "deliverable" || got.Confidence() != "95" {
			t.Errorf("unexpected payload %v", got)
		}
		if calls.Load() != 2 {
			t.Errorf("expected 2 calls, got %d", calls.Load())
		}
	})

	t.Run("pending without polling is an error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		got := newTestClient(srv).VerifyEmail(context.Background(), "x@example.com", false, time.Second)
		if got["status"] != "error" || got["http_status"] != http.StatusAccepted {
			t.Errorf("unexpected payload %v", got)
		}
	})

	t.Run("pending past the deadline times out", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		got := newTestClient(srv).VerifyEmail(context.Background(), "x@example.com", true, 50*time.Millisecond)
		if got["status"] != "timeout" {
			t.Errorf("unexpected payload %v", got)
		}
	})

	t.Run("http error carries status and body", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("bad request"))
		}))
		defer srv.Close()

		got := newTestClient(srv).VerifyEmail(context.Background(), "x@example.com", true, time.Second)
		if got["status"] != "error" || got["http_status"] != http.StatusBadRequest || got["body"] != "bad request" {
			t.Errorf("unexpected payload %v", got)
		}
	})

	t.Run("transport failure carries exception without the key", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		client := newTestClient(srv)
		srv.Close()

		got := client.VerifyEmail(context.Background(), "x@example.com", true, time.Second)
		if got["status"] != "error" {
			t.Fatalf("unexpected payload %v", got)
		}
		exception, _ := got["exception"].(string)
		if exception == "" {
			t.Error("expected exception message")
		}
		if strings.Contains(exception, "secret") {
			t.Errorf("exception leaks the API key: %s", exception)
		}
	})

	t.Run("non-object data yields empty payload", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data":[1,2]}`))
		}))
		defer srv.Close()

		got := newTestClient(srv).VerifyEmail(context.Background(), "x@example.com", true, time.Second)
		if len(got) != 0 {
			t.Errorf("expected empty payload, got %v", got)
		}
	})
}
