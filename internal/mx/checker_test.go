package mx

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"
)

// startServer runs a DNS server on a loopback UDP port and returns its address.
func startServer(t *testing.T, handler dns.HandlerFunc) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		Handler:           handler,
		NotifyStartedFunc: func() { close(started) },
	}
	go func() {
		_ = srv.ActivateAndServe()
	}()
	<-started

	t.Cleanup(func() {
		_ = srv.Shutdown()
	})
	return pc.LocalAddr().String()
}

// zoneHandler answers MX queries for a handful of fixed names.
func zoneHandler(w dns.ResponseWriter, r *dns.Msg) {
	m := new(dns.Msg)
	m.SetReply(r)

	name := r.Question[0].Name
	switch name {
	case "mail.test.":
		m.Answer = append(m.Answer, &dns.MX{
			Hdr:        dns.RR_Header{Name: name, Rrtype: dns.TypeMX, Class: dns.ClassINET, Ttl: 60},
			Preference: 10,
			Mx:         "mx.mail.test.",
		})
	case "missing.test.":
		m.Rcode = dns.RcodeNameError
	case "refused.test.":
		m.Rcode = dns.RcodeRefused
	case "notimp.test.":
		m.Rcode = dns.RcodeNotImplemented
	case "silent.test.":
		return
	}
	_ = w.WriteMsg(m)
}

// stubResolver records host lookups.
type stubResolver struct {
	addrs map[string][]string

	mu    sync.Mutex
	calls []string
}

func (r *stubResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, host)
	r.mu.Unlock()

	if addrs, ok := r.addrs[host]; ok {
		return addrs, nil
	}
	return nil, errors.New("no such host")
}

func (r *stubResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// TestChecker tests MX checks against a local DNS server.
func TestChecker(t *testing.T) {
	t.Parallel()

	server := startServer(t, zoneHandler)
	resolver := &stubResolver{addrs: map[string][]string{
		"nomx.test":    {"127.0.0.1"},
		"refused.test": {"127.0.0.2"},
	}}

	testCases := []struct {
		name  string
		email string
		want  bool
	}{
		{"mx record", "user@mail.test", true},
		{"mixed case domain", "user@MAIL.Test", true},
		{"no mx answer falls back to host lookup", "user@nomx.test", true},
		{"refusal falls back to host lookup", "user@refused.test", true},
		{"nxdomain with no host", "user@missing.test", false},
		{"unexpected rcode", "user@notimp.test", false},
		{"malformed address", "invalid-email", false},
		{"empty domain", "user@", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			checker := NewChecker(
				WithServers(server),
				WithResolver(resolver),
				WithTimeout(2*time.Second),
			)
			if got := checker.Check(context.Background(), tc.email); got != tc.want {
				t.Errorf("Check(%q) = %v, want %v", tc.email, got, tc.want)
			}
		})
	}
}

// TestCheckerTimeout tests that an unresponsive nameserver fails the check
// without consulting the host fallback.
func TestCheckerTimeout(t *testing.T) {
	t.Parallel()

	server := startServer(t, zoneHandler)
	resolver := &stubResolver{addrs: map[string][]string{"silent.test": {"127.0.0.1"}}}

	checker := NewChecker(
		WithServers(server),
		WithResolver(resolver),
		WithTimeout(200*time.Millisecond),
	)

	if checker.Check(context.Background(), "user@silent.test") {
		t.Error("expected timeout to fail the check")
	}
	if resolver.callCount() != 0 {
		t.Error("host fallback should not run after a timeout")
	}
}

// TestCheckerCache tests that a domain is resolved once.
func TestCheckerCache(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	queries := 0
	server := startServer(t, func(w dns.ResponseWriter, r *dns.Msg) {
		mu.Lock()
		queries++
		mu.Unlock()
		zoneHandler(w, r)
	})

	checker := NewChecker(WithServers(server), WithResolver(&stubResolver{}))
	for _, email := range []string{"a@mail.test", "b@mail.test", "c@MAIL.TEST"} {
		if !checker.Check(context.Background(), email) {
			t.Errorf("Check(%q) = false", email)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if queries != 1 {
		t.Errorf("expected 1 query, got %d", queries)
	}
}

// TestSystemServers tests resolv.conf parsing.
func TestSystemServers(t *testing.T) {
	t.Parallel()

	if got := systemServers("/nonexistent/resolv.conf"); len(got) != 1 || got[0] != fallbackServer {
		t.Errorf("systemServers() = %v", got)
	}
}
