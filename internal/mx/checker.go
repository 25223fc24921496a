package mx

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"
)

// DefaultTimeout bounds one complete MX check, across all nameservers.
const DefaultTimeout = 8 * time.Second

// DefaultResolvConf is where nameservers are read from.
const DefaultResolvConf = "/etc/resolv.conf"

// fallbackServer is used when no resolver configuration can be read.
const fallbackServer = "8.8.8.8:53"

// errNoUsableAnswer marks lookups that should fall back to a host lookup.
var errNoUsableAnswer = errors.New("no usable MX answer")

// HostResolver resolves a host name to addresses.
// *net.Resolver satisfies it.
type HostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Checker performs MX checks. Results are cached per domain, so a run with
// many addresses on the same domain issues one query.
// A Checker is safe for concurrent use.
type Checker struct {
	client   *dns.Client
	servers  []string
	timeout  time.Duration
	resolver HostResolver
	logger   *slog.Logger

	mu    sync.Mutex
	cache map[string]bool
}

// Option configures a Checker.
type Option func(*Checker)

// WithServers sets the nameservers as host:port pairs.
func WithServers(servers ...string) Option {
	return func(c *Checker) {
		if len(servers) > 0 {
			c.servers = servers
		}
	}
}

// WithTimeout sets the overall lifetime of one check.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Checker) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithResolver sets the resolver used for the host lookup fallback.
func WithResolver(resolver HostResolver) Option {
	return func(c *Checker) {
		if resolver != nil {
			c.resolver = resolver
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// NewChecker creates a Checker. Without WithServers, nameservers come from
// /etc/resolv.conf.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		client:   &dns.Client{Net: "udp"},
		timeout:  DefaultTimeout,
		resolver: net.DefaultResolver,
		cache:    make(map[string]bool),
	}

	for _, opt := range opts {
		opt(c)
	}

	if len(c.servers) == 0 {
		c.servers = systemServers(DefaultResolvConf)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// systemServers reads nameservers from a resolv.conf file.
func systemServers(path string) []string {
	conf, err := dns.ClientConfigFromFile(path)
	if err != nil || len(conf.Servers) == 0 {
		return []string{fallbackServer}
	}
	servers := make([]string, 0, len(conf.Servers))
	for _, server := range conf.Servers {
		servers = append(servers, net.JoinHostPort(server, conf.Port))
	}
	return servers
}

// Check reports whether the domain of email accepts mail.
// Malformed addresses fail the check.
func (c *Checker) Check(ctx context.Context, email string) bool {
	domain, ok := domainOf(email)
	if !ok {
		return false
	}

	c.mu.Lock()
	cached, hit := c.cache[domain]
	c.mu.Unlock()
	if hit {
		return cached
	}

	result := c.check(ctx, domain)
	if ctx.Err() == nil {
		c.mu.Lock()
		c.cache[domain] = result
		c.mu.Unlock()
	}
	return result
}

// check runs the MX lookup and the host fallback for one domain.
func (c *Checker) check(ctx context.Context, domain string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	found, err := c.lookupMX(ctx, domain)
	switch {
	case err == nil:
		return found
	case errors.Is(err, errNoUsableAnswer):
		addrs, lookupErr := c.resolver.LookupHost(ctx, domain)
		if lookupErr != nil {
			c.logger.Debug("host fallback failed", "domain", domain, "error", lookupErr)
			return false
		}
		return len(addrs) > 0
	default:
		c.logger.Debug("mx lookup failed", "domain", domain, "error", err)
		return false
	}
}

// lookupMX queries each nameserver in turn. It returns errNoUsableAnswer when
// the domain does not exist, has no MX records, or no nameserver would answer.
func (c *Checker) lookupMX(ctx context.Context, domain string) (bool, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), dns.TypeMX)
	msg.RecursionDesired = true

	var lastErr error
	refused := 0
	for _, server := range c.servers {
		resp, _, err := c.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		switch resp.Rcode {
		case dns.RcodeSuccess:
			for _, rr := range resp.Answer {
				if _, ok := rr.(*dns.MX); ok {
					return true, nil
				}
			}
			return false, errNoUsableAnswer
		case dns.RcodeNameError:
			return false, errNoUsableAnswer
		case dns.RcodeServerFailure, dns.RcodeRefused:
			refused++
			continue
		default:
			return false, errors.New(dns.RcodeToString[resp.Rcode])
		}
	}

	if refused > 0 && refused == len(c.servers) {
		return false, errNoUsableAnswer
	}
	if lastErr == nil {
		lastErr = errors.New("no nameserver answered")
	}
	return false, lastErr
}

// domainOf returns the ASCII-encoded, lowercased domain part of email.
func domainOf(email string) (string, bool) {
	_, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || domain == "" {
		return "", false
	}
	ascii, err := idna.Lookup.ToASCII(strings.ToLower(domain))
	if err != nil || ascii == "" {
		return "", false
	}
	return ascii, true
}
