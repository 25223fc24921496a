package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/emailharvester/internal/config"
	"github.com/nao1215/emailharvester/internal/tor"
)

// transport decides how page fetches reach the network: directly, through
// the SOCKS5 proxy given with --proxy, or through an embedded Tor daemon.
type transport struct {
	client   *tor.Client
	embedded *tor.EmbeddedTor
	logger   *slog.Logger
}

// newTransport prepares the transport selected by cfg and verifies that the
// proxy answers before any page is fetched.
func newTransport(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*transport, error) {
	tr := &transport{logger: logger}

	switch {
	case cfg.ProxyAddress != "":
		client, err := tor.NewClient(cfg.ProxyAddress, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create proxy client: %w", err)
		}
		if status := client.CheckConnection(ctx); status != tor.ProxyStatusOK {
			return nil, fmt.Errorf("proxy check failed: %s (make sure a SOCKS5 proxy is running at %s): %w",
				status, cfg.ProxyAddress, status.Error())
		}
		logger.Info("SOCKS5 proxy connection verified", "address", cfg.ProxyAddress)
		tr.client = client

	case cfg.UseTor:
		embedded := tor.NewEmbeddedTor(
			tor.WithStartupTimeout(cfg.TorStartupTimeout),
			tor.WithEmbeddedLogger(logger),
		)
		if err := embedded.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start embedded Tor: %w", err)
		}
		tr.embedded = embedded

		client, err := embedded.NewClient(cfg.Timeout)
		if err != nil {
			tr.Close()
			return nil, fmt.Errorf("failed to create Tor client: %w", err)
		}
		if status := client.CheckConnection(ctx); status != tor.ProxyStatusOK {
			tr.Close()
			return nil, fmt.Errorf("embedded Tor proxy check failed: %s: %w", status, status.Error())
		}
		tr.client = client
	}

	return tr, nil
}

// HTTPClient returns the client page fetches use.
func (t *transport) HTTPClient(timeout time.Duration) *http.Client {
	if t.client == nil {
		return &http.Client{Timeout: timeout}
	}
	return t.client.NewHTTPClient()
}

// SocksAddr returns the proxy address for the browser, or "" when direct.
func (t *transport) SocksAddr() string {
	if t.client == nil {
		return ""
	}
	return t.client.ProxyAddress()
}

// Close stops the embedded Tor daemon, if one was started.
func (t *transport) Close() {
	if t.embedded == nil {
		return
	}
	t.logger.Info("stopping embedded Tor daemon")
	if err := t.embedded.Stop(); err != nil {
		t.logger.Error("failed to stop embedded Tor", "error", err)
	}
	t.embedded = nil
}
