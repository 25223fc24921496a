package tor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/tornago"
)

// DefaultStartupTimeout bounds the bootstrap of the embedded daemon.
const DefaultStartupTimeout = 3 * time.Minute

// EmbeddedTor runs a private Tor daemon through tornago.
//
// Bootstrapping downloads directory information and builds circuits, which
// usually takes one to three minutes.
type EmbeddedTor struct {
	// process is the running daemon, nil when stopped.
	process *tornago.TorProcess

	// socksAddr is the SOCKS5 listener, set after a successful start.
	socksAddr string

	// startupTimeout is the maximum time to wait for bootstrap.
	startupTimeout time.Duration

	logger *slog.Logger
}

// EmbeddedTorOption configures an EmbeddedTor instance.
type EmbeddedTorOption func(*EmbeddedTor)

// WithStartupTimeout sets the maximum time to wait for Tor to bootstrap.
// Non-positive values keep the default.
func WithStartupTimeout(timeout time.Duration) EmbeddedTorOption {
	return func(e *EmbeddedTor) {
		if timeout > 0 {
			e.startupTimeout = timeout
		}
	}
}

// WithEmbeddedLogger sets a custom logger.
func WithEmbeddedLogger(logger *slog.Logger) EmbeddedTorOption {
	return func(e *EmbeddedTor) {
		e.logger = logger
	}
}

// NewEmbeddedTor creates an embedded Tor manager. Call Start to launch it.
func NewEmbeddedTor(opts ...EmbeddedTorOption) *EmbeddedTor {
	e := &EmbeddedTor{
		startupTimeout: DefaultStartupTimeout,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e
}

type startResult struct {
	process *tornago.TorProcess
	err     error
}

// Start launches the daemon and waits until it has bootstrapped, the
// startup timeout expires or ctx is cancelled. A daemon that finishes
// starting after cancellation is stopped.
func (e *EmbeddedTor) Start(ctx context.Context) error {
	launchCfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(e.startupTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create Tor launch config: %w", err)
	}

	e.logger.Info("Starting embedded Tor daemon", "timeout", e.startupTimeout)
	start := time.Now()

	done := make(chan startResult, 1)
	go func() {
		process, err := tornago.StartTorDaemon(launchCfg)
		done <- startResult{process: process, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if res := <-done; res.err == nil {
				_ = res.process.Stop() //nolint:errcheck // best effort cleanup
			}
		}()
		return ctx.Err()
	case res := <-done:
		if res.err != nil {
			return fmt.Errorf("failed to start embedded Tor daemon: %w", res.err)
		}
		e.process = res.process
		e.socksAddr = res.process.SocksAddr()
	}

	e.logger.Info("Embedded Tor daemon ready",
		"socks", e.socksAddr,
		"elapsed", time.Since(start).Round(time.Second),
	)
	return nil
}

// Stop shuts the daemon down. It is safe to call on a stopped instance.
func (e *EmbeddedTor) Stop() error {
	if e.process == nil {
		return nil
	}

	err := e.process.Stop()
	e.process = nil
	e.socksAddr = ""
	return err
}

// SocksAddr returns the SOCKS5 address of the running daemon, or "".
func (e *EmbeddedTor) SocksAddr() string {
	return e.socksAddr
}

// IsRunning reports whether the daemon is running.
func (e *EmbeddedTor) IsRunning() bool {
	return e.process != nil
}

// NewClient returns a Client dialing through the daemon's SOCKS port.
func (e *EmbeddedTor) NewClient(timeout time.Duration) (*Client, error) {
	if !e.IsRunning() {
		return nil, ErrNotRunning
	}
	return NewClient(e.socksAddr, timeout)
}
