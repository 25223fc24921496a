// Package tor routes page fetches through a SOCKS5 proxy.
//
// A Client wraps a SOCKS5 dialer (any proxy given with --proxy, or the SOCKS
// port of a Tor daemon) and builds HTTP clients for the fetcher. EmbeddedTor
// starts a private Tor daemon through tornago for --tor, so no external
// installation is needed.
package tor
