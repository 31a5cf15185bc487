// Package upstream builds the single outbound http.Client this proxy uses
// to reach allow-listed origins, honoring optional forward-proxy and
// IPv4-only dialer configuration.
package upstream

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Config carries the environment-derived settings that shape the outbound
// client: an optional forward proxy (with optional basic auth) and an
// optional IPv4-only dialer restriction.
type Config struct {
	ProxyURL  string
	ProxyUser string
	ProxyPass string
	IPv4Only  bool
}

// NewClient builds an *http.Client configured per cfg. The returned client
// has no timeout of its own: callers drive cancellation through the
// request's context, since media responses can legitimately stream for a
// long time.
func NewClient(cfg Config) (*http.Client, error) {
	transport := &http.Transport{
		Proxy: nil,
	}

	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, err
		}
		if cfg.ProxyUser != "" {
			proxyURL.User = url.UserPassword(cfg.ProxyUser, cfg.ProxyPass)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if cfg.IPv4Only {
		dialer.LocalAddr = &net.TCPAddr{IP: net.IPv4zero}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp4", addr)
		}
	} else {
		transport.DialContext = dialer.DialContext
	}

	return &http.Client{Transport: transport}, nil
}
