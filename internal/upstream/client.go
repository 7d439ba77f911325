// Package upstream performs the outbound calls on behalf of the browser.
package upstream

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/davidbz/hearth/internal/config"
)

// Clients holds the two outbound clients. Buffered calls share one overall
// timeout; Streaming has none so long generations are bounded only by cancellation.
type Clients struct {
	Buffered  *http.Client
	Streaming *http.Client
}

// NewClients builds both clients over one shared transport.
func NewClients(cfg *config.UpstreamConfig) (*Clients, error) {
	transport, err := NewTransport(cfg)
	if err != nil {
		return nil, err
	}

	return &Clients{
		Buffered: &http.Client{
			Transport: transport,
			Timeout:   seconds(cfg.Timeout),
		},
		Streaming: &http.Client{
			Transport: transport,
		},
	}, nil
}

// NewTransport builds the shared transport, routing through the configured
// forward proxy when one is set.
func NewTransport(cfg *config.UpstreamConfig) (*http.Transport, error) {
	proxy := http.ProxyFromEnvironment
	if cfg.Proxy != "" {
		proxyURL, err := ParseProxy(cfg.Proxy)
		if err != nil {
			return nil, err
		}
		proxy = http.ProxyURL(proxyURL)
	}

	return &http.Transport{
		Proxy: proxy,
		DialContext: (&net.Dialer{
			Timeout:   seconds(cfg.DialTimeout),
			KeepAlive: seconds(cfg.KeepAlive),
		}).DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConns,
		IdleConnTimeout:       seconds(cfg.IdleConnTimeout),
		TLSHandshakeTimeout:   seconds(cfg.TLSHandshakeTimeout),
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
	}, nil
}

// ParseProxy accepts either a full proxy URL or a bare "host:port", which is treated as http.
func ParseProxy(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream proxy %q: %w", raw, err)
	}

	if parsed.Host == "" {
		return nil, fmt.Errorf("invalid upstream proxy %q: missing host", raw)
	}

	switch parsed.Scheme {
	case "http", "https", "socks5":
	default:
		return nil, fmt.Errorf("invalid upstream proxy %q: unsupported scheme %s", raw, parsed.Scheme)
	}

	return parsed, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
