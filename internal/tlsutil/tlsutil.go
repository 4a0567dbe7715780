package tlsutil

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// DefaultTLSConfig returns a hardened TLS configuration.
// MinVersion TLS 1.2, AEAD-only cipher suites.
func DefaultTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
	}
}

// TransportOptions tunes the hardened transport.
type TransportOptions struct {
	// DialTimeout bounds TCP connect. Zero means 30s.
	DialTimeout time.Duration
	// ResponseHeaderTimeout bounds the wait for response headers after the
	// request is written. Zero means no limit.
	ResponseHeaderTimeout time.Duration
	// MaxConnsPerHost caps parallel connections to one endpoint. Zero means unlimited.
	MaxConnsPerHost int
}

// SecureTransport returns an http.Transport with TLS hardening.
func SecureTransport(opts TransportOptions) *http.Transport {
	dial := opts.DialTimeout
	if dial <= 0 {
		dial = 30 * time.Second
	}
	return &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: DefaultTLSConfig(),
		DialContext: (&net.Dialer{
			Timeout:   dial,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxConnsPerHost:       opts.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// StreamingHTTPClient returns a client for long-lived SSE responses.
// It sets no Client.Timeout, which would cut a stream off mid-body;
// callers bound the whole exchange with a context instead.
func StreamingHTTPClient(opts TransportOptions) *http.Client {
	return &http.Client{
		Transport: SecureTransport(opts),
	}
}
