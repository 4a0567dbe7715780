package tlsutil

import (
	"crypto/tls"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTLSConfig(t *testing.T) {
	cfg := DefaultTLSConfig()
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	require.NotEmpty(t, cfg.CipherSuites)

	aead := map[uint16]bool{
		tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384: true,
		tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384:   true,
		tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256: true,
		tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256:   true,
		tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305:  true,
		tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305:    true,
	}
	for _, cs := range cfg.CipherSuites {
		assert.True(t, aead[cs], "unexpected non-AEAD cipher suite %d", cs)
	}
}

func TestSecureTransport(t *testing.T) {
	tests := []struct {
		name       string
		opts       TransportOptions
		wantHeader time.Duration
		wantConns  int
	}{
		{name: "zero options", opts: TransportOptions{}},
		{
			name:       "explicit",
			opts:       TransportOptions{DialTimeout: time.Second, ResponseHeaderTimeout: 5 * time.Second, MaxConnsPerHost: 4},
			wantHeader: 5 * time.Second,
			wantConns:  4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := SecureTransport(tt.opts)
			require.NotNil(t, tr.TLSClientConfig)
			assert.Equal(t, uint16(tls.VersionTLS12), tr.TLSClientConfig.MinVersion)
			assert.True(t, tr.ForceAttemptHTTP2)
			assert.Equal(t, tt.wantHeader, tr.ResponseHeaderTimeout)
			assert.Equal(t, tt.wantConns, tr.MaxConnsPerHost)
		})
	}
}

func TestStreamingHTTPClient_NoBodyTimeout(t *testing.T) {
	client := StreamingHTTPClient(TransportOptions{ResponseHeaderTimeout: time.Minute})
	assert.Zero(t, client.Timeout)
	require.NotNil(t, client.Transport)
}
