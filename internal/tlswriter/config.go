package tlswriter

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
)

// tls12CipherSuites mirrors the intent of the OpenSSL cipher string
// "HIGH:!eNULL:!aNULL:!kRSA:!SHA1:!MD5": AEAD ciphers with ephemeral key
// exchange only, no static RSA key exchange, no SHA-1/MD5 MACs. TLS 1.3
// ciphersuites are left to the library default per the requirements.
var tls12CipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
}

// BuildBaseConfig constructs the shared TLS configuration from which
// every per-host Writer clones its own config. caFile and caPath add
// extra trust material on top of the platform's root store; either may
// be empty.
func BuildBaseConfig(caFile, caPath string) (*tls.Config, error) {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}

	if caFile != "" {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("tlswriter: read ca_file %s: %w", caFile, err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("tlswriter: no certificates parsed from ca_file %s", caFile)
		}
	}

	if caPath != "" {
		if err := appendCertsFromDir(pool, caPath); err != nil {
			return nil, err
		}
	}

	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		RootCAs:      pool,
		CipherSuites: tls12CipherSuites,
	}, nil
}

func appendCertsFromDir(pool *x509.CertPool, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("tlswriter: read ca_path %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		pem, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		pool.AppendCertsFromPEM(pem)
	}
	return nil
}
