package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// cipherSuiteIDs maps the IANA cipher suite names accepted in TLSOptions to
// their TLS registry ids.
var cipherSuiteIDs = func() map[string]uint16 {
	ids := make(map[string]uint16)
	for _, cs := range tls.CipherSuites() {
		ids[cs.Name] = cs.ID
	}
	for _, cs := range tls.InsecureCipherSuites() {
		ids[cs.Name] = cs.ID
	}
	return ids
}()

// NewTLSConfig builds a *tls.Config from PEM files on disk.
func NewTLSConfig(opts *TLSOptions) (*tls.Config, error) {
	cfg := &tls.Config{
		InsecureSkipVerify: !opts.EnableServerCertAuth,
	}

	if opts.TrustStore != "" {
		pem, err := os.ReadFile(opts.TrustStore)
		if err != nil {
			return nil, fmt.Errorf("read trust store: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("trust store %s holds no certificates", opts.TrustStore)
		}
		cfg.RootCAs = pool
	}

	if opts.KeyStore != "" && opts.PrivateKey != "" {
		cert, err := tls.LoadX509KeyPair(opts.KeyStore, opts.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("load client key pair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if len(opts.EnabledCipherSuites) > 0 {
		suites := make([]uint16, 0, len(opts.EnabledCipherSuites))
		for _, name := range opts.EnabledCipherSuites {
			id, ok := cipherSuiteIDs[name]
			if !ok {
				return nil, fmt.Errorf("unknown cipher suite %q", name)
			}
			suites = append(suites, id)
		}
		cfg.CipherSuites = suites
	}

	return cfg, nil
}
