package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrNoCertsFound is returned when no certificates are found in a PEM file.
	ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM file")

	// ErrIncompleteKeyPair is returned when only one of cert_file and key_file is set.
	ErrIncompleteKeyPair = errors.New("tlsroots: cert_file and key_file must be set together")
)

// Pool manages a pool of trusted root certificates.
type Pool struct {
	certPool *x509.CertPool
}

// NewPool creates a pool seeded with the system roots, or an empty pool on
// systems without a readable system store.
func NewPool() *Pool {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	return &Pool{certPool: pool}
}

// AddCertFile adds every certificate in a PEM file.
func (p *Pool) AddCertFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("tlsroots: read cert file %s: %w", path, err)
	}
	if err := p.AddCertPEM(data); err != nil {
		return fmt.Errorf("%w (%s)", err, path)
	}
	return nil
}

// AddCertPEM adds certificates from PEM-encoded data. Blocks that are not
// certificates are skipped.
func (p *Pool) AddCertPEM(pemData []byte) error {
	var added int
	for len(pemData) > 0 {
		var block *pem.Block
		block, pemData = pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("tlsroots: parse certificate: %w", err)
		}
		p.certPool.AddCert(cert)
		added++
	}

	if added == 0 {
		return ErrNoCertsFound
	}
	return nil
}

// Pool returns the underlying x509.CertPool.
func (p *Pool) Pool() *x509.CertPool {
	return p.certPool
}

// Files names the PEM files of a bridge TLS setup. All fields are optional.
type Files struct {
	CAFile   string
	CertFile string
	KeyFile  string
}

// IsZero reports whether no file is configured.
func (f Files) IsZero() bool {
	return f.CAFile == "" && f.CertFile == "" && f.KeyFile == ""
}

// ClientConfig returns the TLS configuration for dialing the bridge, or nil
// when f is zero so the dialer keeps its defaults.
//
// The client key pair is read at every handshake, so a renewed certificate
// is picked up on the next reconnect.
func ClientConfig(f Files) (*tls.Config, error) {
	if f.IsZero() {
		return nil, nil
	}
	if (f.CertFile == "") != (f.KeyFile == "") {
		return nil, ErrIncompleteKeyPair
	}

	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if f.CAFile != "" {
		pool := NewPool()
		if err := pool.AddCertFile(f.CAFile); err != nil {
			return nil, err
		}
		cfg.RootCAs = pool.Pool()
	}

	if f.CertFile != "" {
		// Fail at startup rather than at the first handshake.
		if _, err := tls.LoadX509KeyPair(f.CertFile, f.KeyFile); err != nil {
			return nil, fmt.Errorf("tlsroots: load key pair: %w", err)
		}
		certFile, keyFile := f.CertFile, f.KeyFile
		cfg.GetClientCertificate = func(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
			cert, err := tls.LoadX509KeyPair(certFile, keyFile)
			if err != nil {
				return nil, fmt.Errorf("tlsroots: load key pair: %w", err)
			}
			return &cert, nil
		}
	}

	return cfg, nil
}
