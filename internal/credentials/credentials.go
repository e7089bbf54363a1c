// Package credentials holds the certificate, private key and encryption key
// used for a single API call.
//
// A Bundle is supplied by the host, read by the pipeline, and never persisted
// or mutated. Validate checks the two invariants the protocol relies on: the
// certificate and private key form a matching PEM pair, and the encryption
// key decodes to exactly 256 bits.
package credentials

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/PolarWolf314/sfcpay/internal/codec"
	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
	"golang.org/x/crypto/pkcs12"
)

const (
	EnvironmentProduction = "production"
	EnvironmentTest       = "uat"
)

// Bundle is the per-call credential set.
type Bundle struct {
	CertificatePEM     []byte
	PrivateKeyPEM      []byte
	EncryptionKey      string
	UseTestEnvironment bool
}

// Validate checks the certificate/key pair and the encryption key.
func (b Bundle) Validate() error {
	if len(b.CertificatePEM) == 0 {
		return fmt.Errorf("%w: certificate is empty", kerrors.ErrInvalidCredentials)
	}
	if len(b.PrivateKeyPEM) == 0 {
		return fmt.Errorf("%w: private key is empty", kerrors.ErrInvalidCredentials)
	}
	if _, err := b.TLSCertificate(); err != nil {
		return err
	}
	if _, err := b.Key(); err != nil {
		return err
	}
	return nil
}

// TLSCertificate parses the PEM pair for use as a TLS client certificate.
func (b Bundle) TLSCertificate() (tls.Certificate, error) {
	cert, err := tls.X509KeyPair(b.CertificatePEM, b.PrivateKeyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: %v", kerrors.ErrCertificateMismatch, err)
	}
	return cert, nil
}

// Key returns the decoded 32-byte encryption key.
func (b Bundle) Key() ([]byte, error) {
	return codec.ParseKey(b.EncryptionKey)
}

// Environment names the API environment the bundle targets.
func (b Bundle) Environment() string {
	if b.UseTestEnvironment {
		return EnvironmentTest
	}
	return EnvironmentProduction
}

// Certificate returns the parsed leaf certificate.
func (b Bundle) Certificate() (*x509.Certificate, error) {
	block, _ := pem.Decode(b.CertificatePEM)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("%w: failed to decode PEM block containing certificate", kerrors.ErrInvalidCredentials)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidCredentials, err)
	}
	return cert, nil
}

// ExpiresWithin reports whether the certificate expires within d of now.
func (b Bundle) ExpiresWithin(d time.Duration, now time.Time) (bool, error) {
	cert, err := b.Certificate()
	if err != nil {
		return false, err
	}
	return now.Add(d).After(cert.NotAfter), nil
}

// String keeps key material out of logs and error messages.
func (b Bundle) String() string {
	return fmt.Sprintf("credentials.Bundle{environment: %s, certificate: %d bytes, private key: [redacted], encryption key: [redacted]}",
		b.Environment(), len(b.CertificatePEM))
}

// GoString is used by %#v.
func (b Bundle) GoString() string {
	return b.String()
}

// FromPKCS12 converts a PKCS#12 archive into a PEM certificate and private key.
// Only the first certificate in the archive is returned.
func FromPKCS12(data []byte, password string) (certPEM, keyPEM []byte, err error) {
	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading PKCS#12 archive: %v", kerrors.ErrInvalidCredentials, err)
	}

	for _, block := range blocks {
		switch block.Type {
		case "CERTIFICATE":
			if certPEM == nil {
				certPEM = pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: block.Bytes})
			}
		case "PRIVATE KEY":
			if keyPEM == nil {
				keyPEM = pem.EncodeToMemory(&pem.Block{Type: privateKeyType(block.Bytes), Bytes: block.Bytes})
			}
		}
	}

	if certPEM == nil || keyPEM == nil {
		return nil, nil, fmt.Errorf("%w: PKCS#12 archive must contain a certificate and a private key", kerrors.ErrInvalidCredentials)
	}
	return certPEM, keyPEM, nil
}

// privateKeyType labels the DER bytes produced by pkcs12.ToPEM, which are
// PKCS#1 for RSA keys and SEC 1 for EC keys.
func privateKeyType(der []byte) string {
	if _, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return "RSA PRIVATE KEY"
	}
	if _, err := x509.ParseECPrivateKey(der); err == nil {
		return "EC PRIVATE KEY"
	}
	return "PRIVATE KEY"
}
