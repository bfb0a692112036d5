package client

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// Certificate is a parsed X.509 certificate to be trusted as a root.
type Certificate struct {
	cert *x509.Certificate
}

// CertificateFromDER parses a binary DER encoded certificate.
func CertificateFromDER(der []byte) (*Certificate, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, &TLSConfigError{Err: err}
	}
	return &Certificate{cert: cert}, nil
}

// CertificateFromPEM parses the first CERTIFICATE block of a PEM file.
func CertificateFromPEM(data []byte) (*Certificate, error) {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, &TLSConfigError{Err: errors.New("no CERTIFICATE block in PEM data")}
		}
		if block.Type == "CERTIFICATE" {
			return CertificateFromDER(block.Bytes)
		}
	}
}

// X509 returns the underlying certificate.
func (c *Certificate) X509() *x509.Certificate {
	return c.cert
}

func (c *Certificate) String() string {
	if c == nil || c.cert == nil {
		return "Certificate(<nil>)"
	}
	return fmt.Sprintf("Certificate(%s)", c.cert.Subject)
}
