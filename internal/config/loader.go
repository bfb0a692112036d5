package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/0x6d61/hopper/internal/client"
	"github.com/0x6d61/hopper/internal/header"
)

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func Validate(cfg *Config) error {
	c := cfg.Client
	if c.Timeout < 0 {
		return errors.New("client.timeout must not be negative")
	}
	if c.MaxRedirects < 0 {
		return errors.New("client.max_redirects must not be negative")
	}
	if c.RateLimit < 0 {
		return errors.New("client.rate_limit must not be negative")
	}
	if c.Proxy != "" {
		u, err := url.Parse(c.Proxy)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("client.proxy %q is not an absolute URL", c.Proxy)
		}
	}
	for name, value := range cfg.Headers {
		h := header.New()
		h.Set(name, value)
		if err := h.Validate(); err != nil {
			return fmt.Errorf("headers: %w", err)
		}
	}
	if cfg.Batch.Concurrency <= 0 {
		return errors.New("batch.concurrency must be positive")
	}
	if cfg.Trace.MaxAge < 0 {
		return errors.New("trace.max_age must not be negative")
	}
	return nil
}

// Builder returns a client.Builder configured from c. Root certificate
// files may be PEM or DER encoded.
func (c Client) Builder() (*client.Builder, error) {
	b := client.NewBuilder().
		Gzip(c.Gzip).
		Referer(c.Referer).
		Redirect(c.Policy()).
		Timeout(c.Timeout).
		Proxy(c.Proxy).
		RateLimit(c.RateLimit)
	if c.UserAgent != "" {
		b.UserAgent(c.UserAgent)
	}
	if c.InsecureHostname {
		b.DangerDisableHostnameVerification()
	}

	for _, path := range c.RootCertificates {
		cert, err := LoadCertificate(path)
		if err != nil {
			return nil, err
		}
		if err := b.AddRootCertificate(cert); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// LoadCertificate reads a PEM or DER certificate file.
func LoadCertificate(path string) (*client.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate: %w", err)
	}
	if cert, err := client.CertificateFromPEM(data); err == nil {
		return cert, nil
	}
	cert, err := client.CertificateFromDER(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cert, nil
}
