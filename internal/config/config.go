// Package config loads hopper's YAML configuration and turns it into a
// client builder.
package config

import (
	"time"

	"github.com/0x6d61/hopper/internal/redirect"
)

// Config is the root configuration structure.
type Config struct {
	Client  Client            `yaml:"client"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Batch   Batch             `yaml:"batch"`
	Trace   Trace             `yaml:"trace"`
	Metrics Metrics           `yaml:"metrics"`
}

// Client mirrors the options of client.Builder.
type Client struct {
	Gzip             bool          `yaml:"gzip"`
	Referer          bool          `yaml:"referer"`
	UserAgent        string        `yaml:"user_agent,omitempty"`
	Timeout          time.Duration `yaml:"timeout"`
	FollowRedirects  bool          `yaml:"follow_redirects"`
	MaxRedirects     int           `yaml:"max_redirects"`
	InsecureHostname bool          `yaml:"insecure_hostname"`
	RootCertificates []string      `yaml:"root_certificates,omitempty"`
	Proxy            string        `yaml:"proxy,omitempty"`
	RateLimit        float64       `yaml:"rate_limit"`
}

// Batch configures concurrent execution of several URLs.
type Batch struct {
	Concurrency int `yaml:"concurrency"`
}

// Trace configures the redirect trace database.
type Trace struct {
	// Database is the SQLite file path. Empty disables recording.
	Database string        `yaml:"database,omitempty"`
	MaxAge   time.Duration `yaml:"max_age"`
}

// Metrics configures the Prometheus textfile output.
type Metrics struct {
	// Textfile is where metrics are written after a run. Empty disables it.
	Textfile string `yaml:"textfile,omitempty"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Client: Client{
			Gzip:            true,
			Referer:         true,
			FollowRedirects: true,
			MaxRedirects:    redirect.DefaultMaxRedirects,
		},
		Batch: Batch{Concurrency: 4},
		Trace: Trace{MaxAge: 7 * 24 * time.Hour},
	}
}

// Policy returns the redirect policy the configuration describes.
func (c Client) Policy() redirect.Policy {
	if !c.FollowRedirects {
		return redirect.None()
	}
	return redirect.Limit(c.MaxRedirects)
}
