package billingo

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultHost is the production API base URL.
	DefaultHost = "https://www.billingo.hu/api/"
	// DefaultVersion is the API version sent when none is configured.
	DefaultVersion = "2"
	// DefaultLeeway widens each signed claims token by this much on both sides.
	DefaultLeeway = 60 * time.Second
	// DefaultTimeout bounds calls made through the default transports.
	DefaultTimeout = 30 * time.Second
	// DefaultExchangePath is the relative path of the token exchange endpoint.
	DefaultExchangePath = "token/exchange"
)

// TransportKind selects the default transport built when none is injected.
type TransportKind string

const (
	// TransportHTTP uses net/http.
	TransportHTTP TransportKind = "http"
	// TransportFastHTTP uses valyala/fasthttp.
	TransportFastHTTP TransportKind = "fasthttp"
)

// Config is the resolved client configuration.
//
// Config is copied into the Client at Build and never mutated afterwards.
type Config struct {
	Host    string
	Version string
	Leeway  time.Duration

	PublicKey  string
	PrivateKey string
	Token      string

	Headers map[string]string

	Timeout      time.Duration
	ExchangePath string
	Transport    TransportKind

	Metrics MetricsConfig
	Audit   AuditConfig
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls delivery of per-call events to an AuditSink.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// DefaultConfig returns a Config with every optional field set to its default.
// Credentials are left empty.
func DefaultConfig() Config {
	return Config{
		Host:         DefaultHost,
		Version:      DefaultVersion,
		Leeway:       DefaultLeeway,
		Timeout:      DefaultTimeout,
		ExchangePath: DefaultExchangePath,
		Transport:    TransportHTTP,
		Audit: AuditConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Headers != nil {
		out.Headers = make(map[string]string, len(cfg.Headers))
		for k, v := range cfg.Headers {
			out.Headers[k] = v
		}
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks c and fills in defaults for zero-valued optional fields.
func (c *Config) Validate() error {
	c.Host = strings.TrimSpace(c.Host)
	if c.Host == "" {
		c.Host = DefaultHost
	}
	u, err := url.Parse(c.Host)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: host must be an absolute http or https URL", ErrInvalidConfig)
	}

	if strings.TrimSpace(c.Version) == "" {
		c.Version = DefaultVersion
	}

	if c.Leeway == 0 {
		c.Leeway = DefaultLeeway
	}
	if c.Leeway < time.Second {
		return fmt.Errorf("%w: leeway must be at least one second", ErrInvalidConfig)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must be >= 0", ErrInvalidConfig)
	}

	if strings.TrimSpace(c.ExchangePath) == "" {
		c.ExchangePath = DefaultExchangePath
	}

	switch c.Transport {
	case "":
		c.Transport = TransportHTTP
	case TransportHTTP, TransportFastHTTP:
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, c.Transport)
	}

	for name := range c.Headers {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: header name must not be empty", ErrInvalidConfig)
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return fmt.Errorf("%w: audit buffer size must be > 0", ErrInvalidConfig)
	}

	if _, err := ResolveCredentials(*c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// HasToken reports whether c authenticates with a pre-issued token.
func (c *Config) HasToken() bool {
	return strings.TrimSpace(c.Token) != ""
}

// HasKeyPair reports whether both halves of a key pair are configured.
func (c *Config) HasKeyPair() bool {
	return strings.TrimSpace(c.PublicKey) != "" && strings.TrimSpace(c.PrivateKey) != ""
}

func (c *Config) extraHeaders() http.Header {
	h := make(http.Header, len(c.Headers))
	for k, v := range c.Headers {
		h.Set(k, v)
	}
	return h
}
