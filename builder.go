package billingo

import (
	"errors"
	"time"

	"github.com/billingo/billingo-go/tokenrequest"
	"github.com/billingo/billingo-go/transport"
)

// Builder assembles a Client.
//
// Builder instances are configured during initialization and used once.
type Builder struct {
	config    Config
	transport transport.Transport
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithTransport injects the transport used for every call. Without one, Build
// constructs the transport named by Config.Transport.
func (b *Builder) WithTransport(t transport.Transport) *Builder {
	b.transport = t
	return b
}

// WithAuditSink sets the sink receiving per-call events when Config.Audit is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the time source used for signed claims, token request
// strings and latency measurement.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled turns the client's atomic counters on or off.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms records per-call latency into MetricRequestLatency.
// It has no effect unless metrics are enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, resolves the credential variant and returns
// a ready Client. A Builder can be built only once.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	creds, err := ResolveCredentials(cfg)
	if err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	metrics := NewMetrics(cfg.Metrics)
	auth, err := newHeaderGenerator(creds, cfg.Leeway, now, metrics)
	if err != nil {
		return nil, err
	}

	t := b.transport
	if t == nil {
		t = defaultTransport(cfg)
	}

	c := &Client{
		config:    cfg,
		creds:     creds,
		auth:      auth,
		transport: t,
		extra:     cfg.extraHeaders(),
		metrics:   metrics,
		now:       now,
	}
	if kp, ok := creds.(KeyPair); ok {
		c.signer = tokenrequest.NewSigner(kp.PublicKey, kp.PrivateKey, tokenrequest.WithClock(now))
	}
	if cfg.Audit.Enabled {
		c.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	}

	b.built = true
	return c, nil
}

// NewClient builds a Client from cfg with the default transport.
func NewClient(cfg Config) (*Client, error) {
	return New().WithConfig(cfg).Build()
}

func defaultTransport(cfg Config) transport.Transport {
	if cfg.Transport == TransportFastHTTP {
		return transport.NewFastHTTP(nil, cfg.Timeout)
	}
	return transport.NewHTTP(nil, cfg.Timeout)
}
