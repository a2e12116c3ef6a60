package billingo

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/billingo/billingo-go/jwt"
)

// Header names written by the client.
const (
	HeaderAuthorization = "Authorization"
	HeaderAPIKey        = "X-API-KEY"
	HeaderAPIVersion    = "X-API-Version"
)

// HeaderGenerator produces the authentication headers for one outgoing call.
type HeaderGenerator interface {
	Headers(ctx context.Context) (http.Header, error)
}

// newHeaderGenerator picks the generator for creds. The choice is made once, when
// the Client is built.
func newHeaderGenerator(creds Credentials, leeway time.Duration, now func() time.Time, metrics *Metrics) (HeaderGenerator, error) {
	switch c := creds.(type) {
	case OpaqueToken:
		return &opaqueTokenHeaders{token: c.Value, metrics: metrics}, nil
	case KeyPair:
		m, err := jwt.NewManager(jwt.Config{
			SigningMethod: jwt.MethodHS256,
			PublicKey:     c.PublicKey,
			PrivateKey:    []byte(c.PrivateKey),
			Leeway:        leeway,
			Now:           now,
		})
		if err != nil {
			return nil, err
		}
		return &signedClaimsHeaders{manager: m, metrics: metrics}, nil
	default:
		return nil, errors.New("unsupported credentials")
	}
}

type opaqueTokenHeaders struct {
	token   string
	metrics *Metrics
}

func (g *opaqueTokenHeaders) Headers(context.Context) (http.Header, error) {
	g.metrics.Inc(MetricOpaqueTokenAttached)
	h := make(http.Header, 1)
	h.Set(HeaderAPIKey, g.token)
	return h, nil
}

type signedClaimsHeaders struct {
	manager *jwt.Manager
	metrics *Metrics
}

func (g *signedClaimsHeaders) Headers(ctx context.Context) (http.Header, error) {
	token, err := g.manager.CreateSigned(issuerFromContext(ctx))
	if err != nil {
		return nil, err
	}
	g.metrics.Inc(MetricSignedClaimsIssued)
	h := make(http.Header, 1)
	h.Set(HeaderAuthorization, "Bearer "+token)
	return h, nil
}

func isProtectedHeader(name string) bool {
	switch http.CanonicalHeaderKey(name) {
	case HeaderAuthorization, http.CanonicalHeaderKey(HeaderAPIKey), http.CanonicalHeaderKey(HeaderAPIVersion):
		return true
	}
	return false
}
