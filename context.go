package billingo

import (
	"context"
	"net/http"
)

// DefaultIssuer is the iss claim used when the call carries no invocation context.
const DefaultIssuer = "cli"

type issuerContextKey struct{}

// WithIssuer attaches the invocation context (typically the URI of the incoming
// request being served) to ctx. Signed claims tokens minted for calls made with
// ctx carry it as their iss claim. The value is informational; the client never
// validates it.
func WithIssuer(ctx context.Context, issuer string) context.Context {
	return context.WithValue(ctx, issuerContextKey{}, issuer)
}

// WithRequestIssuer attaches r's request URI as the issuer.
func WithRequestIssuer(ctx context.Context, r *http.Request) context.Context {
	if r == nil || r.URL == nil {
		return ctx
	}
	return WithIssuer(ctx, r.URL.RequestURI())
}

func issuerFromContext(ctx context.Context) string {
	if ctx == nil {
		return DefaultIssuer
	}
	iss, _ := ctx.Value(issuerContextKey{}).(string)
	if iss == "" {
		return DefaultIssuer
	}
	return iss
}
