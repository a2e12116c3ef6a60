package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/billingo/billingo-go/internal/envelope"
	"github.com/billingo/billingo-go/jwt"
)

const (
	headerAuthorization = "Authorization"
	headerAPIKey        = "X-API-KEY"
)

type claimsContextKey struct{}

type publicKeyContextKey struct{}

// ClaimsFromContext returns the claims injected by RequireSignedClaims.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*jwt.Claims)
	return claims, ok
}

// PublicKeyFromContext returns the public key of the authenticated caller.
func PublicKeyFromContext(ctx context.Context) (string, bool) {
	pub, ok := ctx.Value(publicKeyContextKey{}).(string)
	return pub, ok
}

// RequireSignedClaims rejects requests without a valid bearer signed claims token.
func RequireSignedClaims(verifier *jwt.Verifier) func(http.Handler) http.Handler {
	return RequireAny(verifier, nil)
}

// RequireAny accepts a bearer signed claims token when verifier is set, or an
// X-API-KEY token when lookup is set. A present but invalid bearer token is
// rejected without falling back to the API key.
func RequireAny(verifier *jwt.Verifier, lookup TokenLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if raw := r.Header.Get(headerAuthorization); raw != "" && verifier != nil {
				token, ok := bearerToken(raw)
				if !ok {
					unauthorized(w)
					return
				}
				claims, err := verifier.Parse(ctx, token)
				if err != nil {
					unauthorized(w)
					return
				}
				ctx = context.WithValue(ctx, claimsContextKey{}, claims)
				ctx = context.WithValue(ctx, publicKeyContextKey{}, claims.Subject)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if lookup != nil {
				if pub, ok := lookupAPIKey(ctx, lookup, r.Header.Get(headerAPIKey)); ok {
					ctx = context.WithValue(ctx, publicKeyContextKey{}, pub)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			unauthorized(w)
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func unauthorized(w http.ResponseWriter) {
	envelope.WriteError(w, http.StatusUnauthorized, "unauthorized")
}
