package middleware

import (
	"context"
	"net/http"
	"strings"
)

// TokenLookup resolves an opaque token to the public key it was issued for.
type TokenLookup func(ctx context.Context, token string) (string, error)

// RequireAPIKey rejects requests whose X-API-KEY header does not resolve through lookup.
func RequireAPIKey(lookup TokenLookup) func(http.Handler) http.Handler {
	return RequireAny(nil, lookup)
}

func lookupAPIKey(ctx context.Context, lookup TokenLookup, token string) (string, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	pub, err := lookup(ctx, token)
	if err != nil || pub == "" {
		return "", false
	}
	return pub, true
}
