package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrUnknownSubject is returned by a KeyResolver when no secret exists for a public key.
	ErrUnknownSubject = errors.New("unknown token subject")
	// ErrTokenInvalid is returned when a token fails signature or claim validation.
	ErrTokenInvalid = errors.New("invalid signed claims token")
)

// KeyResolver returns the private key shared with the holder of publicKey.
type KeyResolver func(ctx context.Context, publicKey string) ([]byte, error)

// VerifierConfig configures a Verifier.
type VerifierConfig struct {
	Resolve KeyResolver
	// Leeway is extra tolerance on top of the window already encoded in the token.
	Leeway time.Duration
	Now    func() time.Time
}

// Verifier checks signed claims tokens on the API side. The signing secret is
// looked up by the token's sub claim.
type Verifier struct {
	config VerifierConfig
}

// NewVerifier returns a Verifier or an error when cfg is incomplete.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if cfg.Resolve == nil {
		return nil, errors.New("key resolver required")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Verifier{config: cfg}, nil
}

// Parse verifies tokenStr and returns its claims.
func (v *Verifier) Parse(ctx context.Context, tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.config.Now),
	}
	if v.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(v.config.Leeway))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		claims, ok := t.Claims.(*Claims)
		if !ok || claims.Subject == "" {
			return nil, errors.New("missing sub")
		}
		return v.config.Resolve(ctx, claims.Subject)
	})
	if err != nil {
		if errors.Is(err, ErrUnknownSubject) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.ID != TokenID(claims.Subject, claims.IssuedAt.Unix()) {
		return nil, fmt.Errorf("%w: jti does not match sub and iat", ErrTokenInvalid)
	}

	return claims, nil
}

// StaticKeys resolves secrets from a fixed public-to-private key map.
func StaticKeys(keys map[string]string) KeyResolver {
	return func(_ context.Context, publicKey string) ([]byte, error) {
		secret, ok := keys[publicKey]
		if !ok {
			return nil, ErrUnknownSubject
		}
		return []byte(secret), nil
	}
}
