package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/billingo/billingo-go/jwt"
	"github.com/billingo/billingo-go/tokenrequest"
)

// DefaultTokenTTL is the lifetime of issued tokens when Config.TokenTTL is zero.
const DefaultTokenTTL = 24 * time.Hour

var (
	// ErrUnknownPublicKey is returned when the resolver has no secret for the
	// request's public key.
	ErrUnknownPublicKey = errors.New("unknown public key")
	// ErrReplayed is returned for a request string that was already exchanged
	// while replay prevention is enabled.
	ErrReplayed = errors.New("token request already used")
)

// Config configures a Service.
type Config struct {
	Resolve  jwt.KeyResolver
	Store    Store
	TokenTTL time.Duration
	// PreventReplay rejects a second exchange of the same request string within
	// the timing window. Without it a captured string stays usable for up to
	// tokenrequest.MaxTimingDelta.
	PreventReplay bool
	Now           func() time.Time
}

// Token is an issued opaque token.
type Token struct {
	Value     string
	PublicKey string
	ExpiresAt time.Time
}

// Service validates token request strings and issues opaque tokens.
type Service struct {
	config Config
}

// NewService validates cfg and returns a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Resolve == nil {
		return nil, errors.New("key resolver required")
	}
	if cfg.Store == nil {
		return nil, errors.New("token store required")
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.TokenTTL < time.Second {
		return nil, errors.New("token ttl must be at least one second")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{config: cfg}, nil
}

// Exchange validates requestString and issues a token for its public key.
//
// Errors are tokenrequest.ErrMalformedRequestString, ErrUnknownPublicKey,
// tokenrequest.ErrTimingInvalid, tokenrequest.ErrSignatureInvalid, ErrReplayed,
// or a wrapped ErrStoreUnavailable. Timing is checked before the signature.
func (s *Service) Exchange(ctx context.Context, requestString string) (Token, error) {
	data, err := tokenrequest.ParseRequestString(requestString)
	if err != nil {
		return Token{}, err
	}

	secret, err := s.config.Resolve(ctx, data.PublicKey)
	if err != nil {
		if errors.Is(err, jwt.ErrUnknownSubject) {
			return Token{}, ErrUnknownPublicKey
		}
		return Token{}, fmt.Errorf("resolve key: %w", err)
	}

	if _, err := tokenrequest.ValidateRequestString(requestString, string(secret), tokenrequest.WithClock(s.config.Now)); err != nil {
		return Token{}, err
	}

	if s.config.PreventReplay {
		fresh, err := s.config.Store.MarkUsed(ctx, data.Signature, 2*tokenrequest.MaxTimingDelta)
		if err != nil {
			return Token{}, err
		}
		if !fresh {
			return Token{}, ErrReplayed
		}
	}

	tok := Token{
		Value:     newTokenValue(),
		PublicKey: data.PublicKey,
		ExpiresAt: s.config.Now().Add(s.config.TokenTTL),
	}
	if err := s.config.Store.Save(ctx, tok.Value, tok.PublicKey, s.config.TokenTTL); err != nil {
		return Token{}, err
	}
	return tok, nil
}

// Lookup returns the public key an issued token belongs to. Its signature
// matches middleware.TokenLookup.
func (s *Service) Lookup(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrTokenNotFound
	}
	return s.config.Store.Lookup(ctx, token)
}

// Revoke deletes token.
func (s *Service) Revoke(ctx context.Context, token string) error {
	return s.config.Store.Delete(ctx, token)
}

// newTokenValue joins two random v4 UUIDs into a 64 character hex token.
func newTokenValue() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
