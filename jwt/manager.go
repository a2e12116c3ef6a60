package jwt

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod names a supported token signing algorithm.
type SigningMethod string

const (
	// MethodHS256 signs tokens with HMAC-SHA256 keyed by the private key.
	MethodHS256 SigningMethod = "hs256"
)

// DefaultLeeway is the clock-skew tolerance applied when Config.Leeway is zero.
const DefaultLeeway = 60 * time.Second

// Config configures a Manager.
//
// PrivateKey doubles as the HMAC secret; it is never transmitted.
type Config struct {
	SigningMethod SigningMethod
	PublicKey     string
	PrivateKey    []byte
	Leeway        time.Duration
	Now           func() time.Time
}

// Manager mints signed claims tokens for one key pair.
//
// Manager is immutable after NewManager and safe for concurrent use; token
// creation reads only the clock.
type Manager struct {
	config Config
}

// Claims is the claim set carried by a signed claims token.
type Claims struct {
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}
	if cfg.SigningMethod != MethodHS256 {
		return nil, errors.New("unsupported signing method")
	}
	if cfg.PublicKey == "" {
		return nil, errors.New("public key required")
	}
	if len(cfg.PrivateKey) == 0 {
		return nil, errors.New("hs256 requires private key")
	}
	if cfg.Leeway == 0 {
		cfg.Leeway = DefaultLeeway
	}
	if cfg.Leeway < 0 {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	key := make([]byte, len(cfg.PrivateKey))
	copy(key, cfg.PrivateKey)
	cfg.PrivateKey = key

	return &Manager{config: cfg}, nil
}

// Leeway returns the configured validity half-window.
func (m *Manager) Leeway() time.Duration {
	return m.config.Leeway
}

// NewClaims builds the claim set for a token issued at the current time.
//
// iat and nbf are set to now-leeway, exp to now+leeway. jti is the hex MD5 of the
// public key followed by the iat seconds, so two claim sets built within the same
// second for the same key share a jti.
func (m *Manager) NewClaims(issuer string) Claims {
	now := m.config.Now().Truncate(time.Second)
	issuedAt := now.Add(-m.config.Leeway)

	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   m.config.PublicKey,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.Leeway)),
			ID:        TokenID(m.config.PublicKey, issuedAt.Unix()),
		},
	}
}

// CreateSigned mints and signs a fresh token whose iss claim is issuer.
func (m *Manager) CreateSigned(issuer string) (string, error) {
	return m.Sign(m.NewClaims(issuer))
}

// Sign encodes and signs claims with the manager's private key.
func (m *Manager) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.PrivateKey)
}

// TokenID derives the deterministic jti for publicKey at unixSeconds.
func TokenID(publicKey string, unixSeconds int64) string {
	sum := md5.Sum([]byte(publicKey + strconv.FormatInt(unixSeconds, 10)))
	return hex.EncodeToString(sum[:])
}
