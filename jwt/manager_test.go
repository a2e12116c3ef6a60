package jwt

import (
	"context"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

const (
	testPublicKey  = "pub-key-1"
	testPrivateKey = "private-key-secret-value"
)

func fixedNow(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func newTestManager(t *testing.T, now func() time.Time) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		PublicKey:  testPublicKey,
		PrivateKey: []byte(testPrivateKey),
		Leeway:     60 * time.Second,
		Now:        now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestNewManagerRejectsInvalidConfig(t *testing.T) {
	cases := []Config{
		{PrivateKey: []byte("k")},
		{PublicKey: "p"},
		{PublicKey: "p", PrivateKey: []byte("k"), Leeway: -time.Second},
		{PublicKey: "p", PrivateKey: []byte("k"), SigningMethod: "ed25519"},
	}
	for i, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestNewManagerDefaultsLeeway(t *testing.T) {
	m, err := NewManager(Config{PublicKey: "p", PrivateKey: []byte("k")})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if m.Leeway() != DefaultLeeway {
		t.Fatalf("expected default leeway %v, got %v", DefaultLeeway, m.Leeway())
	}
}

func TestNewClaimsWindow(t *testing.T) {
	now := time.Unix(1700000000, 500_000_000)
	m := newTestManager(t, fixedNow(now))

	c := m.NewClaims("/invoices")
	if c.Subject != testPublicKey {
		t.Fatalf("sub = %q", c.Subject)
	}
	if c.Issuer != "/invoices" {
		t.Fatalf("iss = %q", c.Issuer)
	}
	if got := c.IssuedAt.Unix(); got != 1700000000-60 {
		t.Fatalf("iat = %d", got)
	}
	if got := c.NotBefore.Unix(); got != 1700000000-60 {
		t.Fatalf("nbf = %d", got)
	}
	if got := c.ExpiresAt.Unix(); got != 1700000000+60 {
		t.Fatalf("exp = %d", got)
	}
	if c.ID != TokenID(testPublicKey, 1700000000-60) {
		t.Fatalf("jti = %q", c.ID)
	}
}

func TestTokenIDDeterministicWithinSecond(t *testing.T) {
	base := time.Unix(1700000000, 0)
	first := newTestManager(t, fixedNow(base.Add(100*time.Millisecond))).NewClaims("cli")
	second := newTestManager(t, fixedNow(base.Add(900*time.Millisecond))).NewClaims("cli")
	if first.ID != second.ID {
		t.Fatalf("expected equal jti within one second, got %q and %q", first.ID, second.ID)
	}

	third := newTestManager(t, fixedNow(base.Add(time.Second))).NewClaims("cli")
	if third.ID == first.ID {
		t.Fatal("expected jti to change with the second")
	}

	if TokenID("other", base.Unix()) == TokenID(testPublicKey, base.Unix()) {
		t.Fatal("expected jti to depend on the public key")
	}
}

func TestCreateSignedIsHS256WithPrivateKey(t *testing.T) {
	m := newTestManager(t, time.Now)
	signed, err := m.CreateSigned("cli")
	if err != nil {
		t.Fatalf("create signed: %v", err)
	}

	claims := &Claims{}
	tok, err := gjwt.ParseWithClaims(signed, claims, func(tok *gjwt.Token) (interface{}, error) {
		return []byte(testPrivateKey), nil
	}, gjwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != testPublicKey || claims.Issuer != "cli" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := gjwt.Parse(signed, func(*gjwt.Token) (interface{}, error) {
		return []byte("wrong"), nil
	}); err == nil {
		t.Fatal("expected wrong secret to fail")
	}
}

func TestVerifierAcceptsFreshToken(t *testing.T) {
	m := newTestManager(t, time.Now)
	v, err := NewVerifier(VerifierConfig{Resolve: StaticKeys(map[string]string{testPublicKey: testPrivateKey})})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	signed, _ := m.CreateSigned("cli")
	claims, err := v.Parse(context.Background(), signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != testPublicKey {
		t.Fatalf("sub = %q", claims.Subject)
	}
}

func TestVerifierRejections(t *testing.T) {
	issued := time.Unix(1700000000, 0)
	m := newTestManager(t, fixedNow(issued))
	signed, _ := m.CreateSigned("cli")

	keys := StaticKeys(map[string]string{testPublicKey: testPrivateKey})

	expiredV, _ := NewVerifier(VerifierConfig{Resolve: keys, Now: fixedNow(issued.Add(2 * time.Minute))})
	if _, err := expiredV.Parse(context.Background(), signed); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expired: err = %v", err)
	}

	withinV, _ := NewVerifier(VerifierConfig{Resolve: keys, Now: fixedNow(issued.Add(59 * time.Second))})
	if _, err := withinV.Parse(context.Background(), signed); err != nil {
		t.Fatalf("within window: %v", err)
	}

	unknownV, _ := NewVerifier(VerifierConfig{Resolve: StaticKeys(map[string]string{}), Now: fixedNow(issued)})
	if _, err := unknownV.Parse(context.Background(), signed); !errors.Is(err, ErrUnknownSubject) {
		t.Fatalf("unknown subject: err = %v", err)
	}

	wrongV, _ := NewVerifier(VerifierConfig{Resolve: StaticKeys(map[string]string{testPublicKey: "other"}), Now: fixedNow(issued)})
	if _, err := wrongV.Parse(context.Background(), signed); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("wrong key: err = %v", err)
	}
}

func TestVerifierRejectsForeignJTI(t *testing.T) {
	issued := time.Unix(1700000000, 0)
	m := newTestManager(t, fixedNow(issued))
	claims := m.NewClaims("cli")
	claims.ID = "not-derived"
	signed, err := m.Sign(claims)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	v, _ := NewVerifier(VerifierConfig{
		Resolve: StaticKeys(map[string]string{testPublicKey: testPrivateKey}),
		Now:     fixedNow(issued),
	})
	if _, err := v.Parse(context.Background(), signed); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected jti mismatch rejection, got %v", err)
	}
}

func TestVerifierRejectsWrongAlgorithm(t *testing.T) {
	claims := Claims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   testPublicKey,
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS512, claims)
	signed, err := tok.SignedString([]byte(testPrivateKey))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	v, _ := NewVerifier(VerifierConfig{Resolve: StaticKeys(map[string]string{testPublicKey: testPrivateKey})})
	if _, err := v.Parse(context.Background(), signed); err == nil {
		t.Fatal("expected HS512 token to be rejected")
	}
}

func TestNewVerifierValidation(t *testing.T) {
	if _, err := NewVerifier(VerifierConfig{}); err == nil {
		t.Fatal("expected missing resolver error")
	}
	if _, err := NewVerifier(VerifierConfig{Resolve: StaticKeys(nil), Leeway: time.Hour}); err == nil {
		t.Fatal("expected leeway bound error")
	}
}
