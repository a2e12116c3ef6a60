package tokenrequest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxTimingDelta is the largest accepted distance between the request timing and
// the validator's clock. The bound is inclusive.
const MaxTimingDelta = 60 * time.Second

const separator = "|"

// Option customizes a Signer.
type Option func(*Signer)

// WithClock replaces the wall clock used for timing generation and validation.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// Signer produces and checks token request strings for one key pair.
//
// A Signer holds no mutable state and is safe for concurrent use.
type Signer struct {
	publicKey  string
	privateKey []byte
	now        func() time.Time
}

// RequestData is the parsed form of a token request string.
type RequestData struct {
	PublicKey string
	Timing    int64
	Signature string
}

// NewSigner returns a Signer bound to publicKey and privateKey.
func NewSigner(publicKey, privateKey string, opts ...Option) *Signer {
	s := &Signer{
		publicKey:  publicKey,
		privateKey: []byte(privateKey),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PublicKey returns the public key the signer is bound to.
func (s *Signer) PublicKey() string {
	return s.publicKey
}

// Generate returns the unsigned request payload "publicKey|timing".
func (s *Signer) Generate(timing int64) string {
	return s.publicKey + separator + strconv.FormatInt(timing, 10)
}

// GenerateTiming returns the current Unix time in seconds.
func (s *Signer) GenerateTiming() int64 {
	return s.now().Unix()
}

// Sign returns the hex-encoded HMAC-SHA256 of data keyed by the private key.
func (s *Signer) Sign(data string) string {
	mac := hmac.New(sha256.New, s.privateKey)
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateWithSignature returns "publicKey|timing|signature" for timing.
func (s *Signer) GenerateWithSignature(timing int64) string {
	data := s.Generate(timing)
	return data + separator + s.Sign(data)
}

// GenerateWithSignatureAndTiming returns a signed request string stamped with the
// current time.
func (s *Signer) GenerateWithSignatureAndTiming() string {
	return s.GenerateWithSignature(s.GenerateTiming())
}

// ValidateTiming reports whether userTiming is within MaxTimingDelta of now.
func (s *Signer) ValidateTiming(userTiming int64) bool {
	now := s.GenerateTiming()
	lo, hi := now, userTiming
	if lo > hi {
		lo, hi = hi, lo
	}
	// Unsigned so the distance cannot wrap for timings near the int64 limits.
	return uint64(hi)-uint64(lo) <= uint64(MaxTimingDelta/time.Second)
}

// ValidateSignature recomputes the signature for timing and compares it with
// userSignature in constant time.
func (s *Signer) ValidateSignature(userSignature string, timing int64) bool {
	expected := s.Sign(s.Generate(timing))
	return hmac.Equal([]byte(expected), []byte(userSignature))
}

// ParseRequestString splits a request string into its parts.
func ParseRequestString(requestString string) (RequestData, error) {
	parts := strings.Split(requestString, separator)
	if len(parts) != 3 {
		return RequestData{}, fmt.Errorf("%w: expected 3 parts, got %d", ErrMalformedRequestString, len(parts))
	}

	timing, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return RequestData{}, fmt.Errorf("%w: timing %q is not an integer", ErrMalformedRequestString, parts[1])
	}
	// The signature covers the canonical decimal form, so no other spelling is accepted.
	if strconv.FormatInt(timing, 10) != parts[1] {
		return RequestData{}, fmt.Errorf("%w: timing %q is not in canonical form", ErrMalformedRequestString, parts[1])
	}

	return RequestData{
		PublicKey: parts[0],
		Timing:    timing,
		Signature: parts[2],
	}, nil
}

// ValidateRequestString validates a full request string against the server's copy
// of the private key. Timing is checked before the signature.
//
// It returns true with a nil error only when both checks pass. Failures are
// reported as ErrMalformedRequestString, ErrTimingInvalid or ErrSignatureInvalid.
func ValidateRequestString(requestString, serverPrivateKey string, opts ...Option) (bool, error) {
	data, err := ParseRequestString(requestString)
	if err != nil {
		return false, err
	}

	s := NewSigner(data.PublicKey, serverPrivateKey, opts...)
	if !s.ValidateTiming(data.Timing) {
		return false, ErrTimingInvalid
	}
	if !s.ValidateSignature(data.Signature, data.Timing) {
		return false, ErrSignatureInvalid
	}

	return true, nil
}
