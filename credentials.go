package billingo

import (
	"fmt"
	"strings"
)

// Credentials is the authentication material a Client signs calls with. The only
// implementations are KeyPair and OpaqueToken.
type Credentials interface {
	authMode() AuthMode
}

// AuthMode identifies which credential variant a Client uses.
type AuthMode int

const (
	// AuthModeKeyPair signs every call with a fresh signed claims token.
	AuthModeKeyPair AuthMode = iota + 1
	// AuthModeOpaqueToken attaches a pre-issued token verbatim.
	AuthModeOpaqueToken
)

func (m AuthMode) String() string {
	switch m {
	case AuthModeKeyPair:
		return "key_pair"
	case AuthModeOpaqueToken:
		return "opaque_token"
	default:
		return "unknown"
	}
}

// KeyPair holds an API public key and the private key shared with the API.
type KeyPair struct {
	PublicKey  string
	PrivateKey string
}

func (KeyPair) authMode() AuthMode { return AuthModeKeyPair }

// OpaqueToken is a pre-issued API token.
type OpaqueToken struct {
	Value string
}

func (OpaqueToken) authMode() AuthMode { return AuthModeOpaqueToken }

// ResolveCredentials picks the credential variant for cfg. A non-empty Token always
// wins, even when key pair fields are also set.
func ResolveCredentials(cfg Config) (Credentials, error) {
	if token := strings.TrimSpace(cfg.Token); token != "" {
		return OpaqueToken{Value: token}, nil
	}

	pub := strings.TrimSpace(cfg.PublicKey)
	priv := strings.TrimSpace(cfg.PrivateKey)
	switch {
	case pub == "" && priv == "":
		return nil, ErrMissingCredentials
	case pub == "":
		return nil, fmt.Errorf("%w: public_key is required with private_key", ErrMissingCredentials)
	case priv == "":
		return nil, fmt.Errorf("%w: private_key is required with public_key", ErrMissingCredentials)
	}

	return KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}
