package billingo

import (
	"errors"
	"testing"
)

func TestResolveCredentials(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    AuthMode
		wantErr bool
	}{
		{name: "token only", cfg: Config{Token: "t"}, want: AuthModeOpaqueToken},
		{name: "key pair", cfg: Config{PublicKey: "p", PrivateKey: "s"}, want: AuthModeKeyPair},
		{name: "token wins", cfg: Config{Token: "t", PublicKey: "p", PrivateKey: "s"}, want: AuthModeOpaqueToken},
		{name: "blank token ignored", cfg: Config{Token: "  ", PublicKey: "p", PrivateKey: "s"}, want: AuthModeKeyPair},
		{name: "nothing", cfg: Config{}, wantErr: true},
		{name: "public only", cfg: Config{PublicKey: "p"}, wantErr: true},
		{name: "private only", cfg: Config{PrivateKey: "s"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			creds, err := ResolveCredentials(tc.cfg)
			if tc.wantErr {
				if !errors.Is(err, ErrMissingCredentials) {
					t.Fatalf("expected ErrMissingCredentials, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if creds.authMode() != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, creds.authMode())
			}
		})
	}
}

func TestResolveCredentialsTrimsValues(t *testing.T) {
	creds, err := ResolveCredentials(Config{PublicKey: " p ", PrivateKey: "\ts\n"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kp := creds.(KeyPair)
	if kp.PublicKey != "p" || kp.PrivateKey != "s" {
		t.Fatalf("expected trimmed key pair, got %+v", kp)
	}
}

func TestAuthModeString(t *testing.T) {
	if AuthModeKeyPair.String() != "key_pair" || AuthModeOpaqueToken.String() != "opaque_token" || AuthMode(0).String() != "unknown" {
		t.Fatal("unexpected AuthMode strings")
	}
}
