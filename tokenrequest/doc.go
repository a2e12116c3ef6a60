// Package tokenrequest builds and validates the HMAC-signed token request string
// used once to exchange a key pair for an opaque API token.
//
// The wire format is
//
//	publicKey|timing|signature
//
// where timing is the sender's Unix time in seconds and signature is the
// hex-encoded HMAC-SHA256 of "publicKey|timing" keyed by the private key.
//
// # Validation order
//
// [ValidateRequestString] checks timing before signature, so a stale string is
// always reported as [ErrTimingInvalid] even when its signature is also wrong.
//
// # Replay window
//
// A captured request string stays valid for up to [MaxTimingDelta] on either side
// of the validator's clock. There is no nonce tracking; callers that need replay
// protection must add it around [ValidateRequestString].
package tokenrequest
