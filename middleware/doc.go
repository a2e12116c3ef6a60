// Package middleware exposes HTTP guards for the API side of the protocol.
//
// # Guards
//
//   - [RequireSignedClaims] verifies an Authorization: Bearer signed claims token.
//   - [RequireAPIKey] resolves an X-API-KEY opaque token.
//   - [RequireAny] accepts either, preferring the bearer token when both are sent.
//
// Each guard injects the authenticated public key (and, for bearer tokens, the
// verified claims) into the request context. Rejections are written as a 401
// response envelope.
//
// # What this package must NOT do
//
//   - Mint tokens (the client and exchange packages do that).
//   - Access storage directly. Token lookups go through the injected [TokenLookup].
package middleware
