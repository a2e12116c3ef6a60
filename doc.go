// Package billingo is a client for the Billingo billing API.
//
// A [Client] is assembled by [Builder.Build] and is safe to call from multiple
// goroutines. Every call is authenticated with exactly one credential variant,
// chosen once at build time: a pre-issued opaque token sent as X-API-KEY, or a
// key pair that mints a fresh HS256 signed claims token per call and sends it as
// a Bearer Authorization header. A configured token always wins over a key pair.
//
// # Architecture boundaries
//
// billingo is the public surface. It exposes [Client], [Builder], [Config], the
// credential types and the error kinds. HMAC token request strings live in
// tokenrequest, claims signing and verification in jwt, and the wire in transport.
// The server half of the protocol (header guards, token exchange) lives in
// middleware and exchange.
//
// # Response classification
//
// Responses are JSON envelopes of the form {"success": ..., "data": ..., "error": ...}.
// A body that is not a JSON object fails with [*ResponseParseError]. A status other
// than 200 or a falsy success flag fails with [*RequestError]. Otherwise the data
// member is returned as a [Result]. Downloads bypass classification on success.
//
// # What this package must NOT do
//
//   - Retry, cache, or log. Observability goes through [AuditSink] and [Metrics].
//   - Let caller headers replace the authentication or version headers.
//   - Reuse a signed claims token across calls.
package billingo
