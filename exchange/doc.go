// Package exchange implements the API side of the token exchange: a caller
// proves possession of a key pair with a signed token request string and receives
// an opaque token usable as X-API-KEY.
//
// [Service] validates request strings and issues tokens, [RedisStore] persists
// them with a TTL, and [Handler] serves the exchange endpoint with the same
// response envelope the client parses.
package exchange
