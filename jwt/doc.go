// Package jwt issues and verifies the short-lived signed claims tokens that
// authenticate every API call made with key-pair credentials.
//
// Tokens are HS256-signed with the caller's private key and carry the registered
// claims sub (public key), iat, nbf, exp, iss and jti. The validity window is
// [now-leeway, now+leeway] so that moderate clock skew between client and API does
// not reject fresh tokens. A token is minted for a single call and never cached.
package jwt
