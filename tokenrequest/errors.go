package tokenrequest

import "errors"

var (
	// ErrTimingInvalid is returned when the request timing is outside MaxTimingDelta.
	ErrTimingInvalid = errors.New("token request timing invalid")
	// ErrSignatureInvalid is returned when the request signature does not match.
	ErrSignatureInvalid = errors.New("token request signature invalid")
	// ErrMalformedRequestString is returned when a request string cannot be split into
	// exactly three parts or its timing is not an integer.
	ErrMalformedRequestString = errors.New("malformed token request string")
)
