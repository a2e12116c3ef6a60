package billingo

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("invalid client configuration")
	// ErrMissingCredentials is returned when neither a token nor a full key pair is configured.
	ErrMissingCredentials = errors.New("missing authentication credentials")
	// ErrRequestFailed matches every *RequestError.
	ErrRequestFailed = errors.New("api request failed")
	// ErrResponseParse matches every *ResponseParseError.
	ErrResponseParse = errors.New("api response is not valid json")
	// ErrTransport wraps errors returned by the transport collaborator.
	ErrTransport = errors.New("transport failure")
	// ErrExchangeRequiresKeyPair is returned by token exchange on a client built with an opaque token.
	ErrExchangeRequiresKeyPair = errors.New("token exchange requires key pair credentials")
	// ErrNilSink is returned when a download is started without a destination writer.
	ErrNilSink = errors.New("download sink is nil")
)

// RequestError reports a call that reached the API but was rejected: a non-200
// status or an envelope whose success flag is falsy.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("billingo: request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("billingo: request failed with status %d: %s", e.StatusCode, e.Message)
}

// Is reports whether target is ErrRequestFailed.
func (e *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}

// ResponseParseError reports a response body that could not be decoded. Body holds
// the raw bytes for diagnostics.
type ResponseParseError struct {
	Body []byte
	Err  error
}

const maxQuotedBody = 256

func (e *ResponseParseError) Error() string {
	body := e.Body
	suffix := ""
	if len(body) > maxQuotedBody {
		body = body[:maxQuotedBody]
		suffix = "..."
	}
	return fmt.Sprintf("billingo: cannot decode response %q%s", body, suffix)
}

// Unwrap returns the underlying decoder error.
func (e *ResponseParseError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrResponseParse.
func (e *ResponseParseError) Is(target error) bool {
	return target == ErrResponseParse
}
