// Package transport defines the wire collaborator the client dispatches through:
// send a method, URL, headers and body; get back a status code, headers and a
// binary-safe body stream.
//
// Two implementations are provided: [HTTP] over net/http and [FastHTTP] over
// valyala/fasthttp. Neither retries. Cancellation and deadlines come from the
// caller's context.
package transport
