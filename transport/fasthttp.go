package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
)

// FastHTTP sends requests through a fasthttp client. Response bodies are copied
// out of fasthttp's pooled buffers before the response is released.
type FastHTTP struct {
	client  *fasthttp.Client
	timeout time.Duration
}

// NewFastHTTP wraps client. A nil client gets a default one. timeout bounds calls
// whose context carries no deadline; zero means no bound.
func NewFastHTTP(client *fasthttp.Client, timeout time.Duration) *FastHTTP {
	if client == nil {
		client = &fasthttp.Client{
			MaxConnsPerHost:     10,
			MaxIdleConnDuration: 90 * time.Second,
		}
	}
	return &FastHTTP{client: client, timeout: timeout}
}

// Do implements Transport.
func (t *FastHTTP) Do(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	request := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(request)
	response := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(response)

	request.SetRequestURI(req.URL)
	request.Header.SetMethod(req.Method)
	for key, values := range req.Header {
		for _, v := range values {
			request.Header.Add(key, v)
		}
	}
	if len(req.Body) > 0 {
		request.SetBody(req.Body)
	}

	var err error
	switch deadline, ok := ctx.Deadline(); {
	case ok:
		err = t.client.DoDeadline(request, response, deadline)
	case t.timeout > 0:
		err = t.client.DoTimeout(request, response, t.timeout)
	default:
		err = t.client.Do(request, response)
	}
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	response.Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})

	body := make([]byte, len(response.Body()))
	copy(body, response.Body())

	return &Response{
		StatusCode: response.StatusCode(),
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(body)),
	}, nil
}
