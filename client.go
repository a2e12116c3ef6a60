package billingo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/billingo/billingo-go/tokenrequest"
	"github.com/billingo/billingo-go/transport"
)

// Params is the payload of one call: query parameters for GET and DELETE, a JSON
// object body for POST, PUT and PATCH.
type Params map[string]interface{}

// Client dispatches authenticated calls to the API.
//
// A Client is immutable after Build and safe for concurrent use. Close releases
// the audit dispatcher when audit delivery is enabled.
type Client struct {
	config    Config
	creds     Credentials
	auth      HeaderGenerator
	transport transport.Transport
	signer    *tokenrequest.Signer
	extra     http.Header

	metrics *Metrics
	audit   *auditDispatcher
	now     func() time.Time
}

// AuthMode reports the credential variant the client was built with.
func (c *Client) AuthMode() AuthMode {
	return c.creds.authMode()
}

// Version returns the configured API version. It is sent as X-API-Version on
// every call.
func (c *Client) Version() string {
	return c.config.Version
}

// Host returns the configured API base URL.
func (c *Client) Host() string {
	return c.config.Host
}

// Get dispatches a GET call with params as the query string.
func (c *Client) Get(ctx context.Context, path string, params Params) (*Result, error) {
	return c.Request(ctx, http.MethodGet, path, params, nil)
}

// Post dispatches a POST call with payload as the JSON body.
func (c *Client) Post(ctx context.Context, path string, payload Params) (*Result, error) {
	return c.Request(ctx, http.MethodPost, path, payload, nil)
}

// Put dispatches a PUT call with payload as the JSON body.
func (c *Client) Put(ctx context.Context, path string, payload Params) (*Result, error) {
	return c.Request(ctx, http.MethodPut, path, payload, nil)
}

// Patch dispatches a PATCH call with payload as the JSON body.
func (c *Client) Patch(ctx context.Context, path string, payload Params) (*Result, error) {
	return c.Request(ctx, http.MethodPatch, path, payload, nil)
}

// Delete dispatches a DELETE call with params as the query string.
func (c *Client) Delete(ctx context.Context, path string, params Params) (*Result, error) {
	return c.Request(ctx, http.MethodDelete, path, params, nil)
}

// Request executes one API call and classifies its response.
//
// A body that is not a JSON object fails with *ResponseParseError. A status other
// than 200 or a falsy success flag fails with *RequestError. Transport failures
// are returned wrapped with ErrTransport. On success the envelope's data member
// is returned; an absent data member yields an empty Result. Nothing is retried.
func (c *Client) Request(ctx context.Context, method, path string, payload Params, headers http.Header) (*Result, error) {
	start := c.now()
	res, status, err := c.dispatch(ctx, method, path, payload, headers)
	c.record(ctx, EventRequest, method, path, status, start, err)
	return res, err
}

func (c *Client) dispatch(ctx context.Context, method, path string, payload Params, headers http.Header) (*Result, int, error) {
	req, err := c.newRequest(ctx, method, path, payload, headers)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.Inc(MetricTransportFailure)
		return nil, resp.StatusCode, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	env, err := parseEnvelope(body)
	if err != nil {
		c.metrics.Inc(MetricResponseParseFailure)
		return nil, resp.StatusCode, err
	}
	if resp.StatusCode != http.StatusOK || !env.success {
		c.metrics.Inc(MetricRequestFailure)
		return nil, resp.StatusCode, &RequestError{StatusCode: resp.StatusCode, Message: env.message}
	}

	c.metrics.Inc(MetricRequestSuccess)
	return &Result{raw: env.data}, resp.StatusCode, nil
}

// Download streams the raw body of a GET call into sink and returns the number of
// bytes written. The body is not parsed on success. A non-200 status fails with
// *RequestError whose message is read from the envelope when the body is one.
func (c *Client) Download(ctx context.Context, path string, params Params, sink io.Writer) (int64, error) {
	start := c.now()
	n, status, err := c.download(ctx, path, params, sink)
	if err != nil {
		c.metrics.Inc(MetricDownloadFailure)
	} else {
		c.metrics.Inc(MetricDownloadSuccess)
	}
	c.record(ctx, EventDownload, http.MethodGet, path, status, start, err)
	return n, err
}

// DownloadInvoice downloads the document of invoice id into sink.
func (c *Client) DownloadInvoice(ctx context.Context, id int64, sink io.Writer) (int64, error) {
	return c.Download(ctx, invoiceDownloadRoute.RelativePath(id), nil, sink)
}

var (
	invoiceDownloadRoute = NewRoute("", "invoices/%d/download")
	downloadHeaders      = http.Header{"Accept": []string{"*/*"}}
)

func (c *Client) download(ctx context.Context, path string, params Params, sink io.Writer) (int64, int, error) {
	if sink == nil {
		return 0, 0, ErrNilSink
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, params, downloadHeaders)
	if err != nil {
		return 0, 0, err
	}
	resp, err := c.do(ctx, req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, resp.StatusCode, downloadError(resp)
	}

	n, err := io.Copy(sink, resp.Body)
	if err != nil {
		return n, resp.StatusCode, fmt.Errorf("%w: copy body: %w", ErrTransport, err)
	}
	return n, resp.StatusCode, nil
}

// maxErrorBody caps how much of a failed download is read for its message.
const maxErrorBody = 1 << 20

// downloadError builds the *RequestError for a non-200 download. The message
// is taken from the body when it is an envelope; a body that cannot be read
// leaves the status-only error joined with the wrapped read failure.
func downloadError(resp *transport.Response) error {
	rerr := &RequestError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return errors.Join(rerr, fmt.Errorf("%w: read error body: %w", ErrTransport, err))
	}
	if env, perr := parseEnvelope(body); perr == nil {
		rerr.Message = env.message
	}
	return rerr
}

// do runs req through the transport. A transport that reports neither a
// response nor an error is treated as a transport failure.
func (c *Client) do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	resp, err := c.transport.Do(ctx, req)
	if err == nil && resp == nil {
		err = errors.New("transport returned no response")
	}
	if err != nil {
		c.metrics.Inc(MetricTransportFailure)
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if resp.Body == nil {
		resp.Body = http.NoBody
	}
	return resp, nil
}

// TokenRequestString builds a fresh signed token request string for the
// client's key pair.
func (c *Client) TokenRequestString() (string, error) {
	if c.signer == nil {
		return "", ErrExchangeRequiresKeyPair
	}
	return c.signer.GenerateWithSignatureAndTiming(), nil
}

// ExchangeToken trades the client's key pair for an opaque token by posting a
// token request string to the configured exchange path. The returned token can
// be used as Config.Token for later clients.
func (c *Client) ExchangeToken(ctx context.Context) (string, error) {
	start := c.now()
	token, status, err := c.exchange(ctx)
	if err != nil {
		c.metrics.Inc(MetricTokenExchangeFailure)
	} else {
		c.metrics.Inc(MetricTokenExchangeSuccess)
	}
	c.record(ctx, EventTokenExchange, http.MethodPost, c.config.ExchangePath, status, start, err)
	return token, err
}

func (c *Client) exchange(ctx context.Context) (string, int, error) {
	requestString, err := c.TokenRequestString()
	if err != nil {
		return "", 0, err
	}
	res, status, err := c.dispatch(ctx, http.MethodPost, c.config.ExchangePath, Params{"request": requestString}, nil)
	if err != nil {
		return "", status, err
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := res.Decode(&out); err != nil {
		return "", status, &ResponseParseError{Body: res.Raw(), Err: err}
	}
	if out.Token == "" {
		return "", status, &ResponseParseError{Body: res.Raw(), Err: errors.New("exchange response carries no token")}
	}
	return out.Token, status, nil
}

// MetricsSnapshot returns a copy of the client's counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped because the buffer was full.
func (c *Client) AuditDropped() uint64 {
	return c.audit.Dropped()
}

// AuditDroppedByEvent returns dropped audit events keyed by event type
// (EventRequest, EventDownload, EventTokenExchange).
func (c *Client) AuditDroppedByEvent() map[string]uint64 {
	return c.audit.DroppedByEvent()
}

// Close flushes pending audit events. It is safe to call more than once.
func (c *Client) Close() {
	c.audit.Close()
}

func (c *Client) newRequest(ctx context.Context, method, path string, payload Params, headers http.Header) (*transport.Request, error) {
	method = strings.ToUpper(method)
	req := &transport.Request{
		Method: method,
		URL:    joinURL(c.config.Host, path),
		Header: make(http.Header, len(c.extra)+len(headers)+4),
	}

	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		if payload == nil {
			payload = Params{}
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		req.Body = body
		req.Header.Set("Content-Type", "application/json")
	default:
		if q := encodeQuery(payload); q != "" {
			sep := "?"
			if strings.Contains(req.URL, "?") {
				sep = "&"
			}
			req.URL += sep + q
		}
	}

	mergeHeaders(req.Header, c.extra)
	mergeHeaders(req.Header, headers)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	auth, err := c.auth.Headers(ctx)
	if err != nil {
		return nil, fmt.Errorf("build auth headers: %w", err)
	}
	for k, v := range auth {
		req.Header[k] = v
	}
	req.Header.Set(HeaderAPIVersion, c.config.Version)

	return req, nil
}

// mergeHeaders copies src into dst, skipping headers the client owns.
func mergeHeaders(dst, src http.Header) {
	for k, values := range src {
		if isProtectedHeader(k) {
			continue
		}
		key := http.CanonicalHeaderKey(k)
		dst.Del(key)
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}

// encodeQuery renders params as a query string. Slices become repeated key[]
// entries and nested maps become key[sub] entries. Nil values are skipped.
func encodeQuery(params Params) string {
	if len(params) == 0 {
		return ""
	}
	values := url.Values{}
	for k, v := range params {
		addQueryValue(values, k, v)
	}
	return values.Encode()
}

func addQueryValue(values url.Values, key string, v interface{}) {
	switch val := v.(type) {
	case nil:
	case string:
		values.Add(key, val)
	case bool:
		if val {
			values.Add(key, "1")
		} else {
			values.Add(key, "0")
		}
	case []string:
		for _, s := range val {
			values.Add(key+"[]", s)
		}
	case []int:
		for _, n := range val {
			values.Add(key+"[]", strconv.Itoa(n))
		}
	case []interface{}:
		for _, item := range val {
			addQueryValue(values, key+"[]", item)
		}
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for sub := range val {
			keys = append(keys, sub)
		}
		sort.Strings(keys)
		for _, sub := range keys {
			addQueryValue(values, key+"["+sub+"]", val[sub])
		}
	case Params:
		addQueryValue(values, key, map[string]interface{}(val))
	default:
		values.Add(key, fmt.Sprint(val))
	}
}

func (c *Client) record(ctx context.Context, eventType, method, path string, status int, start time.Time, err error) {
	elapsed := c.now().Sub(start)
	c.metrics.Observe(MetricRequestLatency, elapsed)

	if c.audit == nil {
		return
	}
	event := AuditEvent{
		Timestamp:  start.UTC(),
		EventType:  eventType,
		Method:     method,
		Path:       path,
		AuthMode:   c.AuthMode().String(),
		StatusCode: status,
		Duration:   elapsed,
		Success:    err == nil,
	}
	if err != nil {
		event.Error = auditErrorCode(err)
	}
	c.audit.Emit(ctx, event)
}

// auditErrorCode maps err to a stable code. Messages are not copied into audit
// events since API error text may echo request data.
func auditErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrRequestFailed):
		return "request_failed"
	case errors.Is(err, ErrResponseParse):
		return "response_parse"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrExchangeRequiresKeyPair):
		return "exchange_requires_key_pair"
	case errors.Is(err, ErrNilSink):
		return "nil_sink"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "context"
	default:
		return "internal"
	}
}
