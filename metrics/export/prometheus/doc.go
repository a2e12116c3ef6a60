// Package prometheus renders client metrics in Prometheus text exposition format.
//
// [NewPrometheusExporter] reads from a [billingo.Client] and exposes an
// [http.Handler]. Counters are grouped into labelled families:
//
//	billingo_requests_total{outcome="success|rejected|response_parse|transport"}
//	billingo_auth_headers_total{mode="key_pair|opaque_token"}
//	billingo_downloads_total{outcome="success|failure"}
//	billingo_token_exchanges_total{outcome="success|failure"}
//	billingo_audit_dropped_total{event="request|download|token_exchange"}
//
// plus billingo_client_info and the billingo_request_latency_seconds histogram.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate client state.
package prometheus
