// Package otel exports client metrics through OpenTelemetry observable instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter family
// (billingo_requests_total, billingo_auth_headers_total, ...) and tells the
// series apart by attribute: outcome, mode, event, or le for latency buckets.
// billingo_client_info carries the credential mode and API version. A single
// callback reads the client on each collection cycle and observes nothing
// while the client records no metrics.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate client state.
package otel
