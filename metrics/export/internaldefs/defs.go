package internaldefs

import (
	billingo "github.com/billingo/billingo-go"
)

// Series is one labelled sample of a counter family.
type Series struct {
	Value string
	ID    billingo.MetricID
}

// CounterFamily exports several client counters under one name, told apart by
// a single label.
type CounterFamily struct {
	Name   string
	Help   string
	Label  string
	Series []Series
}

// CounterFamilies lists every exported counter family in exposition order.
var CounterFamilies = []CounterFamily{
	{
		Name:  "billingo_requests_total",
		Help:  "API calls by classification outcome.",
		Label: "outcome",
		Series: []Series{
			{Value: "success", ID: billingo.MetricRequestSuccess},
			{Value: "rejected", ID: billingo.MetricRequestFailure},
			{Value: "response_parse", ID: billingo.MetricResponseParseFailure},
			{Value: "transport", ID: billingo.MetricTransportFailure},
		},
	},
	{
		Name:  "billingo_auth_headers_total",
		Help:  "Authentication headers attached to outgoing calls by credential mode.",
		Label: "mode",
		Series: []Series{
			{Value: billingo.AuthModeKeyPair.String(), ID: billingo.MetricSignedClaimsIssued},
			{Value: billingo.AuthModeOpaqueToken.String(), ID: billingo.MetricOpaqueTokenAttached},
		},
	},
	{
		Name:  "billingo_downloads_total",
		Help:  "Raw document downloads by outcome.",
		Label: "outcome",
		Series: []Series{
			{Value: "success", ID: billingo.MetricDownloadSuccess},
			{Value: "failure", ID: billingo.MetricDownloadFailure},
		},
	},
	{
		Name:  "billingo_token_exchanges_total",
		Help:  "Key pair to opaque token exchanges by outcome.",
		Label: "outcome",
		Series: []Series{
			{Value: "success", ID: billingo.MetricTokenExchangeSuccess},
			{Value: "failure", ID: billingo.MetricTokenExchangeFailure},
		},
	},
}

// Latency histogram of the round trip of every call.
const (
	LatencyName = "billingo_request_latency_seconds"
	LatencyHelp = "API call round-trip latency."
	LatencyID   = billingo.MetricRequestLatency
)

// Audit drop counter, labelled by event type.
const (
	AuditDroppedName  = "billingo_audit_dropped_total"
	AuditDroppedHelp  = "Audit events dropped under dispatcher backpressure."
	AuditDroppedLabel = "event"
)

// Client info series: constant 1, labelled with the auth mode and API version.
const (
	ClientInfoName = "billingo_client_info"
	ClientInfoHelp = "Credential mode and API version of the exported client."
)

// HistogramBounds are the upper bounds in seconds of the client's latency buckets.
var HistogramBounds = [8]string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// CumulativeBuckets converts raw per-bucket counts into cumulative counts.
// Missing buckets count as zero; extra ones are ignored.
func CumulativeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}

// HasSamples reports whether a snapshot carries anything worth exporting.
func HasSamples(s billingo.MetricsSnapshot, dropped map[string]uint64) bool {
	if len(s.Counters) > 0 || len(s.Histograms) > 0 {
		return true
	}
	for _, n := range dropped {
		if n > 0 {
			return true
		}
	}
	return false
}
