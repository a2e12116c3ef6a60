package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	billingo "github.com/billingo/billingo-go"
)

type fakeSource struct {
	snapshot billingo.MetricsSnapshot
	dropped  map[string]uint64
	mode     billingo.AuthMode
	version  string
}

func (f fakeSource) MetricsSnapshot() billingo.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDroppedByEvent() map[string]uint64    { return f.dropped }
func (f fakeSource) AuthMode() billingo.AuthMode               { return f.mode }
func (f fakeSource) Version() string                           { return f.version }

func emptySnapshot() billingo.MetricsSnapshot {
	return billingo.MetricsSnapshot{
		Counters:   map[billingo.MetricID]uint64{},
		Histograms: map[billingo.MetricID][]uint64{},
	}
}

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: emptySnapshot(),
		dropped:  map[string]uint64{billingo.EventRequest: 0},
		mode:     billingo.AuthModeKeyPair,
		version:  "2",
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderLabelledFamilies(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: billingo.MetricsSnapshot{
			Counters: map[billingo.MetricID]uint64{
				billingo.MetricRequestSuccess:       7,
				billingo.MetricResponseParseFailure: 2,
				billingo.MetricSignedClaimsIssued:   9,
				billingo.MetricDownloadFailure:      1,
			},
			Histograms: map[billingo.MetricID][]uint64{
				billingo.MetricRequestLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: map[string]uint64{billingo.EventRequest: 0, billingo.EventDownload: 3},
		mode:    billingo.AuthModeKeyPair,
		version: "2",
	})

	out := exp.Render()
	for _, want := range []string{
		`billingo_client_info{auth_mode="key_pair",api_version="2"} 1`,
		`billingo_requests_total{outcome="success"} 7`,
		`billingo_requests_total{outcome="response_parse"} 2`,
		`billingo_requests_total{outcome="transport"} 0`,
		`billingo_auth_headers_total{mode="key_pair"} 9`,
		`billingo_auth_headers_total{mode="opaque_token"} 0`,
		`billingo_downloads_total{outcome="failure"} 1`,
		`billingo_request_latency_seconds_bucket{le="0.005"} 1`,
		`billingo_request_latency_seconds_bucket{le="+Inf"} 36`,
		`billingo_request_latency_seconds_count 36`,
		`billingo_audit_dropped_total{event="download"} 3`,
		`billingo_audit_dropped_total{event="request"} 0`,
		"# TYPE billingo_requests_total counter",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if strings.Count(out, "# TYPE billingo_requests_total") != 1 {
		t.Fatalf("expected one TYPE line per family, got:\n%s", out)
	}
	if strings.Index(out, `event="download"`) > strings.Index(out, `event="request"`) {
		t.Fatalf("expected audit drop series sorted by event, got:\n%s", out)
	}
}

func TestRenderOmitsLatencyWithoutHistogram(t *testing.T) {
	snap := emptySnapshot()
	snap.Counters[billingo.MetricRequestSuccess] = 1
	out := NewPrometheusExporterFromSource(fakeSource{snapshot: snap, mode: billingo.AuthModeOpaqueToken, version: "2"}).Render()
	if strings.Contains(out, "billingo_request_latency_seconds") {
		t.Fatalf("expected no latency histogram, got:\n%s", out)
	}
}

func TestRenderEscapesLabelValues(t *testing.T) {
	snap := emptySnapshot()
	snap.Counters[billingo.MetricRequestSuccess] = 1
	out := NewPrometheusExporterFromSource(fakeSource{snapshot: snap, mode: billingo.AuthModeOpaqueToken, version: `3"beta`}).Render()
	if !strings.Contains(out, `api_version="3\"beta"`) {
		t.Fatalf("expected escaped version label, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	snap := emptySnapshot()
	snap.Counters[billingo.MetricRequestSuccess] = 1
	exp := NewPrometheusExporterFromSource(fakeSource{snapshot: snap, mode: billingo.AuthModeKeyPair, version: "2"})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: billingo.MetricsSnapshot{
			Counters: map[billingo.MetricID]uint64{
				billingo.MetricRequestSuccess:       1000,
				billingo.MetricRequestFailure:       40,
				billingo.MetricSignedClaimsIssued:   800,
				billingo.MetricTransportFailure:     10,
				billingo.MetricDownloadSuccess:      800,
				billingo.MetricDownloadFailure:      20,
				billingo.MetricResponseParseFailure: 3,
			},
			Histograms: map[billingo.MetricID][]uint64{
				billingo.MetricRequestLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
		dropped: map[string]uint64{billingo.EventRequest: 0, billingo.EventDownload: 0, billingo.EventTokenExchange: 0},
		mode:    billingo.AuthModeKeyPair,
		version: "2",
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}

func TestRenderFromLiveClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
	}))
	defer srv.Close()

	client, err := billingo.New().
		WithConfig(billingo.Config{Host: srv.URL + "/api/", Token: "tok"}).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer client.Close()

	for i := 0; i < 3; i++ {
		if _, err := client.Get(context.Background(), "invoices", nil); err != nil {
			t.Fatalf("Get failed: %v", err)
		}
	}

	out := NewPrometheusExporter(client).Render()
	for _, want := range []string{
		`billingo_client_info{auth_mode="opaque_token",api_version="2"} 1`,
		`billingo_requests_total{outcome="success"} 3`,
		`billingo_auth_headers_total{mode="opaque_token"} 3`,
		"billingo_request_latency_seconds_count 3",
		`billingo_audit_dropped_total{event="token_exchange"} 0`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}
