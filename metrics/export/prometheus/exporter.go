package prometheus

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	billingo "github.com/billingo/billingo-go"
	"github.com/billingo/billingo-go/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() billingo.MetricsSnapshot
	AuditDroppedByEvent() map[string]uint64
	AuthMode() billingo.AuthMode
	Version() string
}

// PrometheusExporter renders a client's metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter returns an exporter reading from client.
func NewPrometheusExporter(client *billingo.Client) *PrometheusExporter {
	return &PrometheusExporter{source: client}
}

// NewPrometheusExporterFromSource returns an exporter over any value exposing
// the same accessors as *billingo.Client.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves Render over HTTP.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the exposition text. It is empty while the client records no
// metrics and has dropped no audit events.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDroppedByEvent()
	if !internaldefs.HasSamples(snapshot, dropped) {
		return ""
	}

	var b strings.Builder
	b.Grow(2048)

	writeHeader(&b, internaldefs.ClientInfoName, internaldefs.ClientInfoHelp, "gauge")
	b.WriteString(internaldefs.ClientInfoName)
	b.WriteString(`{auth_mode="`)
	b.WriteString(escapeLabel(p.source.AuthMode().String()))
	b.WriteString(`",api_version="`)
	b.WriteString(escapeLabel(p.source.Version()))
	b.WriteString("\"} 1\n")

	for _, fam := range internaldefs.CounterFamilies {
		writeHeader(&b, fam.Name, fam.Help, "counter")
		for _, s := range fam.Series {
			writeSample(&b, fam.Name, fam.Label, s.Value, snapshot.Counters[s.ID])
		}
	}

	if raw, ok := snapshot.Histograms[internaldefs.LatencyID]; ok {
		writeLatency(&b, internaldefs.CumulativeBuckets(raw))
	}

	writeHeader(&b, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter")
	events := make([]string, 0, len(dropped))
	for event := range dropped {
		events = append(events, event)
	}
	sort.Strings(events)
	for _, event := range events {
		writeSample(&b, internaldefs.AuditDroppedName, internaldefs.AuditDroppedLabel, event, dropped[event])
	}

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteString("\n# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func writeSample(b *strings.Builder, name, label, value string, n uint64) {
	b.WriteString(name)
	b.WriteByte('{')
	b.WriteString(label)
	b.WriteString(`="`)
	b.WriteString(escapeLabel(value))
	b.WriteString(`"} `)
	b.WriteString(strconv.FormatUint(n, 10))
	b.WriteByte('\n')
}

func writeLatency(b *strings.Builder, cumulative [8]uint64) {
	name := internaldefs.LatencyName
	writeHeader(b, name, internaldefs.LatencyHelp, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		writeSample(b, name+"_bucket", "le", le, cumulative[i])
	}
	b.WriteString(name)
	b.WriteString("_count ")
	b.WriteString(strconv.FormatUint(cumulative[len(cumulative)-1], 10))
	b.WriteByte('\n')
	// Buckets are counts only, the client keeps no running sum.
	b.WriteString(name)
	b.WriteString("_sum 0\n")
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, `\`, `\\`)
	return strings.ReplaceAll(help, "\n", `\n`)
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return strings.ReplaceAll(v, "\n", `\n`)
}
