package otel

import (
	"context"
	"errors"
	"fmt"

	billingo "github.com/billingo/billingo-go"
	"github.com/billingo/billingo-go/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() billingo.MetricsSnapshot
	AuditDroppedByEvent() map[string]uint64
	AuthMode() billingo.AuthMode
	Version() string
}

// labelled pairs a client counter with the attribute set it is observed under.
type labelled struct {
	id   billingo.MetricID
	opts metric.ObserveOption
}

type family struct {
	instrument metric.Int64ObservableCounter
	series     []labelled
}

// OTelExporter publishes a client's metrics through observable instruments.
// Each counter family is one instrument; its series differ by attribute.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration

	families     []family
	latency      metric.Int64ObservableGauge
	latencyCount metric.Int64ObservableGauge
	latencyLE    [8]metric.ObserveOption
	auditDropped metric.Int64ObservableCounter
	info         metric.Int64ObservableGauge
	infoOpts     metric.ObserveOption
}

// NewOTelExporter registers instruments on meter that read from client.
func NewOTelExporter(meter metric.Meter, client *billingo.Client) (*OTelExporter, error) {
	if client == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, client)
}

// NewOTelExporterFromSource registers instruments reading from source.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{
		source:   source,
		families: make([]family, 0, len(internaldefs.CounterFamilies)),
		infoOpts: metric.WithAttributes(
			attribute.String("auth_mode", source.AuthMode().String()),
			attribute.String("api_version", source.Version()),
		),
	}
	observables := make([]metric.Observable, 0, len(internaldefs.CounterFamilies)+4)

	for _, def := range internaldefs.CounterFamilies {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", def.Name, err)
		}
		f := family{instrument: ins, series: make([]labelled, 0, len(def.Series))}
		for _, s := range def.Series {
			f.series = append(f.series, labelled{
				id:   s.ID,
				opts: metric.WithAttributes(attribute.String(def.Label, s.Value)),
			})
		}
		e.families = append(e.families, f)
		observables = append(observables, ins)
	}

	var err error
	if e.latency, err = meter.Int64ObservableGauge(internaldefs.LatencyName+"_bucket",
		metric.WithDescription("Cumulative latency bucket counts, one series per le bound.")); err != nil {
		return nil, fmt.Errorf("create latency bucket gauge: %w", err)
	}
	if e.latencyCount, err = meter.Int64ObservableGauge(internaldefs.LatencyName+"_count",
		metric.WithDescription(internaldefs.LatencyHelp)); err != nil {
		return nil, fmt.Errorf("create latency count gauge: %w", err)
	}
	for i, le := range internaldefs.HistogramBounds {
		e.latencyLE[i] = metric.WithAttributes(attribute.String("le", le))
	}
	if e.auditDropped, err = meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp)); err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	if e.info, err = meter.Int64ObservableGauge(internaldefs.ClientInfoName,
		metric.WithDescription(internaldefs.ClientInfoHelp)); err != nil {
		return nil, fmt.Errorf("create client info gauge: %w", err)
	}
	observables = append(observables, e.latency, e.latencyCount, e.auditDropped, e.info)

	registration, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	dropped := e.source.AuditDroppedByEvent()
	if !internaldefs.HasSamples(snapshot, dropped) {
		return nil
	}

	o.ObserveInt64(e.info, 1, e.infoOpts)
	for _, f := range e.families {
		for _, s := range f.series {
			o.ObserveInt64(f.instrument, int64(snapshot.Counters[s.id]), s.opts)
		}
	}
	if raw, ok := snapshot.Histograms[internaldefs.LatencyID]; ok {
		cumulative := internaldefs.CumulativeBuckets(raw)
		for i, n := range cumulative {
			o.ObserveInt64(e.latency, int64(n), e.latencyLE[i])
		}
		o.ObserveInt64(e.latencyCount, int64(cumulative[len(cumulative)-1]))
	}
	for event, n := range dropped {
		o.ObserveInt64(e.auditDropped, int64(n),
			metric.WithAttributes(attribute.String(internaldefs.AuditDroppedLabel, event)))
	}
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
