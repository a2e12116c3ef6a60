package billingo

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	srv, _ := newAPIServer(t, http.StatusOK, `{"success":true}`)
	cfg := tokenConfig(srv.URL)
	cfg.Audit.Enabled = false

	sink := &countingSink{}
	c := buildTestClient(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })

	_, _ = c.Get(context.Background(), "x", nil)
	c.Close()

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditEnabledSinkReceivesEventWithFields(t *testing.T) {
	srv, _ := newAPIServer(t, http.StatusBadRequest, `{"success":false,"error":"partner tax number 12345678 invalid"}`)
	cfg := keyPairConfig(srv.URL)
	cfg.Audit = AuditConfig{Enabled: true, BufferSize: 16, DropIfFull: true}

	sink := NewChannelSink(8)
	c := buildTestClient(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })

	_, _ = c.Post(context.Background(), "partners", Params{"taxcode": "12345678"})

	select {
	case ev := <-sink.Events():
		if ev.EventType != EventRequest || ev.Method != http.MethodPost || ev.Path != "partners" {
			t.Fatalf("unexpected event %+v", ev)
		}
		if ev.AuthMode != "key_pair" || ev.StatusCode != http.StatusBadRequest || ev.Success {
			t.Fatalf("unexpected event outcome %+v", ev)
		}
		if ev.Error != "request_failed" {
			t.Fatalf("expected stable error code, got %q", ev.Error)
		}
		for _, needle := range []string{"12345678", testPrivateKey, testPublicKey} {
			if strings.Contains(ev.Error, needle) {
				t.Fatalf("sensitive value %q leaked into audit event", needle)
			}
			for _, v := range ev.Metadata {
				if strings.Contains(v, needle) {
					t.Fatalf("sensitive value %q leaked into metadata", needle)
				}
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected audit event to be received")
	}
}

func TestAuditBufferFullDropIfFullTrueDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	start := time.Now()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if dispatcher.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestAuditBufferFullDropIfFullFalseBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: false,
	}, sink)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestAuditDropsCountedPerEventType(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	for i := 0; i < 4; i++ {
		dispatcher.Emit(context.Background(), AuditEvent{EventType: EventDownload})
	}
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "custom"})

	byEvent := dispatcher.DroppedByEvent()
	if byEvent[EventDownload] < 2 {
		t.Fatalf("expected at least 2 dropped download events, got %d", byEvent[EventDownload])
	}
	if byEvent[EventRequest] != 0 || byEvent[EventTokenExchange] != 0 {
		t.Fatalf("expected no drops for other client events, got %v", byEvent)
	}
	if byEvent[auditOtherKind] != 1 {
		t.Fatalf("expected unknown event type counted as %q, got %v", auditOtherKind, byEvent)
	}
	var total uint64
	for _, n := range byEvent {
		total += n
	}
	if total != dispatcher.Dropped() {
		t.Fatalf("per-event drops %d do not sum to Dropped() %d", total, dispatcher.Dropped())
	}
}

func TestAuditDroppedByEventOnDisabledClient(t *testing.T) {
	c := buildTestClient(t, tokenConfig("http://example.invalid"))
	byEvent := c.AuditDroppedByEvent()
	for _, kind := range []string{EventRequest, EventDownload, EventTokenExchange} {
		if n, ok := byEvent[kind]; !ok || n != 0 {
			t.Fatalf("expected %s present with 0 drops, got %v", kind, byEvent)
		}
	}
}

func TestAuditDispatcherCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 4,
		DropIfFull: true,
	}, &countingSink{})

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Close()
	dispatcher.Close()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})
}

func TestAuditCloseDrainsPendingEvents(t *testing.T) {
	srv, _ := newAPIServer(t, http.StatusOK, `{"success":true}`)
	cfg := tokenConfig(srv.URL)
	cfg.Audit = AuditConfig{Enabled: true, BufferSize: 32, DropIfFull: false}

	sink := &countingSink{}
	c := buildTestClient(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })
	for i := 0; i < 5; i++ {
		_, _ = c.Get(context.Background(), "x", nil)
	}
	c.Close()

	if sink.Count() != 5 {
		t.Fatalf("expected 5 events after Close, got %d", sink.Count())
	}
	if c.AuditDropped() != 0 {
		t.Fatalf("expected no drops, got %d", c.AuditDropped())
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  EventDownload,
		Method:     http.MethodGet,
		Path:       "invoices/1/download",
		StatusCode: 200,
		Success:    true,
	})

	if !buf.Contains(`"event_type":"download"`) {
		t.Fatal("expected JSON log line to contain event type")
	}
	if !buf.Contains(`"path":"invoices/1/download"`) {
		t.Fatal("expected JSON log line to contain path")
	}
	if !buf.Contains("\n") {
		t.Fatal("expected newline terminated record")
	}
}

func TestZapSinkLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewZapSink(zap.New(core))

	sink.Emit(context.Background(), AuditEvent{EventType: EventRequest, Method: "GET", Path: "a", Success: true})
	sink.Emit(context.Background(), AuditEvent{EventType: EventRequest, Method: "GET", Path: "b", Error: "transport"})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.DebugLevel || entries[1].Level != zapcore.WarnLevel {
		t.Fatalf("unexpected levels %v %v", entries[0].Level, entries[1].Level)
	}
	if entries[1].ContextMap()["error"] != "transport" {
		t.Fatalf("expected error field, got %v", entries[1].ContextMap())
	}
	if entries[0].LoggerName != "billingo" {
		t.Fatalf("expected named logger, got %q", entries[0].LoggerName)
	}

	NewZapSink(nil).Emit(context.Background(), AuditEvent{})
}

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) Contains(v string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Contains(string(b.buf), v)
}
