package billingo

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditEventKinds are the event types a Client emits. Drops of any other type
// are counted under auditOtherKind.
var auditEventKinds = [...]string{EventRequest, EventDownload, EventTokenExchange}

const auditOtherKind = "other"

func auditKindIndex(eventType string) int {
	for i, kind := range auditEventKinds {
		if kind == eventType {
			return i
		}
	}
	return len(auditEventKinds)
}

// auditDispatcher moves call events off the calling goroutine. One goroutine
// feeds the sink, so a slow sink only ever delays other audit events.
type auditDispatcher struct {
	sink       AuditSink
	queue      chan AuditEvent
	dropIfFull bool

	stop    chan struct{}
	stopped chan struct{}
	closing atomic.Bool
	once    sync.Once

	// drops is indexed by auditKindIndex.
	drops [len(auditEventKinds) + 1]atomic.Uint64
}

// newAuditDispatcher returns nil when audit is disabled. All methods accept a
// nil receiver.
func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size < 1 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:       sink,
		queue:      make(chan AuditEvent, size),
		dropIfFull: cfg.DropIfFull,
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go d.deliver()
	return d
}

func (d *auditDispatcher) deliver() {
	defer close(d.stopped)
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		case <-d.stop:
			d.flush()
			return
		}
	}
}

// flush hands whatever is still queued to the sink.
func (d *auditDispatcher) flush() {
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

// Emit queues event. With DropIfFull a full queue drops the event and counts
// it against its event type. Otherwise Emit waits for room, for ctx to end or
// for Close.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closing.Load() {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.drops[auditKindIndex(event.EventType)].Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.stop:
	}
}

// Close stops intake and returns once queued events reached the sink.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.closing.Store(true)
		close(d.stop)
		<-d.stopped
	})
}

// Dropped returns the number of dropped events of every type.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	var total uint64
	for i := range d.drops {
		total += d.drops[i].Load()
	}
	return total
}

// DroppedByEvent returns drop counts keyed by event type. Every type a Client
// emits is present; auditOtherKind appears only once something was counted there.
func (d *auditDispatcher) DroppedByEvent() map[string]uint64 {
	out := make(map[string]uint64, len(auditEventKinds)+1)
	for i, kind := range auditEventKinds {
		if d != nil {
			out[kind] = d.drops[i].Load()
		} else {
			out[kind] = 0
		}
	}
	if d != nil {
		if n := d.drops[len(auditEventKinds)].Load(); n > 0 {
			out[auditOtherKind] = n
		}
	}
	return out
}
