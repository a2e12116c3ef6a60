package billingo

import (
	"context"

	"go.uber.org/zap"
)

// ZapSink writes audit events to a zap logger: successes at Debug, failures at Warn.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink returns a sink logging through logger. A nil logger discards events.
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger.Named("billingo")}
}

func (s *ZapSink) Emit(_ context.Context, event AuditEvent) {
	fields := []zap.Field{
		zap.String("event_type", event.EventType),
		zap.String("method", event.Method),
		zap.String("path", event.Path),
		zap.String("auth_mode", event.AuthMode),
		zap.Int("status_code", event.StatusCode),
		zap.Duration("duration", event.Duration),
	}
	for k, v := range event.Metadata {
		fields = append(fields, zap.String(k, v))
	}

	if event.Success {
		s.logger.Debug("api call completed", fields...)
		return
	}
	s.logger.Warn("api call failed", append(fields, zap.String("error", event.Error))...)
}
