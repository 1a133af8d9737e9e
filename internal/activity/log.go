package activity

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes records to the structured logger. It is the default sink
// in development.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink constructs a LogSink writing through logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("activity")}
}

// Write logs one line per record.
func (s *LogSink) Write(_ context.Context, records []Record) error {
	for _, r := range records {
		s.logger.Info("activity",
			zap.String("id", r.ID),
			zap.String("type", string(r.Kind)),
			zap.String("user_id", r.UserID),
			zap.String("event_id", r.EventID),
			zap.Any("details", r.Details),
			zap.Time("at", r.At),
		)
	}
	return nil
}

// Close is a no-op.
func (s *LogSink) Close() error { return nil }
