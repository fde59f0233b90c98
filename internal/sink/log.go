package sink

import (
	"context"

	"go.uber.org/zap"

	"github.com/Shreya-nipunge/Glowra/internal/models"
)

// Log writes events to the logger at debug level. Used when no analytics
// backend is configured.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	if log == nil {
		log = zap.NewNop()
	}
	return &Log{log: log}
}

func (l *Log) Publish(_ context.Context, e models.ActivityEvent) error {
	l.log.Debug("analytics event",
		zap.String("event_id", e.ID),
		zap.String("kind", string(e.Kind)),
		zap.Time("timestamp", e.Timestamp),
	)
	return nil
}
