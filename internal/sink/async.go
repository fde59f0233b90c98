package sink

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Shreya-nipunge/Glowra/internal/models"
)

const (
	DefaultBuffer         = 256
	DefaultPublishTimeout = 10 * time.Second
)

// Async publishes to the wrapped sink from a background goroutine. Publish
// never blocks; events are dropped when the buffer is full.
type Async struct {
	next    models.EventSink
	events  chan models.ActivityEvent
	timeout time.Duration
	log     *zap.Logger

	dropped atomic.Int64
	failed  atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
}

func NewAsync(next models.EventSink, buffer int, log *zap.Logger) *Async {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if log == nil {
		log = zap.NewNop()
	}
	a := &Async{
		next:    next,
		events:  make(chan models.ActivityEvent, buffer),
		timeout: DefaultPublishTimeout,
		log:     log,
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.events {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Publish(ctx, e); err != nil {
			a.failed.Add(1)
			a.log.Warn("analytics publish failed",
				zap.String("event_id", e.ID),
				zap.String("kind", string(e.Kind)),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// Publish implements models.EventSink. It always returns nil.
func (a *Async) Publish(_ context.Context, e models.ActivityEvent) error {
	select {
	case a.events <- e:
	default:
		a.dropped.Add(1)
		a.log.Warn("analytics buffer full, event dropped",
			zap.String("event_id", e.ID),
			zap.String("kind", string(e.Kind)),
		)
	}
	return nil
}

// Close stops accepting events and waits for the buffer to drain or ctx to
// end. Publish must not be called after Close.
func (a *Async) Close(ctx context.Context) error {
	a.closeOnce.Do(func() { close(a.events) })
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped reports how many events were discarded because the buffer was full.
func (a *Async) Dropped() int64 { return a.dropped.Load() }

// Failed reports how many events the wrapped sink rejected.
func (a *Async) Failed() int64 { return a.failed.Load() }
