package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/studio-ops/studio-erp/internal/events"
)

// Deliverer sends one queued event.
type Deliverer interface {
	Deliver(ctx context.Context, event events.Event) error
}

// NotificationWorker moves order notifications off the request path. Events are
// queued by the dispatcher subscription and delivered one at a time.
type NotificationWorker struct {
	dispatcher events.Dispatcher
	deliverer  Deliverer
	logger     *zap.Logger
	timeout    time.Duration

	queue       chan events.Event
	unsubscribe events.Unsubscribe
	wg          sync.WaitGroup
	stopOnce    sync.Once
	cancel      context.CancelFunc
}

// NewNotificationWorker builds a worker with a queue of size capacity.
func NewNotificationWorker(dispatcher events.Dispatcher, deliverer Deliverer, capacity int, timeout time.Duration, logger *zap.Logger) *NotificationWorker {
	if capacity <= 0 {
		capacity = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		dispatcher: dispatcher,
		deliverer:  deliverer,
		logger:     logger,
		timeout:    timeout,
		queue:      make(chan events.Event, capacity),
	}
}

// Start subscribes to order notifications and starts delivering them.
func (w *NotificationWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.unsubscribe = w.dispatcher.Subscribe(events.EventOrderNotification, w.enqueue)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-w.queue:
				w.deliver(ctx, ev)
			}
		}
	}()
}

// Stop unsubscribes and waits for the in-flight delivery to finish.
func (w *NotificationWorker) Stop() {
	w.stopOnce.Do(func() {
		if w.unsubscribe != nil {
			w.unsubscribe()
		}
		if w.cancel != nil {
			w.cancel()
		}
		w.wg.Wait()
	})
}

func (w *NotificationWorker) enqueue(_ context.Context, ev events.Event) error {
	select {
	case w.queue <- ev:
	default:
		w.logger.Warn("notification queue full; event dropped", zap.String("event_id", ev.ID))
	}
	return nil
}

func (w *NotificationWorker) deliver(ctx context.Context, ev events.Event) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	if err := w.deliverer.Deliver(ctx, ev); err != nil {
		w.logger.Warn("notification delivery failed", zap.String("event_id", ev.ID), zap.Error(err))
	}
}
