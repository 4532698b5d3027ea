package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/logger"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/monitoring"
)

// Handler processes one event. Errors are logged and never retried.
type Handler func(ctx context.Context, e Event) error

// Sink forwards every event to an external system
type Sink interface {
	Name() string
	Send(ctx context.Context, e Event) error
	Close() error
}

// BusConfig sizes the bus
type BusConfig struct {
	BufferSize     int
	Workers        int
	HandlerTimeout time.Duration
}

// Bus delivers events to in-process subscribers and sinks on a fixed worker pool.
// Publish never blocks: when the buffer is full the event is dropped.
type Bus struct {
	queue    chan Event
	workers  int
	timeout  time.Duration
	handlers map[Type][]Handler
	sinks    []Sink

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup

	logger  *logrus.Entry
	metrics *monitoring.MetricsCollector
}

// NewBus creates a bus. metrics may be nil.
func NewBus(cfg BusConfig, log *logger.Logger, metrics *monitoring.MetricsCollector) *Bus {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 30 * time.Second
	}

	return &Bus{
		queue:    make(chan Event, cfg.BufferSize),
		workers:  cfg.Workers,
		timeout:  cfg.HandlerTimeout,
		handlers: make(map[Type][]Handler),
		logger:   log.WithComponent("events"),
		metrics:  metrics,
	}
}

// Subscribe registers h for events of type t. It must be called before Start.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// AddSink registers a sink for every event. It must be called before Start.
func (b *Bus) AddSink(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Start launches the workers
func (b *Bus) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started || b.closed {
		return
	}
	b.started = true

	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	b.logger.WithField("workers", b.workers).Info("Event bus started")
}

// Publish queues e without blocking. It returns false when the event was dropped.
func (b *Bus) Publish(ctx context.Context, e Event) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.record(e.Type, "dropped")
		return false
	}

	select {
	case b.queue <- e:
		b.record(e.Type, "published")
		return true
	default:
		b.record(e.Type, "dropped")
		b.logger.WithFields(logrus.Fields{
			"request_id": ctx.Value(logger.RequestIDKey),
			"event_id":   e.ID,
			"event_type": e.Type,
		}).Warn("Event buffer full, dropping event")
		return false
	}
}

// Pending returns the number of queued events
func (b *Bus) Pending() int {
	return len(b.queue)
}

// Capacity returns the buffer size. Publish drops once Pending reaches it.
func (b *Bus) Capacity() int {
	return cap(b.queue)
}

// Close stops accepting events and waits for queued ones until ctx is done
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.queue)
	started := b.started
	b.mu.Unlock()

	if !started {
		b.closeSinks()
		return nil
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.closeSinks()
		b.logger.Info("Event bus drained")
		return nil
	case <-ctx.Done():
		b.logger.WithField("pending", len(b.queue)).Warn("Event bus shutdown timed out")
		return errors.Join(errors.New("event bus did not drain"), ctx.Err())
	}
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for e := range b.queue {
		b.deliver(e)
	}
}

func (b *Bus) deliver(e Event) {
	b.mu.RLock()
	handlers := b.handlers[e.Type]
	sinks := b.sinks
	b.mu.RUnlock()

	for _, h := range handlers {
		b.run(e, "handler", func(ctx context.Context) error { return h(ctx, e) })
	}
	for _, s := range sinks {
		s := s
		b.run(e, s.Name(), func(ctx context.Context) error { return s.Send(ctx, e) })
	}
}

func (b *Bus) run(e Event, target string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.New("event handler panicked")
			}
		}()
		return fn(ctx)
	}()

	if err != nil {
		b.record(e.Type, "failed")
		b.logger.WithError(err).WithFields(logrus.Fields{
			"event_id":   e.ID,
			"event_type": e.Type,
			"target":     target,
		}).Error("Event delivery failed")
		return
	}
	b.record(e.Type, "delivered")
}

func (b *Bus) closeSinks() {
	for _, s := range b.sinks {
		if err := s.Close(); err != nil {
			b.logger.WithError(err).WithField("sink", s.Name()).Warn("Failed to close event sink")
		}
	}
}

func (b *Bus) record(t Type, outcome string) {
	if b.metrics != nil {
		b.metrics.RecordEvent(string(t), outcome)
	}
}
