package messaging

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

// Transport moves envelopes between publishers and subscribers.
type Transport interface {
	// Publish sends env to every subscriber of topic.
	Publish(ctx context.Context, topic string, env Envelope) error

	// Subscribe delivers envelopes published to topic to h until ctx is
	// canceled or the transport is closed.
	Subscribe(ctx context.Context, topic string, h Handler) error

	Close() error
}

// NoopTransport accepts every publish and never delivers anything.
type NoopTransport struct{}

// Ensure NoopTransport implements Transport at compile time.
var _ Transport = NoopTransport{}

func (NoopTransport) Publish(context.Context, string, Envelope) error { return nil }

func (NoopTransport) Subscribe(context.Context, string, Handler) error { return nil }

func (NoopTransport) Close() error { return nil }

// MemoryTransport delivers envelopes in process. Every subscription has a
// buffered queue; a publish to a full queue drops the envelope for that
// subscriber rather than blocking the publisher. Handler errors are logged.
// All methods are safe for concurrent use.
type MemoryTransport struct {
	mu         sync.RWMutex
	subs       map[string]map[*subscription]struct{}
	bufferSize int
	logger     *slog.Logger
	closed     bool
	wg         sync.WaitGroup
}

// Ensure MemoryTransport implements Transport at compile time.
var _ Transport = (*MemoryTransport)(nil)

type subscription struct {
	topic string
	ch    chan Envelope
	stop  chan struct{}
	once  sync.Once
}

// Must be called with the transport's write lock held.
func (s *subscription) close() {
	s.once.Do(func() {
		close(s.ch)
		close(s.stop)
	})
}

// NewMemoryTransport creates an in-process transport. A minimum buffer size
// of 1 is enforced.
func NewMemoryTransport(bufferSize int, log *slog.Logger) *MemoryTransport {
	if log == nil {
		log = slog.Default()
	}
	return &MemoryTransport{
		subs:       make(map[string]map[*subscription]struct{}),
		bufferSize: max(bufferSize, 1),
		logger:     log,
	}
}

// Publish implements Transport.
func (t *MemoryTransport) Publish(ctx context.Context, topic string, env Envelope) error {
	if topic == "" {
		return ErrEmptyTopic
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return ErrTransportClosed
	}

	// Every subscriber gets its own headers.
	for sub := range t.subs[topic] {
		select {
		case sub.ch <- env.Clone():
		default:
			t.logger.WarnContext(ctx, "subscriber queue full, message dropped", logger.Topic(topic))
		}
	}
	return nil
}

// Subscribe implements Transport. Messages are handled sequentially on a
// goroutine owned by the transport, each with a context derived from ctx.
func (t *MemoryTransport) Subscribe(ctx context.Context, topic string, h Handler) error {
	if topic == "" {
		return ErrEmptyTopic
	}
	if h == nil {
		return ErrNilHandler
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransportClosed
	}

	sub := &subscription{
		topic: topic,
		ch:    make(chan Envelope, t.bufferSize),
		stop:  make(chan struct{}),
	}
	if t.subs[topic] == nil {
		t.subs[topic] = make(map[*subscription]struct{})
	}
	t.subs[topic][sub] = struct{}{}

	t.wg.Add(2)
	go func() {
		defer t.wg.Done()
		for env := range sub.ch {
			msg := &Message{Envelope: env, Topic: topic}
			if err := h.Handle(ctx, msg); err != nil {
				t.logger.ErrorContext(ctx, "message handler failed",
					logger.Topic(topic),
					logger.Error(err),
				)
			}
		}
	}()
	go func() {
		defer t.wg.Done()
		select {
		case <-ctx.Done():
			t.unsubscribe(sub)
		case <-sub.stop:
		}
	}()

	return nil
}

func (t *MemoryTransport) unsubscribe(sub *subscription) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.subs[sub.topic], sub)
	if len(t.subs[sub.topic]) == 0 {
		delete(t.subs, sub.topic)
	}
	sub.close()
}

// Close stops all subscriptions and waits for their handlers to return.
// Queued envelopes are still handled. Close is idempotent.
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	for _, subs := range t.subs {
		for sub := range subs {
			sub.close()
		}
	}
	clear(t.subs)
	t.mu.Unlock()

	t.wg.Wait()
	return nil
}
