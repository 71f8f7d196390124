// Package messaging implements the in-process event bus on top of watermill's
// Go channel pub/sub. Events are serialized to JSON so handlers see the same
// payload a broker-backed bus would deliver.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
)

// ErrEventBusClosed is returned after Close.
var ErrEventBusClosed = errors.New("event bus is closed")

// Metadata keys set on every message.
const (
	MetaEventType   = "event_type"
	MetaAggregateID = "aggregate_id"
)

// Metrics records bus activity.
// Implementation: internal/infrastructure/metrics.Registry.
type Metrics interface {
	ObservePublish(eventType string)
	ObserveHandler(eventType string, d time.Duration, err error)
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// Bus publishes domain events on topics named after their event type and
// runs subscribed handlers on one goroutine per subscription.
type Bus struct {
	pubsub      *gochannel.GoChannel
	middlewares []Middleware
	metrics     Metrics
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// Config contains configuration for Bus.
type Config struct {
	// BufferSize is the per-subscriber output buffer.
	BufferSize int64

	// Middlewares wrap every subscribed handler, outermost first.
	Middlewares []Middleware

	Metrics Metrics
	Logger  *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{BufferSize: 64}
}

// NewBus creates a new event bus.
func NewBus(config Config) *Bus {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: config.BufferSize},
			watermill.NewSlogLogger(config.Logger),
		),
		middlewares: config.Middlewares,
		metrics:     config.Metrics,
		logger:      config.Logger.With("component", "event_bus"),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Publish implements shared.EventPublisher.
func (b *Bus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrEventBusClosed
	}

	payload, err := shared.MarshalEvent(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.EventType(), err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetaEventType, string(event.EventType()))
	msg.Metadata.Set(MetaAggregateID, event.AggregateID())

	if err := b.pubsub.Publish(string(event.EventType()), msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.EventType(), err)
	}
	if b.metrics != nil {
		b.metrics.ObservePublish(string(event.EventType()))
	}
	return nil
}

// Subscribe implements shared.EventSubscriber. Messages are acked after the
// handler returns, whatever its result; a failing handler only logs.
func (b *Bus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrEventBusClosed
	}

	messages, err := b.pubsub.Subscribe(b.ctx, string(eventType))
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", eventType, err)
	}

	wrapped := Chain(handler, b.middlewares...)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range messages {
			b.deliver(eventType, msg, wrapped)
		}
	}()

	b.logger.Debug("subscribed handler", "event_type", eventType)
	return nil
}

func (b *Bus) deliver(eventType shared.EventType, msg *message.Message, handler shared.EventHandler) {
	defer msg.Ack()

	event, err := shared.UnmarshalEvent(eventType, msg.Payload)
	if err != nil {
		b.logger.Error("dropping undecodable message",
			"event_type", eventType,
			"message_id", msg.UUID,
			"error", err,
		)
		return
	}

	start := time.Now()
	err = handler(event)
	if b.metrics != nil {
		b.metrics.ObserveHandler(string(eventType), time.Since(start), err)
	}
	if err != nil {
		b.logger.Error("handler error",
			"event_type", eventType,
			"message_id", msg.UUID,
			"error", err,
		)
	}
}

// Close stops accepting events and waits for in-flight handlers.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	err := b.pubsub.Close()
	b.wg.Wait()

	b.logger.Info("event bus closed")
	return err
}
