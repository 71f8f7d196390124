package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// Middleware wraps handler execution.
type Middleware func(shared.EventHandler) shared.EventHandler

// Chain applies middlewares to h so that the first one runs outermost.
func Chain(h shared.EventHandler, middlewares ...Middleware) shared.EventHandler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// PanicError is returned in place of a handler panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

// callSafely runs h and converts a panic into a *PanicError.
func callSafely(h shared.EventHandler, event shared.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return h(event)
}

// RecoveryMiddleware turns handler panics into errors and logs them with
// their stack, including panics that outlived the retry loop.
func RecoveryMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			err := callSafely(next, event)
			var pe *PanicError
			if errors.As(err, &pe) {
				logger.Error("panic in event handler",
					"event_type", event.EventType(),
					"panic", pe.Value,
					"stack", string(pe.Stack),
				)
			}
			return err
		}
	}
}

// LoggingMiddleware logs handler execution.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			start := time.Now()
			err := next(event)
			logger.Debug("event handled",
				"event_type", event.EventType(),
				"aggregate_id", event.AggregateID(),
				"duration", time.Since(start),
				"success", err == nil,
			)
			return err
		}
	}
}

// RetryMiddleware retries failing handlers with exponential backoff. A panic
// counts as a failed attempt.
func RetryMiddleware(r *retry.Retrier) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			return r.Do(context.Background(), func(context.Context) error {
				return callSafely(next, event)
			})
		}
	}
}

// DefaultMiddlewares is the stack cmd/api installs: recovery outermost, then
// logging, then a short retry loop.
func DefaultMiddlewares(logger *slog.Logger) []Middleware {
	return []Middleware{
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		RetryMiddleware(retry.New(retry.WithMaxAttempts(3), retry.WithInitialDelay(200*time.Millisecond))),
	}
}
