// Package eventhandler contains the reactions to domain events. Handlers
// run on the bus subscriber goroutines and trigger side effects such as
// refreshing the cached standings.
package eventhandler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/application/command"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON DATASET CHANGED HANDLER
// Rebuilds the ranking after a write so the next read hits a warm cache and
// the snapshot for the new version exists. Bursts of writes coalesce: an
// event whose version was already covered by a rebuild is skipped.
// ══════════════════════════════════════════════════════════════════════════════

// Rebuilder recomputes and persists the ranking.
type Rebuilder interface {
	Handle(ctx context.Context, cmd command.RebuildRankingCommand) (*command.RebuildRankingResult, error)
}

// DatasetChangedConfig tunes the handler.
type DatasetChangedConfig struct {
	// Timeout bounds one rebuild.
	Timeout time.Duration
}

// DefaultDatasetChangedConfig returns the default configuration.
func DefaultDatasetChangedConfig() DatasetChangedConfig {
	return DatasetChangedConfig{Timeout: 30 * time.Second}
}

// OnDatasetChangedHandler reacts to dataset.changed.
type OnDatasetChangedHandler struct {
	rebuilder Rebuilder
	logger    *slog.Logger
	config    DatasetChangedConfig

	mu   sync.Mutex
	done atomic.Int64
}

// NewOnDatasetChangedHandler creates the handler.
func NewOnDatasetChangedHandler(rebuilder Rebuilder, logger *slog.Logger, config DatasetChangedConfig) *OnDatasetChangedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config = DefaultDatasetChangedConfig()
	}
	return &OnDatasetChangedHandler{
		rebuilder: rebuilder,
		logger:    logger.With("handler", "on_dataset_changed"),
		config:    config,
	}
}

// Handle implements shared.EventHandler.
func (h *OnDatasetChangedHandler) Handle(event shared.Event) error {
	ev, ok := event.(shared.DatasetChangedEvent)
	if !ok {
		h.logger.Warn("received non-DatasetChangedEvent", "event_type", event.EventType())
		return nil
	}

	if ev.Version <= h.done.Load() {
		h.logger.Debug("dataset version already rebuilt", "version", ev.Version)
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Another event may have rebuilt past this version while we waited.
	if ev.Version <= h.done.Load() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	res, err := h.rebuilder.Handle(ctx, command.RebuildRankingCommand{Reason: ev.Reason})
	if err != nil {
		h.logger.Error("ranking rebuild failed",
			"version", ev.Version,
			"reason", ev.Reason,
			"error", err,
		)
		return err
	}
	h.done.Store(res.Version)

	h.logger.Info("ranking rebuilt after dataset change",
		"event_version", ev.Version,
		"rebuilt_version", res.Version,
		"reason", ev.Reason,
		"aggregate_id", ev.AggregateID(),
	)
	return nil
}

// LastVersion returns the newest version covered by a rebuild.
func (h *OnDatasetChangedHandler) LastVersion() int64 {
	return h.done.Load()
}
