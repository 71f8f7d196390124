package eventhandler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/application/command"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/application/eventhandler"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
)

type fakeRebuilder struct {
	mu      sync.Mutex
	calls   int
	version int64
	err     error
}

func (f *fakeRebuilder) Handle(context.Context, command.RebuildRankingCommand) (*command.RebuildRankingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &command.RebuildRankingResult{Version: f.version}, nil
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func changed(version int64) shared.DatasetChangedEvent {
	return shared.NewDatasetChangedEvent(string(shared.EventGuessSubmitted), "m1", version, time.Now())
}

func TestOnDatasetChangedRebuildsOncePerVersion(t *testing.T) {
	rb := &fakeRebuilder{version: 7}
	h := eventhandler.NewOnDatasetChangedHandler(rb, quiet(), eventhandler.DatasetChangedConfig{})

	require.NoError(t, h.Handle(changed(5)))
	assert.Equal(t, int64(7), h.LastVersion())

	require.NoError(t, h.Handle(changed(6)), "covered by the rebuild at version 7")
	require.NoError(t, h.Handle(changed(7)))
	assert.Equal(t, 1, rb.calls)

	rb.version = 8
	require.NoError(t, h.Handle(changed(8)))
	assert.Equal(t, 2, rb.calls)
}

func TestOnDatasetChangedIgnoresOtherEvents(t *testing.T) {
	rb := &fakeRebuilder{}
	h := eventhandler.NewOnDatasetChangedHandler(rb, quiet(), eventhandler.DatasetChangedConfig{})

	ev := shared.RankingRebuiltEvent{BaseEvent: shared.NewBaseEvent(shared.EventRankingRebuilt, "s1", time.Now())}
	require.NoError(t, h.Handle(ev))
	assert.Zero(t, rb.calls)
}

func TestOnDatasetChangedReportsFailure(t *testing.T) {
	rb := &fakeRebuilder{err: errors.New("db down")}
	h := eventhandler.NewOnDatasetChangedHandler(rb, quiet(), eventhandler.DatasetChangedConfig{})

	assert.Error(t, h.Handle(changed(3)))
	assert.Zero(t, h.LastVersion())

	rb.err = nil
	rb.version = 3
	require.NoError(t, h.Handle(changed(3)), "a failed version is retried")
	assert.Equal(t, 2, rb.calls)
}

func TestOnDatasetChangedConcurrentBurst(t *testing.T) {
	rb := &fakeRebuilder{version: 10}
	h := eventhandler.NewOnDatasetChangedHandler(rb, quiet(), eventhandler.DatasetChangedConfig{})

	var wg sync.WaitGroup
	for v := int64(1); v <= 10; v++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.Handle(changed(v)))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, rb.calls)
}
