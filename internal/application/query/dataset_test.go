package query_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/application/query"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/guess"
	tu "github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/testutil"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/pkg/retry"
)

// racingGuesses commits a new guess and bumps the version right after its
// first List returns, as a concurrent writer would.
type racingGuesses struct {
	*tu.GuessRepo
	store *tu.Store

	once sync.Once
	log  *callLog
}

func (r *racingGuesses) List(ctx context.Context) ([]guess.Guess, error) {
	rows, err := r.GuessRepo.List(ctx)
	r.log.add("guesses")
	r.once.Do(func() {
		late := tu.NewGuess("late", "m3", "Palmeiras")
		_ = r.store.Guesses().Upsert(ctx, &late)
		_, _ = r.store.State().Bump(ctx, "guess.submitted")
	})
	return rows, err
}

type orderedState struct {
	*tu.StateRepo
	log *callLog
}

func (s *orderedState) Version(ctx context.Context) (int64, error) {
	s.log.add("version")
	return s.StateRepo.Version(ctx)
}

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(c string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, c)
}

func TestLoadNeverLabelsOldRowsWithNewVersion(t *testing.T) {
	store := tu.NewStore(dataset())
	calls := &callLog{}
	loader := query.NewDatasetLoader(
		store.Users(), store.Matches(),
		&racingGuesses{GuessRepo: store.Guesses(), store: store, log: calls},
		&orderedState{StateRepo: store.State(), log: calls},
		time.UTC,
		query.WithRetrier(retry.New(retry.WithMaxAttempts(1))),
	)

	first, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "version", calls.calls[0], "the version is read before any collection")
	assert.Equal(t, int64(5), first.Version, "rows read before the write keep the pre-write version")
	assert.Len(t, first.Guesses, 6)

	second, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6), second.Version)
	assert.Len(t, second.Guesses, 7)
}
