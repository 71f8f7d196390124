package compare_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/compare"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/guess"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/match"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/pool"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/user"
	tu "github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/testutil"
)

func TestBuild(t *testing.T) {
	matches := []match.Match{
		tu.NewMatch("m1", "Grêmio", "Inter", tu.Day(0), tu.Won("Inter")),
		tu.NewMatch("m2", "Bahia", "Vitória", tu.Day(5)),
		tu.NewMatch("m3", "Athletico", "Coritiba", tu.Day(20)),
		tu.NewMatch("m4", "Goiás", "Vila Nova", tu.Day(30)),
	}
	guesses := []guess.Guess{
		tu.NewGuess("me", "m1", "gremio"),
		tu.NewGuess("rival", "m1", "empate"),
		tu.NewGuess("me", "m3", "???"),
		tu.NewGuess("rival", "m3", "B"),
	}
	users := []user.User{tu.NewUser("me", tu.Day(-1)), tu.NewUser("rival", tu.Day(-1))}
	s := pool.Build(pool.Dataset{Users: users, Matches: matches, Guesses: guesses}, tu.Day(10), time.UTC)

	items := compare.Build(s, "me", "rival")

	require.Len(t, items, 3)
	ids := []shared.MatchID{items[0].Match.ID, items[1].Match.ID, items[2].Match.ID}
	assert.Equal(t, []shared.MatchID{"m3", "m2", "m1"}, ids)

	assert.Equal(t, "???", items[0].MyVote)
	assert.Equal(t, "Coritiba", items[0].RivalVote)
	assert.False(t, items[0].Expired)

	assert.Equal(t, compare.NoVote, items[1].MyVote)
	assert.Equal(t, compare.NoVote, items[1].RivalVote)
	assert.True(t, items[1].Expired)

	assert.Equal(t, "Grêmio", items[2].MyVote)
	assert.Equal(t, match.DrawVote, items[2].RivalVote)
	assert.Equal(t, "Inter", items[2].Match.Winner)
}

func TestBuildUnknownUsers(t *testing.T) {
	s := pool.Build(pool.Dataset{Matches: []match.Match{tu.NewMatch("m", "A", "B", tu.Day(30))}}, tu.Day(0), time.UTC)

	assert.Empty(t, compare.Build(s, "x", "y"))
}
