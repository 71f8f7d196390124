package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
)

func intPtr(v int) *int { return &v }

func TestStatus(t *testing.T) {
	deadline := time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC)
	m := Match{ID: "m1", TeamA: "Flamengo", TeamB: "Vasco", Deadline: deadline}

	assert.Equal(t, StatusOpen, m.Status(deadline.Add(-time.Minute)))
	assert.Equal(t, StatusWaiting, m.Status(deadline))
	assert.Equal(t, StatusWaiting, m.Status(deadline.Add(time.Hour)))

	m.Winner = "Flamengo"
	assert.Equal(t, StatusFinished, m.Status(deadline.Add(-time.Hour)))

	assert.Equal(t, "ABERTOS", StatusOpen.Label())
	assert.Equal(t, "AGUARDANDO RESULTADO", StatusWaiting.Label())
	assert.Equal(t, "FINALIZADOS", StatusFinished.Label())
}

func TestRoundHelpers(t *testing.T) {
	assert.True(t, IsFinalRound(" FINAL "))
	assert.False(t, IsFinalRound("Semifinal"))
	assert.True(t, IsRoundOfSixteen("Oitavas de Final"))

	assert.True(t, IsKnockoutRound("Quartas de Final"))
	assert.False(t, IsKnockoutRound("Brasileirão - Pontos Corridos"))
	assert.False(t, IsKnockoutRound("Champions Fase de Grupos"))

	assert.True(t, AskQualifierFor("Semifinal", LegSecond))
	assert.True(t, AskQualifierFor("Final", LegSingle))
	assert.False(t, AskQualifierFor("Semifinal", LegFirst))
	assert.False(t, AskQualifierFor("Fase de Grupos", LegSingle))
}

func TestParseLegType(t *testing.T) {
	assert.Equal(t, LegFirst, ParseLegType("IDA"))
	assert.Equal(t, LegFirst, ParseLegType("FIRST_LEG"))
	assert.Equal(t, LegSecond, ParseLegType("volta"))
	assert.Equal(t, LegSecond, ParseLegType("SECOND_LEG"))
	assert.Equal(t, LegSingle, ParseLegType("Único"))
	assert.Equal(t, LegSingle, ParseLegType("SINGLE"))
	assert.Equal(t, LegNone, ParseLegType(""))
}

func TestScoreHelpers(t *testing.T) {
	m := Match{GoalsA: intPtr(2), GoalsB: intPtr(2)}
	assert.True(t, m.HasScore())
	assert.True(t, m.IsOver())
	assert.True(t, m.BothScored())

	m = Match{GoalsA: intPtr(1), GoalsB: intPtr(0)}
	assert.False(t, m.IsOver())
	assert.False(t, m.BothScored())

	m = Match{GoalsA: intPtr(3)}
	assert.False(t, m.HasScore())
	assert.False(t, m.IsOver())
}

func TestMainPoints(t *testing.T) {
	assert.Equal(t, 3, (&Match{Round: "Oitavas de Final"}).MainPoints())
	assert.Equal(t, 6, (&Match{Round: "Final"}).MainPoints())
}

func TestVoteCountersApply(t *testing.T) {
	c := VoteCounters{A: 1}
	c = c.Apply(PickA, PickB)
	assert.Equal(t, VoteCounters{A: 0, B: 1}, c)

	c = c.Apply(NoPick, PickDraw)
	assert.Equal(t, VoteCounters{B: 1, Draw: 1}, c)

	c = c.Apply(PickDraw, PickDraw)
	assert.Equal(t, VoteCounters{B: 1, Draw: 1}, c)

	c = VoteCounters{}.Apply(PickA, NoPick)
	assert.Equal(t, VoteCounters{}, c)
}

func TestApplyResult(t *testing.T) {
	m := Match{
		ID:           "m1",
		TeamA:        "Flamengo",
		TeamB:        "Palmeiras",
		AskQualifier: true,
	}

	res, err := m.ApplyResult(Result{Winner: "A", GoalsA: intPtr(2), GoalsB: intPtr(1), Qualifier: "palmeiras"})
	require.NoError(t, err)
	assert.Equal(t, "Flamengo", res.Winner)
	assert.Equal(t, "Palmeiras", res.Qualifier)

	_, err = m.ApplyResult(Result{Winner: "EMPATE"})
	assert.ErrorIs(t, err, shared.ErrInvalidWinner)

	m.AllowDraw = true
	_, err = m.ApplyResult(Result{Winner: "empate", Qualifier: "Santos"})
	assert.ErrorIs(t, err, shared.ErrInvalidQualifier)

	m.AskQualifier = false
	res, err = m.ApplyResult(Result{Winner: "empate", Qualifier: "Flamengo"})
	require.NoError(t, err)
	assert.Equal(t, DrawVote, res.Winner)
	assert.Empty(t, res.Qualifier)

	_, err = m.ApplyResult(Result{Winner: "A", GoalsA: intPtr(-1), GoalsB: intPtr(0)})
	assert.ErrorIs(t, err, shared.ErrNegativeGoals)
}

func TestValidate(t *testing.T) {
	m := Match{ID: "m1", TeamA: "A FC", TeamB: "B FC", Deadline: time.Now()}
	assert.NoError(t, m.Validate())

	m.Deadline = time.Time{}
	assert.ErrorIs(t, m.Validate(), shared.ErrMissingDeadline)

	m = Match{ID: "m1", TeamA: " ", TeamB: "B FC", Deadline: time.Now()}
	assert.ErrorIs(t, m.Validate(), shared.ErrMissingTeams)
}
