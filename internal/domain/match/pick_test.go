package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	teams := Teams{A: "São Paulo", B: "Grêmio"}

	tests := []struct {
		name   string
		raw    string
		want   Pick
		wantOK bool
	}{
		{"code A", "A", PickA, true},
		{"code B", "B", PickB, true},
		{"draw sentinel", "EMPATE", PickDraw, true},
		{"draw lower case", "empate", PickDraw, true},
		{"draw english", "Draw", PickDraw, true},
		{"team A exact", "São Paulo", PickA, true},
		{"team A folded", "  sao   PAULO ", PickA, true},
		{"team B folded", "gremio", PickB, true},
		{"lower case code is a name", "a", NoPick, false},
		{"unknown team", "Santos", NoPick, false},
		{"empty", "", NoPick, false},
		{"blank", "   ", NoPick, false},
		{"punctuation only", "--", NoPick, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw, teams)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestNormalizeAmbiguous(t *testing.T) {
	got, ok := Normalize("Atletico", Teams{A: "Atlético", B: "ATLETICO"})
	assert.False(t, ok)
	assert.Equal(t, NoPick, got)
}

func TestEncodeRoundTrip(t *testing.T) {
	teams := Teams{A: "Flamengo", B: "Palmeiras"}

	for _, p := range []Pick{PickA, PickB, PickDraw} {
		raw := Encode(p, teams)
		got, ok := Normalize(raw, teams)
		assert.True(t, ok, raw)
		assert.Equal(t, p, got)
	}

	assert.Equal(t, "", Encode(NoPick, teams))
	assert.Equal(t, DrawVote, Encode(PickDraw, teams))
}

func TestPickString(t *testing.T) {
	assert.Equal(t, "A", PickA.String())
	assert.Equal(t, "B", PickB.String())
	assert.Equal(t, "EMPATE", PickDraw.String())
	assert.Equal(t, "", NoPick.String())
	assert.False(t, NoPick.Valid())
	assert.True(t, PickDraw.Valid())
}
