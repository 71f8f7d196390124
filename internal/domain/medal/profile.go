package medal

import (
	"slices"
	"time"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
)

// UnknownUserName is shown when a profile is requested for a missing user.
const UnknownUserName = "Usuário"

// TrophyEntry is one line of the trophy room.
type TrophyEntry struct {
	Icon        string `json:"icon"`
	Name        string `json:"name"`
	Description string `json:"desc"`
	Date        string `json:"date"`
	TS          int64  `json:"ts"`
}

// Profile is the medal view of one user.
type Profile struct {
	UserID       shared.UserID `json:"user_id"`
	DisplayName  string        `json:"display_name"`
	Photo        string        `json:"photo,omitempty"`
	ActiveMedals []string      `json:"active_medals"`
	TrophyRoom   []TrophyEntry `json:"trophy_room"`
}

// EmptyProfile is returned for users absent from the dataset.
func EmptyProfile(uid shared.UserID) Profile {
	return Profile{
		UserID:       uid,
		DisplayName:  UnknownUserName,
		ActiveMedals: []string{},
		TrophyRoom:   []TrophyEntry{},
	}
}

// BuildProfile lists every event once as an active medal (repeats kept, in
// award order) and as a trophy room entry sorted most recent first, with
// current-status medals on top.
func BuildProfile(uid shared.UserID, name, photo string, events []Event) Profile {
	p := Profile{
		UserID:       uid,
		DisplayName:  name,
		Photo:        photo,
		ActiveMedals: make([]string, 0, len(events)),
		TrophyRoom:   make([]TrophyEntry, 0, len(events)),
	}

	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b Event) int {
		ka, kb := a.SortKey(), b.SortKey()
		switch {
		case ka > kb:
			return -1
		case ka < kb:
			return 1
		default:
			return 0
		}
	})

	for _, e := range events {
		p.ActiveMedals = append(p.ActiveMedals, e.Kind.String())
	}
	for _, e := range sorted {
		p.TrophyRoom = append(p.TrophyRoom, TrophyEntry{
			Icon:        e.Kind.String(),
			Name:        e.Name,
			Description: e.Description,
			Date:        e.DateLabel,
			TS:          e.SortKey(),
		})
	}
	return p
}

// ══════════════════════════════════════════════════════════════════════════════
// SEEDS
// ══════════════════════════════════════════════════════════════════════════════

// Seed is a medal granted by configuration rather than derived from
// history (e.g. a past season title).
type Seed struct {
	UserID      shared.UserID
	Kind        Kind
	Name        string
	Description string
	DateLabel   string
	AwardedAt   time.Time
}

// Event converts the seed into a medal event.
func (s Seed) Event() Event {
	kind := s.Kind
	if kind == "" {
		kind = Trophy
	}
	return Event{
		Kind:        kind,
		Name:        s.Name,
		Description: s.Description,
		DateLabel:   s.DateLabel,
		At:          s.AwardedAt,
	}
}

// SeedsFor returns the seed events of one user, in configuration order.
func SeedsFor(seeds []Seed, uid shared.UserID) []Event {
	var out []Event
	for _, s := range seeds {
		if s.UserID == uid {
			out = append(out, s.Event())
		}
	}
	return out
}
