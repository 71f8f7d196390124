package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/medal"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MEDAL SEEDS
// Medals granted by hand, such as past season titles. Example:
//
//	medals:
//	  - user_id: "u-42"
//	    icon: "🏆"
//	    name: "Campeão 2025"
//	    description: "Campeão da temporada 2025"
//	    date_label: "2025"
//	    awarded_at: 2025-12-31T23:59:59Z
// ══════════════════════════════════════════════════════════════════════════════

// SeedRecord is one medal as written in the seed file.
type SeedRecord struct {
	UserID      string    `yaml:"user_id"`
	Icon        string    `yaml:"icon"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	DateLabel   string    `yaml:"date_label"`
	AwardedAt   time.Time `yaml:"awarded_at"`
}

type seedFile struct {
	Medals []SeedRecord `yaml:"medals"`
}

// LoadMedalSeeds reads the seed file at path. An empty path yields no seeds.
func LoadMedalSeeds(path string) ([]medal.Seed, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read medal seeds: %w", err)
	}
	return ParseMedalSeeds(data)
}

// ParseMedalSeeds decodes and validates seed records.
func ParseMedalSeeds(data []byte) ([]medal.Seed, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse medal seeds: %w", err)
	}

	var errs []error
	seeds := make([]medal.Seed, 0, len(f.Medals))
	for i, r := range f.Medals {
		if strings.TrimSpace(r.UserID) == "" {
			errs = append(errs, fmt.Errorf("medal %d: user_id is required", i))
			continue
		}
		if strings.TrimSpace(r.Name) == "" {
			errs = append(errs, fmt.Errorf("medal %d: name is required", i))
			continue
		}
		if r.AwardedAt.IsZero() {
			errs = append(errs, fmt.Errorf("medal %d: awarded_at is required", i))
			continue
		}
		seeds = append(seeds, medal.Seed{
			UserID:      shared.UserID(strings.TrimSpace(r.UserID)),
			Kind:        medal.Kind(strings.TrimSpace(r.Icon)),
			Name:        r.Name,
			Description: r.Description,
			DateLabel:   r.DateLabel,
			AwardedAt:   r.AwardedAt,
		})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return seeds, nil
}
