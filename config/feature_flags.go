package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags switches optional parts of the service on and off.
// The ranking itself never depends on a flag; flags only gate caching,
// persistence and the write surface.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool
}

// Predefined feature flag names.
const (
	FeatureRankingCache        = "ranking_cache"        // Redis cache of computed standings
	FeatureSnapshotPersistence = "snapshot_persistence" // Persist ranking snapshots for arrows
	FeatureAdminAPI            = "admin_api"            // Write routes behind the admin key
	FeatureSchedulerRebuild    = "scheduler_rebuild"    // Periodic ranking rebuild job
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{features: make(map[string]*Feature)}
	ff.initializeDefaults()
	ff.loadFromEnvironment()
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureRankingCache] = &Feature{
		Name:        FeatureRankingCache,
		Description: "Cache computed standings in Redis by dataset version",
		Enabled:     true,
	}
	ff.features[FeatureSnapshotPersistence] = &Feature{
		Name:        FeatureSnapshotPersistence,
		Description: "Persist a ranking snapshot per dataset version",
		Enabled:     true,
	}
	ff.features[FeatureAdminAPI] = &Feature{
		Name:        FeatureAdminAPI,
		Description: "Expose match, result and guess writes",
		Enabled:     false,
	}
	ff.features[FeatureSchedulerRebuild] = &Feature{
		Name:        FeatureSchedulerRebuild,
		Description: "Rebuild the ranking on a fixed interval",
		Enabled:     true,
	}
}

// loadFromEnvironment applies FEATURE_<NAME>=true|false overrides.
// Example: FEATURE_ADMIN_API=true
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		val := os.Getenv(featureNameToEnvKey(name))
		if val == "" {
			continue
		}
		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
		}
	}
}

// "ranking_cache" -> "FEATURE_RANKING_CACHE"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled reports whether a feature is on. Unknown features are off.
func (ff *FeatureFlags) IsEnabled(featureName string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	return ok && feature.Enabled
}

// EnableFeature turns a feature on.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.set(featureName, true)
}

// DisableFeature turns a feature off.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.set(featureName, false)
}

func (ff *FeatureFlags) set(featureName string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	feature.Enabled = enabled
	return nil
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]Feature, len(ff.features))
	for k, v := range ff.features {
		result[k] = *v
	}
	return result
}

// --- Errors ---

var ErrFeatureNotFound = &FeatureFlagError{Message: "feature not found"}

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
