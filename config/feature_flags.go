package config

import (
	"hash/fnv"
	"strings"
	"sync"
)

// FeatureFlags manages feature toggles with optional percentage rollout by
// user id.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// userOverrides maps user id -> feature -> enabled.
	userOverrides map[string]map[string]bool
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// RolloutPercent (0-100) assigns users by a hash of their id.
	RolloutPercent int
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	UserID  string
	IsAdmin bool
}

// Predefined feature flag names.
const (
	// FeatureUniqueActivePair rejects a second pending or active mentorship
	// between the same mentor and mentee.
	FeatureUniqueActivePair = "unique_active_pair"

	// FeatureAutoCompleteMentorship completes a mentorship when its
	// completed meetings reach the target.
	FeatureAutoCompleteMentorship = "auto_complete_mentorship"

	// FeatureRedisEventBus fans domain events out over Redis Pub/Sub.
	FeatureRedisEventBus = "redis_event_bus"
)

var knownFeatures = []string{
	FeatureUniqueActivePair,
	FeatureAutoCompleteMentorship,
	FeatureRedisEventBus,
}

// NewFeatureFlags builds the flag set from the defaults and switches, which
// come from the config file and FEATURE_<NAME> environment variables.
func NewFeatureFlags(switches map[string]bool) *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		userOverrides: make(map[string]map[string]bool),
	}
	ff.initializeDefaults()
	for name, on := range switches {
		ff.SetEnabled(name, on)
	}
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureUniqueActivePair] = &Feature{
		Name:        FeatureUniqueActivePair,
		Description: "Reject a second open mentorship for the same pair",
	}
	ff.features[FeatureAutoCompleteMentorship] = &Feature{
		Name:           FeatureAutoCompleteMentorship,
		Description:    "Complete a mentorship when its meeting target is reached",
		Enabled:        true,
		RolloutPercent: 100,
	}
	ff.features[FeatureRedisEventBus] = &Feature{
		Name:        FeatureRedisEventBus,
		Description: "Publish domain events over Redis Pub/Sub",
	}
}

// "unique_active_pair" -> "FEATURE_UNIQUE_ACTIVE_PAIR"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

func boolPercent(b bool) int {
	if b {
		return 100
	}
	return 0
}

// IsEnabled checks if a feature is enabled for the given context. A nil
// context evaluates the global switch.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if ctx != nil && ctx.UserID != "" {
		if overrides, ok := ff.userOverrides[ctx.UserID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok || !feature.Enabled {
		return false
	}
	if ctx != nil && ctx.IsAdmin {
		return true
	}
	if feature.RolloutPercent < 100 && ctx != nil && ctx.UserID != "" {
		return isInRollout(ctx.UserID, featureName, feature.RolloutPercent)
	}
	return feature.RolloutPercent > 0
}

func isInRollout(userID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName + ":" + userID))
	return int(h.Sum32()%100) < percent
}

// SetEnabled switches a known feature fully on or off.
func (ff *FeatureFlags) SetEnabled(featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if f, ok := ff.features[featureName]; ok {
		f.Enabled = enabled
		f.RolloutPercent = boolPercent(enabled)
	}
}

// SetUserOverride forces a feature on or off for one user.
func (ff *FeatureFlags) SetUserOverride(userID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if ff.userOverrides[userID] == nil {
		ff.userOverrides[userID] = make(map[string]bool)
	}
	ff.userOverrides[userID][featureName] = enabled
}

// All returns a snapshot of every feature's global state.
func (ff *FeatureFlags) All() map[string]bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	out := make(map[string]bool, len(ff.features))
	for name, f := range ff.features {
		out[name] = f.Enabled && f.RolloutPercent > 0
	}
	return out
}
