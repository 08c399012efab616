package policy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quantracode/VibeCheck-sub003/internal/model"
)

// Named profiles are constructed once and treated as immutable; Profile
// always hands out a copy so callers cannot mutate the shared tables.
var profiles = map[string]PolicyConfig{
	"startup": {
		APIVersion: APIVersion,
		Thresholds: Thresholds{
			FailOnSeverity:        model.SeverityCritical,
			WarnOnSeverity:        model.SeverityHigh,
			MinConfidenceForFail:  0.8,
			MinConfidenceForWarn:  0.6,
			MinConfidenceCritical: 0.7,
		},
		Regression: RegressionPolicy{
			FailOnNewCritical: true,
			WarnOnNetIncrease: true,
		},
	},
	"strict": {
		APIVersion: APIVersion,
		Thresholds: Thresholds{
			FailOnSeverity:        model.SeverityHigh,
			WarnOnSeverity:        model.SeverityMedium,
			MinConfidenceForFail:  0.7,
			MinConfidenceForWarn:  0.5,
			MinConfidenceCritical: 0.5,
			MaxCritical:           1,
		},
		Regression: RegressionPolicy{
			FailOnNewCritical:        true,
			FailOnNewHigh:            true,
			FailOnSeverityRegression: true,
			FailOnNetIncrease:        true,
		},
	},
	"compliance-lite": {
		APIVersion: APIVersion,
		Thresholds: Thresholds{
			FailOnSeverity:        model.SeverityHigh,
			WarnOnSeverity:        model.SeverityLow,
			MinConfidenceForFail:  0.75,
			MinConfidenceForWarn:  0.5,
			MinConfidenceCritical: 0.6,
			MaxFindings:           50,
		},
		Regression: RegressionPolicy{
			FailOnNewCritical:        true,
			FailOnNewHigh:            true,
			FailOnSeverityRegression: true,
			WarnOnNetIncrease:        true,
		},
	},
}

// Profile resolves a named preset. An unknown name is a hard error and must
// stop the run before any evaluation happens.
func Profile(name string) (PolicyConfig, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	cfg, ok := profiles[key]
	if !ok {
		return PolicyConfig{}, fmt.Errorf("unknown policy profile %q (known: %s)", name, strings.Join(ProfileNames(), ", "))
	}
	cfg.Overrides = append([]Override{}, cfg.Overrides...)
	return cfg, nil
}

// ProfileNames lists the known profiles in stable order.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
