package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quantracode/VibeCheck-sub003/internal/model"
)

func DefaultPath(root string) string {
	return filepath.Join(root, ".vibecheck", "policy.yaml")
}

// Load reads, normalizes, and validates a policy config file.
func Load(path string) (PolicyConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return PolicyConfig{}, fmt.Errorf("policy path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return PolicyConfig{}, fmt.Errorf("read policy file: %w", err)
	}
	var cfg PolicyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return PolicyConfig{}, fmt.Errorf("parse policy file: %w", err)
	}
	cfg = Normalize(cfg)
	if err := Validate(cfg); err != nil {
		return PolicyConfig{}, err
	}
	return cfg, nil
}

func Normalize(in PolicyConfig) PolicyConfig {
	in.APIVersion = strings.TrimSpace(in.APIVersion)
	if in.APIVersion == "" {
		in.APIVersion = APIVersion
	}
	in.Thresholds.FailOnSeverity = strings.ToLower(strings.TrimSpace(in.Thresholds.FailOnSeverity))
	in.Thresholds.WarnOnSeverity = strings.ToLower(strings.TrimSpace(in.Thresholds.WarnOnSeverity))

	overrides := make([]Override, 0, len(in.Overrides))
	for _, o := range in.Overrides {
		o.RuleID = strings.TrimSpace(o.RuleID)
		o.Category = strings.ToLower(strings.TrimSpace(o.Category))
		o.PathGlob = strings.TrimSpace(o.PathGlob)
		o.Action = strings.ToLower(strings.TrimSpace(o.Action))
		o.Severity = strings.ToLower(strings.TrimSpace(o.Severity))
		overrides = append(overrides, o)
	}
	in.Overrides = overrides
	return in
}

func Validate(cfg PolicyConfig) error {
	if cfg.APIVersion != APIVersion {
		return fmt.Errorf("unsupported policy api_version %q", cfg.APIVersion)
	}
	if err := validateThresholds(cfg.Thresholds); err != nil {
		return err
	}
	for i, o := range cfg.Overrides {
		prefix := fmt.Sprintf("overrides[%d]", i)
		switch o.Action {
		case ActionIgnore, ActionWarnOnly, ActionFail:
		case ActionDowngrade, ActionUpgrade:
			if !model.IsValidSeverity(o.Severity) {
				return fmt.Errorf("%s.severity is required for action %q", prefix, o.Action)
			}
		default:
			return fmt.Errorf("%s.action must be one of ignore|downgrade|upgrade|warn-only|fail", prefix)
		}
		if o.RuleID == "" && o.Category == "" && o.PathGlob == "" {
			return fmt.Errorf("%s must set at least one of rule_id, category, path_glob", prefix)
		}
	}
	return nil
}

func validateThresholds(th Thresholds) error {
	if th.FailOnSeverity != "" && th.FailOnSeverity != "none" && !model.IsValidSeverity(th.FailOnSeverity) {
		return fmt.Errorf("thresholds.fail_on_severity must be one of critical|high|medium|low|info|none")
	}
	if th.WarnOnSeverity != "" && th.WarnOnSeverity != "none" && !model.IsValidSeverity(th.WarnOnSeverity) {
		return fmt.Errorf("thresholds.warn_on_severity must be one of critical|high|medium|low|info|none")
	}
	for name, v := range map[string]float64{
		"thresholds.min_confidence_for_fail": th.MinConfidenceForFail,
		"thresholds.min_confidence_for_warn": th.MinConfidenceForWarn,
		"thresholds.min_confidence_critical": th.MinConfidenceCritical,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0.0 and 1.0", name)
		}
	}
	for name, v := range map[string]int{
		"thresholds.max_findings": th.MaxFindings,
		"thresholds.max_critical": th.MaxCritical,
		"thresholds.max_high":     th.MaxHigh,
	} {
		if v < 0 {
			return fmt.Errorf("%s must be >= 0 (0 = unlimited)", name)
		}
	}
	return nil
}
