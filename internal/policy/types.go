// Package policy turns a fixed set of findings, waivers, and thresholds into
// a reproducible pass/warn/fail verdict. Evaluation is a pure function of
// its inputs: the same artifact, waivers, and config always yield the same
// report (modulo the evaluated_at stamp).
package policy

import (
	"time"

	"github.com/quantracode/VibeCheck-sub003/internal/model"
)

const APIVersion = "vibecheck/policy/v1"

const (
	StatusPass = "pass"
	StatusWarn = "warn"
	StatusFail = "fail"
)

// Override actions, applied to the first matching override per finding.
const (
	ActionIgnore    = "ignore"
	ActionDowngrade = "downgrade"
	ActionUpgrade   = "upgrade"
	ActionWarnOnly  = "warn-only"
	ActionFail      = "fail"
)

// Thresholds are the severity/confidence/count gates of the threshold stage.
// Count limits use 0 to mean unlimited.
type Thresholds struct {
	FailOnSeverity        string  `yaml:"fail_on_severity,omitempty" json:"fail_on_severity,omitempty"`
	WarnOnSeverity        string  `yaml:"warn_on_severity,omitempty" json:"warn_on_severity,omitempty"`
	MinConfidenceForFail  float64 `yaml:"min_confidence_for_fail,omitempty" json:"min_confidence_for_fail,omitempty"`
	MinConfidenceForWarn  float64 `yaml:"min_confidence_for_warn,omitempty" json:"min_confidence_for_warn,omitempty"`
	MinConfidenceCritical float64 `yaml:"min_confidence_critical,omitempty" json:"min_confidence_critical,omitempty"`
	MaxFindings           int     `yaml:"max_findings,omitempty" json:"max_findings,omitempty"`
	MaxCritical           int     `yaml:"max_critical,omitempty" json:"max_critical,omitempty"`
	MaxHigh               int     `yaml:"max_high,omitempty" json:"max_high,omitempty"`
}

// Override rewrites how matching findings contribute to the verdict.
// Matching is by rule_id pattern (trailing * is a prefix wildcard),
// category, and/or evidence path glob; empty criteria match everything.
type Override struct {
	RuleID   string `yaml:"rule_id,omitempty" json:"rule_id,omitempty"`
	Category string `yaml:"category,omitempty" json:"category,omitempty"`
	PathGlob string `yaml:"path_glob,omitempty" json:"path_glob,omitempty"`
	Action   string `yaml:"action" json:"action"`
	Severity string `yaml:"severity,omitempty" json:"severity,omitempty"`
}

// RegressionPolicy selects which baseline-relative changes gate the verdict.
type RegressionPolicy struct {
	FailOnNewCritical        bool `yaml:"fail_on_new_critical,omitempty" json:"fail_on_new_critical,omitempty"`
	FailOnNewHigh            bool `yaml:"fail_on_new_high,omitempty" json:"fail_on_new_high,omitempty"`
	FailOnSeverityRegression bool `yaml:"fail_on_severity_regression,omitempty" json:"fail_on_severity_regression,omitempty"`
	WarnOnNetIncrease        bool `yaml:"warn_on_net_increase,omitempty" json:"warn_on_net_increase,omitempty"`
	FailOnNetIncrease        bool `yaml:"fail_on_net_increase,omitempty" json:"fail_on_net_increase,omitempty"`
}

// PolicyConfig is the full evaluation configuration, either loaded from a
// .vibecheck/policy.yaml or taken from a named profile.
type PolicyConfig struct {
	APIVersion string           `yaml:"api_version" json:"api_version"`
	Thresholds Thresholds       `yaml:"thresholds" json:"thresholds"`
	Overrides  []Override       `yaml:"overrides,omitempty" json:"overrides,omitempty"`
	Regression RegressionPolicy `yaml:"regression,omitempty" json:"regression,omitempty"`
}

// Reason is one machine-checkable contribution to the verdict.
type Reason struct {
	Code    string `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// WaivedFinding pairs a suppressed finding with the waiver that matched it.
type WaivedFinding struct {
	Finding  model.Finding `json:"finding"`
	WaiverID string        `json:"waiver_id"`
	Reason   string        `json:"reason,omitempty"`
}

// EvaluatedFinding is an active finding plus the severity the threshold
// stage actually used. The original severity stays on the finding for
// display.
type EvaluatedFinding struct {
	Finding           model.Finding `json:"finding"`
	EffectiveSeverity string        `json:"effective_severity"`
	WarnOnly          bool          `json:"warn_only,omitempty"`
}

// SeverityRegression records a persisting fingerprint whose severity rose.
type SeverityRegression struct {
	Fingerprint string `json:"fingerprint"`
	RuleID      string `json:"rule_id"`
	Previous    string `json:"previous"`
	Current     string `json:"current"`
}

// Regression is the fingerprint diff against a baseline artifact.
type Regression struct {
	New                  []model.Finding      `json:"new"`
	Resolved             []model.Finding      `json:"resolved"`
	Persisting           []model.Finding      `json:"persisting"`
	SeverityRegressions  []SeverityRegression `json:"severity_regressions,omitempty"`
	NetChange            int                  `json:"net_change"`
	BaselineGeneratedAt  time.Time            `json:"baseline_generated_at,omitempty"`
	BaselineFindingCount int                  `json:"baseline_finding_count"`
}

// ArtifactRef identifies the scan artifact a report was evaluated against.
type ArtifactRef struct {
	Path        string    `json:"path,omitempty"`
	GeneratedAt time.Time `json:"generated_at,omitempty"`
	RepoName    string    `json:"repo_name,omitempty"`
}

// PolicyReport is the persisted outcome of one evaluation. ExitCode is 1
// exactly when Status is fail, 0 otherwise.
type PolicyReport struct {
	PolicyVersion    string             `json:"policy_version"`
	EvaluatedAt      time.Time          `json:"evaluated_at"`
	ProfileName      string             `json:"profile_name,omitempty"`
	Status           string             `json:"status"`
	Thresholds       Thresholds         `json:"thresholds"`
	Overrides        []Override         `json:"overrides,omitempty"`
	RegressionPolicy RegressionPolicy   `json:"regression_policy"`
	Summary          model.ScanSummary  `json:"summary"`
	Reasons          []Reason           `json:"reasons"`
	Regression       *Regression        `json:"regression,omitempty"`
	WaivedFindings   []WaivedFinding    `json:"waived_findings,omitempty"`
	ExpiredWaivers   []string           `json:"expired_waivers,omitempty"`
	IgnoredCount     int                `json:"ignored_count,omitempty"`
	ActiveFindings   []EvaluatedFinding `json:"active_findings"`
	ExitCode         int                `json:"exit_code"`
	Artifact         ArtifactRef        `json:"artifact"`
}
