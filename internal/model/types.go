package model

import "time"

// ClaimType classifies what protection an intent claim asserts.
type ClaimType string

const (
	ClaimAuthEnforced        ClaimType = "auth_enforced"
	ClaimInputValidated      ClaimType = "input_validated"
	ClaimCSRFEnabled         ClaimType = "csrf_enabled"
	ClaimRateLimited         ClaimType = "rate_limited"
	ClaimEncryptedAtRest     ClaimType = "encrypted_at_rest"
	ClaimMiddlewareProtected ClaimType = "middleware_protected"
	ClaimOther               ClaimType = "other"
)

// ClaimScope is how widely a claim is asserted to apply.
type ClaimScope string

const (
	ScopeRoute  ClaimScope = "route"
	ScopeModule ClaimScope = "module"
	ScopeGlobal ClaimScope = "global"
)

// ClaimSource is where the claim text was mined from.
type ClaimSource string

const (
	SourceComment    ClaimSource = "comment"
	SourceIdentifier ClaimSource = "identifier"
	SourceImport     ClaimSource = "import"
	SourceDoc        ClaimSource = "doc"
	SourceUI         ClaimSource = "ui"
	SourceConfig     ClaimSource = "config"
)

// ClaimStrength grades how confidently the mined text asserts a protection.
type ClaimStrength string

const (
	StrengthWeak   ClaimStrength = "weak"
	StrengthMedium ClaimStrength = "medium"
	StrengthStrong ClaimStrength = "strong"
)

// RouteInfo describes one HTTP handler discovered by file-based routing.
// RouteID is derived only from file+method+path so reruns match.
type RouteInfo struct {
	RouteID   string `json:"route_id"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// MiddlewareInfo describes one edge-middleware file and its matcher config.
type MiddlewareInfo struct {
	File        string   `json:"file"`
	Matchers    []string `json:"matchers"`
	ProtectsAPI bool     `json:"protects_api"`
	StartLine   int      `json:"start_line"`
}

// IntentClaim is a textual or structural assertion that a protection exists.
type IntentClaim struct {
	IntentID      string        `json:"intent_id"`
	Type          ClaimType     `json:"type"`
	Scope         ClaimScope    `json:"scope"`
	TargetRouteID string        `json:"target_route_id,omitempty"`
	Source        ClaimSource   `json:"source"`
	File          string        `json:"file"`
	Line          int           `json:"line"`
	Strength      ClaimStrength `json:"strength"`
	TextEvidence  string        `json:"text_evidence"`
}

// ProofTraceStep is one link in the auditable evidence chain for a route.
type ProofTraceStep struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Snippet string `json:"snippet"`
	Label   string `json:"label"`
}

// ProofTrace records whether each claimed protection is actually substantiated
// for one route. Exactly one trace exists per route, claims or not.
type ProofTrace struct {
	RouteID           string           `json:"route_id"`
	AuthProven        bool             `json:"auth_proven"`
	ValidationProven  bool             `json:"validation_proven"`
	MiddlewareCovered bool             `json:"middleware_covered"`
	Steps             []ProofTraceStep `json:"steps"`
}

// CoverageMetrics aggregates proof traces into per-category ratios in [0,1].
// A category with zero applicable routes reports full coverage (vacuous truth).
type CoverageMetrics struct {
	AuthCoverage       float64 `json:"auth_coverage"`
	ValidationCoverage float64 `json:"validation_coverage"`
	MiddlewareCoverage float64 `json:"middleware_coverage"`
}

// Evidence cites the exact file/line/snippet substantiating a finding.
type Evidence struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Snippet string `json:"snippet"`
}

// Finding is one detector result. Fingerprint is the cross-run identity key
// consumed by waivers and regression diffing; Evidence is never empty.
type Finding struct {
	ID          string       `json:"id"`
	Severity    string       `json:"severity"`
	Confidence  float64      `json:"confidence"`
	Category    string       `json:"category"`
	RuleID      string       `json:"rule_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Evidence    []Evidence   `json:"evidence"`
	Remediation string       `json:"remediation"`
	Claim       *IntentClaim `json:"claim,omitempty"`
	Proof       *ProofTrace  `json:"proof,omitempty"`
	Links       []string     `json:"links,omitempty"`
	Fingerprint string       `json:"fingerprint"`
}

// ScanSummary aggregates finding counts for an artifact.
type ScanSummary struct {
	TotalFindings int            `json:"total_findings"`
	BySeverity    map[string]int `json:"by_severity"`
	ByCategory    map[string]int `json:"by_category"`
}

// SkippedCounts reports soft failures that did not stop the scan.
type SkippedCounts struct {
	Files int `json:"files"`
	Rules int `json:"rules"`
}

// ToolInfo identifies the producing tool inside a persisted artifact.
type ToolInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ScanArtifact is the persisted, version-tagged output of one scan.
type ScanArtifact struct {
	ArtifactVersion string           `json:"artifact_version"`
	GeneratedAt     time.Time        `json:"generated_at"`
	Tool            ToolInfo         `json:"tool"`
	Repo            string           `json:"repo,omitempty"`
	Summary         ScanSummary      `json:"summary"`
	Findings        []Finding        `json:"findings"`
	RouteMap        []RouteInfo      `json:"route_map,omitempty"`
	MiddlewareMap   []MiddlewareInfo `json:"middleware_map,omitempty"`
	Metrics         *CoverageMetrics `json:"metrics,omitempty"`
	Skipped         SkippedCounts    `json:"skipped"`
}

// WaiverMatch selects findings either by exact fingerprint or by a rule ID
// pattern (trailing * as prefix wildcard) plus an optional path glob.
type WaiverMatch struct {
	Fingerprint string `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	RuleID      string `json:"rule_id,omitempty" yaml:"rule_id,omitempty"`
	PathPattern string `json:"path_pattern,omitempty" yaml:"path_pattern,omitempty"`
}

// Waiver is an explicit, reasoned suppression of a finding.
type Waiver struct {
	ID        string      `json:"id" yaml:"id"`
	Match     WaiverMatch `json:"match" yaml:"match"`
	Reason    string      `json:"reason" yaml:"reason"`
	CreatedBy string      `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	CreatedAt string      `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	ExpiresAt string      `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// IsExpired reports whether the waiver's expiry date has passed.
func (w Waiver) IsExpired(now time.Time) bool {
	if w.ExpiresAt == "" {
		return false
	}
	t, err := time.Parse("2006-01-02", w.ExpiresAt)
	if err != nil {
		return false
	}
	return now.After(t)
}

// WaiversFile is the persisted waiver list.
type WaiversFile struct {
	Version string   `json:"version" yaml:"version"`
	Waivers []Waiver `json:"waivers" yaml:"waivers"`
}
