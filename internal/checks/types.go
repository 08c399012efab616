// Package checks loads user-authored detector definitions and compiles them
// into the same Detector contract the built-in rules use.
package checks

const APIVersion = "vibecheck/check/v1"

type MatcherKind string

const (
	MatcherContains    MatcherKind = "contains"
	MatcherNotContains MatcherKind = "not_contains"
	MatcherRegex       MatcherKind = "regex"
)

// Matcher is one content condition applied to a file's text.
type Matcher struct {
	Kind          MatcherKind `yaml:"kind" json:"kind"`
	Pattern       string      `yaml:"pattern" json:"pattern"`
	CaseSensitive bool        `yaml:"case_sensitive,omitempty" json:"case_sensitive,omitempty"`
}

// Match groups the content conditions. With AllMustMatch every matcher has
// to hold for the file; otherwise any single positive match suffices
// (not_contains matchers are always conjunctive).
type Match struct {
	AllMustMatch bool      `yaml:"all_must_match,omitempty" json:"all_must_match,omitempty"`
	Patterns     []Matcher `yaml:"patterns" json:"patterns"`
}

// Context constrains where a rule may fire beyond raw content.
type Context struct {
	RequireImports      []string `yaml:"require_imports,omitempty" json:"require_imports,omitempty"`
	ExcludeImports      []string `yaml:"exclude_imports,omitempty" json:"exclude_imports,omitempty"`
	RequireFileContains []string `yaml:"require_file_contains,omitempty" json:"require_file_contains,omitempty"`
	ExcludeFileContains []string `yaml:"exclude_file_contains,omitempty" json:"exclude_file_contains,omitempty"`
	Methods             []string `yaml:"methods,omitempty" json:"methods,omitempty"`
}

// Scope filters which files the rule sees.
type Scope struct {
	IncludeGlobs []string `yaml:"include_globs,omitempty" json:"include_globs,omitempty"`
	ExcludeGlobs []string `yaml:"exclude_globs,omitempty" json:"exclude_globs,omitempty"`
}

// Definition is one declarative custom rule.
type Definition struct {
	APIVersion  string  `yaml:"api_version" json:"api_version"`
	ID          string  `yaml:"id" json:"id"`
	Title       string  `yaml:"title" json:"title"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	Severity    string  `yaml:"severity,omitempty" json:"severity,omitempty"`
	Confidence  float64 `yaml:"confidence,omitempty" json:"confidence,omitempty"`
	Category    string  `yaml:"category,omitempty" json:"category,omitempty"`
	Remediation string  `yaml:"remediation,omitempty" json:"remediation,omitempty"`
	Scope       Scope   `yaml:"scope,omitempty" json:"scope,omitempty"`
	Match       Match   `yaml:"match" json:"match"`
	Context     Context `yaml:"context,omitempty" json:"context,omitempty"`
}
