package model

import "strings"

// Severity levels, most severe first.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
	SeverityInfo     = "info"
)

// SeverityWeight maps a severity to its sort rank (lower = more severe).
// Unknown severities rank below info.
func SeverityWeight(sev string) int {
	switch strings.ToLower(strings.TrimSpace(sev)) {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	case SeverityInfo:
		return 4
	default:
		return 5
	}
}

// IsValidSeverity reports whether sev names a known severity level.
func IsValidSeverity(sev string) bool {
	return SeverityWeight(sev) < 5
}

// SeverityAtLeast reports whether sev is at least as severe as threshold.
func SeverityAtLeast(sev, threshold string) bool {
	return SeverityWeight(sev) <= SeverityWeight(threshold)
}

// StateChangingMethods are the HTTP methods treated as writes for coverage.
var StateChangingMethods = map[string]bool{
	"POST":   true,
	"PUT":    true,
	"PATCH":  true,
	"DELETE": true,
}

// BodyBearingMethods are the HTTP methods expected to carry a request body.
var BodyBearingMethods = map[string]bool{
	"POST":  true,
	"PUT":   true,
	"PATCH": true,
}
