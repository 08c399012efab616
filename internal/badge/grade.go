package badge

import "github.com/quantracode/VibeCheck-sub003/internal/model"

var gradeLadder = []struct {
	grade string
	color string
}{
	{"A+", "brightgreen"},
	{"A", "green"},
	{"B", "yellowgreen"},
	{"C", "yellow"},
	{"D", "orange"},
	{"F", "red"},
}

// Grade computes a letter grade and badge color from a scan summary and
// coverage metrics. Only the grade and color are returned — no finding
// details leak into the badge.
func Grade(summary model.ScanSummary, metrics *model.CoverageMetrics) (grade string, color string) {
	critical := summary.BySeverity[model.SeverityCritical]
	high := summary.BySeverity[model.SeverityHigh]

	var idx int
	switch {
	case summary.TotalFindings == 0:
		idx = 0
	case critical == 0 && high == 0:
		idx = 1
	case critical == 0 && high <= 3:
		idx = 2
	case critical == 0:
		idx = 3
	case critical <= 3:
		idx = 4
	default:
		idx = 5
	}

	// Weak proof coverage drops the grade one notch even when findings
	// are scarce: unproven routes are unverified, not safe.
	if metrics != nil && idx < len(gradeLadder)-1 {
		mean := (metrics.AuthCoverage + metrics.ValidationCoverage + metrics.MiddlewareCoverage) / 3
		if mean < 0.5 {
			idx++
		}
	}

	return gradeLadder[idx].grade, gradeLadder[idx].color
}
