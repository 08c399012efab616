package policy

import (
	"sort"

	"github.com/quantracode/VibeCheck-sub003/internal/model"
)

// ComputeRegression diffs current findings against a baseline artifact by
// fingerprint. A persisting fingerprint whose severity rose is a severity
// regression; net change is |new| - |resolved|.
func ComputeRegression(baseline *model.ScanArtifact, current []model.Finding) *Regression {
	if baseline == nil {
		return nil
	}
	base := make(map[string]model.Finding, len(baseline.Findings))
	for _, f := range baseline.Findings {
		base[f.Fingerprint] = f
	}
	curr := make(map[string]model.Finding, len(current))
	for _, f := range current {
		curr[f.Fingerprint] = f
	}

	reg := &Regression{
		BaselineGeneratedAt:  baseline.GeneratedAt,
		BaselineFindingCount: len(baseline.Findings),
	}
	for fp, f := range curr {
		prev, inBase := base[fp]
		if !inBase {
			reg.New = append(reg.New, f)
			continue
		}
		reg.Persisting = append(reg.Persisting, f)
		if model.SeverityWeight(f.Severity) < model.SeverityWeight(prev.Severity) {
			reg.SeverityRegressions = append(reg.SeverityRegressions, SeverityRegression{
				Fingerprint: fp,
				RuleID:      f.RuleID,
				Previous:    prev.Severity,
				Current:     f.Severity,
			})
		}
	}
	for fp, f := range base {
		if _, inCurr := curr[fp]; !inCurr {
			reg.Resolved = append(reg.Resolved, f)
		}
	}

	sortFindings(reg.New)
	sortFindings(reg.Resolved)
	sortFindings(reg.Persisting)
	sort.Slice(reg.SeverityRegressions, func(i, j int) bool {
		return reg.SeverityRegressions[i].Fingerprint < reg.SeverityRegressions[j].Fingerprint
	})
	reg.NetChange = len(reg.New) - len(reg.Resolved)
	return reg
}

func sortFindings(findings []model.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		wi := model.SeverityWeight(findings[i].Severity)
		wj := model.SeverityWeight(findings[j].Severity)
		if wi != wj {
			return wi < wj
		}
		return findings[i].Fingerprint < findings[j].Fingerprint
	})
}
