package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/quantracode/VibeCheck-sub003/internal/model"
)

// Input fixes everything an evaluation depends on. Now is injectable so
// waiver expiry is testable; the zero value means time.Now().UTC().
type Input struct {
	Findings    []model.Finding
	Waivers     []model.Waiver
	Config      PolicyConfig
	ProfileName string
	Baseline    *model.ScanArtifact
	Artifact    ArtifactRef
	Now         time.Time
}

// Evaluate runs the staged decision algorithm: waivers, overrides,
// thresholds, regression, then the final verdict. It never mutates its
// inputs.
func Evaluate(in Input) PolicyReport {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	report := PolicyReport{
		PolicyVersion:    APIVersion,
		EvaluatedAt:      now,
		ProfileName:      in.ProfileName,
		Thresholds:       in.Config.Thresholds,
		Overrides:        in.Config.Overrides,
		RegressionPolicy: in.Config.Regression,
		Artifact:         in.Artifact,
	}

	part := ApplyWaivers(in.Findings, in.Waivers, now)
	report.WaivedFindings = part.Waived
	report.ExpiredWaivers = part.Expired

	var reasons []Reason
	var active []EvaluatedFinding
	for _, f := range part.Active {
		ev, dropped, forced := applyOverrides(f, in.Config.Overrides)
		if dropped {
			report.IgnoredCount++
			continue
		}
		if forced {
			reasons = append(reasons, Reason{
				Code:    "override_fail",
				Status:  StatusFail,
				Message: fmt.Sprintf("override forces fail for %s (%s)", f.RuleID, f.Fingerprint),
			})
		}
		active = append(active, ev)
	}
	report.ActiveFindings = active
	report.Summary = summarize(active)

	reasons = append(reasons, thresholdReasons(active, in.Config.Thresholds)...)

	if in.Baseline != nil {
		report.Regression = ComputeRegression(in.Baseline, findingsOf(active))
		reasons = append(reasons, regressionReasons(report.Regression, in.Config.Regression)...)
	}

	report.Reasons = reasons
	report.Status = verdict(reasons)
	if report.Status == StatusFail {
		report.ExitCode = 1
	}
	return report
}

// applyOverrides applies the first matching override. Returns the evaluated
// finding, whether it was removed, and whether it forces overall failure.
func applyOverrides(f model.Finding, overrides []Override) (EvaluatedFinding, bool, bool) {
	ev := EvaluatedFinding{Finding: f, EffectiveSeverity: f.Severity}
	for _, o := range overrides {
		if !overrideMatches(o, f) {
			continue
		}
		switch o.Action {
		case ActionIgnore:
			return ev, true, false
		case ActionDowngrade, ActionUpgrade:
			if model.IsValidSeverity(o.Severity) {
				ev.EffectiveSeverity = o.Severity
			}
		case ActionWarnOnly:
			ev.WarnOnly = true
		case ActionFail:
			return ev, false, true
		}
		break
	}
	return ev, false, false
}

func overrideMatches(o Override, f model.Finding) bool {
	if o.RuleID == "" && o.Category == "" && o.PathGlob == "" {
		return false
	}
	if o.RuleID != "" && !RuleIDPatternMatch(o.RuleID, f.RuleID) {
		return false
	}
	if o.Category != "" && !strings.EqualFold(strings.TrimSpace(o.Category), strings.TrimSpace(f.Category)) {
		return false
	}
	if o.PathGlob != "" && !anyEvidencePathMatch(o.PathGlob, f) {
		return false
	}
	return true
}

func thresholdReasons(active []EvaluatedFinding, th Thresholds) []Reason {
	var out []Reason

	failCount, cappedCount, warnCount := 0, 0, 0
	for _, ev := range active {
		if meetsGate(ev, th.FailOnSeverity, failConfidence(th, ev.EffectiveSeverity)) {
			if ev.WarnOnly {
				cappedCount++
			} else {
				failCount++
			}
			continue
		}
		if meetsGate(ev, th.WarnOnSeverity, th.MinConfidenceForWarn) {
			warnCount++
		}
	}
	if failCount > 0 {
		out = append(out, Reason{
			Code:    "fail_on_severity",
			Status:  StatusFail,
			Message: fmt.Sprintf("%d finding(s) meet or exceed fail_on_severity=%s", failCount, th.FailOnSeverity),
		})
	}
	if cappedCount > 0 {
		out = append(out, Reason{
			Code:    "warn_only_capped",
			Status:  StatusWarn,
			Message: fmt.Sprintf("%d finding(s) exceed fail thresholds but are capped to warn by override", cappedCount),
		})
	}
	if warnCount > 0 {
		out = append(out, Reason{
			Code:    "warn_on_severity",
			Status:  StatusWarn,
			Message: fmt.Sprintf("%d finding(s) meet or exceed warn_on_severity=%s", warnCount, th.WarnOnSeverity),
		})
	}

	if th.MaxFindings > 0 && len(active) > th.MaxFindings {
		out = append(out, Reason{
			Code:    "max_findings",
			Status:  StatusFail,
			Message: fmt.Sprintf("%d active finding(s) exceed max_findings=%d", len(active), th.MaxFindings),
		})
	}
	criticals, highs := 0, 0
	for _, ev := range active {
		switch ev.EffectiveSeverity {
		case model.SeverityCritical:
			criticals++
		case model.SeverityHigh:
			highs++
		}
	}
	if th.MaxCritical > 0 && criticals > th.MaxCritical {
		out = append(out, Reason{
			Code:    "max_critical",
			Status:  StatusFail,
			Message: fmt.Sprintf("%d critical finding(s) exceed max_critical=%d", criticals, th.MaxCritical),
		})
	}
	if th.MaxHigh > 0 && highs > th.MaxHigh {
		out = append(out, Reason{
			Code:    "max_high",
			Status:  StatusFail,
			Message: fmt.Sprintf("%d high finding(s) exceed max_high=%d", highs, th.MaxHigh),
		})
	}
	return out
}

// failConfidence selects the confidence floor for the fail gate; critical
// findings use their own, usually lower, floor.
func failConfidence(th Thresholds, severity string) float64 {
	if severity == model.SeverityCritical {
		return th.MinConfidenceCritical
	}
	return th.MinConfidenceForFail
}

func meetsGate(ev EvaluatedFinding, threshold string, minConfidence float64) bool {
	threshold = strings.ToLower(strings.TrimSpace(threshold))
	if threshold == "" || threshold == "none" {
		return false
	}
	if !model.SeverityAtLeast(ev.EffectiveSeverity, threshold) {
		return false
	}
	return ev.Finding.Confidence >= minConfidence
}

func regressionReasons(reg *Regression, rp RegressionPolicy) []Reason {
	if reg == nil {
		return nil
	}
	var out []Reason
	newCritical, newHigh := 0, 0
	for _, f := range reg.New {
		switch {
		case f.Severity == model.SeverityCritical:
			newCritical++
		case model.SeverityAtLeast(f.Severity, model.SeverityHigh):
			newHigh++
		}
	}
	if rp.FailOnNewCritical && newCritical > 0 {
		out = append(out, Reason{
			Code:    "new_critical",
			Status:  StatusFail,
			Message: fmt.Sprintf("%d new critical finding(s) since baseline", newCritical),
		})
	}
	if rp.FailOnNewHigh && newHigh+newCritical > 0 {
		out = append(out, Reason{
			Code:    "new_high",
			Status:  StatusFail,
			Message: fmt.Sprintf("%d new high-or-worse finding(s) since baseline", newHigh+newCritical),
		})
	}
	if rp.FailOnSeverityRegression && len(reg.SeverityRegressions) > 0 {
		out = append(out, Reason{
			Code:    "severity_regression",
			Status:  StatusFail,
			Message: fmt.Sprintf("%d finding(s) regressed to a higher severity", len(reg.SeverityRegressions)),
		})
	}
	if reg.NetChange > 0 {
		switch {
		case rp.FailOnNetIncrease:
			out = append(out, Reason{
				Code:    "net_increase",
				Status:  StatusFail,
				Message: fmt.Sprintf("finding count increased by %d since baseline", reg.NetChange),
			})
		case rp.WarnOnNetIncrease:
			out = append(out, Reason{
				Code:    "net_increase",
				Status:  StatusWarn,
				Message: fmt.Sprintf("finding count increased by %d since baseline", reg.NetChange),
			})
		}
	}
	return out
}

func verdict(reasons []Reason) string {
	status := StatusPass
	for _, r := range reasons {
		switch r.Status {
		case StatusFail:
			return StatusFail
		case StatusWarn:
			status = StatusWarn
		}
	}
	return status
}

func summarize(active []EvaluatedFinding) model.ScanSummary {
	s := model.ScanSummary{
		TotalFindings: len(active),
		BySeverity:    map[string]int{},
		ByCategory:    map[string]int{},
	}
	for _, ev := range active {
		s.BySeverity[ev.Finding.Severity]++
		if ev.Finding.Category != "" {
			s.ByCategory[ev.Finding.Category]++
		}
	}
	return s
}

func findingsOf(active []EvaluatedFinding) []model.Finding {
	out := make([]model.Finding, 0, len(active))
	for _, ev := range active {
		out = append(out, ev.Finding)
	}
	return out
}
