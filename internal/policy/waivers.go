package policy

import (
	"strings"
	"time"

	"github.com/quantracode/VibeCheck-sub003/internal/model"
)

// WaiverPartition is the outcome of the waiver stage: findings either stay
// active or are suppressed by exactly one waiver. Expired waivers never
// suppress; they are surfaced so stale suppressions get cleaned up.
type WaiverPartition struct {
	Active  []model.Finding
	Waived  []WaivedFinding
	Expired []string
}

// ApplyWaivers partitions findings. A fingerprint-exact waiver always beats
// a rule-pattern waiver; within each kind the earliest waiver in the list
// wins.
func ApplyWaivers(findings []model.Finding, waivers []model.Waiver, now time.Time) WaiverPartition {
	var part WaiverPartition
	live := make([]model.Waiver, 0, len(waivers))
	for _, w := range waivers {
		if w.IsExpired(now) {
			part.Expired = append(part.Expired, w.ID)
			continue
		}
		live = append(live, w)
	}

	for _, f := range findings {
		if w, ok := matchWaiver(live, f); ok {
			part.Waived = append(part.Waived, WaivedFinding{
				Finding:  f,
				WaiverID: w.ID,
				Reason:   w.Reason,
			})
			continue
		}
		part.Active = append(part.Active, f)
	}
	return part
}

func matchWaiver(waivers []model.Waiver, f model.Finding) (model.Waiver, bool) {
	// Fingerprint matches take priority over pattern matches even when a
	// pattern waiver appears earlier in the list.
	for _, w := range waivers {
		if w.Match.Fingerprint != "" && w.Match.Fingerprint == f.Fingerprint {
			return w, true
		}
	}
	for _, w := range waivers {
		if w.Match.Fingerprint != "" {
			continue
		}
		if w.Match.RuleID == "" {
			continue
		}
		if !RuleIDPatternMatch(w.Match.RuleID, f.RuleID) {
			continue
		}
		if w.Match.PathPattern != "" && !anyEvidencePathMatch(w.Match.PathPattern, f) {
			continue
		}
		return w, true
	}
	return model.Waiver{}, false
}

// RuleIDPatternMatch supports exact matches and a trailing * as a prefix
// wildcard. A * anywhere else is literal.
func RuleIDPatternMatch(pattern, ruleID string) bool {
	pattern = strings.TrimSpace(pattern)
	ruleID = strings.TrimSpace(ruleID)
	if pattern == "" || ruleID == "" {
		return false
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(ruleID, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == ruleID
}

func anyEvidencePathMatch(pattern string, f model.Finding) bool {
	for _, ev := range f.Evidence {
		if pathGlobMatch(pattern, ev.File) {
			return true
		}
	}
	return false
}
