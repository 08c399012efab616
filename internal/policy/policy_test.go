package policy

import (
	"testing"
	"time"

	"github.com/quantracode/VibeCheck-sub003/internal/model"
)

func finding(ruleID, fingerprint, severity string, confidence float64, file string) model.Finding {
	return model.Finding{
		ID:          ruleID + "-" + fingerprint,
		RuleID:      ruleID,
		Fingerprint: fingerprint,
		Severity:    severity,
		Confidence:  confidence,
		Category:    "auth",
		Title:       "test finding",
		Evidence:    []model.Evidence{{File: file, Line: 10, Snippet: "x"}},
	}
}

var baseConfig = PolicyConfig{
	APIVersion: APIVersion,
	Thresholds: Thresholds{
		FailOnSeverity:        model.SeverityHigh,
		WarnOnSeverity:        model.SeverityMedium,
		MinConfidenceForFail:  0.7,
		MinConfidenceForWarn:  0.5,
		MinConfidenceCritical: 0.6,
	},
}

func TestFingerprintWaiverBeatsRulePattern(t *testing.T) {
	f := finding("VC-AUTH-001", "aaaa111122223333", model.SeverityHigh, 0.9, "app/api/users/route.ts")
	waivers := []model.Waiver{
		{ID: "w-pattern", Match: model.WaiverMatch{RuleID: "VC-AUTH-*"}, Reason: "broad"},
		{ID: "w-exact", Match: model.WaiverMatch{Fingerprint: "aaaa111122223333"}, Reason: "exact"},
	}
	part := ApplyWaivers([]model.Finding{f}, waivers, time.Now())
	if len(part.Waived) != 1 || len(part.Active) != 0 {
		t.Fatalf("expected 1 waived, got waived=%d active=%d", len(part.Waived), len(part.Active))
	}
	if part.Waived[0].WaiverID != "w-exact" {
		t.Fatalf("fingerprint waiver should win, got %s", part.Waived[0].WaiverID)
	}
}

func TestEarlierWaiverWinsWithinKind(t *testing.T) {
	f := finding("VC-AUTH-001", "aaaa111122223333", model.SeverityHigh, 0.9, "app/api/users/route.ts")
	waivers := []model.Waiver{
		{ID: "w-first", Match: model.WaiverMatch{RuleID: "VC-*"}, Reason: "first"},
		{ID: "w-second", Match: model.WaiverMatch{RuleID: "VC-AUTH-001"}, Reason: "second"},
	}
	part := ApplyWaivers([]model.Finding{f}, waivers, time.Now())
	if len(part.Waived) != 1 || part.Waived[0].WaiverID != "w-first" {
		t.Fatalf("earliest matching waiver should win: %+v", part.Waived)
	}
}

func TestExpiredWaiverNeverSuppresses(t *testing.T) {
	f := finding("VC-AUTH-001", "aaaa111122223333", model.SeverityHigh, 0.9, "app/api/users/route.ts")
	waivers := []model.Waiver{
		{ID: "w-old", Match: model.WaiverMatch{Fingerprint: "aaaa111122223333"}, Reason: "stale", ExpiresAt: "2020-01-01"},
	}
	part := ApplyWaivers([]model.Finding{f}, waivers, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	if len(part.Active) != 1 {
		t.Fatalf("expired waiver suppressed a finding: %+v", part)
	}
	if len(part.Expired) != 1 || part.Expired[0] != "w-old" {
		t.Fatalf("expired waiver not reported: %+v", part.Expired)
	}
}

func TestWaiverPathPattern(t *testing.T) {
	f := finding("VC-AUTH-001", "aaaa111122223333", model.SeverityHigh, 0.9, "app/api/legacy/route.ts")
	cases := []struct {
		pattern string
		waived  bool
	}{
		{"app/api/legacy/**", true},
		{"app/api/legacy/*", true},
		{"app/api/modern/**", false},
	}
	for _, tc := range cases {
		waivers := []model.Waiver{
			{ID: "w", Match: model.WaiverMatch{RuleID: "VC-AUTH-001", PathPattern: tc.pattern}, Reason: "r"},
		}
		part := ApplyWaivers([]model.Finding{f}, waivers, time.Now())
		if got := len(part.Waived) == 1; got != tc.waived {
			t.Errorf("pattern %q: waived=%v, want %v", tc.pattern, got, tc.waived)
		}
	}
}

func TestRuleIDPatternMatch(t *testing.T) {
	cases := []struct {
		pattern, ruleID string
		want            bool
	}{
		{"VC-AUTH-001", "VC-AUTH-001", true},
		{"VC-AUTH-001", "VC-AUTH-002", false},
		{"VC-AUTH-*", "VC-AUTH-001", true},
		{"VC-*", "VC-SEC-001", true},
		{"*", "anything", true},
		{"VC-*-001", "VC-AUTH-001", false},
		{"", "VC-AUTH-001", false},
	}
	for _, tc := range cases {
		if got := RuleIDPatternMatch(tc.pattern, tc.ruleID); got != tc.want {
			t.Errorf("RuleIDPatternMatch(%q, %q) = %v, want %v", tc.pattern, tc.ruleID, got, tc.want)
		}
	}
}

// One high finding against failOnSeverity=high thresholds must fail; an
// ignore override flips it to pass; a warn-only override caps it at warn.
func TestPolicyLayering(t *testing.T) {
	f := finding("VC-AUTH-001", "aaaa111122223333", model.SeverityHigh, 0.9, "app/api/users/route.ts")

	rep := Evaluate(Input{Findings: []model.Finding{f}, Config: baseConfig})
	if rep.Status != StatusFail || rep.ExitCode != 1 {
		t.Fatalf("thresholds alone: status=%s exit=%d, want fail/1", rep.Status, rep.ExitCode)
	}

	ignoreCfg := baseConfig
	ignoreCfg.Overrides = []Override{{RuleID: "VC-AUTH-001", Action: ActionIgnore}}
	rep = Evaluate(Input{Findings: []model.Finding{f}, Config: ignoreCfg})
	if rep.Status != StatusPass || rep.ExitCode != 0 {
		t.Fatalf("ignore override: status=%s exit=%d, want pass/0", rep.Status, rep.ExitCode)
	}
	if rep.IgnoredCount != 1 {
		t.Fatalf("ignored count = %d, want 1", rep.IgnoredCount)
	}

	warnCfg := baseConfig
	warnCfg.Overrides = []Override{{RuleID: "VC-AUTH-001", Action: ActionWarnOnly}}
	rep = Evaluate(Input{Findings: []model.Finding{f}, Config: warnCfg})
	if rep.Status != StatusWarn || rep.ExitCode != 0 {
		t.Fatalf("warn-only override: status=%s exit=%d, want warn/0", rep.Status, rep.ExitCode)
	}
}

func TestOverrideDowngradeAndForceFail(t *testing.T) {
	f := finding("VC-AUTH-001", "aaaa111122223333", model.SeverityHigh, 0.9, "app/api/users/route.ts")

	downCfg := baseConfig
	downCfg.Overrides = []Override{{RuleID: "VC-AUTH-001", Action: ActionDowngrade, Severity: model.SeverityLow}}
	rep := Evaluate(Input{Findings: []model.Finding{f}, Config: downCfg})
	if rep.Status != StatusPass {
		t.Fatalf("downgraded finding should pass, got %s", rep.Status)
	}
	if rep.ActiveFindings[0].EffectiveSeverity != model.SeverityLow {
		t.Fatalf("effective severity = %s", rep.ActiveFindings[0].EffectiveSeverity)
	}
	if rep.ActiveFindings[0].Finding.Severity != model.SeverityHigh {
		t.Fatal("original severity must be retained for display")
	}

	low := finding("VC-VAL-001", "bbbb111122223333", model.SeverityInfo, 0.9, "lib/a.ts")
	failCfg := baseConfig
	failCfg.Overrides = []Override{{RuleID: "VC-VAL-001", Action: ActionFail}}
	rep = Evaluate(Input{Findings: []model.Finding{low}, Config: failCfg})
	if rep.Status != StatusFail || rep.ExitCode != 1 {
		t.Fatalf("fail override: status=%s exit=%d, want fail/1", rep.Status, rep.ExitCode)
	}
}

func TestFirstMatchingOverrideWins(t *testing.T) {
	f := finding("VC-AUTH-001", "aaaa111122223333", model.SeverityHigh, 0.9, "app/api/users/route.ts")
	cfg := baseConfig
	cfg.Overrides = []Override{
		{RuleID: "VC-*", Action: ActionIgnore},
		{RuleID: "VC-AUTH-001", Action: ActionFail},
	}
	rep := Evaluate(Input{Findings: []model.Finding{f}, Config: cfg})
	if rep.Status != StatusPass || rep.IgnoredCount != 1 {
		t.Fatalf("first override should apply: status=%s ignored=%d", rep.Status, rep.IgnoredCount)
	}
}

func TestConfidenceGates(t *testing.T) {
	cfg := baseConfig
	lowConfidence := finding("VC-AUTH-001", "aaaa111122223333", model.SeverityHigh, 0.4, "a.ts")
	rep := Evaluate(Input{Findings: []model.Finding{lowConfidence}, Config: cfg})
	if rep.Status != StatusPass {
		t.Fatalf("confidence below both floors should pass, got %s", rep.Status)
	}

	critical := finding("VC-SEC-001", "cccc111122223333", model.SeverityCritical, 0.65, "a.ts")
	rep = Evaluate(Input{Findings: []model.Finding{critical}, Config: cfg})
	if rep.Status != StatusFail {
		t.Fatalf("critical at 0.65 should clear min_confidence_critical=0.6, got %s", rep.Status)
	}
}

func TestCountLimits(t *testing.T) {
	cfg := PolicyConfig{
		APIVersion: APIVersion,
		Thresholds: Thresholds{MaxFindings: 2},
	}
	findings := []model.Finding{
		finding("A", "f1f1f1f1f1f1f1f1", model.SeverityLow, 0.9, "a.ts"),
		finding("B", "f2f2f2f2f2f2f2f2", model.SeverityLow, 0.9, "b.ts"),
		finding("C", "f3f3f3f3f3f3f3f3", model.SeverityLow, 0.9, "c.ts"),
	}
	rep := Evaluate(Input{Findings: findings, Config: cfg})
	if rep.Status != StatusFail {
		t.Fatalf("3 findings over max_findings=2 should fail, got %s", rep.Status)
	}
	rep = Evaluate(Input{Findings: findings[:2], Config: cfg})
	if rep.Status != StatusPass {
		t.Fatalf("2 findings at max_findings=2 should pass, got %s", rep.Status)
	}
}

// Baseline has F1 at medium; current has F1 at high plus new F2: one
// severity regression, one new, zero resolved, net +1.
func TestRegressionArithmetic(t *testing.T) {
	baseline := &model.ScanArtifact{
		Findings: []model.Finding{
			finding("VC-AUTH-001", "f1f1f1f1f1f1f1f1", model.SeverityMedium, 0.9, "a.ts"),
		},
	}
	current := []model.Finding{
		finding("VC-AUTH-001", "f1f1f1f1f1f1f1f1", model.SeverityHigh, 0.9, "a.ts"),
		finding("VC-VAL-001", "f2f2f2f2f2f2f2f2", model.SeverityMedium, 0.9, "b.ts"),
	}
	reg := ComputeRegression(baseline, current)
	if len(reg.New) != 1 || reg.New[0].Fingerprint != "f2f2f2f2f2f2f2f2" {
		t.Fatalf("new = %+v", reg.New)
	}
	if len(reg.Resolved) != 0 {
		t.Fatalf("resolved = %+v", reg.Resolved)
	}
	if len(reg.Persisting) != 1 {
		t.Fatalf("persisting = %+v", reg.Persisting)
	}
	if len(reg.SeverityRegressions) != 1 {
		t.Fatalf("severity regressions = %+v", reg.SeverityRegressions)
	}
	sr := reg.SeverityRegressions[0]
	if sr.Previous != model.SeverityMedium || sr.Current != model.SeverityHigh {
		t.Fatalf("regression = %+v", sr)
	}
	if reg.NetChange != 1 {
		t.Fatalf("net change = %d, want 1", reg.NetChange)
	}
}

func TestRegressionPolicyFlags(t *testing.T) {
	baseline := &model.ScanArtifact{}
	newHigh := finding("VC-AUTH-001", "f1f1f1f1f1f1f1f1", model.SeverityHigh, 0.5, "a.ts")

	cfg := PolicyConfig{APIVersion: APIVersion, Regression: RegressionPolicy{FailOnNewHigh: true}}
	rep := Evaluate(Input{Findings: []model.Finding{newHigh}, Config: cfg, Baseline: baseline})
	if rep.Status != StatusFail {
		t.Fatalf("new high with fail_on_new_high should fail, got %s", rep.Status)
	}

	cfg = PolicyConfig{APIVersion: APIVersion, Regression: RegressionPolicy{WarnOnNetIncrease: true}}
	rep = Evaluate(Input{Findings: []model.Finding{newHigh}, Config: cfg, Baseline: baseline})
	if rep.Status != StatusWarn {
		t.Fatalf("net increase with warn flag should warn, got %s", rep.Status)
	}

	cfg = PolicyConfig{APIVersion: APIVersion}
	rep = Evaluate(Input{Findings: []model.Finding{newHigh}, Config: cfg, Baseline: baseline})
	if rep.Status != StatusPass {
		t.Fatalf("no regression flags should pass, got %s", rep.Status)
	}
	if rep.Regression == nil || len(rep.Regression.New) != 1 {
		t.Fatal("regression diff should still be reported")
	}
}

func TestProfiles(t *testing.T) {
	for _, name := range []string{"startup", "strict", "compliance-lite"} {
		cfg, err := Profile(name)
		if err != nil {
			t.Fatalf("Profile(%s): %v", name, err)
		}
		if cfg.Thresholds.FailOnSeverity == "" {
			t.Fatalf("profile %s has no fail threshold", name)
		}
		if err := Validate(cfg); err != nil {
			t.Fatalf("profile %s is not self-valid: %v", name, err)
		}
	}
	if _, err := Profile("yolo"); err == nil {
		t.Fatal("unknown profile must be a hard error")
	}
}

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*PolicyConfig)
		wantOK bool
	}{
		{"valid", func(c *PolicyConfig) {}, true},
		{"bad api version", func(c *PolicyConfig) { c.APIVersion = "v9" }, false},
		{"bad severity", func(c *PolicyConfig) { c.Thresholds.FailOnSeverity = "fatal" }, false},
		{"none severity ok", func(c *PolicyConfig) { c.Thresholds.FailOnSeverity = "none" }, true},
		{"confidence out of range", func(c *PolicyConfig) { c.Thresholds.MinConfidenceForFail = 1.5 }, false},
		{"negative count", func(c *PolicyConfig) { c.Thresholds.MaxFindings = -1 }, false},
		{"downgrade without severity", func(c *PolicyConfig) {
			c.Overrides = []Override{{RuleID: "X", Action: ActionDowngrade}}
		}, false},
		{"override without criteria", func(c *PolicyConfig) {
			c.Overrides = []Override{{Action: ActionIgnore}}
		}, false},
		{"unknown action", func(c *PolicyConfig) {
			c.Overrides = []Override{{RuleID: "X", Action: "mute"}}
		}, false},
	}
	for _, tc := range cases {
		cfg := baseConfig
		tc.mutate(&cfg)
		err := Validate(cfg)
		if tc.wantOK && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.wantOK && err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestEveryReasonIsComplete(t *testing.T) {
	f := finding("VC-AUTH-001", "aaaa111122223333", model.SeverityHigh, 0.9, "a.ts")
	cfg := baseConfig
	cfg.Regression = RegressionPolicy{FailOnNewHigh: true, WarnOnNetIncrease: true}
	rep := Evaluate(Input{Findings: []model.Finding{f}, Config: cfg, Baseline: &model.ScanArtifact{}})
	if len(rep.Reasons) == 0 {
		t.Fatal("expected reasons")
	}
	for _, r := range rep.Reasons {
		if r.Code == "" || r.Status == "" || r.Message == "" {
			t.Fatalf("incomplete reason: %+v", r)
		}
	}
}
