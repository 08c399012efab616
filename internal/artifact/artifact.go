// Package artifact persists and validates the three file formats that cross
// process boundaries: scan artifacts, policy reports, and waivers files.
// Validation is field-by-field; a failure is a hard error naming the
// offending field path, never a silent default.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quantracode/VibeCheck-sub003/internal/model"
	"github.com/quantracode/VibeCheck-sub003/internal/policy"
	"github.com/quantracode/VibeCheck-sub003/internal/safefile"
)

const (
	Version        = "vibecheck/artifact/v1"
	WaiversVersion = "vibecheck/waivers/v1"
)

// SaveScan writes a scan artifact as indented JSON via an atomic rename.
func SaveScan(path string, a model.ScanArtifact) error {
	if err := ValidateScan(a); err != nil {
		return err
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scan artifact: %w", err)
	}
	return safefile.WriteFileAtomic(path, append(data, '\n'), 0o644)
}

// LoadScan reads and validates a scan artifact.
func LoadScan(path string) (model.ScanArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ScanArtifact{}, fmt.Errorf("read scan artifact: %w", err)
	}
	var a model.ScanArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return model.ScanArtifact{}, fmt.Errorf("parse scan artifact %s: %w", path, err)
	}
	if err := ValidateScan(a); err != nil {
		return model.ScanArtifact{}, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// ValidateScan checks every field the policy engine depends on.
func ValidateScan(a model.ScanArtifact) error {
	if a.ArtifactVersion != Version {
		return fmt.Errorf("artifact_version: unsupported value %q", a.ArtifactVersion)
	}
	if a.GeneratedAt.IsZero() {
		return fmt.Errorf("generated_at: must be set")
	}
	if strings.TrimSpace(a.Tool.Name) == "" {
		return fmt.Errorf("tool.name: must not be empty")
	}
	for i, f := range a.Findings {
		if err := validateFinding(f); err != nil {
			return fmt.Errorf("findings[%d].%w", i, err)
		}
	}
	if a.Summary.TotalFindings != len(a.Findings) {
		return fmt.Errorf("summary.total_findings: %d does not match findings length %d", a.Summary.TotalFindings, len(a.Findings))
	}
	if a.Metrics != nil {
		for name, v := range map[string]float64{
			"auth_coverage":       a.Metrics.AuthCoverage,
			"validation_coverage": a.Metrics.ValidationCoverage,
			"middleware_coverage": a.Metrics.MiddlewareCoverage,
		} {
			if v < 0 || v > 1 {
				return fmt.Errorf("metrics.%s: %v outside [0,1]", name, v)
			}
		}
	}
	return nil
}

func validateFinding(f model.Finding) error {
	if strings.TrimSpace(f.RuleID) == "" {
		return fmt.Errorf("rule_id: must not be empty")
	}
	if !model.IsValidSeverity(f.Severity) {
		return fmt.Errorf("severity: unknown value %q", f.Severity)
	}
	if f.Confidence < 0 || f.Confidence > 1 {
		return fmt.Errorf("confidence: %v outside [0,1]", f.Confidence)
	}
	if strings.TrimSpace(f.Fingerprint) == "" {
		return fmt.Errorf("fingerprint: must not be empty")
	}
	if len(f.Evidence) == 0 {
		return fmt.Errorf("evidence: must contain at least one element")
	}
	for j, ev := range f.Evidence {
		if strings.TrimSpace(ev.File) == "" {
			return fmt.Errorf("evidence[%d].file: must not be empty", j)
		}
		if ev.Line < 1 {
			return fmt.Errorf("evidence[%d].line: must be >= 1", j)
		}
	}
	return nil
}

// SaveReport writes a policy report as indented JSON via an atomic rename.
func SaveReport(path string, r policy.PolicyReport) error {
	if err := ValidateReport(r); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode policy report: %w", err)
	}
	return safefile.WriteFileAtomic(path, append(data, '\n'), 0o644)
}

// LoadReport reads and validates a policy report.
func LoadReport(path string) (policy.PolicyReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return policy.PolicyReport{}, fmt.Errorf("read policy report: %w", err)
	}
	var r policy.PolicyReport
	if err := json.Unmarshal(data, &r); err != nil {
		return policy.PolicyReport{}, fmt.Errorf("parse policy report %s: %w", path, err)
	}
	if err := ValidateReport(r); err != nil {
		return policy.PolicyReport{}, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func ValidateReport(r policy.PolicyReport) error {
	if r.PolicyVersion != policy.APIVersion {
		return fmt.Errorf("policy_version: unsupported value %q", r.PolicyVersion)
	}
	if r.EvaluatedAt.IsZero() {
		return fmt.Errorf("evaluated_at: must be set")
	}
	switch r.Status {
	case policy.StatusPass, policy.StatusWarn, policy.StatusFail:
	default:
		return fmt.Errorf("status: unknown value %q", r.Status)
	}
	if r.ExitCode != 0 && r.ExitCode != 1 {
		return fmt.Errorf("exit_code: must be 0 or 1, got %d", r.ExitCode)
	}
	if (r.Status == policy.StatusFail) != (r.ExitCode == 1) {
		return fmt.Errorf("exit_code: %d inconsistent with status %q", r.ExitCode, r.Status)
	}
	for i, reason := range r.Reasons {
		if reason.Code == "" {
			return fmt.Errorf("reasons[%d].code: must not be empty", i)
		}
		switch reason.Status {
		case policy.StatusPass, policy.StatusWarn, policy.StatusFail:
		default:
			return fmt.Errorf("reasons[%d].status: unknown value %q", i, reason.Status)
		}
		if reason.Message == "" {
			return fmt.Errorf("reasons[%d].message: must not be empty", i)
		}
	}
	return nil
}

// LoadWaivers reads a waivers file; YAML and JSON are both accepted, chosen
// by extension.
func LoadWaivers(path string) (model.WaiversFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.WaiversFile{}, fmt.Errorf("read waivers file: %w", err)
	}
	var w model.WaiversFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &w)
	default:
		err = json.Unmarshal(data, &w)
	}
	if err != nil {
		return model.WaiversFile{}, fmt.Errorf("parse waivers file %s: %w", path, err)
	}
	if err := ValidateWaivers(w); err != nil {
		return model.WaiversFile{}, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

func ValidateWaivers(w model.WaiversFile) error {
	if w.Version != WaiversVersion {
		return fmt.Errorf("version: unsupported value %q", w.Version)
	}
	seen := map[string]struct{}{}
	for i, waiver := range w.Waivers {
		if strings.TrimSpace(waiver.ID) == "" {
			return fmt.Errorf("waivers[%d].id: must not be empty", i)
		}
		key := strings.ToLower(waiver.ID)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("waivers[%d].id: duplicate value %q", i, waiver.ID)
		}
		seen[key] = struct{}{}
		if strings.TrimSpace(waiver.Reason) == "" {
			return fmt.Errorf("waivers[%d].reason: must not be empty", i)
		}
		if waiver.Match.Fingerprint == "" && waiver.Match.RuleID == "" {
			return fmt.Errorf("waivers[%d].match: requires fingerprint or rule_id", i)
		}
		if waiver.ExpiresAt != "" {
			if _, err := time.Parse("2006-01-02", waiver.ExpiresAt); err != nil {
				return fmt.Errorf("waivers[%d].expires_at: must be YYYY-MM-DD", i)
			}
		}
	}
	return nil
}
