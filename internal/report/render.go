// Package report renders scan artifacts and policy reports for humans and
// CI systems: Markdown summaries and SARIF export.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quantracode/VibeCheck-sub003/internal/model"
	"github.com/quantracode/VibeCheck-sub003/internal/policy"
	"github.com/quantracode/VibeCheck-sub003/internal/safefile"
	"github.com/quantracode/VibeCheck-sub003/internal/sanitize"
)

// WriteMarkdown renders the artifact (and optional policy report) to a
// Markdown file.
func WriteMarkdown(path string, art model.ScanArtifact, rep *policy.PolicyReport) error {
	content := RenderMarkdown(art, rep)
	if err := safefile.WriteFileAtomic(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write markdown report: %w", err)
	}
	return nil
}

func RenderMarkdown(art model.ScanArtifact, rep *policy.PolicyReport) string {
	var b strings.Builder

	b.WriteString("# VibeCheck Scan Report\n\n")
	if art.Repo != "" {
		b.WriteString(fmt.Sprintf("Repository: `%s`  \n", art.Repo))
	}
	b.WriteString(fmt.Sprintf("Generated: %s  \n", art.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	b.WriteString(fmt.Sprintf("Tool: %s %s\n\n", art.Tool.Name, art.Tool.Version))

	if rep != nil {
		b.WriteString(fmt.Sprintf("## Verdict: %s\n\n", strings.ToUpper(rep.Status)))
		for _, r := range rep.Reasons {
			b.WriteString(fmt.Sprintf("- **%s** (%s): %s\n", r.Code, r.Status, r.Message))
		}
		if len(rep.Reasons) == 0 {
			b.WriteString("- no policy reasons; all thresholds clear\n")
		}
		if len(rep.WaivedFindings) > 0 {
			b.WriteString(fmt.Sprintf("\n%d finding(s) waived.\n", len(rep.WaivedFindings)))
		}
		if len(rep.ExpiredWaivers) > 0 {
			b.WriteString(fmt.Sprintf("%d expired waiver(s) need cleanup: %s\n",
				len(rep.ExpiredWaivers), strings.Join(rep.ExpiredWaivers, ", ")))
		}
		b.WriteString("\n")
	}

	if art.Metrics != nil {
		b.WriteString("## Coverage\n\n")
		b.WriteString("| Category | Coverage |\n|---|---|\n")
		b.WriteString(fmt.Sprintf("| Auth | %.0f%% |\n", art.Metrics.AuthCoverage*100))
		b.WriteString(fmt.Sprintf("| Validation | %.0f%% |\n", art.Metrics.ValidationCoverage*100))
		b.WriteString(fmt.Sprintf("| Middleware | %.0f%% |\n\n", art.Metrics.MiddlewareCoverage*100))
	}

	b.WriteString(fmt.Sprintf("## Findings (%d)\n\n", len(art.Findings)))
	if len(art.Findings) == 0 {
		b.WriteString("No findings.\n")
	}
	for _, f := range art.Findings {
		b.WriteString(fmt.Sprintf("### %s — %s\n\n", strings.ToUpper(f.Severity), f.Title))
		b.WriteString(fmt.Sprintf("Rule `%s`, confidence %.2f, fingerprint `%s`\n\n", f.RuleID, f.Confidence, f.Fingerprint))
		if f.Description != "" {
			b.WriteString(f.Description + "\n\n")
		}
		for _, ev := range f.Evidence {
			snippet := sanitize.Inline(ev.Snippet, 160)
			if snippet != "" {
				b.WriteString(fmt.Sprintf("- `%s:%d` — `%s`\n", ev.File, ev.Line, snippet))
			} else {
				b.WriteString(fmt.Sprintf("- `%s:%d`\n", ev.File, ev.Line))
			}
		}
		if f.Proof != nil && len(f.Proof.Steps) > 0 {
			b.WriteString("\nProof trace:\n")
			for _, step := range f.Proof.Steps {
				b.WriteString(fmt.Sprintf("- %s (`%s:%d`)\n", step.Label, step.File, step.Line))
			}
		}
		if f.Remediation != "" {
			b.WriteString("\n**Remediation:** " + f.Remediation + "\n")
		}
		b.WriteString("\n")
	}

	if len(art.RouteMap) > 0 {
		b.WriteString(fmt.Sprintf("## Routes (%d)\n\n", len(art.RouteMap)))
		b.WriteString("| Method | Path | File |\n|---|---|---|\n")
		sorted := append([]model.RouteInfo{}, art.RouteMap...)
		sort.Slice(sorted, func(i, j int) bool {
			if sorted[i].Path != sorted[j].Path {
				return sorted[i].Path < sorted[j].Path
			}
			return sorted[i].Method < sorted[j].Method
		})
		for _, r := range sorted {
			b.WriteString(fmt.Sprintf("| %s | `%s` | `%s` |\n", r.Method, r.Path, r.File))
		}
		b.WriteString("\n")
	}

	if art.Skipped.Files > 0 || art.Skipped.Rules > 0 {
		b.WriteString(fmt.Sprintf("Skipped: %d file(s), %d rule(s).\n", art.Skipped.Files, art.Skipped.Rules))
	}
	return b.String()
}
