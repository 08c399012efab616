package scan

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/quantracode/VibeCheck-sub003/internal/model"
	"github.com/quantracode/VibeCheck-sub003/internal/sanitize"
)

// FormatHuman formats a scan artifact as human-readable text for stdout.
func FormatHuman(art model.ScanArtifact, color bool) string {
	var b strings.Builder

	if art.Metrics != nil {
		b.WriteString(fmt.Sprintf("coverage: auth %.0f%%  validation %.0f%%  middleware %.0f%%\n\n",
			art.Metrics.AuthCoverage*100,
			art.Metrics.ValidationCoverage*100,
			art.Metrics.MiddlewareCoverage*100,
		))
	}

	if len(art.Findings) == 0 {
		b.WriteString("No findings.\n")
		return b.String()
	}

	for _, f := range art.Findings {
		sev := strings.ToUpper(strings.TrimSpace(f.Severity))
		if sev == "" {
			sev = "UNKNOWN"
		}
		if color {
			sev = styleSeverity(f.Severity)
		}
		b.WriteString(fmt.Sprintf("[%s] %s (%s)\n", sev, f.Title, f.RuleID))
		for _, ev := range f.Evidence {
			loc := fmt.Sprintf("  %s:%d", ev.File, ev.Line)
			if color {
				loc = styleFileRef.Render(loc)
			}
			b.WriteString(loc)
			if snippet := sanitize.Inline(ev.Snippet, 120); snippet != "" {
				b.WriteString("  " + snippet)
			}
			b.WriteString("\n")
		}
		if rem := sanitize.Inline(f.Remediation, 200); rem != "" {
			if color {
				rem = styleRemediation.Render(rem)
			}
			b.WriteString("  remediation: " + rem + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("%d finding(s) detected across %d route(s).\n", len(art.Findings), len(art.RouteMap)))
	if art.Skipped.Files > 0 || art.Skipped.Rules > 0 {
		b.WriteString(fmt.Sprintf("skipped: %d file(s), %d rule(s)\n", art.Skipped.Files, art.Skipped.Rules))
	}
	return b.String()
}

// FormatJSON formats a scan artifact as indented JSON.
func FormatJSON(art model.ScanArtifact) (string, error) {
	if art.Findings == nil {
		art.Findings = []model.Finding{}
	}
	b, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal artifact: %w", err)
	}
	return string(b), nil
}

// Lipgloss styles for each severity level.
var (
	styleCritical    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9"))
	styleHigh        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	styleMedium      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	styleLow         = lipgloss.NewStyle().Faint(true)
	styleInfo        = lipgloss.NewStyle().Faint(true)
	styleFileRef     = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	styleRemediation = lipgloss.NewStyle().Faint(true)
)

// styleSeverity applies the appropriate lipgloss style to a severity label.
func styleSeverity(sev string) string {
	label := strings.ToUpper(sev)
	switch strings.ToLower(sev) {
	case model.SeverityCritical:
		return styleCritical.Render(label)
	case model.SeverityHigh:
		return styleHigh.Render(label)
	case model.SeverityMedium:
		return styleMedium.Render(label)
	case model.SeverityLow:
		return styleLow.Render(label)
	case model.SeverityInfo:
		return styleInfo.Render(label)
	default:
		return label
	}
}
