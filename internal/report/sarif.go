package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quantracode/VibeCheck-sub003/internal/model"
	"github.com/quantracode/VibeCheck-sub003/internal/safefile"
	"github.com/quantracode/VibeCheck-sub003/internal/version"
)

// SARIF v2.1.0 types — minimal subset for GitHub Code Scanning.

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	InformationURI string      `json:"informationUri"`
	Version        string      `json:"version"`
	Rules          []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string              `json:"id"`
	Name             string              `json:"name,omitempty"`
	ShortDescription sarifMessage        `json:"shortDescription,omitempty"`
	DefaultConfig    *sarifDefaultConfig `json:"defaultConfiguration,omitempty"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	Level               string            `json:"level"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLocation   `json:"locations,omitempty"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
	Properties          *sarifProperties  `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

type sarifProperties struct {
	Severity   string  `json:"severity,omitempty"`
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// WriteSARIF exports a scan artifact's findings as a SARIF log.
func WriteSARIF(path string, art model.ScanArtifact) error {
	log := buildSARIF(art)
	b, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sarif report: %w", err)
	}
	if err := safefile.WriteFileAtomic(path, b, 0o600); err != nil {
		return fmt.Errorf("write sarif report: %w", err)
	}
	return nil
}

func buildSARIF(art model.ScanArtifact) sarifLog {
	ruleIndex := map[string]int{}
	var rules []sarifRule
	var results []sarifResult

	for _, f := range art.Findings {
		ruleID := f.RuleID
		if ruleID == "" {
			ruleID = "vibecheck-finding"
		}

		if _, seen := ruleIndex[ruleID]; !seen {
			ruleIndex[ruleID] = len(rules)
			rules = append(rules, sarifRule{
				ID:               ruleID,
				Name:             f.Title,
				ShortDescription: sarifMessage{Text: f.Title},
				DefaultConfig:    &sarifDefaultConfig{Level: mapSeverityToSARIF(f.Severity)},
			})
		}

		messageText := strings.TrimSpace(f.Description)
		if messageText == "" {
			messageText = f.Title
		}

		var locations []sarifLocation
		for _, ev := range f.Evidence {
			if strings.TrimSpace(ev.File) == "" {
				continue
			}
			locations = append(locations, sarifLocation{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: ev.File},
					Region:           &sarifRegion{StartLine: ev.Line},
				},
			})
		}

		results = append(results, sarifResult{
			RuleID:    ruleID,
			Level:     mapSeverityToSARIF(f.Severity),
			Message:   sarifMessage{Text: messageText},
			Locations: locations,
			PartialFingerprints: map[string]string{
				"vibecheck/v1": f.Fingerprint,
			},
			Properties: &sarifProperties{
				Severity:   f.Severity,
				Category:   f.Category,
				Confidence: f.Confidence,
			},
		})
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{{
			Tool: sarifTool{
				Driver: sarifDriver{
					Name:           "vibecheck",
					InformationURI: "https://github.com/quantracode/vibecheck",
					Version:        version.Version,
					Rules:          rules,
				},
			},
			Results: results,
		}},
	}
}

func mapSeverityToSARIF(sev string) string {
	switch strings.ToLower(strings.TrimSpace(sev)) {
	case model.SeverityCritical, model.SeverityHigh:
		return "error"
	case model.SeverityMedium:
		return "warning"
	case model.SeverityLow, model.SeverityInfo:
		return "note"
	default:
		return "note"
	}
}
