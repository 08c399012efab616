package checks

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quantracode/VibeCheck-sub003/internal/logging"
	"github.com/quantracode/VibeCheck-sub003/internal/model"
)

// LoadResult reports what a directory load produced. Rules with invalid
// definitions are skipped, not fatal, so a single bad file cannot take the
// whole scan down.
type LoadResult struct {
	Definitions []Definition
	Skipped     int
}

// LoadDir reads every .yaml/.yml file in dir and returns the valid
// definitions sorted by ID. A missing directory yields an empty result.
func LoadDir(dir string) (LoadResult, error) {
	var res LoadResult
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return res, nil
		}
		return res, fmt.Errorf("read checks dir: %w", err)
	}
	log := logging.New("checks")
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return res, fmt.Errorf("read %s: %w", path, err)
		}
		var def Definition
		if err := yaml.Unmarshal(data, &def); err != nil {
			log.Warn("skipping check with invalid yaml", "file", e.Name(), "error", err)
			res.Skipped++
			continue
		}
		normalize(&def)
		if err := Validate(def); err != nil {
			log.Warn("skipping invalid check", "file", e.Name(), "error", err)
			res.Skipped++
			continue
		}
		res.Definitions = append(res.Definitions, def)
	}
	sort.Slice(res.Definitions, func(i, j int) bool {
		return res.Definitions[i].ID < res.Definitions[j].ID
	})
	return res, nil
}

func normalize(def *Definition) {
	def.ID = strings.TrimSpace(def.ID)
	def.Title = strings.TrimSpace(def.Title)
	def.Severity = strings.ToLower(strings.TrimSpace(def.Severity))
	if def.Severity == "" {
		def.Severity = model.SeverityMedium
	}
	if def.Confidence <= 0 || def.Confidence > 1 {
		def.Confidence = 0.7
	}
	for i := range def.Match.Patterns {
		def.Match.Patterns[i].Kind = MatcherKind(strings.ToLower(strings.TrimSpace(string(def.Match.Patterns[i].Kind))))
	}
	for i, m := range def.Context.Methods {
		def.Context.Methods[i] = strings.ToUpper(strings.TrimSpace(m))
	}
}

var idRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// Validate rejects definitions that could not be compiled into a working
// detector. Regex patterns are compiled here so bad ones surface at load
// time instead of mid-scan.
func Validate(def Definition) error {
	if def.APIVersion != APIVersion {
		return fmt.Errorf("unsupported api_version %q", def.APIVersion)
	}
	if def.ID == "" || !idRe.MatchString(def.ID) {
		return fmt.Errorf("invalid rule id %q", def.ID)
	}
	if def.Title == "" {
		return fmt.Errorf("rule %s: title is required", def.ID)
	}
	if !model.IsValidSeverity(def.Severity) {
		return fmt.Errorf("rule %s: unknown severity %q", def.ID, def.Severity)
	}
	if len(def.Match.Patterns) == 0 {
		return fmt.Errorf("rule %s: at least one match pattern is required", def.ID)
	}
	for _, m := range def.Match.Patterns {
		switch m.Kind {
		case MatcherContains, MatcherNotContains:
			if m.Pattern == "" {
				return fmt.Errorf("rule %s: empty %s pattern", def.ID, m.Kind)
			}
		case MatcherRegex:
			if _, err := regexp.Compile(m.Pattern); err != nil {
				return fmt.Errorf("rule %s: invalid regex %q: %v", def.ID, m.Pattern, err)
			}
		default:
			return fmt.Errorf("rule %s: unknown matcher kind %q", def.ID, m.Kind)
		}
	}
	for _, g := range append(append([]string{}, def.Scope.IncludeGlobs...), def.Scope.ExcludeGlobs...) {
		if strings.TrimSpace(g) == "" {
			return fmt.Errorf("rule %s: empty scope glob", def.ID)
		}
	}
	return nil
}
