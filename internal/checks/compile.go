package checks

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/quantracode/VibeCheck-sub003/internal/detect"
	"github.com/quantracode/VibeCheck-sub003/internal/model"
	"github.com/quantracode/VibeCheck-sub003/internal/source"
)

// Compile turns a validated definition into a detector. Definitions must
// have passed Validate; Compile re-compiles regexes but treats failures as
// impossible and drops the matcher.
func Compile(def Definition) detect.Detector {
	d := &customRule{def: def}
	for _, m := range def.Match.Patterns {
		if m.Kind != MatcherRegex {
			continue
		}
		if re, err := regexp.Compile(m.Pattern); err == nil {
			d.regexes = append(d.regexes, compiledRegex{pattern: m.Pattern, re: re})
		}
	}
	return d
}

// CompileAll compiles every definition in order.
func CompileAll(defs []Definition) []detect.Detector {
	out := make([]detect.Detector, 0, len(defs))
	for _, def := range defs {
		out = append(out, Compile(def))
	}
	return out
}

type compiledRegex struct {
	pattern string
	re      *regexp.Regexp
}

type customRule struct {
	def     Definition
	regexes []compiledRegex
}

func (d *customRule) RuleID() string { return d.def.ID }

func (d *customRule) Scan(t *detect.Target, f *source.File) []model.Finding {
	if f == nil || !scopeAllows(f.Path, d.def.Scope) {
		return nil
	}
	if !d.contextAllows(t, f) {
		return nil
	}
	line, ok := d.contentMatch(f)
	if !ok {
		return nil
	}
	finding := model.Finding{
		RuleID:      d.def.ID,
		Title:       d.def.Title,
		Description: d.def.Description,
		Severity:    d.def.Severity,
		Confidence:  d.def.Confidence,
		Category:    d.def.Category,
		Remediation: d.def.Remediation,
		Evidence: []model.Evidence{{
			File:    f.Path,
			Line:    line,
			Snippet: strings.TrimSpace(f.Line(line)),
		}},
	}
	ff, ok := detect.Finalize(finding, d.def.ID, line)
	if !ok {
		return nil
	}
	return []model.Finding{ff}
}

// contentMatch applies the match block and returns the line of the first
// positive hit. not_contains matchers are conjunctive regardless of
// all_must_match: a forbidden string always vetoes the file.
func (d *customRule) contentMatch(f *source.File) (int, bool) {
	firstLine := 0
	positives := 0
	hits := 0
	for _, m := range d.def.Match.Patterns {
		switch m.Kind {
		case MatcherNotContains:
			if containsWithCase(f.Text, m.Pattern, m.CaseSensitive) >= 0 {
				return 0, false
			}
		case MatcherContains:
			positives++
			if off := containsWithCase(f.Text, m.Pattern, m.CaseSensitive); off >= 0 {
				hits++
				if firstLine == 0 {
					firstLine = f.LineForOffset(off)
				}
			} else if d.def.Match.AllMustMatch {
				return 0, false
			}
		case MatcherRegex:
			positives++
			if loc := d.regexLoc(m.Pattern, f.Text); loc >= 0 {
				hits++
				if firstLine == 0 {
					firstLine = f.LineForOffset(loc)
				}
			} else if d.def.Match.AllMustMatch {
				return 0, false
			}
		}
	}
	if positives == 0 {
		// Pure not_contains rules report at the top of the file.
		return 1, true
	}
	if hits == 0 {
		return 0, false
	}
	return firstLine, true
}

func (d *customRule) regexLoc(pattern, text string) int {
	for _, cr := range d.regexes {
		if cr.pattern == pattern {
			if loc := cr.re.FindStringIndex(text); loc != nil {
				return loc[0]
			}
			return -1
		}
	}
	return -1
}

func (d *customRule) contextAllows(t *detect.Target, f *source.File) bool {
	ctx := d.def.Context
	for _, imp := range ctx.RequireImports {
		if !f.HasImport(imp) {
			return false
		}
	}
	for _, imp := range ctx.ExcludeImports {
		if f.HasImport(imp) {
			return false
		}
	}
	for _, sub := range ctx.RequireFileContains {
		if !strings.Contains(f.Text, sub) {
			return false
		}
	}
	for _, sub := range ctx.ExcludeFileContains {
		if strings.Contains(f.Text, sub) {
			return false
		}
	}
	if len(ctx.Methods) > 0 {
		if t == nil || !hasMethod(t.RoutesInFile(f.Path), ctx.Methods) {
			return false
		}
	}
	return true
}

func hasMethod(routes []model.RouteInfo, methods []string) bool {
	for _, r := range routes {
		for _, m := range methods {
			if r.Method == m || r.Method == "ANY" {
				return true
			}
		}
	}
	return false
}

func containsWithCase(text, pattern string, caseSensitive bool) int {
	if caseSensitive {
		return strings.Index(text, pattern)
	}
	return strings.Index(strings.ToLower(text), strings.ToLower(pattern))
}

func scopeAllows(path string, scope Scope) bool {
	path = filepath.ToSlash(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	includes := scope.IncludeGlobs
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	includeMatch := false
	for _, glob := range includes {
		if globMatch(glob, path) {
			includeMatch = true
			break
		}
	}
	if !includeMatch {
		return false
	}
	for _, glob := range scope.ExcludeGlobs {
		if globMatch(glob, path) {
			return false
		}
	}
	return true
}

func globMatch(glob string, value string) bool {
	glob = strings.TrimSpace(glob)
	if glob == "" {
		return false
	}
	re, err := regexp.Compile(globToRegex(glob))
	if err != nil {
		return false
	}
	return re.MatchString(value)
}

func globToRegex(glob string) string {
	var b strings.Builder
	b.WriteString("^")
	r := []rune(filepath.ToSlash(glob))
	for i := 0; i < len(r); i++ {
		switch r[i] {
		case '*':
			if i+1 < len(r) && r[i+1] == '*' {
				if i+2 < len(r) && r[i+2] == '/' {
					b.WriteString("(?:.*/)?")
					i += 2
					continue
				}
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		case '.', '+', '(', ')', '[', ']', '{', '}', '^', '$', '|', '\\':
			b.WriteString("\\")
			b.WriteRune(r[i])
		default:
			b.WriteRune(r[i])
		}
	}
	b.WriteString("$")
	return b.String()
}
