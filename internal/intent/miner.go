// Package intent mines source files for claims that a protection exists:
// comments, imports, and identifiers that assert auth, validation, CSRF,
// rate limiting, or encryption without necessarily implementing it.
package intent

import (
	"strconv"

	"github.com/quantracode/VibeCheck-sub003/internal/model"
	"github.com/quantracode/VibeCheck-sub003/internal/routes"
	"github.com/quantracode/VibeCheck-sub003/internal/source"
)

const evidencePrefixLen = 64

// IntentID derives the dedup identity of a claim.
func IntentID(claimType model.ClaimType, file string, line int, evidence string) string {
	if len(evidence) > evidencePrefixLen {
		evidence = evidence[:evidencePrefixLen]
	}
	return model.ShortHash("intent", string(claimType), file, strconv.Itoa(line), evidence)
}

// Mine extracts deduplicated intent claims from the given files and
// associates them to routes where possible. First-seen wins on duplicate
// intent IDs.
func Mine(files []*source.File, routeList []model.RouteInfo) []model.IntentClaim {
	seen := map[string]bool{}
	var out []model.IntentClaim

	add := func(c model.IntentClaim) {
		if seen[c.IntentID] {
			return
		}
		seen[c.IntentID] = true
		out = append(out, c)
	}

	for _, f := range files {
		fileRoutes := routes.FindRoutesInFile(routeList, f.Path)

		for _, c := range f.Comments() {
			rule := matchComment(c.Text)
			if rule == nil {
				continue
			}
			claim := model.IntentClaim{
				IntentID:     IntentID(rule.claim, f.Path, c.Line, c.Text),
				Type:         rule.claim,
				Scope:        inferScope(c.Text),
				Source:       model.SourceComment,
				File:         f.Path,
				Line:         c.Line,
				Strength:     rule.strength,
				TextEvidence: c.Text,
			}
			claim.TargetRouteID = associate(fileRoutes, c.Line)
			add(claim)
		}

		for _, imp := range f.Imports() {
			claimType, ok := matchImport(imp.Module)
			if !ok {
				continue
			}
			claim := model.IntentClaim{
				IntentID:     IntentID(claimType, f.Path, imp.Line, imp.Module),
				Type:         claimType,
				Scope:        model.ScopeModule,
				Source:       model.SourceImport,
				File:         f.Path,
				Line:         imp.Line,
				Strength:     model.StrengthWeak,
				TextEvidence: imp.Module,
			}
			claim.TargetRouteID = associate(fileRoutes, imp.Line)
			add(claim)
		}

		for _, d := range f.Declarations() {
			rule := matchComment(identifierWords(d.Name))
			if rule == nil {
				continue
			}
			claim := model.IntentClaim{
				IntentID:     IntentID(rule.claim, f.Path, d.StartLine, d.Name),
				Type:         rule.claim,
				Scope:        model.ScopeRoute,
				Source:       model.SourceIdentifier,
				File:         f.Path,
				Line:         d.StartLine,
				Strength:     rule.strength,
				TextEvidence: d.Name,
			}
			claim.TargetRouteID = associate(fileRoutes, d.StartLine)
			add(claim)
		}
	}
	return out
}

// associate picks the route a claim refers to: the only route in the file,
// the route whose line range contains the claim, or the nearest following
// route by start line. Returns "" when the file has no routes.
func associate(fileRoutes []model.RouteInfo, line int) string {
	switch len(fileRoutes) {
	case 0:
		return ""
	case 1:
		return fileRoutes[0].RouteID
	}
	for _, r := range fileRoutes {
		if line >= r.StartLine && line <= r.EndLine {
			return r.RouteID
		}
	}
	// fileRoutes is sorted by start line; take the nearest following route.
	for _, r := range fileRoutes {
		if r.StartLine >= line {
			return r.RouteID
		}
	}
	return ""
}

// identifierWords splits camelCase and snake_case identifiers into words so
// the comment rule table applies to names like requireAuth or validate_input.
func identifierWords(name string) string {
	var out []rune
	for i, r := range name {
		if r == '_' || r == '-' {
			out = append(out, ' ')
			continue
		}
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := rune(name[i-1])
			if prev >= 'a' && prev <= 'z' {
				out = append(out, ' ')
			}
		}
		out = append(out, r)
	}
	return string(out)
}
