package routes

import (
	"regexp"
	"strings"

	"github.com/quantracode/VibeCheck-sub003/internal/model"
	"github.com/quantracode/VibeCheck-sub003/internal/source"
)

const apiRoot = "/api"

// ParseMiddleware extracts matcher configuration from an edge-middleware
// file. An absent matcher config means the middleware runs on everything
// non-static, so ProtectsAPI defaults to true in that case.
func ParseMiddleware(f *source.File) model.MiddlewareInfo {
	info := model.MiddlewareInfo{File: f.Path, StartLine: 1}

	for _, pair := range f.FindKind("pair") {
		text := strings.TrimSpace(f.NodeText(pair))
		if !strings.HasPrefix(text, "matcher") {
			continue
		}
		info.StartLine = pair.StartLine
		// An explicit matcher config with no entries is not the same as an
		// absent one: it constrains the middleware away from everything.
		info.Matchers = []string{}
		for _, str := range f.FindNodes(func(n source.Node) bool {
			return n.Kind == "string" && n.StartByte >= pair.StartByte && n.EndByte <= pair.EndByte
		}) {
			raw := strings.Trim(f.NodeText(str), "'\"`")
			if raw != "" {
				info.Matchers = append(info.Matchers, raw)
			}
		}
		break
	}

	if info.Matchers == nil {
		// No matcher config: permissive default, middleware covers all
		// non-static paths including the API.
		info.ProtectsAPI = true
		return info
	}
	info.ProtectsAPI = MatcherCoversAPI(info.Matchers)
	return info
}

// IsMiddlewareFile reports whether a path is an edge-middleware module.
func IsMiddlewareFile(p string) bool {
	p = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(p)), "./")
	p = strings.TrimPrefix(p, "src/")
	base := stripExt(p)
	return base == "middleware"
}

// MatcherCoversAPI reports whether any matcher pattern covers the API root.
// Pure and order-independent. An empty matcher list does not cover (the
// middleware explicitly constrained itself away from everything).
func MatcherCoversAPI(matchers []string) bool {
	for _, m := range matchers {
		if matcherCovers(m) {
			return true
		}
	}
	return false
}

func matcherCovers(m string) bool {
	m = strings.TrimSpace(m)
	if m == "" {
		return false
	}
	if m == apiRoot || strings.HasPrefix(m, apiRoot+"/") {
		return true
	}
	// Catch-all single-segment wildcard at the root, e.g. "/:path*".
	if catchAllPattern.MatchString(m) {
		return true
	}
	// Negative-lookahead exclusion, e.g. "/((?!_next/static|favicon.ico).*)".
	// Covers the API unless "api" is one of the excluded alternatives.
	if excl := lookaheadExclusions(m); excl != nil {
		for _, e := range excl {
			e = strings.Trim(strings.TrimSpace(e), "/")
			if e == "api" || strings.HasPrefix(e, "api/") {
				return false
			}
		}
		return true
	}
	return false
}

var catchAllPattern = regexp.MustCompile(`^/:[A-Za-z_][A-Za-z0-9_]*\*$`)

var lookaheadRe = regexp.MustCompile(`\(\?\!([^)]*)\)`)

// lookaheadExclusions returns the alternatives inside a (?!...) group, or nil
// when the pattern has no negative lookahead.
func lookaheadExclusions(m string) []string {
	sub := lookaheadRe.FindStringSubmatch(m)
	if sub == nil {
		return nil
	}
	return strings.Split(sub[1], "|")
}

// Predicate converts a matcher list into a path-matching function. Dynamic
// segments in the probed route path are normalized to a placeholder segment
// before matching. Matchers with no valid regex translation fall back to a
// literal-prefix test.
func Predicate(matchers []string) func(routePath string) bool {
	if matchers == nil {
		// Absent config: everything non-static is covered.
		return func(routePath string) bool {
			return !strings.HasPrefix(routePath, "/_next/") && !strings.HasPrefix(routePath, "/static/")
		}
	}

	type compiled struct {
		re         *regexp.Regexp
		exclusions []string
		prefix     string
	}
	items := make([]compiled, 0, len(matchers))
	for _, m := range matchers {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if excl := lookaheadExclusions(m); excl != nil {
			items = append(items, compiled{exclusions: excl})
			continue
		}
		// Dynamic-segment conversion is attempted first; the literal-prefix
		// fallback applies only when the translated regex fails to compile.
		if re, err := regexp.Compile(matcherToRegex(m)); err == nil {
			items = append(items, compiled{re: re})
		} else {
			items = append(items, compiled{prefix: literalPrefix(m)})
		}
	}

	return func(routePath string) bool {
		probe := NormalizePath(routePath)
		for _, it := range items {
			switch {
			case it.re != nil:
				if it.re.MatchString(probe) {
					return true
				}
			case it.exclusions != nil:
				excluded := false
				for _, e := range it.exclusions {
					e = "/" + strings.Trim(strings.TrimSpace(e), "/")
					if e != "/" && strings.HasPrefix(probe, e) {
						excluded = true
						break
					}
				}
				if !excluded {
					return true
				}
			case it.prefix != "":
				if strings.HasPrefix(probe, it.prefix) {
					return true
				}
			}
		}
		return false
	}
}

// NormalizePath replaces dynamic route segments ([id], [...slug]) with a
// stable placeholder so matcher patterns can be applied to them.
func NormalizePath(routePath string) string {
	segs := strings.Split(routePath, "/")
	for i, s := range segs {
		if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
			segs[i] = "_dynamic_"
		}
	}
	return strings.Join(segs, "/")
}

// matcherToRegex translates Next-style matcher syntax into a Go regexp.
// ":name*" matches zero or more segments, ":name+" one or more, ":name" one.
func matcherToRegex(m string) string {
	var b strings.Builder
	b.WriteString("^")
	i := 0
	for i < len(m) {
		c := m[i]
		if c == ':' {
			j := i + 1
			for j < len(m) && (isWordByte(m[j])) {
				j++
			}
			switch {
			case j < len(m) && m[j] == '*':
				b.WriteString(".*")
				j++
			case j < len(m) && m[j] == '+':
				b.WriteString(".+")
				j++
			default:
				b.WriteString("[^/]+")
			}
			i = j
			continue
		}
		switch c {
		// Group syntax passes through: Next matchers may embed regex groups
		// like /api/(admin|user)/:id. Everything else is literal.
		case '.', '+', '[', ']', '{', '}', '^', '$', '\\', '*', '?':
			b.WriteByte('\\')
		}
		b.WriteByte(c)
		i++
	}
	b.WriteString("$")
	return b.String()
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// literalPrefix returns the leading literal portion of a matcher pattern,
// up to the first pattern metacharacter.
func literalPrefix(m string) string {
	for i := 0; i < len(m); i++ {
		switch m[i] {
		case ':', '*', '(', '[', '?', '+':
			return m[:i]
		}
	}
	return m
}

// Covered reports whether any middleware's matcher set covers the route path.
func Covered(middleware []model.MiddlewareInfo, routePath string) (model.MiddlewareInfo, bool) {
	for _, mw := range middleware {
		if Predicate(mw.Matchers)(routePath) {
			return mw, true
		}
	}
	return model.MiddlewareInfo{}, false
}
