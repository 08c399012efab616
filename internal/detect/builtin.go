package detect

import (
	"regexp"
	"strings"

	"github.com/quantracode/VibeCheck-sub003/internal/model"
	"github.com/quantracode/VibeCheck-sub003/internal/source"
)

// Builtins returns the built-in detector set. Each detector documents its
// two-signal condition: a single suspicious pattern is never enough on its
// own to emit a finding.
func Builtins() []Detector {
	return []Detector{
		unprotectedWriteRoute{},
		validationUnused{},
		corsWildcardCredentials{},
		claimUnproven{},
		middlewareGap{},
		hardcodedSecret{},
	}
}

// unprotectedWriteRoute fires when a state-changing route has neither an
// in-handler auth check nor middleware coverage (signal 1) AND its body
// performs a persistent write (signal 2).
type unprotectedWriteRoute struct{}

func (unprotectedWriteRoute) RuleID() string { return "VC-AUTH-001" }

var dbWriteRe = regexp.MustCompile(`\.(insert|create|update|delete|upsert|save|deleteMany|updateMany|createMany)\s*\(|INSERT\s+INTO|UPDATE\s+\w+\s+SET|DELETE\s+FROM`)

func (d unprotectedWriteRoute) Scan(t *Target, f *source.File) []model.Finding {
	var out []model.Finding
	for _, r := range t.RoutesInFile(f.Path) {
		if !model.StateChangingMethods[r.Method] && r.Method != "ANY" {
			continue
		}
		tr, ok := t.Trace(r.RouteID)
		if !ok || tr.AuthProven || tr.MiddlewareCovered {
			continue
		}
		body := bodyText(f, r)
		loc := dbWriteRe.FindStringIndex(body.text)
		if loc == nil {
			continue
		}
		line := f.LineForOffset(body.start + loc[0])
		finding := model.Finding{
			Severity:   model.SeverityHigh,
			Confidence: 0.9,
			Category:   "auth",
			RuleID:     d.RuleID(),
			Title:      "Unauthenticated state-changing route performs a write",
			Description: "The " + r.Method + " handler for " + r.Path + " writes to a data store, " +
				"but no authentication check was found in the handler and no middleware matcher covers the route.",
			Evidence: []model.Evidence{
				{File: f.Path, Line: r.StartLine, Snippet: f.Snippet(r.StartLine)},
				{File: f.Path, Line: line, Snippet: f.Snippet(line)},
			},
			Remediation: "Add a session or token check at the top of the handler, or extend the middleware matcher to cover " + r.Path + ".",
			Proof:       traceCopy(tr),
		}
		if ff, ok := Finalize(finding, r.Method, r.StartLine); ok {
			out = append(out, ff)
		}
	}
	return out
}

// validationUnused fires when a body-bearing route imports a schema
// validator (signal 1) AND the validation result is proven unused or the
// validator is never called (signal 2, from the proof trace).
type validationUnused struct{}

func (validationUnused) RuleID() string { return "VC-VAL-001" }

var validatorModules = []string{"zod", "joi", "yup", "valibot", "ajv", "superstruct", "class-validator"}

func (d validationUnused) Scan(t *Target, f *source.File) []model.Finding {
	hasValidator := false
	for _, m := range validatorModules {
		if f.HasImport(m) {
			hasValidator = true
			break
		}
	}
	if !hasValidator {
		return nil
	}

	var out []model.Finding
	for _, r := range t.RoutesInFile(f.Path) {
		if !model.BodyBearingMethods[r.Method] && r.Method != "ANY" {
			continue
		}
		tr, ok := t.Trace(r.RouteID)
		if !ok || tr.ValidationProven {
			continue
		}
		finding := model.Finding{
			Severity:   model.SeverityMedium,
			Confidence: 0.85,
			Category:   "input_validation",
			RuleID:     d.RuleID(),
			Title:      "Schema validator imported but request body is not validated",
			Description: "A validation library is imported in " + f.Path + ", but the " + r.Method +
				" handler for " + r.Path + " never uses a validation result on the request body.",
			Evidence: []model.Evidence{
				{File: f.Path, Line: r.StartLine, Snippet: f.Snippet(r.StartLine)},
			},
			Remediation: "Parse the request body through the schema and use the parsed result (or reject on failure) instead of the raw body.",
			Proof:       traceCopy(tr),
		}
		if ff, ok := Finalize(finding, r.Method, r.StartLine); ok {
			out = append(out, ff)
		}
	}
	return out
}

// corsWildcardCredentials fires only when a wildcard origin (signal 1)
// co-occurs with credentials enabled (signal 2). Either alone is legal.
type corsWildcardCredentials struct{}

func (corsWildcardCredentials) RuleID() string { return "VC-CORS-001" }

var (
	corsWildcardRe    = regexp.MustCompile(`(?i)Access-Control-Allow-Origin['"]?\s*[:,]\s*['"]\*['"]`)
	corsCredentialsRe = regexp.MustCompile(`(?i)Access-Control-Allow-Credentials['"]?\s*[:,]\s*['"]?true`)
)

func (d corsWildcardCredentials) Scan(t *Target, f *source.File) []model.Finding {
	wild := corsWildcardRe.FindStringIndex(f.Text)
	cred := corsCredentialsRe.FindStringIndex(f.Text)
	if wild == nil || cred == nil {
		return nil
	}
	wildLine := f.LineForOffset(wild[0])
	credLine := f.LineForOffset(cred[0])
	finding := model.Finding{
		Severity:   model.SeverityHigh,
		Confidence: 0.95,
		Category:   "cors",
		RuleID:     d.RuleID(),
		Title:      "CORS wildcard origin combined with credentials",
		Description: "Responses allow any origin while also allowing credentials. Browsers reject this combination " +
			"or, with reflected origins, it exposes authenticated responses to arbitrary sites.",
		Evidence: []model.Evidence{
			{File: f.Path, Line: wildLine, Snippet: f.Snippet(wildLine)},
			{File: f.Path, Line: credLine, Snippet: f.Snippet(credLine)},
		},
		Remediation: "Allow-list specific origins when credentials are required, or drop Access-Control-Allow-Credentials.",
	}
	if ff, ok := Finalize(finding, "cors", wildLine); ok {
		return []model.Finding{ff}
	}
	return nil
}

// claimUnproven fires when an intent claim targets a route (signal 1) AND
// the corresponding proof for that protection is refuted (signal 2).
type claimUnproven struct{}

func (claimUnproven) RuleID() string { return "VC-CLAIM-001" }

func (d claimUnproven) Scan(t *Target, f *source.File) []model.Finding {
	var out []model.Finding
	for i := range t.Claims {
		c := t.Claims[i]
		if c.File != f.Path || c.TargetRouteID == "" {
			continue
		}
		tr, ok := t.Trace(c.TargetRouteID)
		if !ok {
			continue
		}
		var proven bool
		switch c.Type {
		case model.ClaimAuthEnforced:
			proven = tr.AuthProven || tr.MiddlewareCovered
		case model.ClaimInputValidated:
			proven = tr.ValidationProven
		case model.ClaimMiddlewareProtected:
			proven = tr.MiddlewareCovered
		default:
			continue
		}
		if proven {
			continue
		}
		sev := model.SeverityMedium
		if c.Strength == model.StrengthStrong {
			sev = model.SeverityHigh
		}
		finding := model.Finding{
			Severity:   sev,
			Confidence: confidenceFor(c.Strength),
			Category:   "hallucinated_protection",
			RuleID:     d.RuleID(),
			Title:      "Claimed protection is not enforced",
			Description: "The source asserts \"" + c.TextEvidence + "\" (" + string(c.Type) + ") for this route, " +
				"but no enforcing code substantiates the claim.",
			Evidence: []model.Evidence{
				{File: c.File, Line: c.Line, Snippet: f.Snippet(c.Line)},
			},
			Remediation: "Implement the claimed protection or remove the misleading claim.",
			Claim:       claimCopy(c),
			Proof:       traceCopy(tr),
		}
		if ff, ok := Finalize(finding, string(c.Type), c.Line); ok {
			out = append(out, ff)
		}
	}
	return out
}

func confidenceFor(s model.ClaimStrength) float64 {
	switch s {
	case model.StrengthStrong:
		return 0.9
	case model.StrengthMedium:
		return 0.8
	default:
		return 0.6
	}
}

// middlewareGap fires when a middleware file exists (signal 1) AND its
// matchers exclude the API while API routes exist (signal 2).
type middlewareGap struct{}

func (middlewareGap) RuleID() string { return "VC-MW-001" }

func (d middlewareGap) Scan(t *Target, f *source.File) []model.Finding {
	var mw *model.MiddlewareInfo
	for i := range t.Middleware {
		if t.Middleware[i].File == f.Path {
			mw = &t.Middleware[i]
			break
		}
	}
	if mw == nil || mw.ProtectsAPI {
		return nil
	}
	apiRoutes := 0
	for _, r := range t.Routes {
		if strings.HasPrefix(r.Path, "/api") {
			apiRoutes++
		}
	}
	if apiRoutes == 0 {
		return nil
	}
	finding := model.Finding{
		Severity:   model.SeverityMedium,
		Confidence: 0.9,
		Category:   "middleware",
		RuleID:     d.RuleID(),
		Title:      "Middleware matcher excludes API routes",
		Description: "A middleware file exists but its matcher configuration does not cover the API segment, " +
			"leaving API routes outside any edge protection it provides.",
		Evidence: []model.Evidence{
			{File: f.Path, Line: mw.StartLine, Snippet: f.Snippet(mw.StartLine)},
		},
		Remediation: "Add an /api matcher (for example \"/api/:path*\") or confirm API routes enforce protections in-handler.",
	}
	if ff, ok := Finalize(finding, "matcher", mw.StartLine); ok {
		return []model.Finding{ff}
	}
	return nil
}

// hardcodedSecret fires when an identifier names a credential (signal 1)
// AND its literal value looks like real key material (signal 2).
type hardcodedSecret struct{}

func (hardcodedSecret) RuleID() string { return "VC-SEC-001" }

var (
	secretNameRe  = regexp.MustCompile(`(?i)(secret|api[_-]?key|private[_-]?key|password|access[_-]?token)`)
	secretValueRe = regexp.MustCompile(`^[A-Za-z0-9+/=_\-.]{16,}$`)
)

func (d hardcodedSecret) Scan(t *Target, f *source.File) []model.Finding {
	var out []model.Finding
	for _, decl := range f.Declarations() {
		if decl.Kind != "variable" || !secretNameRe.MatchString(decl.Name) {
			continue
		}
		text := f.Text[decl.StartByte:decl.EndByte]
		eq := strings.Index(text, "=")
		if eq < 0 {
			continue
		}
		value := strings.TrimSpace(text[eq+1:])
		value = strings.Trim(value, "'\"`;")
		if strings.Contains(value, "process.env") || strings.Contains(value, "(") {
			continue
		}
		if !secretValueRe.MatchString(value) {
			continue
		}
		finding := model.Finding{
			Severity:   model.SeverityCritical,
			Confidence: 0.8,
			Category:   "secrets",
			RuleID:     d.RuleID(),
			Title:      "Hardcoded credential in source",
			Description: "The variable " + decl.Name + " is assigned a literal value that looks like key material. " +
				"Anything committed to the repository must be treated as compromised.",
			Evidence: []model.Evidence{
				{File: f.Path, Line: decl.StartLine, Snippet: redactSnippet(f.Snippet(decl.StartLine))},
			},
			Remediation: "Move the value to an environment variable or secret manager and rotate the exposed credential.",
		}
		if ff, ok := Finalize(finding, decl.Name, decl.StartLine); ok {
			out = append(out, ff)
		}
	}
	return out
}

// redactSnippet keeps the shape of an assignment while masking the value.
func redactSnippet(s string) string {
	eq := strings.Index(s, "=")
	if eq < 0 {
		return s
	}
	return strings.TrimSpace(s[:eq+1]) + " \"****\""
}

type bodySlice struct {
	text  string
	start int
}

func bodyText(f *source.File, r model.RouteInfo) bodySlice {
	for _, d := range f.Declarations() {
		if d.StartLine == r.StartLine && d.EndLine == r.EndLine {
			return bodySlice{text: f.Text[d.StartByte:d.EndByte], start: d.StartByte}
		}
	}
	return bodySlice{text: f.Text, start: 0}
}

func traceCopy(tr model.ProofTrace) *model.ProofTrace {
	cp := tr
	cp.Steps = append([]model.ProofTraceStep{}, tr.Steps...)
	return &cp
}

func claimCopy(c model.IntentClaim) *model.IntentClaim {
	cp := c
	return &cp
}
