package intent

import (
	"regexp"

	"github.com/quantracode/VibeCheck-sub003/internal/model"
)

// commentRule maps free-text claim language to a claim type. Rules are
// evaluated top to bottom; the first match wins and yields exactly one
// claim per comment or identifier.
type commentRule struct {
	re       *regexp.Regexp
	claim    model.ClaimType
	strength model.ClaimStrength
}

var commentRules = []commentRule{
	{regexp.MustCompile(`(?i)\bauth(entication|orization)?\s+(is\s+)?(enforced|required|checked|verified)\b`), model.ClaimAuthEnforced, model.StrengthStrong},
	{regexp.MustCompile(`(?i)\b(requires?|needs?)\s+(auth|login|session|authentication)\b`), model.ClaimAuthEnforced, model.StrengthMedium},
	{regexp.MustCompile(`(?i)\bprotected\s+(route|endpoint|api|by\s+middleware)\b`), model.ClaimMiddlewareProtected, model.StrengthMedium},
	{regexp.MustCompile(`(?i)\bmiddleware\s+(protects|guards|covers)\b`), model.ClaimMiddlewareProtected, model.StrengthMedium},
	{regexp.MustCompile(`(?i)\b(input|body|payload|request)\s+(is\s+)?(validated|sanitized|checked)\b`), model.ClaimInputValidated, model.StrengthStrong},
	{regexp.MustCompile(`(?i)\bvalidat(es?|ion)\b.*\b(schema|input|body|payload)\b`), model.ClaimInputValidated, model.StrengthMedium},
	{regexp.MustCompile(`(?i)\bcsrf\s+(protection|token|enabled|guard)\b`), model.ClaimCSRFEnabled, model.StrengthMedium},
	{regexp.MustCompile(`(?i)\brate[\s-]?limit(ed|ing|er)?\b`), model.ClaimRateLimited, model.StrengthMedium},
	{regexp.MustCompile(`(?i)\bencrypt(ed|ion)\s+(at\s+rest|in\s+storage|before\s+sav)`), model.ClaimEncryptedAtRest, model.StrengthMedium},
	{regexp.MustCompile(`(?i)\b(secure|security|safe(ly)?|hardened)\b`), model.ClaimOther, model.StrengthWeak},
}

// importRule maps a module name pattern to the protection its presence claims.
type importRule struct {
	re    *regexp.Regexp
	claim model.ClaimType
}

var importRules = []importRule{
	{regexp.MustCompile(`(?i)^(next-auth|@auth/|@clerk/|@supabase/auth|passport|jsonwebtoken|jose$|iron-session|lucia)`), model.ClaimAuthEnforced},
	{regexp.MustCompile(`(?i)^(zod|joi|yup|valibot|ajv|class-validator|superstruct)$`), model.ClaimInputValidated},
	{regexp.MustCompile(`(?i)^(csurf|csrf|edge-csrf|@edge-csrf/)`), model.ClaimCSRFEnabled},
	{regexp.MustCompile(`(?i)(rate-limit|ratelimit|@upstash/ratelimit|limiter)`), model.ClaimRateLimited},
	{regexp.MustCompile(`(?i)^(crypto-js|bcrypt|bcryptjs|argon2|@noble/ciphers)`), model.ClaimEncryptedAtRest},
}

// Scope hints, checked against the text surrounding a claim.
var (
	scopeRouteRe  = regexp.MustCompile(`(?i)\bthis\s+(route|endpoint|handler)\b`)
	scopeModuleRe = regexp.MustCompile(`(?i)\bthis\s+(file|module)\b`)
	scopeGlobalRe = regexp.MustCompile(`(?i)\b(all\s+routes|every\s+route|globally|app[\s-]?wide)\b`)
)

func inferScope(text string) model.ClaimScope {
	switch {
	case scopeGlobalRe.MatchString(text):
		return model.ScopeGlobal
	case scopeModuleRe.MatchString(text):
		return model.ScopeModule
	case scopeRouteRe.MatchString(text):
		return model.ScopeRoute
	default:
		return model.ScopeRoute
	}
}

// matchComment returns the first matching comment rule, or nil.
func matchComment(text string) *commentRule {
	for i := range commentRules {
		if commentRules[i].re.MatchString(text) {
			return &commentRules[i]
		}
	}
	return nil
}

// matchImport returns the claim type asserted by a module import, or "".
func matchImport(module string) (model.ClaimType, bool) {
	for i := range importRules {
		if importRules[i].re.MatchString(module) {
			return importRules[i].claim, true
		}
	}
	return "", false
}
