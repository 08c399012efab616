// Package redact masks secret material in evidence snippets before they are
// persisted to artifacts or rendered in reports. Findings cite code verbatim,
// so a snippet that flags a hardcoded credential must not re-leak it.
package redact

import "regexp"

var (
	privateKeyPattern = regexp.MustCompile(`-----BEGIN [A-Z0-9 ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z0-9 ]*PRIVATE KEY-----`)
	bearerPattern     = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._~+/=-]{8,}`)
	tokenAssign       = regexp.MustCompile(`(?i)\b(api[_-]?key|apikey|secret|token|password|passwd|pwd)\b(\s*[:=]\s*)(["']?)([A-Za-z0-9._~+/=-]{8,})(["']?)`)
	awsAccessKey      = regexp.MustCompile(`\b(A3T|AKIA|ASIA|AGPA|AIDA|ANPA|ANVA|AROA|AIPA)[0-9A-Z]{16}\b`)
	githubToken       = regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{20,}\b`)
	stripeKey         = regexp.MustCompile(`\b[sr]k_(live|test)_[A-Za-z0-9]{8,}\b`)
	jwtPattern        = regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\b`)
)

// Snippet masks common secret/token patterns in a single evidence snippet.
func Snippet(in string) string {
	out := in
	out = privateKeyPattern.ReplaceAllString(out, "[REDACTED PRIVATE KEY]")
	out = bearerPattern.ReplaceAllString(out, "Bearer [REDACTED]")
	out = stripeKey.ReplaceAllString(out, "[REDACTED_KEY]")
	out = jwtPattern.ReplaceAllString(out, "[REDACTED_JWT]")
	out = tokenAssign.ReplaceAllString(out, `${1}${2}${3}[REDACTED]${5}`)
	out = awsAccessKey.ReplaceAllString(out, "[REDACTED_AWS_ACCESS_KEY]")
	out = githubToken.ReplaceAllString(out, "[REDACTED_GITHUB_TOKEN]")
	return out
}
