// Package detect hosts the pattern-detector framework: a registry of pure
// per-file scanners that consume the shared source model and maps and emit
// findings with deterministic fingerprints.
package detect

import (
	"strconv"

	"github.com/quantracode/VibeCheck-sub003/internal/model"
	"github.com/quantracode/VibeCheck-sub003/internal/source"
)

// Target bundles the read-only inputs every detector sees. Detectors must
// never mutate it.
type Target struct {
	Files      map[string]*source.File
	Routes     []model.RouteInfo
	Middleware []model.MiddlewareInfo
	Traces     map[string]model.ProofTrace
	Claims     []model.IntentClaim
}

// RoutesInFile returns the routes declared in the given file.
func (t *Target) RoutesInFile(path string) []model.RouteInfo {
	var out []model.RouteInfo
	for _, r := range t.Routes {
		if r.File == path {
			out = append(out, r)
		}
	}
	return out
}

// Trace returns the proof trace for a route id.
func (t *Target) Trace(routeID string) (model.ProofTrace, bool) {
	tr, ok := t.Traces[routeID]
	return tr, ok
}

// Detector is one pattern scanner. Scan is called once per parsed file and
// must be a pure function of its inputs: same target and file always yield
// the same findings, in the same order.
type Detector interface {
	RuleID() string
	Scan(t *Target, f *source.File) []model.Finding
}

// Fingerprint derives a finding's cross-run identity from the canonical
// tuple (ruleID, file, symbol, line) plus an optional discriminator. It is
// the identity contract consumed by waivers and regression diffing.
func Fingerprint(ruleID, file, symbol string, line int, extra ...string) string {
	parts := append([]string{"finding", ruleID, file, symbol, strconv.Itoa(line)}, extra...)
	return model.ShortHash(parts...)
}

// Finalize fills the derived fields every finding needs and guards the
// non-empty evidence invariant.
func Finalize(f model.Finding, symbol string, line int) (model.Finding, bool) {
	if len(f.Evidence) == 0 {
		return f, false
	}
	f.Fingerprint = Fingerprint(f.RuleID, f.Evidence[0].File, symbol, line)
	f.ID = f.RuleID + "-" + f.Fingerprint
	return f, true
}
