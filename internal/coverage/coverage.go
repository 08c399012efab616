// Package coverage aggregates proof traces into per-protection ratios.
package coverage

import (
	"github.com/quantracode/VibeCheck-sub003/internal/model"
)

// Calculate derives coverage metrics from routes and their proof traces.
// A denominator of zero yields full coverage (vacuous truth), never NaN.
func Calculate(routeList []model.RouteInfo, traces []model.ProofTrace) model.CoverageMetrics {
	byRoute := make(map[string]model.ProofTrace, len(traces))
	for _, tr := range traces {
		byRoute[tr.RouteID] = tr
	}

	var stateChanging, authOK int
	var bodyBearing, validationOK int
	var covered int

	for _, r := range routeList {
		tr := byRoute[r.RouteID]
		if tr.MiddlewareCovered {
			covered++
		}
		if isStateChanging(r.Method) {
			stateChanging++
			if tr.AuthProven || tr.MiddlewareCovered {
				authOK++
			}
		}
		if hasRequestBody(r.Method) {
			bodyBearing++
			if tr.ValidationProven {
				validationOK++
			}
		}
	}

	return model.CoverageMetrics{
		AuthCoverage:       ratio(authOK, stateChanging),
		ValidationCoverage: ratio(validationOK, bodyBearing),
		MiddlewareCoverage: ratio(covered, len(routeList)),
	}
}

func isStateChanging(method string) bool {
	return model.StateChangingMethods[method] || method == "ANY"
}

func hasRequestBody(method string) bool {
	return model.BodyBearingMethods[method] || method == "ANY"
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 1.0
	}
	return float64(num) / float64(den)
}
