package detect

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/quantracode/VibeCheck-sub003/internal/model"
	"github.com/quantracode/VibeCheck-sub003/internal/proof"
	"github.com/quantracode/VibeCheck-sub003/internal/routes"
	"github.com/quantracode/VibeCheck-sub003/internal/source"
)

func parseFile(t *testing.T, path, src string) *source.File {
	t.Helper()
	f := source.NewProvider().Parse(context.Background(), path, []byte(src))
	if f == nil {
		t.Fatalf("failed to parse fixture %s", path)
	}
	return f
}

// targetFor runs the discovery pipeline over the fixtures so detector tests
// see the same maps a real scan produces.
func targetFor(t *testing.T, files map[string]string, middleware []model.MiddlewareInfo) *Target {
	t.Helper()
	parsed := make(map[string]*source.File, len(files))
	var list []*source.File
	for path, src := range files {
		f := parseFile(t, path, src)
		parsed[path] = f
		list = append(list, f)
	}
	routeList := routes.DetectRoutes(list)
	traces := make(map[string]model.ProofTrace)
	for _, tr := range proof.BuildAll(routeList, middleware, parsed) {
		traces[tr.RouteID] = tr
	}
	return &Target{
		Files:      parsed,
		Routes:     routeList,
		Middleware: middleware,
		Traces:     traces,
	}
}

func runDetector(d Detector, tgt *Target) []model.Finding {
	paths := make([]string, 0, len(tgt.Files))
	for p := range tgt.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	var out []model.Finding
	for _, p := range paths {
		out = append(out, d.Scan(tgt, tgt.Files[p])...)
	}
	return out
}

const unauthWriteRoute = `import { db } from "@/lib/db";

export async function POST(req: Request) {
  const body = await req.json();
  const order = await db.orders.create({ data: body });
  return Response.json(order);
}
`

const authWriteRoute = `import { getServerSession } from "next-auth";
import { db } from "@/lib/db";

export async function POST(req: Request) {
  const session = await getServerSession();
  if (!session) {
    return new Response("unauthorized", { status: 401 });
  }
  const body = await req.json();
  return Response.json(await db.orders.create({ data: body }));
}
`

func TestUnprotectedWriteRoute(t *testing.T) {
	tgt := targetFor(t, map[string]string{
		"app/api/orders/route.ts": unauthWriteRoute,
	}, nil)

	if len(tgt.Routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(tgt.Routes))
	}
	route := tgt.Routes[0]
	tr := tgt.Traces[route.RouteID]
	if tr.AuthProven {
		t.Fatal("auth should not be proven for unauthenticated handler")
	}
	if tr.MiddlewareCovered {
		t.Fatal("middleware should not cover route with no middleware present")
	}

	findings := runDetector(unprotectedWriteRoute{}, tgt)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	f := findings[0]
	if f.RuleID != "VC-AUTH-001" {
		t.Fatalf("rule id = %s", f.RuleID)
	}
	if f.Severity != model.SeverityHigh && f.Severity != model.SeverityCritical {
		t.Fatalf("severity = %s, want high or critical", f.Severity)
	}
	if len(f.Evidence) == 0 {
		t.Fatal("finding has no evidence")
	}
	for _, ev := range f.Evidence {
		if ev.File != route.File {
			t.Fatalf("evidence file = %s, want %s", ev.File, route.File)
		}
		if ev.Line < route.StartLine || ev.Line > route.EndLine {
			t.Fatalf("evidence line %d outside handler range [%d,%d]", ev.Line, route.StartLine, route.EndLine)
		}
	}
	if f.Fingerprint == "" || f.ID == "" {
		t.Fatal("finding identity not set")
	}
}

func TestUnprotectedWriteRouteSuppressedByAuth(t *testing.T) {
	tgt := targetFor(t, map[string]string{
		"app/api/orders/route.ts": authWriteRoute,
	}, nil)
	if findings := runDetector(unprotectedWriteRoute{}, tgt); len(findings) != 0 {
		t.Fatalf("authenticated handler still flagged: %+v", findings)
	}
}

func TestUnprotectedWriteRouteSuppressedByMiddleware(t *testing.T) {
	mw := []model.MiddlewareInfo{{
		File:        "middleware.ts",
		Matchers:    []string{"/api/:path*"},
		ProtectsAPI: true,
		StartLine:   1,
	}}
	tgt := targetFor(t, map[string]string{
		"app/api/orders/route.ts": unauthWriteRoute,
	}, mw)
	if findings := runDetector(unprotectedWriteRoute{}, tgt); len(findings) != 0 {
		t.Fatalf("middleware-covered handler still flagged: %+v", findings)
	}
}

const unusedValidatorRoute = `import { z } from "zod";

const schema = z.object({ name: z.string() });

export async function POST(req: Request) {
  const raw = await req.json();
  schema.parse(raw);
  return Response.json(raw);
}
`

const usedValidatorRoute = `import { z } from "zod";

const schema = z.object({ name: z.string() });

export async function POST(req: Request) {
  const raw = await req.json();
  const data = schema.parse(raw);
  return Response.json(data);
}
`

func TestValidationUnused(t *testing.T) {
	tgt := targetFor(t, map[string]string{
		"app/api/users/route.ts": unusedValidatorRoute,
	}, nil)
	findings := runDetector(validationUnused{}, tgt)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	if findings[0].RuleID != "VC-VAL-001" {
		t.Fatalf("rule id = %s", findings[0].RuleID)
	}
	if findings[0].Proof == nil {
		t.Fatal("finding should carry the refuting proof trace")
	}
}

func TestValidationUsedNotFlagged(t *testing.T) {
	tgt := targetFor(t, map[string]string{
		"app/api/users/route.ts": usedValidatorRoute,
	}, nil)
	if findings := runDetector(validationUnused{}, tgt); len(findings) != 0 {
		t.Fatalf("validated handler still flagged: %+v", findings)
	}
}

func TestCORSWildcardWithCredentials(t *testing.T) {
	src := `export function middleware(req) {
  const res = new Response();
  res.headers.set("Access-Control-Allow-Origin", "*");
  res.headers.set("Access-Control-Allow-Credentials", "true");
  return res;
}
`
	tgt := targetFor(t, map[string]string{"middleware.ts": src}, nil)
	findings := runDetector(corsWildcardCredentials{}, tgt)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	f := findings[0]
	if f.RuleID != "VC-CORS-001" || f.Severity != model.SeverityHigh {
		t.Fatalf("unexpected finding: rule=%s severity=%s", f.RuleID, f.Severity)
	}
	if len(f.Evidence) != 2 {
		t.Fatalf("expected evidence for both headers, got %d", len(f.Evidence))
	}
}

func TestCORSWildcardAloneNotFlagged(t *testing.T) {
	src := `export function handler(req, res) {
  res.setHeader("Access-Control-Allow-Origin", "*");
  res.end();
}
`
	tgt := targetFor(t, map[string]string{"pages/api/ping.ts": src}, nil)
	if findings := runDetector(corsWildcardCredentials{}, tgt); len(findings) != 0 {
		t.Fatalf("wildcard without credentials flagged: %+v", findings)
	}
}

func TestClaimUnproven(t *testing.T) {
	src := `// Auth is enforced for this route
export async function POST(req: Request) {
  return Response.json({ ok: true });
}
`
	f := parseFile(t, "app/api/items/route.ts", src)
	routeID := routes.RouteID("app/api/items/route.ts", "POST", "/api/items")
	tgt := &Target{
		Files: map[string]*source.File{f.Path: f},
		Traces: map[string]model.ProofTrace{
			routeID: {RouteID: routeID},
		},
		Claims: []model.IntentClaim{{
			IntentID:      "abc",
			Type:          model.ClaimAuthEnforced,
			Scope:         model.ScopeRoute,
			TargetRouteID: routeID,
			Source:        model.SourceComment,
			File:          f.Path,
			Line:          1,
			Strength:      model.StrengthStrong,
			TextEvidence:  "Auth is enforced for this route",
		}},
	}
	findings := runDetector(claimUnproven{}, tgt)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	got := findings[0]
	if got.RuleID != "VC-CLAIM-001" {
		t.Fatalf("rule id = %s", got.RuleID)
	}
	if got.Severity != model.SeverityHigh {
		t.Fatalf("strong claim should escalate to high, got %s", got.Severity)
	}
	if got.Claim == nil || got.Claim.TextEvidence == "" {
		t.Fatal("finding should carry the mined claim")
	}
}

func TestClaimProvenNotFlagged(t *testing.T) {
	f := parseFile(t, "app/api/items/route.ts", "export async function POST() { return null; }\n")
	routeID := routes.RouteID("app/api/items/route.ts", "POST", "/api/items")
	tgt := &Target{
		Files: map[string]*source.File{f.Path: f},
		Traces: map[string]model.ProofTrace{
			routeID: {RouteID: routeID, AuthProven: true},
		},
		Claims: []model.IntentClaim{{
			Type:          model.ClaimAuthEnforced,
			TargetRouteID: routeID,
			File:          f.Path,
			Line:          1,
			Strength:      model.StrengthStrong,
			TextEvidence:  "auth enforced",
		}},
	}
	if findings := runDetector(claimUnproven{}, tgt); len(findings) != 0 {
		t.Fatalf("proven claim flagged: %+v", findings)
	}
}

func TestMiddlewareGap(t *testing.T) {
	mwSrc := `export function middleware(req) {}

export const config = {
  matcher: ["/dashboard/:path*"],
};
`
	f := parseFile(t, "middleware.ts", mwSrc)
	tgt := &Target{
		Files: map[string]*source.File{f.Path: f},
		Routes: []model.RouteInfo{{
			RouteID: "r1", Method: "GET", Path: "/api/users", File: "app/api/users/route.ts",
		}},
		Middleware: []model.MiddlewareInfo{{
			File:      "middleware.ts",
			Matchers:  []string{"/dashboard/:path*"},
			StartLine: 3,
		}},
	}
	findings := runDetector(middlewareGap{}, tgt)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	if findings[0].RuleID != "VC-MW-001" {
		t.Fatalf("rule id = %s", findings[0].RuleID)
	}
}

func TestMiddlewareCoversAPINotFlagged(t *testing.T) {
	f := parseFile(t, "middleware.ts", "export function middleware(req) {}\n")
	tgt := &Target{
		Files:  map[string]*source.File{f.Path: f},
		Routes: []model.RouteInfo{{RouteID: "r1", Method: "GET", Path: "/api/users"}},
		Middleware: []model.MiddlewareInfo{{
			File: "middleware.ts", ProtectsAPI: true, StartLine: 1,
		}},
	}
	if findings := runDetector(middlewareGap{}, tgt); len(findings) != 0 {
		t.Fatalf("covering middleware flagged: %+v", findings)
	}
}

func TestHardcodedSecret(t *testing.T) {
	src := `const apiKey = "sk_live_abcdef1234567890";

export function client() {
  return apiKey;
}
`
	tgt := targetFor(t, map[string]string{"lib/stripe.ts": src}, nil)
	findings := runDetector(hardcodedSecret{}, tgt)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	f := findings[0]
	if f.RuleID != "VC-SEC-001" || f.Severity != model.SeverityCritical {
		t.Fatalf("unexpected finding: rule=%s severity=%s", f.RuleID, f.Severity)
	}
	snippet := f.Evidence[0].Snippet
	if strings.Contains(snippet, "sk_live") {
		t.Fatalf("snippet leaked the secret: %q", snippet)
	}
	if !strings.Contains(snippet, "****") {
		t.Fatalf("snippet not redacted: %q", snippet)
	}
}

func TestEnvSecretNotFlagged(t *testing.T) {
	src := `const apiKey = process.env.STRIPE_KEY;
`
	tgt := targetFor(t, map[string]string{"lib/stripe.ts": src}, nil)
	if findings := runDetector(hardcodedSecret{}, tgt); len(findings) != 0 {
		t.Fatalf("env-sourced secret flagged: %+v", findings)
	}
}

func TestBuiltinsDeterministic(t *testing.T) {
	files := map[string]string{
		"app/api/orders/route.ts": unauthWriteRoute,
		"app/api/users/route.ts":  unusedValidatorRoute,
	}
	fingerprints := func() []string {
		tgt := targetFor(t, files, nil)
		var out []string
		for _, d := range Builtins() {
			for _, f := range runDetector(d, tgt) {
				out = append(out, f.Fingerprint)
			}
		}
		return out
	}
	first := fingerprints()
	second := fingerprints()
	if len(first) == 0 {
		t.Fatal("expected findings from fixture set")
	}
	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("fingerprint %d differs across runs: %s vs %s", i, first[i], second[i])
		}
	}
}
