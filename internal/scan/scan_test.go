package scan

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quantracode/VibeCheck-sub003/internal/model"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

var fixtureTree = map[string]string{
	"next.config.js": "module.exports = {};",
	"app/api/orders/route.ts": `import { db } from "@/lib/db";

export async function POST(req: Request) {
  const body = await req.json();
  const order = await db.orders.create({ data: body });
  return Response.json(order);
}
`,
	"app/api/health/route.ts": `export async function GET() {
  return Response.json({ ok: true });
}
`,
	"middleware.ts": `export function middleware(req) {}

export const config = {
  matcher: ["/dashboard/:path*"],
};
`,
	"node_modules/pkg/index.js": "module.exports = {};",
	"README.md":                 "# fixture",
}

func TestWalkSkipsVendorDirsAndNonSource(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, fixtureTree)

	res, err := Walk(root)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	for _, p := range res.Paths {
		if strings.HasPrefix(p, "node_modules/") {
			t.Fatalf("node_modules not pruned: %s", p)
		}
		if strings.HasSuffix(p, ".md") {
			t.Fatalf("non-source file included: %s", p)
		}
	}
	want := []string{"app/api/health/route.ts", "app/api/orders/route.ts", "middleware.ts", "next.config.js"}
	if len(res.Paths) != len(want) {
		t.Fatalf("paths = %v, want %v", res.Paths, want)
	}
	for i := range want {
		if res.Paths[i] != want[i] {
			t.Fatalf("paths[%d] = %s, want %s", i, res.Paths[i], want[i])
		}
	}
}

func TestRunEndToEnd(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, fixtureTree)

	res, err := Run(context.Background(), Options{Root: root})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	art := res.Artifact

	if res.Project.Type != "nextjs" {
		t.Fatalf("project = %+v", res.Project)
	}
	if len(art.RouteMap) != 2 {
		t.Fatalf("routes = %+v", art.RouteMap)
	}
	if len(res.Traces) != len(art.RouteMap) {
		t.Fatalf("traces %d != routes %d", len(res.Traces), len(art.RouteMap))
	}
	if len(art.MiddlewareMap) != 1 || art.MiddlewareMap[0].ProtectsAPI {
		t.Fatalf("middleware = %+v", art.MiddlewareMap)
	}

	var gotAuth, gotMW bool
	for _, f := range art.Findings {
		switch f.RuleID {
		case "VC-AUTH-001":
			gotAuth = true
		case "VC-MW-001":
			gotMW = true
		}
	}
	if !gotAuth {
		t.Fatalf("expected VC-AUTH-001 in findings: %+v", art.Findings)
	}
	if !gotMW {
		t.Fatalf("expected VC-MW-001 in findings: %+v", art.Findings)
	}
	if art.Summary.TotalFindings != len(art.Findings) {
		t.Fatal("summary count mismatch")
	}
	if art.Metrics == nil {
		t.Fatal("metrics missing")
	}
}

func TestRunDeterministic(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, fixtureTree)

	first, err := Run(context.Background(), Options{Root: root})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := Run(context.Background(), Options{Root: root})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	a, b := first.Artifact.Findings, second.Artifact.Findings
	if len(a) != len(b) {
		t.Fatalf("finding counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Fingerprint != b[i].Fingerprint || a[i].RuleID != b[i].RuleID {
			t.Fatalf("position %d differs: %s/%s vs %s/%s",
				i, a[i].RuleID, a[i].Fingerprint, b[i].RuleID, b[i].Fingerprint)
		}
	}
}

func TestRunWithCustomChecks(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, fixtureTree)
	writeTree(t, root, map[string]string{
		".vibecheck/checks/no-db-import.yaml": `api_version: vibecheck/check/v1
id: no-db-import
title: direct db import in route
severity: low
scope:
  include_globs: ["app/api/**"]
match:
  patterns:
    - kind: contains
      pattern: "@/lib/db"
`,
		".vibecheck/checks/broken.yaml": `api_version: vibecheck/check/v1
id: broken
title: broken
match:
  patterns:
    - kind: regex
      pattern: "(["
`,
	})

	res, err := Run(context.Background(), Options{Root: root})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Artifact.Skipped.Rules != 1 {
		t.Fatalf("skipped rules = %d, want 1", res.Artifact.Skipped.Rules)
	}
	found := false
	for _, f := range res.Artifact.Findings {
		if f.RuleID == "no-db-import" {
			found = true
		}
	}
	if !found {
		t.Fatalf("custom rule did not fire: %+v", res.Artifact.Findings)
	}
}

func TestFormatHuman(t *testing.T) {
	art := model.ScanArtifact{
		Metrics: &model.CoverageMetrics{AuthCoverage: 0.5, ValidationCoverage: 1, MiddlewareCoverage: 0},
		Findings: []model.Finding{{
			RuleID:      "VC-AUTH-001",
			Severity:    model.SeverityHigh,
			Title:       "Unauthenticated state-changing route performs a write",
			Evidence:    []model.Evidence{{File: "app/api/orders/route.ts", Line: 3, Snippet: "export async function POST"}},
			Remediation: "Add a session check.",
		}},
		Summary: model.ScanSummary{TotalFindings: 1},
	}
	out := FormatHuman(art, false)
	for _, want := range []string{
		"auth 50%",
		"[HIGH]",
		"app/api/orders/route.ts:3",
		"remediation: Add a session check.",
		"1 finding(s) detected",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	empty := FormatHuman(model.ScanArtifact{}, false)
	if !strings.Contains(empty, "No findings.") {
		t.Fatalf("empty artifact output: %s", empty)
	}
}
