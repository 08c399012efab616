package detect

import (
	"testing"

	"github.com/quantracode/VibeCheck-sub003/internal/model"
)

func findingFixture(files []string) model.Finding {
	f := model.Finding{
		RuleID:   "VC-AUTH-001",
		Severity: model.SeverityHigh,
		Title:    "test finding",
	}
	for _, path := range files {
		f.Evidence = append(f.Evidence, model.Evidence{File: path, Line: 10, Snippet: "x"})
	}
	return f
}

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("VC-AUTH-001", "app/api/users/route.ts", "POST", 12)
	b := Fingerprint("VC-AUTH-001", "app/api/users/route.ts", "POST", 12)
	if a != b {
		t.Fatalf("same inputs produced different fingerprints: %s vs %s", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("fingerprint length = %d, want 16", len(a))
	}
}

func TestFingerprintSensitiveToInputs(t *testing.T) {
	base := Fingerprint("VC-AUTH-001", "app/api/users/route.ts", "POST", 12)
	variants := []string{
		Fingerprint("VC-VAL-001", "app/api/users/route.ts", "POST", 12),
		Fingerprint("VC-AUTH-001", "app/api/orders/route.ts", "POST", 12),
		Fingerprint("VC-AUTH-001", "app/api/users/route.ts", "PUT", 12),
		Fingerprint("VC-AUTH-001", "app/api/users/route.ts", "POST", 13),
		Fingerprint("VC-AUTH-001", "app/api/users/route.ts", "POST", 12, "extra"),
	}
	for i, v := range variants {
		if v == base {
			t.Fatalf("variant %d collided with base fingerprint %s", i, base)
		}
	}
}

func TestFinalizeRequiresEvidence(t *testing.T) {
	f, ok := Finalize(findingFixture(nil), "POST", 10)
	if ok {
		t.Fatalf("finding without evidence was finalized: %+v", f)
	}
}

func TestFinalizeSetsIdentity(t *testing.T) {
	f, ok := Finalize(findingFixture([]string{"app/api/users/route.ts"}), "POST", 10)
	if !ok {
		t.Fatal("finding with evidence was rejected")
	}
	if f.Fingerprint == "" {
		t.Fatal("fingerprint not set")
	}
	want := "VC-AUTH-001-" + f.Fingerprint
	if f.ID != want {
		t.Fatalf("ID = %q, want %q", f.ID, want)
	}
}
