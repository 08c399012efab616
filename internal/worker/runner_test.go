package worker

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/quantracode/VibeCheck-sub003/internal/detect"
	"github.com/quantracode/VibeCheck-sub003/internal/model"
	"github.com/quantracode/VibeCheck-sub003/internal/source"
)

type stubDetector struct {
	id       string
	running  *int32
	maxSeen  *int32
	perFile  bool
	severity string
}

func (d stubDetector) RuleID() string { return d.id }

func (d stubDetector) Scan(t *detect.Target, f *source.File) []model.Finding {
	if d.running != nil {
		cur := atomic.AddInt32(d.running, 1)
		for {
			seen := atomic.LoadInt32(d.maxSeen)
			if cur <= seen || atomic.CompareAndSwapInt32(d.maxSeen, seen, cur) {
				break
			}
		}
		defer atomic.AddInt32(d.running, -1)
	}
	if !d.perFile {
		return nil
	}
	sev := d.severity
	if sev == "" {
		sev = model.SeverityLow
	}
	return []model.Finding{{
		RuleID:      d.id,
		Severity:    sev,
		Fingerprint: detect.Fingerprint(d.id, f.Path, "", 1),
		Evidence:    []model.Evidence{{File: f.Path, Line: 1, Snippet: "x"}},
	}}
}

func stubFiles(paths ...string) map[string]*source.File {
	out := make(map[string]*source.File, len(paths))
	for _, p := range paths {
		out[p] = &source.File{Path: p, Text: "x"}
	}
	return out
}

func TestRunDetectorsCollectsAndSorts(t *testing.T) {
	tgt := &detect.Target{Files: stubFiles("b.ts", "a.ts")}
	detectors := []detect.Detector{
		stubDetector{id: "R2", perFile: true},
		stubDetector{id: "R1", perFile: true},
	}
	got := RunDetectors(context.Background(), tgt, detectors, Options{MaxParallel: 2})
	if len(got) != 4 {
		t.Fatalf("expected 4 findings, got %d", len(got))
	}
	wantOrder := []struct{ file, rule string }{
		{"a.ts", "R1"}, {"a.ts", "R2"}, {"b.ts", "R1"}, {"b.ts", "R2"},
	}
	for i, want := range wantOrder {
		if got[i].Evidence[0].File != want.file || got[i].RuleID != want.rule {
			t.Fatalf("position %d: got %s/%s, want %s/%s",
				i, got[i].Evidence[0].File, got[i].RuleID, want.file, want.rule)
		}
	}
}

func TestRunDetectorsBoundsParallelism(t *testing.T) {
	var running, maxSeen int32
	tgt := &detect.Target{Files: stubFiles("a.ts", "b.ts", "c.ts")}
	var detectors []detect.Detector
	for _, id := range []string{"R1", "R2", "R3", "R4", "R5", "R6"} {
		detectors = append(detectors, stubDetector{id: id, running: &running, maxSeen: &maxSeen})
	}
	RunDetectors(context.Background(), tgt, detectors, Options{MaxParallel: 2})
	if got := atomic.LoadInt32(&maxSeen); got > 2 {
		t.Fatalf("observed %d concurrent detectors, limit was 2", got)
	}
}

func TestRunDetectorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tgt := &detect.Target{Files: stubFiles("a.ts")}
	got := RunDetectors(ctx, tgt, []detect.Detector{stubDetector{id: "R1", perFile: true}}, Options{})
	if len(got) != 0 {
		t.Fatalf("cancelled context should yield no findings, got %d", len(got))
	}
}

func TestRunDetectorsEmpty(t *testing.T) {
	if got := RunDetectors(context.Background(), &detect.Target{}, nil, Options{}); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestSortFindingsStable(t *testing.T) {
	findings := []model.Finding{
		{RuleID: "B", Fingerprint: "2", Evidence: []model.Evidence{{File: "a.ts", Line: 5}}},
		{RuleID: "A", Fingerprint: "1", Evidence: []model.Evidence{{File: "a.ts", Line: 5}}},
		{RuleID: "A", Fingerprint: "3", Evidence: []model.Evidence{{File: "a.ts", Line: 2}}},
	}
	SortFindings(findings)
	if findings[0].Fingerprint != "3" || findings[1].Fingerprint != "1" || findings[2].Fingerprint != "2" {
		t.Fatalf("unexpected order: %+v", findings)
	}
}
