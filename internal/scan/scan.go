// Package scan runs the full analysis pipeline over a source tree: file
// discovery, parsing, route and middleware mapping, claim mining, proof
// traces, coverage, and the detector fan-out, assembled into a persisted
// scan artifact.
package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/quantracode/VibeCheck-sub003/internal/checks"
	"github.com/quantracode/VibeCheck-sub003/internal/coverage"
	"github.com/quantracode/VibeCheck-sub003/internal/detect"
	"github.com/quantracode/VibeCheck-sub003/internal/intent"
	"github.com/quantracode/VibeCheck-sub003/internal/logging"
	"github.com/quantracode/VibeCheck-sub003/internal/model"
	"github.com/quantracode/VibeCheck-sub003/internal/progress"
	"github.com/quantracode/VibeCheck-sub003/internal/project"
	"github.com/quantracode/VibeCheck-sub003/internal/proof"
	"github.com/quantracode/VibeCheck-sub003/internal/redact"
	"github.com/quantracode/VibeCheck-sub003/internal/routes"
	"github.com/quantracode/VibeCheck-sub003/internal/source"
	"github.com/quantracode/VibeCheck-sub003/internal/version"
	"github.com/quantracode/VibeCheck-sub003/internal/worker"
)

// Options configures a scan run.
type Options struct {
	Root           string
	ChecksDir      string
	NoCustomChecks bool
	MaxParallel    int
	Sink           progress.Sink
}

// Result bundles the artifact with the intermediate maps so callers (human
// output, TUI) can render more than the persisted schema carries.
type Result struct {
	Artifact model.ScanArtifact
	Target   *detect.Target
	Project  project.Result
	Traces   []model.ProofTrace
	RunID    string
}

// Run executes one scan. The produced artifact is deterministic for a fixed
// tree modulo the generated_at stamp and run id.
func Run(ctx context.Context, opts Options) (Result, error) {
	log := logging.New("scan")
	sink := opts.Sink
	if sink == nil {
		sink = progress.NoopSink{}
	}
	root := opts.Root
	if root == "" {
		root = "."
	}
	info, err := os.Stat(root)
	if err != nil {
		return Result{}, fmt.Errorf("stat scan root: %w", err)
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("%s is not a directory", root)
	}

	started := time.Now()
	runID := uuid.NewString()
	proj := project.Detect(root)

	walked, err := Walk(root)
	if err != nil {
		return Result{}, fmt.Errorf("walk source tree: %w", err)
	}
	sink.Emit(progress.Event{
		Type:      progress.EventScanStarted,
		RunID:     runID,
		FileCount: len(walked.Paths),
	})

	skippedFiles := walked.Skipped
	provider := source.NewProvider()
	files := make(map[string]*source.File, len(walked.Paths))
	var fileList []*source.File
	for _, rel := range walked.Paths {
		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			skippedFiles++
			sink.Emit(progress.Event{Type: progress.EventFileSkipped, Path: rel, Message: err.Error()})
			continue
		}
		f := provider.Parse(ctx, rel, content)
		if f == nil {
			skippedFiles++
			sink.Emit(progress.Event{Type: progress.EventFileSkipped, Path: rel, Message: "parse failed"})
			continue
		}
		files[rel] = f
		fileList = append(fileList, f)
	}

	routeList := routes.DetectRoutes(fileList)
	var middleware []model.MiddlewareInfo
	for _, f := range fileList {
		if routes.IsMiddlewareFile(f.Path) {
			middleware = append(middleware, routes.ParseMiddleware(f))
		}
	}
	claims := intent.Mine(fileList, routeList)
	traces := proof.BuildAll(routeList, middleware, files)
	metrics := coverage.Calculate(routeList, traces)

	traceMap := make(map[string]model.ProofTrace, len(traces))
	for _, tr := range traces {
		traceMap[tr.RouteID] = tr
	}
	tgt := &detect.Target{
		Files:      files,
		Routes:     routeList,
		Middleware: middleware,
		Traces:     traceMap,
		Claims:     claims,
	}

	detectors := detect.Builtins()
	skippedRules := 0
	if !opts.NoCustomChecks {
		checksDir := opts.ChecksDir
		if checksDir == "" {
			checksDir = filepath.Join(root, ".vibecheck", "checks")
		}
		loaded, err := checks.LoadDir(checksDir)
		if err != nil {
			return Result{}, fmt.Errorf("load custom checks: %w", err)
		}
		skippedRules = loaded.Skipped
		detectors = append(detectors, checks.CompileAll(loaded.Definitions)...)
	}

	findings := worker.RunDetectors(ctx, tgt, detectors, worker.Options{
		MaxParallel: opts.MaxParallel,
		Sink:        sink,
	})

	// Evidence quotes source verbatim. Mask key material before anything
	// is persisted or printed.
	for i := range findings {
		for j := range findings[i].Evidence {
			findings[i].Evidence[j].Snippet = redact.Snippet(findings[i].Evidence[j].Snippet)
		}
	}

	art := model.ScanArtifact{
		ArtifactVersion: "vibecheck/artifact/v1",
		GeneratedAt:     time.Now().UTC(),
		Tool:            model.ToolInfo{Name: "vibecheck", Version: version.Version},
		Repo:            filepath.Base(absOrSelf(root)),
		Summary:         summarize(findings),
		Findings:        findings,
		RouteMap:        routeList,
		MiddlewareMap:   middleware,
		Metrics:         &metrics,
		Skipped: model.SkippedCounts{
			Files: skippedFiles,
			Rules: skippedRules,
		},
	}

	sink.Emit(progress.Event{
		Type:         progress.EventScanFinished,
		RunID:        runID,
		FindingCount: len(findings),
		DurationMS:   time.Since(started).Milliseconds(),
	})
	log.Debug("scan complete",
		"files", len(files),
		"routes", len(routeList),
		"claims", len(claims),
		"findings", len(findings),
		"skipped_files", skippedFiles,
		"skipped_rules", skippedRules,
	)

	return Result{
		Artifact: art,
		Target:   tgt,
		Project:  proj,
		Traces:   traces,
		RunID:    runID,
	}, nil
}

func summarize(findings []model.Finding) model.ScanSummary {
	s := model.ScanSummary{
		TotalFindings: len(findings),
		BySeverity:    map[string]int{},
		ByCategory:    map[string]int{},
	}
	for _, f := range findings {
		s.BySeverity[f.Severity]++
		if f.Category != "" {
			s.ByCategory[f.Category]++
		}
	}
	return s
}

func absOrSelf(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
