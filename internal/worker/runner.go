// Package worker fans detectors out over the parsed source model on a
// bounded goroutine pool and fans results back in deterministically.
package worker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quantracode/VibeCheck-sub003/internal/detect"
	"github.com/quantracode/VibeCheck-sub003/internal/model"
	"github.com/quantracode/VibeCheck-sub003/internal/progress"
)

type Options struct {
	MaxParallel int
	Sink        progress.Sink
}

type indexedResult struct {
	idx      int
	findings []model.Finding
}

// RunDetectors runs every detector over every parsed file. Detectors are
// pure, so execution order cannot change results; the fan-in step re-sorts
// so output order is stable regardless of scheduling.
func RunDetectors(ctx context.Context, tgt *detect.Target, detectors []detect.Detector, opts Options) []model.Finding {
	if opts.Sink == nil {
		opts.Sink = progress.NoopSink{}
	}
	if len(detectors) == 0 {
		return nil
	}
	if opts.MaxParallel < 1 {
		opts.MaxParallel = len(detectors)
	}
	if opts.MaxParallel > len(detectors) {
		opts.MaxParallel = len(detectors)
	}

	paths := make([]string, 0, len(tgt.Files))
	for p := range tgt.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	sem := make(chan struct{}, opts.MaxParallel)
	resCh := make(chan indexedResult, len(detectors))
	var wg sync.WaitGroup

	for idx, d := range detectors {
		wg.Add(1)
		go func(idx int, d detect.Detector) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				resCh <- indexedResult{idx: idx}
				return
			}
			started := time.Now()
			opts.Sink.Emit(progress.Event{
				Type:   progress.EventDetectorStarted,
				RuleID: d.RuleID(),
			})
			var findings []model.Finding
			for _, p := range paths {
				if ctx.Err() != nil {
					break
				}
				findings = append(findings, d.Scan(tgt, tgt.Files[p])...)
			}
			opts.Sink.Emit(progress.Event{
				Type:         progress.EventDetectorFinished,
				RuleID:       d.RuleID(),
				FindingCount: len(findings),
				DurationMS:   time.Since(started).Milliseconds(),
			})
			resCh <- indexedResult{idx: idx, findings: findings}
		}(idx, d)
	}

	wg.Wait()
	close(resCh)

	ordered := make([][]model.Finding, len(detectors))
	for item := range resCh {
		if item.idx < 0 || item.idx >= len(ordered) {
			continue
		}
		ordered[item.idx] = item.findings
	}

	var out []model.Finding
	for _, findings := range ordered {
		out = append(out, findings...)
	}
	SortFindings(out)
	return out
}

// SortFindings orders findings by file, line, rule id, then fingerprint.
func SortFindings(findings []model.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		fi, fj := findings[i], findings[j]
		pi, pj := primaryEvidence(fi), primaryEvidence(fj)
		if pi.File != pj.File {
			return pi.File < pj.File
		}
		if pi.Line != pj.Line {
			return pi.Line < pj.Line
		}
		if fi.RuleID != fj.RuleID {
			return fi.RuleID < fj.RuleID
		}
		return fi.Fingerprint < fj.Fingerprint
	})
}

func primaryEvidence(f model.Finding) model.Evidence {
	if len(f.Evidence) == 0 {
		return model.Evidence{}
	}
	return f.Evidence[0]
}
