package bisync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// ActionExecutor carries out the transfer and removal actions the
// engine decides on. It owns the how; the engine owns the what. Failed
// actions are not retried here.
type ActionExecutor interface {
	Copy(ctx context.Context, op *SyncOperation) error
	Delete(ctx context.Context, op *SyncOperation) error
}

// Options are run-scoped settings, passed in explicitly rather than
// read from ambient state.
type Options struct {
	WorkDir string
	Retries int
	DryRun  bool
}

// ActionFailure is one action that could not be applied. The run keeps
// going; failures are surfaced in the summary.
type ActionFailure struct {
	Op      OpType
	RelPath string
	Err     error
}

// RunSummary is the outcome of one reconciliation run.
type RunSummary struct {
	Copied      int
	Deleted     int
	Unchanged   int
	CopiedBytes uint64
	Conflicts   []string
	Failures    []ActionFailure
	Verdict     Verdict
	Took        time.Duration
}

// Syncer drives one full reconciliation of an endpoint pair: lock,
// baseline load, concurrent listings, classification, plan execution,
// baseline rewrite. One Syncer handles one pair, start to finish.
type Syncer struct {
	endpointA string
	endpointB string
	lister    Lister
	executor  ActionExecutor
	opts      Options
}

// NewSyncer builds a Syncer for the two canonical endpoints. The
// endpoints are order-normalized here, so callers may pass them in any
// order and still address the same pair lock and baseline.
func NewSyncer(endpoint1, endpoint2 string, lister Lister, executor ActionExecutor, opts Options) *Syncer {
	endpointA, endpointB := OrderEndpoints(endpoint1, endpoint2)
	return &Syncer{
		endpointA: endpointA,
		endpointB: endpointB,
		lister:    lister,
		executor:  executor,
		opts:      opts,
	}
}

// Run performs one reconciliation pass and returns its summary. Setup
// failures (lock contention, baseline corruption, listing exhaustion)
// abort the run; per-path conflicts and action failures do not.
func (s *Syncer) Run(ctx context.Context) (*RunSummary, error) {
	tstart := time.Now()
	pairID := PairID(s.endpointA, s.endpointB)

	lock, err := NewLockManager(s.opts.WorkDir).Acquire(pairID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			slog.Error("failed to release pair lock", "path", lock.Path(), "error", err)
		}
	}()

	store, err := OpenBaselineStore(s.opts.WorkDir, pairID)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	baseline, err := store.Load()
	if err != nil {
		return nil, err
	}
	baselineA := make(map[string]*FileAttributes, len(baseline))
	baselineB := make(map[string]*FileAttributes, len(baseline))
	for path, entry := range baseline {
		baselineA[path] = entry.A
		baselineB[path] = entry.B
	}

	// The two listings are independent reads; run them concurrently.
	// Both must be complete before reconciliation starts.
	var currentA, currentB map[string]*FileAttributes
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		currentA, err = listWithRetry(egCtx, s.lister, SideA, s.endpointA, s.opts.Retries)
		return err
	})
	eg.Go(func() error {
		var err error
		currentB, err = listWithRetry(egCtx, s.lister, SideB, s.endpointB, s.opts.Retries)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	result := Reconcile(currentA, currentB, baselineA, baselineB)
	summary := s.apply(ctx, store, result, baseline, currentA, currentB)
	summary.Took = time.Since(tstart)

	slog.Info("run complete",
		"took", summary.Took,
		"copied", summary.Copied,
		"transferred", humanize.Bytes(summary.CopiedBytes),
		"deleted", summary.Deleted,
		"unchanged", summary.Unchanged,
		"conflicts", len(summary.Conflicts),
		"failures", len(summary.Failures),
		"verdict", summary.Verdict,
	)

	return summary, nil
}

// apply executes the plan and rewrites the baseline. The baseline only
// advances for paths whose action actually completed; conflicted and
// failed paths keep their previous rows so the next run re-evaluates
// them against a state both sides really reached.
func (s *Syncer) apply(ctx context.Context, store *BaselineStore, result *ReconcileResult, oldBaseline map[string]*BaselineEntry, currentA, currentB map[string]*FileAttributes) *RunSummary {
	summary := &RunSummary{Verdict: result.Verdict()}
	newBaseline := make(map[string]*BaselineEntry)

	for path, entry := range result.Unchanged {
		newBaseline[path] = &BaselineEntry{A: entry.CurrentA, B: entry.CurrentB}
		summary.Unchanged++
	}
	// Cleanups: the file is gone from both sides, the row just drops.

	for path, op := range result.Conflicts {
		if old, ok := oldBaseline[path]; ok {
			newBaseline[path] = old
		}
		summary.Conflicts = append(summary.Conflicts, path)
		slog.Warn("conflict", "path", path,
			"sizeA", attrSize(op.CurrentA), "sizeB", attrSize(op.CurrentB))
	}

	for _, op := range result.Plan() {
		if s.opts.DryRun {
			slog.Info("plan", "op", op.Op, "path", op.RelPath)
			if old, ok := oldBaseline[op.RelPath]; ok {
				newBaseline[op.RelPath] = old
			}
			continue
		}

		var err error
		if op.Op.IsDelete() {
			err = s.executor.Delete(ctx, op)
		} else {
			err = s.executor.Copy(ctx, op)
		}
		if err != nil {
			summary.Failures = append(summary.Failures, ActionFailure{Op: op.Op, RelPath: op.RelPath, Err: err})
			if old, ok := oldBaseline[op.RelPath]; ok {
				newBaseline[op.RelPath] = old
			}
			slog.Warn("sync", "op", op.Op, "path", op.RelPath, "error", err)
			continue
		}

		switch op.Op {
		case OpCopyAToB:
			attrs := currentA[op.RelPath]
			newBaseline[op.RelPath] = &BaselineEntry{A: attrs, B: attrs}
			summary.Copied++
			summary.CopiedBytes += uint64(attrs.Size)
		case OpCopyBToA:
			attrs := currentB[op.RelPath]
			newBaseline[op.RelPath] = &BaselineEntry{A: attrs, B: attrs}
			summary.Copied++
			summary.CopiedBytes += uint64(attrs.Size)
		case OpDeleteA, OpDeleteB:
			// absent on both sides now, no baseline row
			summary.Deleted++
		}
		slog.Info("sync", "op", op.Op, "path", op.RelPath)
	}

	if s.opts.DryRun {
		slog.Info("dry run, baseline left untouched")
		return summary
	}

	if err := store.Save(newBaseline); err != nil {
		slog.Error("failed to save baseline", "error", err)
		summary.Failures = append(summary.Failures, ActionFailure{RelPath: "<baseline>", Err: err})
	}
	return summary
}

func attrSize(attrs *FileAttributes) string {
	if attrs == nil {
		return "absent"
	}
	return fmt.Sprintf("%d", attrs.Size)
}
