package bisync

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

type Verdict uint8

const (
	VerdictOK Verdict = iota
	VerdictConflicts
)

func (v Verdict) String() string {
	if v == VerdictConflicts {
		return "conflicts-present"
	}
	return "ok"
}

type BatchCopyAToB map[string]*SyncOperation
type BatchCopyBToA map[string]*SyncOperation
type BatchDeleteA map[string]*SyncOperation
type BatchDeleteB map[string]*SyncOperation
type BatchConflict map[string]*SyncOperation

// ReconcileResult is the classification of every path seen in any of
// the four observation maps. Conflicts are reported but never part of
// the action plan.
type ReconcileResult struct {
	CopiesAToB BatchCopyAToB
	CopiesBToA BatchCopyBToA
	DeletesA   BatchDeleteA
	DeletesB   BatchDeleteB
	Conflicts  BatchConflict

	// Unchanged paths agree on both sides; their baseline is refreshed
	// to the current state. Cleanups vanished from both sides and only
	// need their baseline row dropped.
	Unchanged map[string]*SyncEntry
	Cleanups  map[string]struct{}
}

func NewReconcileResult() *ReconcileResult {
	return &ReconcileResult{
		CopiesAToB: make(BatchCopyAToB),
		CopiesBToA: make(BatchCopyBToA),
		DeletesA:   make(BatchDeleteA),
		DeletesB:   make(BatchDeleteB),
		Conflicts:  make(BatchConflict),
		Unchanged:  make(map[string]*SyncEntry),
		Cleanups:   make(map[string]struct{}),
	}
}

func (r *ReconcileResult) Verdict() Verdict {
	if len(r.Conflicts) > 0 {
		return VerdictConflicts
	}
	return VerdictOK
}

// Plan returns the actions in execution order: deletions first, then
// copies, each group sorted by path. Identical inputs always produce
// the identical plan.
func (r *ReconcileResult) Plan() []*SyncOperation {
	deletes := make([]*SyncOperation, 0, len(r.DeletesA)+len(r.DeletesB))
	for _, op := range r.DeletesA {
		deletes = append(deletes, op)
	}
	for _, op := range r.DeletesB {
		deletes = append(deletes, op)
	}
	copies := make([]*SyncOperation, 0, len(r.CopiesAToB)+len(r.CopiesBToA))
	for _, op := range r.CopiesAToB {
		copies = append(copies, op)
	}
	for _, op := range r.CopiesBToA {
		copies = append(copies, op)
	}
	sort.Slice(deletes, func(i, j int) bool { return deletes[i].RelPath < deletes[j].RelPath })
	sort.Slice(copies, func(i, j int) bool { return copies[i].RelPath < copies[j].RelPath })
	return append(deletes, copies...)
}

// Reconcile classifies every path appearing in any of the four maps.
// The comparison is three-way per side: a side is considered changed
// only if its current state differs from its baseline, which is what
// distinguishes "B is newer" from "A regressed" and makes the pass
// bidirectional-safe. The function is pure; callers own action
// execution and baseline advancement.
func Reconcile(currentA, currentB, baselineA, baselineB map[string]*FileAttributes) *ReconcileResult {
	allPaths := mapset.NewThreadUnsafeSet[string]()
	for path := range currentA {
		allPaths.Add(path)
	}
	for path := range currentB {
		allPaths.Add(path)
	}
	for path := range baselineA {
		allPaths.Add(path)
	}
	for path := range baselineB {
		allPaths.Add(path)
	}

	result := NewReconcileResult()

	paths := allPaths.ToSlice()
	sort.Strings(paths)

	for _, path := range paths {
		cA := currentA[path]
		cB := currentB[path]
		bA := baselineA[path]
		bB := baselineB[path]

		op := &SyncOperation{
			RelPath:   path,
			CurrentA:  cA,
			CurrentB:  cB,
			BaselineA: bA,
			BaselineB: bB,
		}

		switch {
		case cA.Equal(cB):
			// Both sides already agree (possibly both absent).
			if cA == nil {
				result.Cleanups[path] = struct{}{}
			} else {
				result.Unchanged[path] = &SyncEntry{
					Path: path, CurrentA: cA, CurrentB: cB, BaselineA: bA, BaselineB: bB,
				}
			}

		case cA.Equal(bA) && !cB.Equal(bB):
			// Only side B changed since the last run.
			if cB == nil {
				op.Op = OpDeleteA
				result.DeletesA[path] = op
			} else {
				op.Op = OpCopyBToA
				result.CopiesBToA[path] = op
			}

		case cB.Equal(bB) && !cA.Equal(bA):
			// Only side A changed since the last run.
			if cA == nil {
				op.Op = OpDeleteB
				result.DeletesB[path] = op
			} else {
				op.Op = OpCopyAToB
				result.CopiesAToB[path] = op
			}

		default:
			// Both sides changed since the baseline and disagree, or a
			// first-run path exists on both sides with differing state.
			// Neither side is authoritative.
			op.Op = OpConflict
			result.Conflicts[path] = op
		}
	}

	return result
}
