package bisync

import (
	"reflect"
	"testing"
	"time"
)

func attrs(size int64, sec int64) *FileAttributes {
	return &FileAttributes{Size: size, ModTime: time.Unix(sec, 0).UTC()}
}

func singleton(path string, a *FileAttributes) map[string]*FileAttributes {
	return map[string]*FileAttributes{path: a}
}

func empty() map[string]*FileAttributes {
	return map[string]*FileAttributes{}
}

func TestReconcile_AgreeingSidesAreUnchanged(t *testing.T) {
	// agreement wins regardless of what the baseline says
	result := Reconcile(
		singleton("f.txt", attrs(10, 100)),
		singleton("f.txt", attrs(10, 100)),
		singleton("f.txt", attrs(99, 1)),
		empty(),
	)

	if len(result.Unchanged) != 1 {
		t.Fatalf("expected f.txt unchanged, got %+v", result)
	}
	if got := len(result.Plan()); got != 0 {
		t.Errorf("expected empty plan, got %d actions", got)
	}
	if result.Verdict() != VerdictOK {
		t.Errorf("expected verdict ok, got %s", result.Verdict())
	}
}

func TestReconcile_BothAbsentWithBaselineIsCleanup(t *testing.T) {
	result := Reconcile(
		empty(),
		empty(),
		singleton("f.txt", attrs(10, 100)),
		singleton("f.txt", attrs(10, 100)),
	)

	if _, ok := result.Cleanups["f.txt"]; !ok {
		t.Fatalf("expected f.txt in cleanups, got %+v", result)
	}
	if len(result.Plan()) != 0 {
		t.Error("cleanup must not produce actions")
	}
}

func TestReconcile_FirstRunPropagatesSingleSide(t *testing.T) {
	// no baseline, file only on A
	result := Reconcile(singleton("f.txt", attrs(10, 100)), empty(), empty(), empty())
	if op, ok := result.CopiesAToB["f.txt"]; !ok || op.Op != OpCopyAToB {
		t.Fatalf("expected copy A->B, got %+v", result)
	}
	if len(result.Conflicts) != 0 {
		t.Error("first-run single-side file must never conflict")
	}

	// no baseline, file only on B
	result = Reconcile(empty(), singleton("f.txt", attrs(10, 100)), empty(), empty())
	if op, ok := result.CopiesBToA["f.txt"]; !ok || op.Op != OpCopyBToA {
		t.Fatalf("expected copy B->A, got %+v", result)
	}
}

func TestReconcile_ModifiedSidePropagates(t *testing.T) {
	base := attrs(10, 100)

	// A modified since baseline, B untouched
	result := Reconcile(
		singleton("f.txt", attrs(12, 200)),
		singleton("f.txt", base),
		singleton("f.txt", base),
		singleton("f.txt", base),
	)
	if op, ok := result.CopiesAToB["f.txt"]; !ok || op.Op != OpCopyAToB {
		t.Fatalf("expected copy A->B, got %+v", result)
	}

	// B modified since baseline, A untouched
	result = Reconcile(
		singleton("f.txt", base),
		singleton("f.txt", attrs(12, 200)),
		singleton("f.txt", base),
		singleton("f.txt", base),
	)
	if op, ok := result.CopiesBToA["f.txt"]; !ok || op.Op != OpCopyBToA {
		t.Fatalf("expected copy B->A, got %+v", result)
	}
}

func TestReconcile_DeletePropagates(t *testing.T) {
	base := attrs(10, 100)

	// removed on A, untouched on B -> delete on B
	result := Reconcile(
		empty(),
		singleton("f.txt", base),
		singleton("f.txt", base),
		singleton("f.txt", base),
	)
	if op, ok := result.DeletesB["f.txt"]; !ok || op.Op != OpDeleteB {
		t.Fatalf("expected delete on B, got %+v", result)
	}

	// removed on B, untouched on A -> delete on A
	result = Reconcile(
		singleton("f.txt", base),
		empty(),
		singleton("f.txt", base),
		singleton("f.txt", base),
	)
	if op, ok := result.DeletesA["f.txt"]; !ok || op.Op != OpDeleteA {
		t.Fatalf("expected delete on A, got %+v", result)
	}
}

func TestReconcile_BothChangedIsConflict(t *testing.T) {
	base := attrs(10, 100)
	result := Reconcile(
		singleton("f.txt", attrs(12, 200)),
		singleton("f.txt", attrs(15, 300)),
		singleton("f.txt", base),
		singleton("f.txt", base),
	)

	if op, ok := result.Conflicts["f.txt"]; !ok || op.Op != OpConflict {
		t.Fatalf("expected conflict, got %+v", result)
	}
	if len(result.Plan()) != 0 {
		t.Error("conflicted path must be excluded from the action plan")
	}
	if result.Verdict() != VerdictConflicts {
		t.Errorf("expected verdict conflicts-present, got %s", result.Verdict())
	}
}

func TestReconcile_ModifyVersusDeleteIsConflict(t *testing.T) {
	base := attrs(10, 100)
	result := Reconcile(
		singleton("f.txt", attrs(12, 200)),
		empty(),
		singleton("f.txt", base),
		singleton("f.txt", base),
	)

	if _, ok := result.Conflicts["f.txt"]; !ok {
		t.Fatalf("expected modify-vs-delete conflict, got %+v", result)
	}
}

func TestReconcile_FirstRunDisagreementIsConflict(t *testing.T) {
	result := Reconcile(
		singleton("f.txt", attrs(10, 100)),
		singleton("f.txt", attrs(20, 100)),
		empty(),
		empty(),
	)

	if _, ok := result.Conflicts["f.txt"]; !ok {
		t.Fatalf("expected first-run disagreement conflict, got %+v", result)
	}
}

func TestReconcile_TimestampComparisonIsExact(t *testing.T) {
	base := attrs(10, 100)
	// same size, one second apart: modified
	result := Reconcile(
		singleton("f.txt", attrs(10, 101)),
		singleton("f.txt", base),
		singleton("f.txt", base),
		singleton("f.txt", base),
	)
	if _, ok := result.CopiesAToB["f.txt"]; !ok {
		t.Fatalf("one-second timestamp difference must count as a change, got %+v", result)
	}
}

func TestReconcile_Deterministic(t *testing.T) {
	currentA := map[string]*FileAttributes{
		"a.txt": attrs(1, 10), "b.txt": attrs(2, 20), "c.txt": attrs(3, 30),
	}
	currentB := map[string]*FileAttributes{
		"b.txt": attrs(2, 20), "d.txt": attrs(4, 40),
	}
	baselineA := map[string]*FileAttributes{"c.txt": attrs(9, 5)}
	baselineB := map[string]*FileAttributes{"c.txt": attrs(9, 5)}

	first := Reconcile(currentA, currentB, baselineA, baselineB).Plan()
	for i := 0; i < 10; i++ {
		again := Reconcile(currentA, currentB, baselineA, baselineB).Plan()
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("plan is not deterministic:\nfirst: %+v\nagain: %+v", first, again)
		}
	}
}

func TestPlan_DeletesBeforeCopiesSortedByPath(t *testing.T) {
	base := attrs(10, 100)
	currentA := map[string]*FileAttributes{
		"new-b.txt": attrs(1, 10),
		"new-a.txt": attrs(1, 10),
		"kept.txt":  base,
	}
	// gone-* were removed on A and untouched on B
	currentB := map[string]*FileAttributes{
		"kept.txt": base, "gone-z.txt": base, "gone-a.txt": base,
	}
	baselineA := map[string]*FileAttributes{
		"gone-z.txt": base, "gone-a.txt": base, "kept.txt": base,
	}
	baselineB := map[string]*FileAttributes{
		"gone-z.txt": base, "gone-a.txt": base, "kept.txt": base,
	}

	plan := Reconcile(currentA, currentB, baselineA, baselineB).Plan()

	want := []struct {
		op   OpType
		path string
	}{
		{OpDeleteB, "gone-a.txt"},
		{OpDeleteB, "gone-z.txt"},
		{OpCopyAToB, "new-a.txt"},
		{OpCopyAToB, "new-b.txt"},
	}
	if len(plan) != len(want) {
		t.Fatalf("expected %d actions, got %d: %+v", len(want), len(plan), plan)
	}
	for i, w := range want {
		if plan[i].Op != w.op || plan[i].RelPath != w.path {
			t.Errorf("plan[%d] = %s %s, want %s %s", i, plan[i].Op, plan[i].RelPath, w.op, w.path)
		}
	}
}

func TestFileAttributesEqual(t *testing.T) {
	if !(*FileAttributes)(nil).Equal(nil) {
		t.Error("absent must equal absent")
	}
	if attrs(10, 100).Equal(nil) {
		t.Error("present must not equal absent")
	}
	if !attrs(10, 100).Equal(attrs(10, 100)) {
		t.Error("identical attributes must be equal")
	}
	if attrs(10, 100).Equal(attrs(11, 100)) {
		t.Error("size difference must break equality")
	}
	if attrs(10, 100).Equal(attrs(10, 101)) {
		t.Error("timestamp difference must break equality")
	}

	// second-level precision: sub-second noise is irrelevant
	a := &FileAttributes{Size: 10, ModTime: time.Unix(100, 500_000_000)}
	b := &FileAttributes{Size: 10, ModTime: time.Unix(100, 0)}
	if !a.Equal(b) {
		t.Error("sub-second differences must not break equality")
	}
}
