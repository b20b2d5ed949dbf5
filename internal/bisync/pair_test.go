package bisync

import "testing"

func TestPairID_SymmetricUnderArgumentOrder(t *testing.T) {
	a := "/home/alice/docs"
	b := "drive:backup/docs"

	if PairID(a, b) != PairID(b, a) {
		t.Error("pair id must not depend on argument order")
	}
}

func TestPairID_DistinctPairsDiffer(t *testing.T) {
	if PairID("/a", "/b") == PairID("/a", "/c") {
		t.Error("different pairs produced the same id")
	}
	// concatenation ambiguity would collide these without ordering
	if PairID("/a/b", "/c") == PairID("/a", "/b/c") {
		t.Error("pair id collided on concatenation ambiguity")
	}
}

func TestPairID_UsableAsFileName(t *testing.T) {
	id := PairID("remote:some/very/long/path", "/local")
	if len(id) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(id))
	}
	for _, r := range id {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			t.Fatalf("unexpected character %q in pair id", r)
		}
	}
}

func TestOrderEndpoints(t *testing.T) {
	a, b := OrderEndpoints("zeta", "alpha")
	if a != "alpha" || b != "zeta" {
		t.Errorf("OrderEndpoints = (%q, %q), want (alpha, zeta)", a, b)
	}
	a, b = OrderEndpoints("alpha", "zeta")
	if a != "alpha" || b != "zeta" {
		t.Errorf("OrderEndpoints = (%q, %q), want (alpha, zeta)", a, b)
	}
}
