package idgen

import "testing"

func TestNextProducesWellFormedIDs(t *testing.T) {
	g := NewGenerator("db/table")
	id := g.Next()
	if err := Validate(id); err != nil {
		t.Fatalf("Validate(%q): %v", id, err)
	}
}

func TestNextIsMonotonicWithinAProcess(t *testing.T) {
	g := NewGenerator("db/table")
	prev := g.Next()
	for i := 0; i < 100; i++ {
		next := g.Next()
		if next <= prev {
			t.Fatalf("ids not monotonic: %q then %q", prev, next)
		}
		prev = next
	}
}

func TestDifferentSeedsProduceDifferentPrefixes(t *testing.T) {
	a := NewGenerator("db/a").Next()
	b := NewGenerator("db/b").Next()
	if a[8:16] == b[8:16] {
		t.Fatalf("expected different seed hashes, got %q and %q for both", a[8:16], b[8:16])
	}
}

func TestTimestampRecoversCreationTime(t *testing.T) {
	g := NewGenerator("db/table")
	id := g.Next()
	ts, ok := Timestamp(id)
	if !ok {
		t.Fatalf("Timestamp(%q) failed to parse", id)
	}
	if ts.IsZero() {
		t.Fatal("recovered timestamp should not be zero")
	}
}

func TestTimestampRejectsMalformedID(t *testing.T) {
	if _, ok := Timestamp("not-an-id"); ok {
		t.Fatal("expected Timestamp to reject a malformed id")
	}
}

func TestValidateRejectsWrongLength(t *testing.T) {
	if err := Validate("abc"); err == nil {
		t.Fatal("expected Validate to reject a short id")
	}
}
