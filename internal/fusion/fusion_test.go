package fusion

import (
	"math"
	"testing"

	"github.com/wikipuff/wikipuff/internal/turbopuffer"
)

func hit(id, title string) turbopuffer.Hit {
	return turbopuffer.Hit{ID: id, Title: title, URL: "https://example.org/" + id}
}

func TestFuseDisjointListsScoresEveryIDOnce(t *testing.T) {
	listA := []turbopuffer.Hit{hit("a1", "A1"), hit("a2", "A2"), hit("a3", "A3")}
	listB := []turbopuffer.Hit{hit("b1", "B1"), hit("b2", "B2")}

	fused := NewEngine(0).Fuse(listA, listB)

	if len(fused) != 5 {
		t.Fatalf("expected 5 fused results, got %d", len(fused))
	}

	seen := make(map[string]float64)
	for _, f := range fused {
		if _, dup := seen[f.ID]; dup {
			t.Fatalf("id %s appears more than once", f.ID)
		}
		seen[f.ID] = f.FusionScore
	}

	expected := map[string]float64{
		"a1": 1.0 / 61.0,
		"a2": 1.0 / 62.0,
		"a3": 1.0 / 63.0,
		"b1": 1.0 / 61.0,
		"b2": 1.0 / 62.0,
	}
	for id, want := range expected {
		got, ok := seen[id]
		if !ok {
			t.Fatalf("id %s missing from fused output", id)
		}
		if math.Abs(got-want) > 1e-12 {
			t.Fatalf("id %s: expected score %v, got %v", id, want, got)
		}
	}
}

func TestFuseSingleListPreservesOrder(t *testing.T) {
	list := []turbopuffer.Hit{hit("x", "X"), hit("y", "Y"), hit("z", "Z")}

	fused := NewEngine(0).Fuse(list)

	if len(fused) != 3 {
		t.Fatalf("expected 3 results, got %d", len(fused))
	}
	for i, id := range []string{"x", "y", "z"} {
		if fused[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, fused[i].ID)
		}
		want := 1.0 / (60.0 + float64(i+1))
		if math.Abs(fused[i].FusionScore-want) > 1e-12 {
			t.Fatalf("position %d: expected score %v, got %v", i, want, fused[i].FusionScore)
		}
	}
}

func TestFuseEmptyListsYieldEmptyResult(t *testing.T) {
	fused := NewEngine(0).Fuse(nil, []turbopuffer.Hit{})
	if len(fused) != 0 {
		t.Fatalf("expected empty result, got %d entries", len(fused))
	}
}

func TestFuseSharedTopRankSumsContributions(t *testing.T) {
	listA := []turbopuffer.Hit{hit("shared", "Shared"), hit("a2", "A2")}
	listB := []turbopuffer.Hit{hit("shared", "Shared"), hit("b2", "B2")}

	fused := NewEngine(0).Fuse(listA, listB)

	if fused[0].ID != "shared" {
		t.Fatalf("expected shared id ranked first, got %s", fused[0].ID)
	}
	want := 2.0 / 61.0
	if math.Abs(fused[0].FusionScore-want) > 1e-12 {
		t.Fatalf("expected fused score %v (2/61), got %v", want, fused[0].FusionScore)
	}
}

func TestFuseReversedListsTieStable(t *testing.T) {
	listA := []turbopuffer.Hit{hit("A", "Doc A"), hit("B", "Doc B")}
	listB := []turbopuffer.Hit{hit("B", "Doc B"), hit("A", "Doc A")}

	fused := NewEngine(0).Fuse(listA, listB)

	if len(fused) != 2 {
		t.Fatalf("expected 2 results, got %d", len(fused))
	}
	want := 1.0/61.0 + 1.0/62.0
	for _, f := range fused {
		if math.Abs(f.FusionScore-want) > 1e-12 {
			t.Fatalf("id %s: expected score %v, got %v", f.ID, want, f.FusionScore)
		}
	}
	// Equal scores keep encounter order: A was seen first.
	if fused[0].ID != "A" || fused[1].ID != "B" {
		t.Fatalf("expected stable order [A B], got [%s %s]", fused[0].ID, fused[1].ID)
	}
}

func TestFuseAttributesComeFromFirstListContainingID(t *testing.T) {
	listA := []turbopuffer.Hit{{ID: "doc", Title: "Title from A", URL: "https://a.example.org"}}
	listB := []turbopuffer.Hit{{ID: "doc", Title: "Title from B", URL: "https://b.example.org"}}

	fused := NewEngine(0).Fuse(listA, listB)

	if len(fused) != 1 {
		t.Fatalf("expected 1 result, got %d", len(fused))
	}
	if fused[0].Title != "Title from A" || fused[0].URL != "https://a.example.org" {
		t.Fatalf("expected attributes from first list, got title=%q url=%q", fused[0].Title, fused[0].URL)
	}
}

func TestTruncateLimitsResults(t *testing.T) {
	fused := NewEngine(0).Fuse([]turbopuffer.Hit{hit("a", "A"), hit("b", "B"), hit("c", "C")})

	if got := Truncate(fused, 2); len(got) != 2 {
		t.Fatalf("expected 2 results after truncation, got %d", len(got))
	}
	if got := Truncate(fused, 0); len(got) != 3 {
		t.Fatalf("expected truncate with limit 0 to be a no-op, got %d", len(got))
	}
	if got := Truncate(fused, 10); len(got) != 3 {
		t.Fatalf("expected truncate beyond length to be a no-op, got %d", len(got))
	}
}
