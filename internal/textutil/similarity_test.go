package textutil

import "testing"

func TestSimilarityBoundaries(t *testing.T) {
	if got := Similarity("", ""); got != 100 {
		t.Fatalf("expected two empty strings to score 100, got %v", got)
	}
	if got := Similarity("", "something"); got != 0 {
		t.Fatalf("expected empty vs non-empty to score 0, got %v", got)
	}
	if got := Similarity("ai is great", "ai is great"); got != 100 {
		t.Fatalf("expected identical strings to score 100, got %v", got)
	}
}

func TestSimilarityIsSymmetric(t *testing.T) {
	a := "ai is great"
	b := "ai is awesome"
	if Similarity(a, b) != Similarity(b, a) {
		t.Fatalf("expected symmetric scores, got %v and %v", Similarity(a, b), Similarity(b, a))
	}
}

func TestSimilarityNearDuplicateTitles(t *testing.T) {
	// The pair that must trip the strong title threshold (>90).
	got := Similarity("ai is great", "ai is great")
	if got <= 90 {
		t.Fatalf("identical titles must exceed the strong threshold, got %v", got)
	}

	// Distinct titles must stay clear of it.
	if got := Similarity("ai is great", "something else"); got > 90 {
		t.Fatalf("unrelated titles scored %v, expected <= 90", got)
	}
}

func TestSimilarityMonotonicIntuition(t *testing.T) {
	base := "openai releases new model"
	near := "openai releases a new model"
	far := "stock market closes lower"
	if Similarity(base, near) <= Similarity(base, far) {
		t.Fatalf("expected closer string to score higher: near=%v far=%v",
			Similarity(base, near), Similarity(base, far))
	}
}

func TestSimilarityRange(t *testing.T) {
	pairs := [][2]string{
		{"a", "b"},
		{"abc", "axbxc"},
		{"the quick brown fox", "the quick brown fox jumps"},
		{"x", "xxxxxxxxxx"},
	}
	for _, p := range pairs {
		got := Similarity(p[0], p[1])
		if got < 0 || got > 100 {
			t.Fatalf("Similarity(%q, %q) = %v out of range", p[0], p[1], got)
		}
	}
}
