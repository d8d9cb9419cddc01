package engine

import "testing"

func TestTokenize(t *testing.T) {
	tokens := Tokenize("How do I reset my password?")
	want := []string{"how", "do", "i", "reset", "my", "password"}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(tokens))
	}
	for _, w := range want {
		if _, ok := tokens[w]; !ok {
			t.Errorf("missing token %q", w)
		}
	}
	if len(Tokenize("  ?!  ")) != 0 {
		t.Error("punctuation-only input should yield no tokens")
	}
}

func TestJaccard(t *testing.T) {
	if got := Jaccard("reset my password", "reset my password"); !approx(got, 1) {
		t.Errorf("identical strings: expected 1, got %v", got)
	}
	if got := Jaccard("reset password", "billing invoice"); !approx(got, 0) {
		t.Errorf("disjoint strings: expected 0, got %v", got)
	}
	// {reset, my, password} vs {reset, password}: 2/3
	if got := Jaccard("reset my password", "reset password"); !approx(got, 2.0/3.0) {
		t.Errorf("expected 2/3, got %v", got)
	}
	if got := Jaccard("", "anything"); !approx(got, 0) {
		t.Errorf("empty input: expected 0, got %v", got)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0}); !approx(got, 1) {
		t.Errorf("parallel vectors: expected 1, got %v", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); !approx(got, 0) {
		t.Errorf("orthogonal vectors: expected 0, got %v", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}); got != 0 {
		t.Errorf("dimension mismatch: expected 0, got %v", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Errorf("zero vector: expected 0, got %v", got)
	}
}
