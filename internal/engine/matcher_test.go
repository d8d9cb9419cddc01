package engine

import (
	"context"
	"errors"
	"testing"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}

func TestLexicalScoreEmptyKnowledgeBase(t *testing.T) {
	if got := LexicalScore("how do I reset my password", nil); got != 0 {
		t.Errorf("empty knowledge base should score 0, got %v", got)
	}
}

func TestLexicalScorePicksBestItem(t *testing.T) {
	items := []KnowledgeItem{
		{Question: "What are your business hours", Answer: "We are open 9 to 5"},
		{Question: "How do I reset my password", Answer: "Use the forgot password link"},
	}
	got := LexicalScore("how do i reset my password", items)
	if !approx(got, 1) {
		t.Errorf("exact question match should score 1, got %v", got)
	}
}

func TestLexicalScoreAnswerDownweighted(t *testing.T) {
	items := []KnowledgeItem{
		{Question: "completely unrelated thing", Answer: "reset password link"},
	}
	got := LexicalScore("reset password link", items)
	if !approx(got, 0.5) {
		t.Errorf("answer-only match should score 0.5, got %v", got)
	}
}

func TestMatcherTopKRanksBySimilarity(t *testing.T) {
	m := NewMatcher(&fakeEmbedder{vec: []float32{1, 0}})
	items := []KnowledgeItem{
		{ID: "far", Embedding: []float32{0, 1}},
		{ID: "near", Embedding: []float32{1, 0}},
		{ID: "mid", Embedding: []float32{1, 1}},
		{ID: "unembedded"},
	}
	got := m.TopK(context.Background(), "q", items, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Item.ID != "near" || got[1].Item.ID != "mid" {
		t.Errorf("wrong ranking: %q then %q", got[0].Item.ID, got[1].Item.ID)
	}
	if got[0].Score < got[1].Score {
		t.Errorf("scores not descending: %v then %v", got[0].Score, got[1].Score)
	}
}

func TestMatcherTopKDegradesOnEmbedFailure(t *testing.T) {
	m := NewMatcher(&fakeEmbedder{err: errors.New("oracle unavailable")})
	items := []KnowledgeItem{{ID: "a", Embedding: []float32{1, 0}}}
	if got := m.TopK(context.Background(), "q", items, 5); got != nil {
		t.Errorf("expected nil on embed failure, got %v", got)
	}
}
