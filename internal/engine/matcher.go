package engine

import (
	"context"
	"sort"
)

// KnowledgeItem is one curated question/answer pair. Embedding is nil for
// items that have not been embedded yet; vector matching skips those.
type KnowledgeItem struct {
	ID        string
	Question  string
	Answer    string
	Tags      []string
	Embedding []float32
}

// answerWeight down-weights answer-text overlap relative to question-text
// overlap when scoring lexical retrieval.
const answerWeight = 0.5

// LexicalScore returns how well the user query matches the knowledge base
// using token overlap alone: the best per-item score, where an item scores
// the larger of its question similarity and half its answer similarity.
// An empty knowledge base scores zero.
func LexicalScore(query string, items []KnowledgeItem) float64 {
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return 0
	}
	best := 0.0
	for _, item := range items {
		qSim := jaccardSets(queryTokens, Tokenize(item.Question))
		aSim := jaccardSets(queryTokens, Tokenize(item.Answer)) * answerWeight
		if qSim > best {
			best = qSim
		}
		if aSim > best {
			best = aSim
		}
	}
	return best
}

// QueryEmbedder produces an embedding vector for a single query string.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ScoredItem pairs a knowledge item with its similarity to a query.
type ScoredItem struct {
	Item  KnowledgeItem
	Score float64
}

// Matcher ranks knowledge items against a query by embedding similarity.
type Matcher struct {
	embedder QueryEmbedder
}

func NewMatcher(embedder QueryEmbedder) *Matcher {
	return &Matcher{embedder: embedder}
}

// TopK returns up to k items ranked by cosine similarity to the query,
// highest first. Items without an embedding are skipped. If the embedding
// oracle fails the matcher degrades to an empty result rather than
// surfacing the error; retrieval confidence then reads as zero.
func (m *Matcher) TopK(ctx context.Context, query string, items []KnowledgeItem, k int) []ScoredItem {
	if k <= 0 || len(items) == 0 {
		return nil
	}
	queryVec, err := m.embedder.EmbedQuery(ctx, query)
	if err != nil || len(queryVec) == 0 {
		return nil
	}
	scored := make([]ScoredItem, 0, len(items))
	for _, item := range items {
		if len(item.Embedding) == 0 {
			continue
		}
		scored = append(scored, ScoredItem{Item: item, Score: CosineSimilarity(queryVec, item.Embedding)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
