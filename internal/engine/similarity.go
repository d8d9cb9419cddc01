package engine

import (
	"math"
	"regexp"
	"strings"
)

var tokenSplit = regexp.MustCompile(`\W+`)

// Tokenize lowercases text and splits it on non-word runs, returning the
// distinct tokens. Empty input yields an empty set.
func Tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range tokenSplit.Split(strings.ToLower(text), -1) {
		if tok != "" {
			tokens[tok] = struct{}{}
		}
	}
	return tokens
}

// Jaccard returns the Jaccard similarity of the token sets of a and b.
// Two empty sets score zero, not one.
func Jaccard(a, b string) float64 {
	return jaccardSets(Tokenize(a), Tokenize(b))
}

func jaccardSets(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// CosineSimilarity returns the cosine of the angle between two vectors, or
// zero when either vector is empty, zero-length, or the dimensions differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
