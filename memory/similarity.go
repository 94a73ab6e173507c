package memory

import (
	"math"
	"strings"
)

// termVector builds a term-frequency map over whitespace-split tokens of a
// normalized error text.
func termVector(text string) map[string]float64 {
	vec := make(map[string]float64)
	for _, tok := range strings.Fields(text) {
		vec[tok]++
	}
	return vec
}

// termSimilarity is the cosine similarity between the term-frequency vectors
// of two normalized error texts. Ranges 0..1; 1 means identical term bags.
func termSimilarity(a, b string) float64 {
	va, vb := termVector(a), termVector(b)
	if len(va) == 0 || len(vb) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for tok, fa := range va {
		normA += fa * fa
		if fb, ok := vb[tok]; ok {
			dot += fa * fb
		}
	}
	for _, fb := range vb {
		normB += fb * fb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
