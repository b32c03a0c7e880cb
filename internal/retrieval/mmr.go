package retrieval

import (
	"math"

	"github.com/campushelp/faq-bot/internal/qdrant"
)

// selectMMR greedily selects k results from candidates using maximal
// marginal relevance:
//
//	MMR(Di) = λ * Relevance(Di) - (1-λ) * max_j∈S Similarity(Di, Dj)
//
// where S is the set of already selected documents. Candidates are
// expected in descending relevance order; the first selection is always
// the most relevant, and ties resolve to the lowest candidate index so
// the output is deterministic.
func selectMMR(candidates []qdrant.SearchResult, k int, lambda float32) []qdrant.SearchResult {
	if len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	// Normalize relevance scores to 0-1 range
	maxScore := candidates[0].Score
	minScore := candidates[len(candidates)-1].Score
	scoreRange := maxScore - minScore
	if scoreRange == 0 {
		scoreRange = 1 // Avoid division by zero
	}

	relevance := make([]float32, len(candidates))
	for i := range candidates {
		relevance[i] = (candidates[i].Score - minScore) / scoreRange
	}

	selected := make([]int, 0, k)
	remaining := make([]bool, len(candidates))
	for i := range remaining {
		remaining[i] = true
	}

	// First result is always the most relevant
	selected = append(selected, 0)
	remaining[0] = false

	for len(selected) < k {
		bestIdx := -1
		var bestScore float32 = -math.MaxFloat32

		for idx := range candidates {
			if !remaining[idx] {
				continue
			}

			// The running max starts below any cosine so anti-correlated
			// candidates keep their negative (diversity-rewarding) term.
			var maxSim float32 = -math.MaxFloat32
			for _, selIdx := range selected {
				sim := cosineSimilarity(candidates[idx].Vector, candidates[selIdx].Vector)
				if sim > maxSim {
					maxSim = sim
				}
			}

			mmrScore := lambda*relevance[idx] - (1-lambda)*maxSim
			if mmrScore > bestScore {
				bestScore = mmrScore
				bestIdx = idx
			}
		}

		if bestIdx < 0 {
			break
		}
		selected = append(selected, bestIdx)
		remaining[bestIdx] = false
	}

	out := make([]qdrant.SearchResult, len(selected))
	for i, idx := range selected {
		out[i] = candidates[idx]
	}
	return out
}

// cosineSimilarity computes the cosine similarity between two vectors.
// Mismatched or empty vectors score zero.
func cosineSimilarity(a, b []float32) float32 {
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

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
