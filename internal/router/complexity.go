package router

import (
	"hash/fnv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// complexityCacheSize bounds the memoised prompt scores. Agents tend to
// re-route near-identical prompts (retries, escalations), so hits are
// common.
const complexityCacheSize = 512

// complexityEstimator scores how complex a prompt looks, on [1.0, 3.0].
// The score biases the cost estimate upward monotonically with prompt
// length and structural hints; it never changes which model is chosen.
type complexityEstimator struct {
	cache *lru.Cache[uint64, float64]
}

func newComplexityEstimator() *complexityEstimator {
	// New only fails for a non-positive size
	cache, _ := lru.New[uint64, float64](complexityCacheSize)
	return &complexityEstimator{cache: cache}
}

func (e *complexityEstimator) estimate(prompt string) float64 {
	key := hashPrompt(prompt)
	if score, ok := e.cache.Get(key); ok {
		return score
	}

	score := scorePrompt(prompt)
	e.cache.Add(key, score)
	return score
}

func scorePrompt(prompt string) float64 {
	score := 1.0

	// Length contributes up to +1.0, saturating at ~4000 chars.
	length := float64(len(prompt)) / 4000
	if length > 1 {
		length = 1
	}
	score += length

	lower := strings.ToLower(prompt)
	for _, hint := range []string{"```", "refactor", "architecture", "concurren", "optimi", "prove", "analyze", "analyse"} {
		if strings.Contains(lower, hint) {
			score += 0.125
		}
	}

	if score > 3 {
		score = 3
	}
	return score
}

func hashPrompt(prompt string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(prompt))
	return h.Sum64()
}
