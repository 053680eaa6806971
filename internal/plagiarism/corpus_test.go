package plagiarism

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaxSimilarityEmptyCorpus(t *testing.T) {
	checker := NewChecker(0.2, 0.8)

	assert.Zero(t, checker.MaxSimilarity("Title", "some body text", nil))
}

func TestMaxSimilarityExcludesSameTitleAndTextlessEntries(t *testing.T) {
	checker := NewChecker(0.2, 0.8)
	corpus := []Document{
		{Title: "X", Text: ""},
		{Title: "Y", Text: "hello world example"},
	}

	// "X" (same title) and the text-less entry must not contribute; the score
	// derives only from "Y".
	score := checker.MaxSimilarity("X", "hello world example", corpus)

	// Content is identical (80) and titles share nothing (0): 0*0.2 + 100*0.8.
	assert.Equal(t, 80, score)
}

func TestMaxSimilaritySelfTitleOnlyCorpus(t *testing.T) {
	checker := NewChecker(0.2, 0.8)
	corpus := []Document{
		{Title: "Same Title", Text: "identical body text here"},
	}

	assert.Zero(t, checker.MaxSimilarity("Same Title", "identical body text here", corpus))
}

func TestMaxSimilarityCombinedWeights(t *testing.T) {
	// titles share 1 of 3 tokens, bodies are identical:
	// (100/3)*0.2 + 100*0.8 = 86.67 -> 87
	checker := NewChecker(0.2, 0.8)
	corpus := []Document{
		{Title: "alpha1 gamma3", Text: "shared body content tokens"},
	}

	score := checker.MaxSimilarity("alpha1 beta22", "shared body content tokens", corpus)

	assert.Equal(t, 87, score)
}

func TestMaxSimilarityRoundsKnownFormula(t *testing.T) {
	// Direct check of the 0.2/0.8 weighting: titleSim 50, contentSim 80 -> 74.
	// Titles share 2 of 4 tokens (50); bodies share 4 of 5 tokens (80).
	checker := NewChecker(0.2, 0.8)
	corpus := []Document{
		{Title: "aaaa bbbb dddd", Text: "one1 two2 three3 four4 xxxx"},
	}

	score := checker.MaxSimilarity("aaaa bbbb cccc", "one1 two2 three3 four4", corpus)

	assert.Equal(t, 74, score)
}

func TestMaxSimilarityPicksWorstCase(t *testing.T) {
	checker := NewChecker(0.2, 0.8)
	corpus := []Document{
		{Title: "unrelated thesis", Text: "completely different words entirely"},
		{Title: "close thesis", Text: "shared body content tokens exactly"},
		{Title: "", Text: ""},
	}

	score := checker.MaxSimilarity("candidate thesis", "shared body content tokens exactly", corpus)

	// Worst case is the identical-body entry.
	assert.GreaterOrEqual(t, score, 80)
}
