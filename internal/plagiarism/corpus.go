package plagiarism

import (
	"math"
)

// Document is one corpus entry a candidate is compared against.
type Document struct {
	Title string
	Text  string
}

// Checker scores a candidate against a corpus of prior documents. The
// combined pairwise score weighs title similarity against content similarity.
type Checker struct {
	titleWeight   float64
	contentWeight float64
}

func NewChecker(titleWeight, contentWeight float64) *Checker {
	return &Checker{
		titleWeight:   titleWeight,
		contentWeight: contentWeight,
	}
}

// MaxSimilarity returns the worst-case combined similarity of the candidate
// against any corpus document, rounded to the nearest integer percentage.
//
// Entries sharing the candidate's exact title are skipped so a document never
// competes against itself; entries without stored text are skipped as
// uncomparable. An empty or fully excluded corpus yields 0.
func (c *Checker) MaxSimilarity(candidateTitle, candidateText string, corpus []Document) int {
	maxScore := 0.0

	for _, doc := range corpus {
		if doc.Title == candidateTitle || doc.Text == "" {
			continue
		}

		titleSim := Similarity(candidateTitle, doc.Title)
		contentSim := Similarity(candidateText, doc.Text)

		combined := titleSim*c.titleWeight + contentSim*c.contentWeight
		if combined > maxScore {
			maxScore = combined
		}
	}

	return int(math.Round(maxScore))
}
