package plagiarism

// Similarity returns the Jaccard similarity of two raw texts as a percentage
// in [0, 100]. Both texts are normalized first; if the union of the two token
// sets is empty the similarity is defined as 0. Symmetric in its arguments.
func Similarity(textA, textB string) float64 {
	setA := Normalize(textA)
	setB := Normalize(textB)

	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union) * 100
}
