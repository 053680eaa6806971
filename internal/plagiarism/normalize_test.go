package plagiarism

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFoldsCaseAndDiacritics(t *testing.T) {
	withAccents := Normalize("Café, CAFÉ!!")
	plain := Normalize("cafe cafe")

	assert.Equal(t, plain, withAccents)
	assert.Equal(t, map[string]struct{}{"cafe": {}}, withAccents)
}

func TestNormalizeDropsShortTokens(t *testing.T) {
	tokens := Normalize("the a an cafe")

	require.Len(t, tokens, 1)
	assert.Contains(t, tokens, "cafe")
}

func TestNormalizeStripsPunctuation(t *testing.T) {
	tokens := Normalize("hello, world!!! (example)")

	assert.Equal(t, map[string]struct{}{
		"hello":   {},
		"world":   {},
		"example": {},
	}, tokens)
}

func TestNormalizeEmptyInput(t *testing.T) {
	assert.Empty(t, Normalize(""))
	assert.Empty(t, Normalize("   \t\n "))
	assert.Empty(t, Normalize("a an the of !!!"))
}

func TestNormalizeCollapsesWhitespaceRuns(t *testing.T) {
	tokens := Normalize("tesis   final\n\tuniversidad")

	assert.Equal(t, map[string]struct{}{
		"tesis":       {},
		"final":       {},
		"universidad": {},
	}, tokens)
}
