package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLexicon_NormalizesAndDeduplicates(t *testing.T) {
	l := NewLexicon([]string{"HIV", "hiv", " Hepatitis  B ", "", "  ", "aspirin", "Aspirin"})

	assert.Equal(t, []string{"aspirin", "hepatitis b", "hiv"}, l.Terms())
	assert.Equal(t, 3, l.Len())
	assert.True(t, l.Contains("HEPATITIS B"))
	assert.False(t, l.Contains("hepatitis"))
}

func TestLexicon_TermsIsACopy(t *testing.T) {
	l := NewLexicon([]string{"insulin"})

	terms := l.Terms()
	terms[0] = "mutated"

	assert.Equal(t, []string{"insulin"}, l.Terms())
}

func TestDefaultLexicon(t *testing.T) {
	l := DefaultLexicon()

	assert.Same(t, l, DefaultLexicon(), "built once and shared")
	assert.Greater(t, l.Len(), 250)
	for _, term := range []string{"ent", "hiv", "aids", "hepatitis b", "dr", "x-ray", "medical report"} {
		assert.True(t, l.Contains(term), term)
	}
	for _, term := range l.Terms() {
		assert.Equal(t, normalize(term), term)
	}
}
