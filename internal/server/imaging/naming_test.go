package imaging

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseName(t *testing.T) {
	tests := map[string]string{
		"scan.png":                 "scan",
		"My Prescription.JPG":      "My_Prescription",
		"../../etc/passwd.webp":    "passwd",
		`C:\photos\lab-result.png`: "lab-result",
		"....png":                  "image",
		"":                         "image",
		"рецепт.png":               "image",
		"a.b.c.jpeg":               "a_b_c",
	}
	for in, want := range tests {
		assert.Equal(t, want, BaseName(in), in)
	}

	long := BaseName(strings.Repeat("x", 200) + ".png")
	assert.Len(t, long, maxBaseNameLen)
}

func TestNamer_UniqueWithinBatch(t *testing.T) {
	n := frozenNamer()

	seen := map[string]struct{}{}
	for i := 0; i < 10; i++ {
		token, err := n.Token(i)
		require.NoError(t, err)
		name := n.Name(BaseName("same.png"), TagColor, 42, token, OutputExt)
		_, dup := seen[name]
		require.False(t, dup, "duplicate filename %s", name)
		seen[name] = struct{}{}
	}
}

func TestNamer_SameIndexDifferentRequests(t *testing.T) {
	n := NewNamer()
	n.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	a, err := n.Token(0)
	require.NoError(t, err)
	b, err := n.Token(0)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "random suffix must separate same-millisecond batches")
}

func TestNamer_TokenHasNoDash(t *testing.T) {
	token, err := NewNamer().Token(7)
	require.NoError(t, err)
	assert.NotContains(t, token, "-")
}

func TestNamer_RandomFailure(t *testing.T) {
	n := NewNamer()
	n.random = func() (string, error) { return "", errors.New("entropy") }

	_, err := n.Token(0)
	require.Error(t, err)
}

func TestOwnerFromName(t *testing.T) {
	owner, ok := OwnerFromName("my-lab-scan-color-42-20261015T093000123Z_000_abcdef.png")
	require.True(t, ok)
	assert.Equal(t, "42", owner)

	owner, ok = OwnerFromName("prescriptions/scan-thumb-9-tok.png")
	require.True(t, ok)
	assert.Equal(t, "9", owner)

	_, ok = OwnerFromName("nodashes.png")
	assert.False(t, ok)
}

func TestRandomHex(t *testing.T) {
	s, err := randomHex(3)
	require.NoError(t, err)
	require.Len(t, s, 6)
	assert.NotContains(t, s, "-")

	empty, err := randomHex(0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
