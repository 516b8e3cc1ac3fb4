package imaging

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const maxBaseNameLen = 50

// Namer builds variant filenames of the form
//
//	{base}-{tag}-{userID}-{token}.{ext}
//
// The token never contains '-', so the owner id is always the second-to-last
// dash-separated segment.
type Namer struct {
	now    func() time.Time
	random func() (string, error)
}

func NewNamer() *Namer {
	return &Namer{
		now:    time.Now,
		random: func() (string, error) { return randomHex(3) },
	}
}

// randomHex returns size random bytes hex-encoded.
func randomHex(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Token returns a uniqueness token: UTC millisecond timestamp, the batch
// index and a random suffix.
func (n *Namer) Token(index int) (string, error) {
	ts := n.now().UTC()
	suffix, err := n.random()
	if err != nil {
		return "", fmt.Errorf("random suffix: %w", err)
	}
	return fmt.Sprintf("%s%03dZ_%03d_%s", ts.Format("20060102T150405"), ts.Nanosecond()/int(time.Millisecond), index, suffix), nil
}

// Name assembles a variant filename.
func (n *Namer) Name(base, tag string, userID int64, token, ext string) string {
	return fmt.Sprintf("%s-%s-%d-%s.%s", base, tag, userID, token, ext)
}

// BaseName strips the extension from an uploaded filename and reduces it to
// [A-Za-z0-9_-], at most 50 characters. An empty result becomes "image".
func BaseName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.TrimSuffix(name, filepath.Ext(name))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		if b.Len() >= maxBaseNameLen {
			break
		}
	}

	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "image"
	}
	return out
}

// OwnerFromName returns the owner segment of a variant filename, i.e. the
// second-to-last '-' separated part.
func OwnerFromName(filename string) (string, bool) {
	parts := strings.Split(filepath.Base(filename), "-")
	if len(parts) < 3 {
		return "", false
	}
	return parts[len(parts)-2], true
}
