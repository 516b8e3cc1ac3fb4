// Package classifier decides whether text extracted from an image reads like
// a medical document. The rule is deliberately crude: the normalized text must
// contain at least one lexicon term as a substring.
package classifier

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/meduploads/internal/logging"
	"github.com/dmitrijs2005/meduploads/internal/server/ocr"
)

// Result is the verdict for one image.
type Result struct {
	IsMedical bool
	Text      string
	Matched   []string
}

// Classifier matches text against a Lexicon. It holds no mutable state and is
// safe for concurrent use.
type Classifier struct {
	lexicon *Lexicon
}

func New(lexicon *Lexicon) *Classifier {
	if lexicon == nil {
		lexicon = DefaultLexicon()
	}
	return &Classifier{lexicon: lexicon}
}

// Classify normalizes text (lowercase, single spaces, trimmed) and reports
// every lexicon term found in it. Text keeps the raw input.
func (c *Classifier) Classify(text string) Result {
	normalized := normalize(text)

	var matched []string
	if normalized != "" {
		for _, term := range c.lexicon.terms {
			if strings.Contains(normalized, term) {
				matched = append(matched, term)
			}
		}
	}

	return Result{
		IsMedical: len(matched) > 0,
		Text:      text,
		Matched:   matched,
	}
}

// Judge extracts text from a grayscale image and classifies it. Extraction
// failures are logged and yield a rejected result with empty text.
func (c *Classifier) Judge(ctx context.Context, extractor ocr.Extractor, logger logging.Logger, grayscale []byte) Result {
	text, err := extractor.ExtractText(ctx, grayscale)
	if err != nil {
		logger.Warn(ctx, "text extraction failed, treating image as non-medical", "error", err)
		return Result{}
	}
	return c.Classify(text)
}
