// Package ocr extracts text from grayscale images by invoking the tesseract
// CLI. Every failure is reported as a KindClassification error so callers can
// degrade to "not a medical document" instead of failing the request.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dmitrijs2005/meduploads/internal/common"
)

// Extractor turns an encoded image into text.
type Extractor interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// Tesseract wraps the tesseract CLI. The zero value is not usable; build it
// with NewTesseract. One instance is shared by the whole process.
type Tesseract struct {
	Binary   string
	Language string
	Timeout  time.Duration
}

func NewTesseract(binary, language string, timeout time.Duration) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Tesseract{Binary: binary, Language: language, Timeout: timeout}
}

// ExtractText writes image to a temp file and runs
//
//	tesseract <file> stdout -l <lang>
//
// bounded by t.Timeout. A timeout is reported like any other failure.
func (t *Tesseract) ExtractText(ctx context.Context, image []byte) (string, error) {
	const op = "ocr.extract"

	if len(image) == 0 {
		return "", common.E(common.KindClassification, op, errors.New("empty image"))
	}

	path, cleanup, err := writeTemp(image)
	if err != nil {
		return "", common.E(common.KindClassification, op, err)
	}
	defer cleanup()

	cmdCtx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, t.Binary, path, "stdout", "-l", t.Language)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := cmdCtx.Err(); ctxErr != nil {
			return "", common.Errorf(common.KindClassification, op, "tesseract: %w", ctxErr)
		}
		return "", common.Errorf(common.KindClassification, op, "tesseract: %w - %s", err, strings.TrimSpace(stderr.String()))
	}

	return cleanOutput(stdout.String()), nil
}

func writeTemp(data []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "ocr-input-*.png")
	if err != nil {
		return "", nil, fmt.Errorf("create temp image: %w", err)
	}

	cleanup := func() {
		f.Close()
		os.Remove(f.Name())
	}

	if _, err := f.Write(data); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp image: %w", err)
	}
	return f.Name(), cleanup, nil
}

// cleanOutput drops page separators and CRLFs from tesseract stdout.
func cleanOutput(s string) string {
	s = strings.ReplaceAll(s, "\f", "\n")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}
