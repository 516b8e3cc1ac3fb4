// Package filex contains filesystem helpers shared by the storage layer:
// directory bootstrap and root containment of relative paths.
package filex

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/meduploads/internal/common"
)

// EnsureDir creates dir (and parents) if needed and returns its absolute path.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}

// CleanRelative normalizes a slash-separated, root-relative path and rejects
// anything that is absolute, empty or escapes the root.
func CleanRelative(rel string) (string, error) {
	if rel == "" || strings.ContainsRune(rel, 0) {
		return "", common.ErrPathOutsideRoot
	}
	rel = strings.ReplaceAll(rel, "\\", "/")
	if path.IsAbs(rel) || filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", common.ErrPathOutsideRoot
	}

	cleaned := path.Clean(rel)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", common.ErrPathOutsideRoot
	}
	return cleaned, nil
}

// ResolveWithin joins rel onto root and returns the absolute result, failing
// with common.ErrPathOutsideRoot when the result would leave root.
func ResolveWithin(root, rel string) (string, error) {
	cleaned, err := CleanRelative(rel)
	if err != nil {
		return "", err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", root, err)
	}

	full := filepath.Join(absRoot, filepath.FromSlash(cleaned))
	within, err := filepath.Rel(absRoot, full)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", common.ErrPathOutsideRoot
	}
	return full, nil
}

// IsNotExist reports whether err means the file is missing.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
