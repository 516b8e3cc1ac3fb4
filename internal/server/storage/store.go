// Package storage keeps uploaded variants. Keys are root-relative,
// slash-separated paths such as "prescriptions/scan-color-42-tok.png"; every
// backend rejects keys that would escape the root.
package storage

import (
	"context"
	"io"
	"path"
)

// Category is a top-level folder under the upload root.
type Category string

const (
	CategoryPrescriptions Category = "prescriptions"
	CategoryReports       Category = "reports"
	CategoryProfiles      Category = "profiles"
)

// Categories lists every known category.
var Categories = []Category{CategoryPrescriptions, CategoryReports, CategoryProfiles}

// Key returns the storage key of filename within c.
func (c Category) Key(filename string) string {
	return path.Join(string(c), filename)
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Store persists blobs by key. Open and Delete report a missing key with
// common.ErrorNotFound; an escaping key yields common.ErrPathOutsideRoot.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
