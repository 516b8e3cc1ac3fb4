package models

// ImageFile is one accepted upload attached to a prescription or report.
// Paths are storage keys relative to the upload root.
type ImageFile struct {
	ID            int64
	Kind          DocumentKind
	ParentID      int64
	ImagePath     string
	ThumbnailPath string
}
