package files

import (
	"context"

	"github.com/dmitrijs2005/meduploads/internal/server/models"
)

type Repository interface {
	Add(ctx context.Context, file *models.ImageFile) (int64, error)
	ListByParent(ctx context.Context, kind models.DocumentKind, parentID int64) ([]*models.ImageFile, error)
	SoftDeleteByParent(ctx context.Context, kind models.DocumentKind, parentID int64) (int64, error)
}
