package users

import (
	"context"

	"github.com/dmitrijs2005/meduploads/internal/server/models"
)

type Repository interface {
	Authorize(ctx context.Context, memberID, accountID int64) error
	GetProfile(ctx context.Context, memberID int64) (*models.User, error)
	SetProfile(ctx context.Context, memberID int64, image, thumbnail string) error
}
