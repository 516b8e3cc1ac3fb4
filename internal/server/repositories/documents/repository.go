package documents

import (
	"context"

	"github.com/dmitrijs2005/meduploads/internal/server/models"
)

type Repository interface {
	CreatePrescription(ctx context.Context, p *models.Prescription) (int64, error)
	CreateReport(ctx context.Context, r *models.Report) (int64, error)
	GetPrescriptionOwner(ctx context.Context, id int64) (*models.Owner, error)
	GetReportOwner(ctx context.Context, id int64) (*models.Owner, error)
	SoftDeletePrescription(ctx context.Context, id, userID int64) error
	SoftDeleteReport(ctx context.Context, id, userID int64) error
}
