package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/meduploads/internal/common"
	"github.com/dmitrijs2005/meduploads/internal/dbx"
	"github.com/dmitrijs2005/meduploads/internal/server/models"
	"github.com/dmitrijs2005/meduploads/internal/server/storage"
)

// UploadPrescription creates a prescription and attaches every file of the
// batch to it, or commits nothing if any file is not a medical document.
func (s *UploadService) UploadPrescription(ctx context.Context, req UploadRequest) (*BatchOutcome, error) {
	p, err := parsePrescription(req.Fields)
	if err != nil {
		return nil, err
	}
	if err := validateFiles(OpPrescription, req.Files, s.limits); err != nil {
		return nil, err
	}

	return s.runBatch(ctx, req, batch{
		op:       OpPrescription,
		category: storage.CategoryPrescriptions,
		kind:     models.KindPrescription,
		memberID: p.UserID,
		parent: func(ctx context.Context, tx dbx.DBTX) (int64, error) {
			return s.repomanager.Documents(tx).CreatePrescription(ctx, p)
		},
	})
}

// UploadReport creates a report, optionally linked to one of the member's
// prescriptions, and attaches the batch to it.
func (s *UploadService) UploadReport(ctx context.Context, req UploadRequest) (*BatchOutcome, error) {
	rep, err := parseReport(req.Fields)
	if err != nil {
		return nil, err
	}
	if err := validateFiles(OpReport, req.Files, s.limits); err != nil {
		return nil, err
	}

	b := batch{
		op:       OpReport,
		category: storage.CategoryReports,
		kind:     models.KindReport,
		memberID: rep.UserID,
		parent: func(ctx context.Context, tx dbx.DBTX) (int64, error) {
			return s.repomanager.Documents(tx).CreateReport(ctx, rep)
		},
	}
	if rep.PrescriptionID != nil {
		linked := *rep.PrescriptionID
		b.check = func(ctx context.Context, conn dbx.DBTX) error {
			return s.checkParent(ctx, OpReport, conn, models.KindPrescription, linked, rep.UserID)
		}
	}
	return s.runBatch(ctx, req, b)
}

// AppendPrescriptionImages attaches a batch to an existing, active
// prescription owned by the member.
func (s *UploadService) AppendPrescriptionImages(ctx context.Context, req UploadRequest) (*BatchOutcome, error) {
	return s.appendImages(ctx, req, OpPrescriptionImages, FieldPrescriptionID, models.KindPrescription, storage.CategoryPrescriptions)
}

// AppendReportImages attaches a batch to an existing, active report owned by
// the member.
func (s *UploadService) AppendReportImages(ctx context.Context, req UploadRequest) (*BatchOutcome, error) {
	return s.appendImages(ctx, req, OpReportImages, FieldReportID, models.KindReport, storage.CategoryReports)
}

func (s *UploadService) appendImages(ctx context.Context, req UploadRequest, op, parentField string, kind models.DocumentKind, category storage.Category) (*BatchOutcome, error) {
	memberID, parentID, err := parseParent(op, req.Fields, parentField)
	if err != nil {
		return nil, err
	}
	if err := validateFiles(op, req.Files, s.limits); err != nil {
		return nil, err
	}

	return s.runBatch(ctx, req, batch{
		op:       op,
		category: category,
		kind:     kind,
		memberID: memberID,
		check: func(ctx context.Context, conn dbx.DBTX) error {
			return s.checkParent(ctx, op, conn, kind, parentID, memberID)
		},
		parent: func(context.Context, dbx.DBTX) (int64, error) {
			return parentID, nil
		},
	})
}

// checkParent fails with KindNotFound unless the record exists, is not
// soft-deleted and belongs to memberID. The three cases are indistinguishable
// to the caller.
func (s *UploadService) checkParent(ctx context.Context, op string, db dbx.DBTX, kind models.DocumentKind, id, memberID int64) error {
	docs := s.repomanager.Documents(db)

	var (
		owner *models.Owner
		err   error
	)
	switch kind {
	case models.KindPrescription:
		owner, err = docs.GetPrescriptionOwner(ctx, id)
	default:
		owner, err = docs.GetReportOwner(ctx, id)
	}
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.Errorf(common.KindNotFound, op, "%s %d: %w", kind, id, common.ErrorNotFound)
		}
		return persistence(op, err)
	}
	if owner.Deleted || owner.UserID != memberID {
		return common.Errorf(common.KindNotFound, op, "%s %d: %w", kind, id, common.ErrorNotFound)
	}
	return nil
}

// DeleteOutcome reports a soft delete.
type DeleteOutcome struct {
	RecordID     int64
	Images       int
	BlobsRemoved int
}

// DeletePrescription soft-deletes a prescription of the member and its image
// rows, then removes the stored blobs.
func (s *UploadService) DeletePrescription(ctx context.Context, token string, memberID, id int64) (*DeleteOutcome, error) {
	return s.deleteDocument(ctx, token, memberID, id, models.KindPrescription)
}

// DeleteReport is DeletePrescription for reports.
func (s *UploadService) DeleteReport(ctx context.Context, token string, memberID, id int64) (*DeleteOutcome, error) {
	return s.deleteDocument(ctx, token, memberID, id, models.KindReport)
}

func (s *UploadService) deleteDocument(ctx context.Context, token string, memberID, id int64, kind models.DocumentKind) (*DeleteOutcome, error) {
	op := "delete " + string(kind)
	if memberID <= 0 || id <= 0 {
		return nil, common.Errorf(common.KindValidation, op, "%s and record id must be positive integers", FieldMemberID)
	}

	var images []*models.ImageFile
	err := dbx.WithConn(ctx, s.db, func(ctx context.Context, conn *sql.Conn) error {
		if _, err := s.guard.Authorize(ctx, token, memberID, conn); err != nil {
			return err
		}

		return dbx.WithTx(ctx, conn, nil, func(ctx context.Context, tx dbx.DBTX) error {
			docs := s.repomanager.Documents(tx)
			var err error
			switch kind {
			case models.KindPrescription:
				err = docs.SoftDeletePrescription(ctx, id, memberID)
			default:
				err = docs.SoftDeleteReport(ctx, id, memberID)
			}
			if err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					return common.Errorf(common.KindNotFound, op, "%s %d: %w", kind, id, err)
				}
				return persistence(op, err)
			}

			files := s.repomanager.Files(tx)
			if images, err = files.ListByParent(ctx, kind, id); err != nil {
				return persistence(op, err)
			}
			if _, err := files.SoftDeleteByParent(ctx, kind, id); err != nil {
				return persistence(op, err)
			}
			return nil
		})
	})
	if err != nil {
		if common.KindOf(err) == common.KindUnknown {
			err = persistence(op, err)
		}
		return nil, err
	}

	out := &DeleteOutcome{RecordID: id, Images: len(images)}
	for _, img := range images {
		out.BlobsRemoved += s.removeBlob(ctx, img.ImagePath)
		out.BlobsRemoved += s.removeBlob(ctx, img.ThumbnailPath)
	}
	s.logger.Info(ctx, "record deleted", "kind", kind, "record_id", id, "member_id", memberID, "images", out.Images, "blobs_removed", out.BlobsRemoved)
	return out, nil
}

// removeBlob deletes a committed blob after its rows are gone. The store
// refuses keys outside the upload root; such keys are logged and skipped.
func (s *UploadService) removeBlob(ctx context.Context, key string) int {
	if key == "" {
		return 0
	}
	err := s.store.Delete(ctx, key)
	switch {
	case err == nil:
		return 1
	case errors.Is(err, common.ErrorNotFound):
		return 0
	case errors.Is(err, common.ErrPathOutsideRoot):
		s.logger.Warn(ctx, "refusing to delete path outside upload root", "key", key)
		return 0
	default:
		s.logger.Error(ctx, "blob delete failed", "key", key, "error", err)
		return 0
	}
}
