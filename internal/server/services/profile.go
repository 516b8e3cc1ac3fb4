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

// UploadProfile replaces a member's profile picture. Classification applies
// only when profiles are configured to require a medical document. The
// previous files are removed only after the new paths are committed; a
// failed removal is logged and leaves an unreferenced file behind.
func (s *UploadService) UploadProfile(ctx context.Context, req UploadRequest) (*BatchOutcome, error) {
	const op = OpProfile

	memberID, err := parseMember(op, req.Fields)
	if err != nil {
		return nil, err
	}
	if err := validateFiles(op, req.Files, Limits{MaxFiles: 1, MaxFileBytes: s.limits.MaxFileBytes}); err != nil {
		return nil, err
	}

	var (
		outcome  *BatchOutcome
		written  []string
		previous *models.User
	)
	err = dbx.WithConn(ctx, s.db, func(ctx context.Context, conn *sql.Conn) error {
		principal, err := s.guard.Authorize(ctx, req.Token, memberID, conn)
		if err != nil {
			return err
		}

		return dbx.WithTx(ctx, conn, nil, func(ctx context.Context, tx dbx.DBTX) error {
			sets, results, err := s.evaluate(ctx, principal.AccountID, req.Files, s.profileRequiresMedical)
			if err != nil {
				return err
			}
			outcome = newOutcome(req.Files, results)
			if !outcome.Accepted {
				return errBatchRejected
			}

			users := s.repomanager.Users(tx)
			previous, err = users.GetProfile(ctx, memberID)
			if err != nil {
				return persistence(op, err)
			}

			stored, err := s.putVariants(ctx, storage.CategoryProfiles, sets[0], &written)
			if err != nil {
				return persistence(op, err)
			}
			if err := users.SetProfile(ctx, memberID, stored.ImagePath, stored.ThumbnailPath); err != nil {
				return persistence(op, err)
			}
			outcome.RecordID = memberID
			outcome.Stored = []StoredImage{stored}
			return nil
		})
	})

	outcome, err = s.finish(ctx, op, memberID, outcome, written, err)
	if err == nil && outcome.Accepted && previous != nil {
		for _, key := range []string{previous.ProfileImage, previous.ProfileThumbnail} {
			s.deletePrevious(context.WithoutCancel(ctx), key)
		}
	}
	return outcome, err
}

// deletePrevious removes a replaced profile file. Missing files are fine, and
// keys that would resolve outside the upload root are left alone.
func (s *UploadService) deletePrevious(ctx context.Context, key string) {
	if key == "" {
		return
	}
	err := s.store.Delete(ctx, key)
	switch {
	case err == nil, errors.Is(err, common.ErrorNotFound):
	case errors.Is(err, common.ErrPathOutsideRoot):
		s.logger.Warn(ctx, "previous profile path outside upload root, not deleted", "key", key)
	default:
		s.logger.Warn(ctx, "previous profile file not deleted", "key", key, "error", err)
	}
}
