package services

import (
	"context"

	"github.com/dmitrijs2005/meduploads/internal/server/classifier"
	"github.com/dmitrijs2005/meduploads/internal/server/imaging"
	"github.com/dmitrijs2005/meduploads/internal/server/metrics"
)

// ClassifyImage runs the classification pipeline on a single image without
// storing anything. Only the token is checked; no member is involved.
func (s *UploadService) ClassifyImage(ctx context.Context, token string, src imaging.Source) (*classifier.Result, error) {
	const op = OpClassify

	accountID, err := s.guard.Account(token)
	if err != nil {
		return nil, err
	}
	if err := validateFiles(op, []imaging.Source{src}, Limits{MaxFiles: 1, MaxFileBytes: s.limits.MaxFileBytes}); err != nil {
		return nil, err
	}

	_, results, err := s.evaluate(ctx, accountID, []imaging.Source{src}, true)
	if err != nil {
		s.metrics.ObserveUpload(op, metrics.OutcomeError)
		return nil, err
	}

	res := results[0]
	outcome := metrics.OutcomeRejected
	if res.IsMedical {
		outcome = metrics.OutcomeCommitted
	}
	s.metrics.ObserveUpload(op, outcome)
	s.logger.Info(ctx, "image classified", "account_id", accountID, "medical", res.IsMedical, "matched", len(res.Matched))
	return &res, nil
}
