package services

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/meduploads/internal/common"
	"github.com/dmitrijs2005/meduploads/internal/dbx"
	"github.com/dmitrijs2005/meduploads/internal/logging"
	"github.com/dmitrijs2005/meduploads/internal/server/auth"
	"github.com/dmitrijs2005/meduploads/internal/server/classifier"
	"github.com/dmitrijs2005/meduploads/internal/server/config"
	"github.com/dmitrijs2005/meduploads/internal/server/imaging"
	"github.com/dmitrijs2005/meduploads/internal/server/metrics"
	"github.com/dmitrijs2005/meduploads/internal/server/models"
	"github.com/dmitrijs2005/meduploads/internal/server/ocr"
	"github.com/dmitrijs2005/meduploads/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/meduploads/internal/server/storage"
	"golang.org/x/sync/errgroup"
)

// Operation labels used in logs and metrics.
const (
	OpPrescription       = "prescription"
	OpReport             = "report"
	OpPrescriptionImages = "prescription_images"
	OpReportImages       = "report_images"
	OpProfile            = "profile"
	OpClassify           = "classify"
)

// errBatchRejected makes WithTx roll back when at least one file was not
// accepted. It never leaves the service.
var errBatchRejected = errors.New("batch rejected")

// Limits bounds a single request.
type Limits struct {
	MaxFiles     int
	MaxFileBytes int64
}

// UploadRequest is one multipart upload: the access token, the raw scalar
// form fields and the image files in the order they were sent.
type UploadRequest struct {
	Token  string
	Fields map[string]string
	Files  []imaging.Source
}

// FileOutcome is the verdict for one file of a batch.
type FileOutcome struct {
	Index    int
	Filename string
	Accepted bool
}

// StoredImage is the pair of storage keys written for one accepted file.
type StoredImage struct {
	ImagePath     string
	ThumbnailPath string
}

// BatchOutcome reports what happened to a batch. Accepted is true iff every
// file was accepted, in which case RecordID, ImageIDs and Stored describe
// what was committed.
type BatchOutcome struct {
	Accepted bool
	RecordID int64
	ImageIDs []int64
	Stored   []StoredImage
	Files    []FileOutcome
}

// Rejected returns the outcomes of the files that were not accepted, in
// input order.
func (o *BatchOutcome) Rejected() []FileOutcome {
	var out []FileOutcome
	for _, f := range o.Files {
		if !f.Accepted {
			out = append(out, f)
		}
	}
	return out
}

// Dependencies are the collaborators of an UploadService.
type Dependencies struct {
	Guard      *auth.Guard
	Generator  *imaging.Generator
	Classifier *classifier.Classifier
	Extractor  ocr.Extractor
	Store      storage.Store
	Logger     logging.Logger
	Metrics    *metrics.Metrics
}

// UploadService validates, classifies and commits image batches. Each call
// owns one pooled connection from authorization until it returns.
type UploadService struct {
	db                     *sql.DB
	repomanager            repomanager.RepositoryManager
	guard                  *auth.Guard
	generator              *imaging.Generator
	classifier             *classifier.Classifier
	extractor              ocr.Extractor
	store                  storage.Store
	logger                 logging.Logger
	metrics                *metrics.Metrics
	limits                 Limits
	workers                int
	profileRequiresMedical bool
}

func NewUploadService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, d Dependencies) *UploadService {
	workers := cfg.ClassifyWorkers
	if workers < 1 {
		workers = 1
	}
	return &UploadService{
		db:                     db,
		repomanager:            m,
		guard:                  d.Guard,
		generator:              d.Generator,
		classifier:             d.Classifier,
		extractor:              d.Extractor,
		store:                  d.Store,
		logger:                 d.Logger.With("module", "upload"),
		metrics:                d.Metrics,
		limits:                 Limits{MaxFiles: cfg.MaxFiles, MaxFileBytes: cfg.MaxFileBytes},
		workers:                workers,
		profileRequiresMedical: cfg.ProfileRequiresMedical,
	}
}

// Limits returns the configured request limits.
func (s *UploadService) Limits() Limits { return s.limits }

// batch describes one document upload. check runs on the pinned connection
// before the transaction; parent runs inside it and yields the record the
// images attach to.
type batch struct {
	op       string
	category storage.Category
	kind     models.DocumentKind
	memberID int64
	check    func(ctx context.Context, conn dbx.DBTX) error
	parent   func(ctx context.Context, tx dbx.DBTX) (int64, error)
}

// runBatch drives a document batch from authorization to commit or rollback.
// Blobs are written only after every file is accepted, and removed again if
// anything after the first write fails.
func (s *UploadService) runBatch(ctx context.Context, req UploadRequest, b batch) (*BatchOutcome, error) {
	var (
		outcome *BatchOutcome
		written []string
	)

	err := dbx.WithConn(ctx, s.db, func(ctx context.Context, conn *sql.Conn) error {
		principal, err := s.guard.Authorize(ctx, req.Token, b.memberID, conn)
		if err != nil {
			return err
		}
		if b.check != nil {
			if err := b.check(ctx, conn); err != nil {
				return err
			}
		}

		return dbx.WithTx(ctx, conn, nil, func(ctx context.Context, tx dbx.DBTX) error {
			sets, results, err := s.evaluate(ctx, principal.AccountID, req.Files, true)
			if err != nil {
				return err
			}
			outcome = newOutcome(req.Files, results)
			if !outcome.Accepted {
				return errBatchRejected
			}

			recordID, err := b.parent(ctx, tx)
			if err != nil {
				return persistence(b.op, err)
			}
			outcome.RecordID = recordID

			files := s.repomanager.Files(tx)
			for _, set := range sets {
				stored, err := s.putVariants(ctx, b.category, set, &written)
				if err != nil {
					return persistence(b.op, err)
				}
				id, err := files.Add(ctx, &models.ImageFile{
					Kind:          b.kind,
					ParentID:      recordID,
					ImagePath:     stored.ImagePath,
					ThumbnailPath: stored.ThumbnailPath,
				})
				if err != nil {
					return persistence(b.op, err)
				}
				outcome.ImageIDs = append(outcome.ImageIDs, id)
				outcome.Stored = append(outcome.Stored, stored)
			}
			return nil
		})
	})

	return s.finish(ctx, b.op, b.memberID, outcome, written, err)
}

// finish turns the transaction result into the service result, compensating
// for written blobs on failure.
func (s *UploadService) finish(ctx context.Context, op string, memberID int64, outcome *BatchOutcome, written []string, err error) (*BatchOutcome, error) {
	switch {
	case err == nil:
		s.metrics.ObserveUpload(op, metrics.OutcomeCommitted)
		s.logger.Info(ctx, "batch committed", "op", op, "member_id", memberID, "record_id", outcome.RecordID, "files", len(outcome.Files))
		return outcome, nil

	case errors.Is(err, errBatchRejected):
		s.metrics.ObserveUpload(op, metrics.OutcomeRejected)
		s.logger.Info(ctx, "batch rejected", "op", op, "member_id", memberID, "rejected", len(outcome.Rejected()), "files", len(outcome.Files))
		outcome.RecordID, outcome.ImageIDs, outcome.Stored = 0, nil, nil
		return outcome, nil

	default:
		s.compensate(ctx, written)
		s.metrics.ObserveUpload(op, metrics.OutcomeError)
		if common.KindOf(err) == common.KindUnknown {
			err = persistence(op, err)
		}
		switch k := common.KindOf(err); {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			s.logger.Warn(ctx, "batch cancelled", "op", op, "member_id", memberID, "error", err)
		case k == common.KindPersistence || k == common.KindProcessing:
			s.logger.Error(ctx, "batch failed", "op", op, "member_id", memberID, "error", err)
		}
		return nil, err
	}
}

// UndecodableError reports every file of a batch that could not be turned
// into variants, in input order. It unwraps to the first file's error, so
// its kind is KindProcessing.
type UndecodableError struct {
	Files []FileOutcome
	Err   error
}

func (e *UndecodableError) Error() string { return e.Err.Error() }

func (e *UndecodableError) Unwrap() error { return e.Err }

// evaluate generates variants for every file and, when classify is set, runs
// text extraction and classification on the grayscale copy. At most
// s.workers files are in flight; results keep input order. Files that fail
// to decode are collected into an *UndecodableError. A cancelled ctx is an
// error, never a rejection.
func (s *UploadService) evaluate(ctx context.Context, accountID int64, files []imaging.Source, classify bool) ([]*imaging.VariantSet, []classifier.Result, error) {
	const op = "evaluate"

	sets := make([]*imaging.VariantSet, len(files))
	results := make([]classifier.Result, len(files))
	failures := make([]error, len(files))
	var broken atomic.Bool

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, f := range files {
		g.Go(func() error {
			src := f
			src.UserID = accountID
			set, err := s.generator.Generate(src, i)
			if err != nil {
				failures[i] = err
				broken.Store(true)
				return nil
			}
			sets[i] = set

			if !classify {
				results[i] = classifier.Result{IsMedical: true}
				return nil
			}
			if broken.Load() || ctx.Err() != nil {
				return nil
			}
			start := time.Now()
			res := s.classifier.Judge(ctx, s.extractor, s.logger.With("file", i), set.Grayscale.Data)
			s.metrics.ObserveOCR(time.Since(start))
			s.metrics.ObserveClassification(res.IsMedical)
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, common.E(common.KindProcessing, op, err)
	}
	if broken.Load() {
		ue := &UndecodableError{}
		for i, err := range failures {
			if err == nil {
				continue
			}
			if ue.Err == nil {
				ue.Err = err
			}
			ue.Files = append(ue.Files, FileOutcome{Index: i, Filename: files[i].Filename})
		}
		return nil, nil, ue
	}
	return sets, results, nil
}

func newOutcome(files []imaging.Source, results []classifier.Result) *BatchOutcome {
	o := &BatchOutcome{Accepted: true, Files: make([]FileOutcome, len(files))}
	for i, f := range files {
		o.Files[i] = FileOutcome{Index: i, Filename: f.Filename, Accepted: results[i].IsMedical}
		if !results[i].IsMedical {
			o.Accepted = false
		}
	}
	return o
}

// putVariants stores the color and thumbnail renditions under category and
// appends every key it wrote to written.
func (s *UploadService) putVariants(ctx context.Context, category storage.Category, set *imaging.VariantSet, written *[]string) (StoredImage, error) {
	stored := StoredImage{
		ImagePath:     category.Key(set.Color.Filename),
		ThumbnailPath: category.Key(set.Thumbnail.Filename),
	}
	if err := s.store.Put(ctx, stored.ImagePath, set.Color.Data, imaging.OutputContentType); err != nil {
		return StoredImage{}, err
	}
	*written = append(*written, stored.ImagePath)
	if err := s.store.Put(ctx, stored.ThumbnailPath, set.Thumbnail.Data, imaging.OutputContentType); err != nil {
		return StoredImage{}, err
	}
	*written = append(*written, stored.ThumbnailPath)
	return stored, nil
}

// compensate removes blobs written by a batch that did not commit. It runs
// even if the request context is already cancelled.
func (s *UploadService) compensate(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	removed := 0
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, "compensating delete failed", "key", key, "error", err)
			continue
		}
		removed++
	}
	s.metrics.ObserveCompensation(removed)
}

func persistence(op string, err error) error {
	if common.KindOf(err) != common.KindUnknown {
		return err
	}
	return common.E(common.KindPersistence, op, err)
}
