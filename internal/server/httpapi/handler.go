// Package httpapi exposes the upload service over HTTP using gin.
package httpapi

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/meduploads/internal/common"
	"github.com/dmitrijs2005/meduploads/internal/logging"
	"github.com/dmitrijs2005/meduploads/internal/server/classifier"
	"github.com/dmitrijs2005/meduploads/internal/server/imaging"
	"github.com/dmitrijs2005/meduploads/internal/server/services"
	"github.com/dmitrijs2005/meduploads/internal/server/storage"
	"github.com/gin-gonic/gin"
)

// Multipart field names.
const (
	FieldImages = "images"
	FieldImage  = "image"
)

// multipartSlack covers form fields and multipart framing on top of the
// image payload.
const multipartSlack = 64 << 10

// Uploader is the behavior consumed by the handler.
type Uploader interface {
	UploadPrescription(ctx context.Context, req services.UploadRequest) (*services.BatchOutcome, error)
	UploadReport(ctx context.Context, req services.UploadRequest) (*services.BatchOutcome, error)
	AppendPrescriptionImages(ctx context.Context, req services.UploadRequest) (*services.BatchOutcome, error)
	AppendReportImages(ctx context.Context, req services.UploadRequest) (*services.BatchOutcome, error)
	UploadProfile(ctx context.Context, req services.UploadRequest) (*services.BatchOutcome, error)
	ClassifyImage(ctx context.Context, token string, src imaging.Source) (*classifier.Result, error)
	DeletePrescription(ctx context.Context, token string, memberID, id int64) (*services.DeleteOutcome, error)
	DeleteReport(ctx context.Context, token string, memberID, id int64) (*services.DeleteOutcome, error)
}

// TokenVerifier resolves an access token to its account id.
type TokenVerifier interface {
	Account(token string) (int64, error)
}

// Handler serves the upload API.
type Handler struct {
	uploader Uploader
	tokens   TokenVerifier
	store    storage.Store
	limits   services.Limits
	logger   logging.Logger
}

func NewHandler(u Uploader, tokens TokenVerifier, store storage.Store, limits services.Limits, logger logging.Logger) *Handler {
	return &Handler{
		uploader: u,
		tokens:   tokens,
		store:    store,
		limits:   limits,
		logger:   logger.With("module", "http"),
	}
}

func (h *Handler) maxBody() int64 {
	return int64(h.limits.MaxFiles)*h.limits.MaxFileBytes + multipartSlack
}

type batchFunc func(ctx context.Context, req services.UploadRequest) (*services.BatchOutcome, error)

// batch adapts an upload operation to a multipart handler. successStatus is
// used when the batch commits.
func (h *Handler) batch(fn batchFunc, successStatus int) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := h.readUpload(c)
		if err != nil {
			h.abortWithError(c, err)
			return
		}

		out, err := fn(c.Request.Context(), req)
		if err != nil {
			h.abortWithError(c, err)
			return
		}

		if !out.Accepted {
			c.JSON(http.StatusUnprocessableEntity, toBatchJSON(out))
			return
		}
		c.JSON(successStatus, toBatchJSON(out))
	}
}

func (h *Handler) UploadPrescription(c *gin.Context) {
	h.batch(h.uploader.UploadPrescription, http.StatusCreated)(c)
}

func (h *Handler) UploadReport(c *gin.Context) {
	h.batch(h.uploader.UploadReport, http.StatusCreated)(c)
}

func (h *Handler) AppendPrescriptionImages(c *gin.Context) {
	h.batch(h.uploader.AppendPrescriptionImages, http.StatusCreated)(c)
}

func (h *Handler) AppendReportImages(c *gin.Context) {
	h.batch(h.uploader.AppendReportImages, http.StatusCreated)(c)
}

func (h *Handler) UploadProfile(c *gin.Context) {
	h.batch(h.uploader.UploadProfile, http.StatusOK)(c)
}

// Classify reports the verdict for a single image without storing it.
func (h *Handler) Classify(c *gin.Context) {
	req, err := h.readUpload(c)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if len(req.Files) != 1 {
		h.abortWithError(c, common.Errorf(common.KindValidation, "classify", "exactly one %q file is required", FieldImage))
		return
	}

	res, err := h.uploader.ClassifyImage(c.Request.Context(), req.Token, req.Files[0])
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"is_medical": res.IsMedical,
		"text":       res.Text,
		"matched":    res.Matched,
	})
}

func (h *Handler) DeletePrescription(c *gin.Context) {
	h.remove(c, h.uploader.DeletePrescription)
}

func (h *Handler) DeleteReport(c *gin.Context) {
	h.remove(c, h.uploader.DeleteReport)
}

func (h *Handler) remove(c *gin.Context, fn func(ctx context.Context, token string, memberID, id int64) (*services.DeleteOutcome, error)) {
	id, errID := strconv.ParseInt(c.Param("id"), 10, 64)
	memberID, errMember := strconv.ParseInt(c.Query(services.FieldMemberID), 10, 64)
	if errID != nil || errMember != nil {
		h.abortWithError(c, common.Errorf(common.KindValidation, "delete", "record id and %s must be integers", services.FieldMemberID))
		return
	}

	out, err := fn(c.Request.Context(), accessToken(c), memberID, id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"record_id":     out.RecordID,
		"images":        out.Images,
		"blobs_removed": out.BlobsRemoved,
	})
}

// readUpload parses the multipart body into an UploadRequest. Files are read
// whole; a file larger than the per-file limit is cut one byte past it so
// the service rejects it without buffering the rest.
func (h *Handler) readUpload(c *gin.Context) (services.UploadRequest, error) {
	const op = "read upload"

	if c.Request.ContentLength > h.maxBody() {
		return services.UploadRequest{}, common.Errorf(common.KindCapacity, op, "%w: request body exceeds %d bytes", common.ErrFileTooLarge, h.maxBody())
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody())
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return services.UploadRequest{}, common.Errorf(common.KindCapacity, op, "%w: request body exceeds %d bytes", common.ErrFileTooLarge, tooLarge.Limit)
		}
		return services.UploadRequest{}, common.Errorf(common.KindValidation, op, "invalid multipart payload")
	}

	req := services.UploadRequest{
		Token:  accessToken(c),
		Fields: make(map[string]string, len(form.Value)),
	}
	for k, v := range form.Value {
		if len(v) > 0 {
			req.Fields[k] = v[0]
		}
	}

	headers := form.File[FieldImages]
	if len(headers) == 0 {
		headers = form.File[FieldImage]
	}
	for _, fh := range headers {
		data, err := readPart(fh, h.limits.MaxFileBytes+1)
		if err != nil {
			return services.UploadRequest{}, common.Errorf(common.KindValidation, op, "read %s: %w", fh.Filename, err)
		}
		req.Files = append(req.Files, imaging.Source{Filename: fh.Filename, Data: data})
	}
	return req, nil
}

func readPart(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit))
}

// accessToken reads the Authorization header. The query parameter "token" is
// accepted as a fallback so stored images can be linked directly.
func accessToken(c *gin.Context) string {
	if t := strings.TrimSpace(c.GetHeader(common.AccessTokenHeaderName)); t != "" {
		return t
	}
	return c.Query("token")
}
