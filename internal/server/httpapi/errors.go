package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/meduploads/internal/common"
	"github.com/dmitrijs2005/meduploads/internal/server/services"
	"github.com/gin-gonic/gin"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch common.KindOf(err) {
	case common.KindValidation:
		return http.StatusBadRequest
	case common.KindCapacity:
		return http.StatusRequestEntityTooLarge
	case common.KindAuthorization:
		return http.StatusForbidden
	case common.KindNotFound:
		return http.StatusNotFound
	case common.KindProcessing:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes the status for err. Only validation and capacity
// failures echo their message; everything else gets the status text.
// Undecodable files are listed under "rejected" so the caller can resubmit
// just those.
func (h *Handler) abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	kind := common.KindOf(err)

	msg := http.StatusText(status)
	if kind == common.KindValidation || kind == common.KindCapacity {
		var e *common.Error
		if errors.As(err, &e) && e.Err != nil {
			msg = e.Err.Error()
		}
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error(c.Request.Context(), "request failed", "error", err)
	}

	body := gin.H{"error": msg, "kind": kind.String()}
	var undecodable *services.UndecodableError
	if errors.As(err, &undecodable) {
		rejected := make([]fileJSON, 0, len(undecodable.Files))
		for _, f := range undecodable.Files {
			rejected = append(rejected, fileJSON(f))
		}
		body["rejected"] = rejected
	}

	c.AbortWithStatusJSON(status, body)
}

type fileJSON struct {
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	Accepted bool   `json:"accepted"`
}

type storedJSON struct {
	ImagePath     string `json:"image_path"`
	ThumbnailPath string `json:"thumbnail_path"`
}

type batchJSON struct {
	Accepted bool         `json:"accepted"`
	RecordID int64        `json:"record_id,omitempty"`
	ImageIDs []int64      `json:"image_ids,omitempty"`
	Stored   []storedJSON `json:"stored,omitempty"`
	Files    []fileJSON   `json:"files"`
	Rejected []fileJSON   `json:"rejected,omitempty"`
}

func toBatchJSON(o *services.BatchOutcome) batchJSON {
	out := batchJSON{
		Accepted: o.Accepted,
		RecordID: o.RecordID,
		ImageIDs: o.ImageIDs,
		Files:    make([]fileJSON, len(o.Files)),
	}
	for i, f := range o.Files {
		out.Files[i] = fileJSON(f)
	}
	for _, s := range o.Stored {
		out.Stored = append(out.Stored, storedJSON(s))
	}
	for _, f := range o.Rejected() {
		out.Rejected = append(out.Rejected, fileJSON(f))
	}
	return out
}
