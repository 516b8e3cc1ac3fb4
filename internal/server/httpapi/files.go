package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/meduploads/internal/common"
	"github.com/dmitrijs2005/meduploads/internal/filex"
	"github.com/dmitrijs2005/meduploads/internal/server/imaging"
	"github.com/dmitrijs2005/meduploads/internal/server/storage"
	"github.com/gin-gonic/gin"
)

// ServeFile streams a stored variant. The caller must present a token whose
// account id matches the owner segment embedded in the filename.
func (h *Handler) ServeFile(c *gin.Context) {
	const op = "serve file"

	category := storage.Category(c.Param("category"))
	if !category.Valid() {
		h.abortWithError(c, common.E(common.KindNotFound, op, common.ErrorNotFound))
		return
	}

	name, err := filex.CleanRelative(c.Param("file"))
	if err != nil || name != c.Param("file") {
		h.abortWithError(c, common.E(common.KindValidation, op, common.ErrPathOutsideRoot))
		return
	}

	accountID, err := h.tokens.Account(accessToken(c))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	owner, ok := imaging.OwnerFromName(name)
	if !ok || owner != strconv.FormatInt(accountID, 10) {
		h.abortWithError(c, common.E(common.KindAuthorization, op, common.ErrorUnauthorized))
		return
	}

	rc, err := h.store.Open(c.Request.Context(), category.Key(name))
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			h.abortWithError(c, common.E(common.KindNotFound, op, err))
		case errors.Is(err, common.ErrPathOutsideRoot):
			h.abortWithError(c, common.E(common.KindValidation, op, err))
		default:
			h.abortWithError(c, common.E(common.KindPersistence, op, err))
		}
		return
	}
	defer rc.Close()

	c.Header("Cache-Control", "private, max-age=3600")
	c.DataFromReader(http.StatusOK, -1, imaging.OutputContentType, rc, nil)
}
