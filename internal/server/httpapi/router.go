package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/meduploads/internal/logging"
	"github.com/dmitrijs2005/meduploads/internal/server/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires handlers to a gin engine.
func NewRouter(h *Handler, m *metrics.Metrics, gatherer prometheus.Gatherer, logger logging.Logger) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = h.maxBody()
	r.Use(gin.Recovery(), RequestID(), AccessLog(logger.With("module", "http")), Metrics(m))

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/api/v1")
	{
		v1.POST("/prescriptions", h.UploadPrescription)
		v1.POST("/prescriptions/images", h.AppendPrescriptionImages)
		v1.DELETE("/prescriptions/:id", h.DeletePrescription)

		v1.POST("/reports", h.UploadReport)
		v1.POST("/reports/images", h.AppendReportImages)
		v1.DELETE("/reports/:id", h.DeleteReport)

		v1.PUT("/profile/image", h.UploadProfile)
		v1.POST("/classify", h.Classify)
	}

	r.GET("/uploads/:category/:file", h.ServeFile)

	return r
}
