package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
	"github.com/noah-isme/complaint-desk-api/internal/service"
	"github.com/noah-isme/complaint-desk-api/pkg/response"
)

type monitoringService interface {
	ReportError(ctx context.Context, report dto.ErrorReport, meta service.ClientMeta) error
	ReportPerformance(ctx context.Context, report dto.PerformanceReport, meta service.ClientMeta) error
}

// MonitoringHandler ingests client-side telemetry. Bodies are acknowledged with
// {success} only.
type MonitoringHandler struct {
	service monitoringService
}

func NewMonitoringHandler(svc monitoringService) *MonitoringHandler {
	return &MonitoringHandler{service: svc}
}

// ReportError godoc
// @Summary Report a client error
// @Tags Monitoring
// @Accept json
// @Produce json
// @Param payload body dto.ErrorReport true "Error report"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]bool
// @Router /api/monitoring/error [post]
func (h *MonitoringHandler) ReportError(c *gin.Context) {
	var report dto.ErrorReport
	if err := c.ShouldBindJSON(&report); err != nil {
		response.Ack(c, http.StatusBadRequest, false)
		return
	}
	if err := h.service.ReportError(c.Request.Context(), report, clientMeta(c)); err != nil {
		response.Ack(c, http.StatusBadRequest, false)
		return
	}
	response.Ack(c, http.StatusOK, true)
}

// ReportPerformance godoc
// @Summary Report a client timing sample
// @Tags Monitoring
// @Accept json
// @Produce json
// @Param payload body dto.PerformanceReport true "Performance sample"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]bool
// @Router /api/monitoring/performance [post]
func (h *MonitoringHandler) ReportPerformance(c *gin.Context) {
	var report dto.PerformanceReport
	if err := c.ShouldBindJSON(&report); err != nil {
		response.Ack(c, http.StatusBadRequest, false)
		return
	}
	if err := h.service.ReportPerformance(c.Request.Context(), report, clientMeta(c)); err != nil {
		response.Ack(c, http.StatusBadRequest, false)
		return
	}
	response.Ack(c, http.StatusOK, true)
}
