package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
	"github.com/noah-isme/complaint-desk-api/internal/service"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

type fakeMonitoringSrv struct {
	err      error
	lastErr  dto.ErrorReport
	lastPerf dto.PerformanceReport
	lastMeta service.ClientMeta
}

func (f *fakeMonitoringSrv) ReportError(_ context.Context, report dto.ErrorReport, meta service.ClientMeta) error {
	f.lastErr, f.lastMeta = report, meta
	return f.err
}

func (f *fakeMonitoringSrv) ReportPerformance(_ context.Context, report dto.PerformanceReport, meta service.ClientMeta) error {
	f.lastPerf, f.lastMeta = report, meta
	return f.err
}

func TestMonitoringHandlerAcknowledgesError(t *testing.T) {
	r, _ := newTestRouter()
	srv := &fakeMonitoringSrv{}
	h := NewMonitoringHandler(srv)
	r.POST("/api/monitoring/error", h.ReportError)

	rec := doRequest(t, r, http.MethodPost, "/api/monitoring/error", "", `{"message":"boom","severity":"critical"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Equal(t, "critical", srv.lastErr.Severity)
}

func TestMonitoringHandlerRejectsNonObject(t *testing.T) {
	r, _ := newTestRouter()
	h := NewMonitoringHandler(&fakeMonitoringSrv{})
	r.POST("/api/monitoring/error", h.ReportError)
	r.POST("/api/monitoring/performance", h.ReportPerformance)

	for _, path := range []string{"/api/monitoring/error", "/api/monitoring/performance"} {
		rec := doRequest(t, r, http.MethodPost, path, "", `["not","an","object"]`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.JSONEq(t, `{"success":false}`, rec.Body.String(), path)
	}
}

func TestMonitoringHandlerValidationFailure(t *testing.T) {
	r, _ := newTestRouter()
	h := NewMonitoringHandler(&fakeMonitoringSrv{err: appErrors.ErrValidation})
	r.POST("/api/monitoring/performance", h.ReportPerformance)

	rec := doRequest(t, r, http.MethodPost, "/api/monitoring/performance", "", `{"duration":12}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false}`, rec.Body.String())
}
