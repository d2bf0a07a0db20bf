package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
)

type fakeDashboardSrv struct {
	admin       *dto.AdminDashboard
	student     *dto.StudentDashboard
	hit         bool
	err         error
	lastStudent string
}

func (f *fakeDashboardSrv) Admin(context.Context) (*dto.AdminDashboard, bool, error) {
	return f.admin, f.hit, f.err
}

func (f *fakeDashboardSrv) Student(_ context.Context, studentID string) (*dto.StudentDashboard, bool, error) {
	f.lastStudent = studentID
	return f.student, f.hit, f.err
}

func TestDashboardHandlerAdminReportsCacheHit(t *testing.T) {
	r, _ := newTestRouter()
	h := NewDashboardHandler(&fakeDashboardSrv{
		admin: &dto.AdminDashboard{Stats: dto.DashboardStats{TotalComplaints: 7}},
		hit:   true,
	})
	r.GET("/admin", h.Admin)

	rec := doRequest(t, r, http.MethodGet, "/admin", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Contains(t, env.Meta, "processing_time_ms")

	var body dto.AdminDashboard
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, 7, body.Stats.TotalComplaints)
}

func TestDashboardHandlerAdminError(t *testing.T) {
	r, _ := newTestRouter()
	h := NewDashboardHandler(&fakeDashboardSrv{err: errors.New("boom")})
	r.GET("/admin", h.Admin)

	rec := doRequest(t, r, http.MethodGet, "/admin", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDashboardHandlerStudentUsesSession(t *testing.T) {
	r, sessions := newTestRouter()
	srv := &fakeDashboardSrv{student: &dto.StudentDashboard{}}
	h := NewDashboardHandler(srv)
	r.GET("/student", sessions.Require(), h.Student)

	rec := doRequest(t, r, http.MethodGet, "/student", "student", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stu-1", srv.lastStudent)
}

func TestDashboardHandlerStudentWithoutSession(t *testing.T) {
	r, _ := newTestRouter()
	h := NewDashboardHandler(&fakeDashboardSrv{})
	r.GET("/student", h.Student)

	rec := doRequest(t, r, http.MethodGet, "/student", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
