package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

type fakeProfileSrv struct {
	lookup     *models.ProfileLookup
	err        error
	lastLookup dto.ProfileLookupRequest
	lastFilter models.ProfileFilter
}

func (f *fakeProfileSrv) Lookup(_ context.Context, req dto.ProfileLookupRequest) (*models.ProfileLookup, error) {
	f.lastLookup = req
	return f.lookup, f.err
}

func (f *fakeProfileSrv) List(_ context.Context, filter models.ProfileFilter) ([]models.Profile, *models.Pagination, error) {
	f.lastFilter = filter
	return []models.Profile{}, &models.Pagination{Page: 1, PageSize: 20}, f.err
}

func TestProfileHandlerLookupQuery(t *testing.T) {
	r, _ := newTestRouter()
	srv := &fakeProfileSrv{lookup: &models.ProfileLookup{ID: "p-1", Email: "ada@uni.edu", Role: models.RoleStudent}}
	h := NewProfileHandler(srv)
	r.GET("/api/profiles", h.LookupQuery)

	rec := doRequest(t, r, http.MethodGet, "/api/profiles?matric=CSC/2020/001", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CSC/2020/001", srv.lastLookup.MatricNumber)
	assert.JSONEq(t, `{"profile":{"id":"p-1","email":"ada@uni.edu","role":"student"}}`, rec.Body.String())
}

func TestProfileHandlerLookupBody(t *testing.T) {
	r, _ := newTestRouter()
	srv := &fakeProfileSrv{lookup: &models.ProfileLookup{ID: "p-1"}}
	h := NewProfileHandler(srv)
	r.POST("/api/profiles", h.LookupBody)

	rec := doRequest(t, r, http.MethodPost, "/api/profiles", "", `{"email":"ada@uni.edu"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ada@uni.edu", srv.lastLookup.Email)
}

func TestProfileHandlerLookupErrors(t *testing.T) {
	r, _ := newTestRouter()
	h := NewProfileHandler(&fakeProfileSrv{err: appErrors.ErrNotFound})
	r.GET("/api/profiles", h.LookupQuery)

	rec := doRequest(t, r, http.MethodGet, "/api/profiles?email=ghost@uni.edu", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfileHandlerListUsersRoleFilter(t *testing.T) {
	r, _ := newTestRouter()
	srv := &fakeProfileSrv{}
	h := NewProfileHandler(srv)
	r.GET("/admin/users", h.ListUsers)

	rec := doRequest(t, r, http.MethodGet, "/admin/users?role=admin&page=3", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.lastFilter.Role)
	assert.Equal(t, models.RoleAdmin, *srv.lastFilter.Role)
	assert.Equal(t, 3, srv.lastFilter.Page)
}
