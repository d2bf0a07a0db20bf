package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/complaint-desk-api/internal/models"
)

func TestFindRoleByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT role FROM profiles WHERE id = $1 LIMIT 1")).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("admin"))

	role, err := repo.FindRoleByID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindRoleByIDMissingProfile(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT role FROM profiles WHERE id = $1")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindRoleByID(context.Background(), "ghost")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupReturnsMinimalColumns(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, role FROM profiles WHERE UPPER(matric_number) = UPPER($1) LIMIT 1")).
		WithArgs("CSC/2019/001").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role"}).AddRow("u-1", "ada@uni.edu", "student"))

	out, err := repo.Lookup(context.Background(), "matric_number", " CSC/2019/001 ")
	require.NoError(t, err)
	assert.Equal(t, "ada@uni.edu", out.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupRejectsUnknownColumn(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	_, err := NewProfileRepository(db).Lookup(context.Background(), "password_hash", "x")
	assert.Error(t, err)
}

func TestListIDsByRoles(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM profiles WHERE role IN ($1, $2) ORDER BY created_at")).
		WithArgs("admin", "super_admin").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a-1").AddRow("a-2"))

	ids, err := repo.ListIDsByRoles(context.Background(), models.RoleAdmin, models.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-1", "a-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProfilesDefaultsPaging(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, matric_number, full_name, email, password_hash, role, created_at, updated_at FROM profiles WHERE 1=1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "matric_number", "full_name", "email", "password_hash", "role", "created_at", "updated_at"}).
			AddRow("u-1", "CSC/2019/001", "Ada", "ada@uni.edu", "hash", "student", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM profiles WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	profiles, total, err := repo.List(context.Background(), models.ProfileFilter{})
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProfile(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectExec("INSERT INTO profiles").WillReturnResult(sqlmock.NewResult(1, 1))

	p := &models.Profile{FullName: "Ada", Email: "ada@uni.edu", Role: models.RoleStudent}
	require.NoError(t, repo.Create(context.Background(), p))
	assert.NotEmpty(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePasswordMissingRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectExec("UPDATE profiles SET password_hash").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePassword(context.Background(), "ghost", "hash", time.Now())
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}
