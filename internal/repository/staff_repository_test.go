package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazelpoint/tutorhub-api/internal/models"
)

func newStaffRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStaffRepositoryList(t *testing.T) {
	db, mock, cleanup := newStaffRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "email", "full_name", "phone", "subjects", "bio", "active", "created_at", "updated_at"}).
		AddRow("s1", nil, "alice@example.com", "Alice", nil, nil, nil, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, email, full_name, phone, subjects, bio, active, created_at, updated_at FROM staff WHERE 1=1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM staff WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.StaffFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newStaffRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "email", "full_name", "phone", "subjects", "bio", "active", "created_at", "updated_at"}).
		AddRow("s1", nil, "alice@example.com", "Alice", nil, nil, nil, true, time.Now(), time.Now()).
		AddRow("s2", nil, "bob@example.com", "Bob", nil, nil, nil, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, email, full_name, phone, subjects, bio, active, created_at, updated_at FROM staff WHERE active = TRUE ORDER BY full_name ASC")).
		WillReturnRows(rows)

	staff, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, staff, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffRepositoryCreateAndDeactivate(t *testing.T) {
	db, mock, cleanup := newStaffRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	mock.ExpectExec("INSERT INTO staff").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "alice@example.com", "Alice", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &models.Staff{Email: "alice@example.com", FullName: "Alice", Active: true})
	require.NoError(t, err)

	mock.ExpectExec("UPDATE staff SET active = FALSE").
		WithArgs("s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffRepositoryExistsByEmail(t *testing.T) {
	db, mock, cleanup := newStaffRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM staff WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsByEmail(context.Background(), "alice@example.com", "")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
