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

func newGroupRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestGroupRepositoryDeleteUnsetsTimeLogReferences(t *testing.T) {
	db, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE time_logs SET group_id = NULL, updated_at = NOW() WHERE group_id = $1")).
		WithArgs("g-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM group_students WHERE group_id = $1")).
		WithArgs("g-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM groups WHERE id = $1")).
		WithArgs("g-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "g-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryListFiltersByStaff(t *testing.T) {
	db, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + groupColumns + " FROM groups WHERE 1=1 AND staff_id = $1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("staff-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "staff_id", "description", "active", "created_at", "updated_at"}).
			AddRow("g-1", "Algebra II", "staff-1", nil, true, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM groups WHERE 1=1 AND staff_id = $1")).
		WithArgs("staff-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	groups, total, err := repo.List(context.Background(), models.GroupFilter{StaffID: "staff-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, groups, 1)
	assert.Equal(t, "Algebra II", groups[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
