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

func newTimeLogRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTimeLogRepositorySumHours(t *testing.T) {
	db, mock, cleanup := newTimeLogRepoMock(t)
	defer cleanup()
	repo := NewTimeLogRepository(db)

	window := models.MonthWindow(2026, time.February, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(hours), 0) AS total, COUNT(*) AS entries FROM time_logs WHERE staff_id = $1 AND date >= $2 AND date <= $3")).
		WithArgs("staff-1", window.Start, window.End).
		WillReturnRows(sqlmock.NewRows([]string{"total", "entries"}).AddRow(12.5, 4))

	total, entries, err := repo.SumHours(context.Background(), "staff-1", window)
	require.NoError(t, err)
	assert.Equal(t, 12.5, total)
	assert.Equal(t, 4, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeLogRepositorySumHoursEmpty(t *testing.T) {
	db, mock, cleanup := newTimeLogRepoMock(t)
	defer cleanup()
	repo := NewTimeLogRepository(db)

	window := models.MonthWindow(2026, time.February, time.UTC)
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("staff-1", window.Start, window.End).
		WillReturnRows(sqlmock.NewRows([]string{"total", "entries"}).AddRow(0, 0))

	total, entries, err := repo.SumHours(context.Background(), "staff-1", window)
	require.NoError(t, err)
	assert.Equal(t, 0.0, total)
	assert.Equal(t, 0, entries)
}

func TestTimeLogRepositoryBreakdown(t *testing.T) {
	db, mock, cleanup := newTimeLogRepoMock(t)
	defer cleanup()
	repo := NewTimeLogRepository(db)

	window := models.MonthWindow(2026, time.February, time.UTC)
	rows := sqlmock.NewRows([]string{"subject", "course", "hours"}).
		AddRow("Math", "Algebra", 5.0).
		AddRow("Physics", "", 2.5)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT subject, COALESCE(course, '') AS course, SUM(hours) AS hours FROM time_logs WHERE staff_id = $1 AND date >= $2 AND date <= $3 GROUP BY subject, COALESCE(course, '') ORDER BY SUM(hours) DESC")).
		WithArgs("staff-1", window.Start, window.End).
		WillReturnRows(rows)

	breakdown, err := repo.Breakdown(context.Background(), "staff-1", window)
	require.NoError(t, err)
	require.Len(t, breakdown, 2)
	assert.Equal(t, "Math", breakdown[0].Subject)
	assert.Equal(t, 5.0, breakdown[0].Hours)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeLogRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newTimeLogRepoMock(t)
	defer cleanup()
	repo := NewTimeLogRepository(db)

	from := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "staff_id", "date", "hours", "subject", "course", "description", "group_id", "created_at", "updated_at"}).
		AddRow("tl-1", "staff-1", from, 2.0, "Math", nil, nil, nil, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, staff_id, date, hours, subject, course, description, group_id, created_at, updated_at FROM time_logs WHERE 1=1 AND staff_id = $1 AND date >= $2 ORDER BY date DESC LIMIT 20 OFFSET 0")).
		WithArgs("staff-1", from).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM time_logs WHERE 1=1 AND staff_id = $1 AND date >= $2")).
		WithArgs("staff-1", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT time_log_id, student_id FROM time_log_students").
		WithArgs("tl-1").
		WillReturnRows(sqlmock.NewRows([]string{"time_log_id", "student_id"}).AddRow("tl-1", "student-1"))

	logs, total, err := repo.List(context.Background(), models.TimeLogFilter{StaffID: "staff-1", From: &from})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, logs, 1)
	assert.Equal(t, []string{"student-1"}, logs[0].StudentIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeLogRepositoryListForStudent(t *testing.T) {
	db, mock, cleanup := newTimeLogRepoMock(t)
	defer cleanup()
	repo := NewTimeLogRepository(db)

	day := time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "staff_id", "date", "hours", "subject", "course", "description", "group_id", "created_at", "updated_at"}).
		AddRow("tl-2", "staff-1", day.AddDate(0, 0, 1), 1.5, "Physics", nil, nil, "group-1", now, now).
		AddRow("tl-1", "staff-1", day, 2.0, "Math", nil, nil, nil, now, now)

	mock.ExpectQuery("SELECT DISTINCT t.id").
		WithArgs("student-1").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT time_log_id, student_id FROM time_log_students").
		WithArgs("tl-2", "tl-1").
		WillReturnRows(sqlmock.NewRows([]string{"time_log_id", "student_id"}).AddRow("tl-1", "student-1"))

	logs, err := repo.ListForStudent(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.AttributionGroup, logs[0].Attribution())
	assert.Equal(t, models.AttributionStudents, logs[1].Attribution())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeLogRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newTimeLogRepoMock(t)
	defer cleanup()
	repo := NewTimeLogRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM time_log_students WHERE time_log_id = $1")).
		WithArgs("tl-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM time_logs WHERE id = $1")).
		WithArgs("tl-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "tl-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
