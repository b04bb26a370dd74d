package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazelpoint/tutorhub-api/internal/models"
)

func newReportRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestReportRepositoryUpsertResetsSentMarker(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery("INSERT INTO monthly_reports").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-id"))

	sentAt := time.Now()
	report := &models.MonthlyReport{
		StaffID:     "staff-1",
		StaffName:   "Alice",
		StaffEmail:  "alice@example.com",
		Month:       2,
		Year:        2026,
		TotalHours:  12.5,
		EmailSentAt: &sentAt,
	}
	require.NoError(t, repo.Upsert(context.Background(), report))

	// The row keeps its original id and the delivery marker is cleared.
	assert.Equal(t, "existing-id", report.ID)
	assert.Nil(t, report.EmailSentAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	year := 2026
	sent := false
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "staff_id", "staff_name", "staff_email", "month", "year", "total_hours", "breakdown", "period_start", "period_end", "generated_at", "email_sent_at"}).
		AddRow("r1", "staff-1", "Alice", "alice@example.com", 2, 2026, 12.5, []byte(`[]`), now, now, now, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, staff_id, staff_name, staff_email, month, year, total_hours, breakdown, period_start, period_end, generated_at, email_sent_at FROM monthly_reports WHERE 1=1 AND year = $1 AND email_sent_at IS NULL ORDER BY year DESC, month DESC, staff_name ASC LIMIT 20 OFFSET 0")).
		WithArgs(year).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM monthly_reports WHERE 1=1 AND year = $1 AND email_sent_at IS NULL")).
		WithArgs(year).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	reports, total, err := repo.List(context.Background(), models.ReportFilter{Year: &year, EmailSent: &sent})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, reports, 1)
	assert.Nil(t, reports[0].EmailSentAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositorySetEmailSent(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	sentAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE monthly_reports SET email_sent_at = $2 WHERE id = $1")).
		WithArgs("r1", sentAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetEmailSent(context.Background(), "r1", sentAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositorySetEmailSentMissing(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	sentAt := time.Now().UTC()
	mock.ExpectExec("UPDATE monthly_reports SET email_sent_at").
		WithArgs("missing", sentAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetEmailSent(context.Background(), "missing", sentAt)
	assert.Equal(t, sql.ErrNoRows, err)
}

func TestReportRepositoryFindByPeriod(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "staff_id", "staff_name", "staff_email", "month", "year", "total_hours", "breakdown", "period_start", "period_end", "generated_at", "email_sent_at"}).
		AddRow("r1", "staff-1", "Alice", "alice@example.com", 2, 2026, 12.5, []byte(`[{"subject":"Math","course":"","hours":12.5}]`), now, now, now, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, staff_id, staff_name, staff_email, month, year, total_hours, breakdown, period_start, period_end, generated_at, email_sent_at FROM monthly_reports WHERE staff_id = $1 AND month = $2 AND year = $3 LIMIT 1")).
		WithArgs("staff-1", 2, 2026).
		WillReturnRows(rows)

	report, err := repo.FindByPeriod(context.Background(), "staff-1", 2, 2026)
	require.NoError(t, err)
	assert.Equal(t, 12.5, report.TotalHours)
	require.Len(t, report.Breakdown, 1)
	assert.Equal(t, "Math", report.Breakdown[0].Subject)
	assert.NoError(t, mock.ExpectationsWereMet())
}
