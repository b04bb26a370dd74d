package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hazelpoint/tutorhub-api/internal/models"
)

const reportColumns = `id, staff_id, staff_name, staff_email, month, year, total_hours, breakdown, period_start, period_end, generated_at, email_sent_at`

// ReportRepository provides database access for monthly teaching-hour reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new instance of ReportRepository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Upsert writes a report for (staff, month, year), overwriting any existing
// one. A regenerated report is a new document: the delivery marker is reset
// so the new numbers can be dispatched again.
func (r *ReportRepository) Upsert(ctx context.Context, report *models.MonthlyReport) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = time.Now().UTC()
	}
	report.EmailSentAt = nil

	const query = `INSERT INTO monthly_reports (id, staff_id, staff_name, staff_email, month, year, total_hours, breakdown, period_start, period_end, generated_at, email_sent_at)
VALUES (:id, :staff_id, :staff_name, :staff_email, :month, :year, :total_hours, :breakdown, :period_start, :period_end, :generated_at, NULL)
ON CONFLICT (staff_id, month, year) DO UPDATE SET
	staff_name = EXCLUDED.staff_name,
	staff_email = EXCLUDED.staff_email,
	total_hours = EXCLUDED.total_hours,
	breakdown = EXCLUDED.breakdown,
	period_start = EXCLUDED.period_start,
	period_end = EXCLUDED.period_end,
	generated_at = EXCLUDED.generated_at,
	email_sent_at = NULL
RETURNING id`

	rows, err := r.db.NamedQueryContext(ctx, query, report)
	if err != nil {
		return fmt.Errorf("upsert monthly report: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	if rows.Next() {
		if err := rows.Scan(&report.ID); err != nil {
			return fmt.Errorf("scan upserted report id: %w", err)
		}
	}
	return nil
}

// FindByID returns a report by its identifier.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.MonthlyReport, error) {
	query := fmt.Sprintf("SELECT %s FROM monthly_reports WHERE id = $1 LIMIT 1", reportColumns)
	var report models.MonthlyReport
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find report by id: %w", err)
	}
	return &report, nil
}

// FindByPeriod returns the report for one staff member and one month.
func (r *ReportRepository) FindByPeriod(ctx context.Context, staffID string, month, year int) (*models.MonthlyReport, error) {
	query := fmt.Sprintf("SELECT %s FROM monthly_reports WHERE staff_id = $1 AND month = $2 AND year = $3 LIMIT 1", reportColumns)
	var report models.MonthlyReport
	if err := r.db.GetContext(ctx, &report, query, staffID, month, year); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find report by period: %w", err)
	}
	return &report, nil
}

// List returns reports based on filters with total count.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.MonthlyReport, int, error) {
	baseQuery := `FROM monthly_reports WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.StaffID != "" {
		conditions = append(conditions, fmt.Sprintf("staff_id = $%d", len(args)+1))
		args = append(args, filter.StaffID)
	}
	if filter.Year != nil {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, *filter.Year)
	}
	if filter.Month != nil {
		conditions = append(conditions, fmt.Sprintf("month = $%d", len(args)+1))
		args = append(args, *filter.Month)
	}
	if filter.EmailSent != nil {
		if *filter.EmailSent {
			conditions = append(conditions, "email_sent_at IS NOT NULL")
		} else {
			conditions = append(conditions, "email_sent_at IS NULL")
		}
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY year DESC, month DESC, staff_name ASC LIMIT %d OFFSET %d", reportColumns, baseQuery, pageSize, offset)

	var reports []models.MonthlyReport
	if err := r.db.SelectContext(ctx, &reports, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}
	return reports, total, nil
}

// SetEmailSent stamps the delivery time on a report.
func (r *ReportRepository) SetEmailSent(ctx context.Context, id string, sentAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE monthly_reports SET email_sent_at = $2 WHERE id = $1`, id, sentAt)
	if err != nil {
		return fmt.Errorf("mark report sent: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark report sent: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ClearEmailSent removes the delivery marker so a report can be re-sent.
func (r *ReportRepository) ClearEmailSent(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE monthly_reports SET email_sent_at = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("clear report sent marker: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("clear report sent marker: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
