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

const timeLogColumns = `id, staff_id, date, hours, subject, course, description, group_id, created_at, updated_at`

// TimeLogRepository provides database access for teaching-hour entries and
// the aggregation queries built over them.
type TimeLogRepository struct {
	db *sqlx.DB
}

// NewTimeLogRepository creates a new instance of TimeLogRepository.
func NewTimeLogRepository(db *sqlx.DB) *TimeLogRepository {
	return &TimeLogRepository{db: db}
}

// Create inserts a time log and its student attributions in one transaction.
func (r *TimeLogRepository) Create(ctx context.Context, log *models.TimeLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = now
	}
	log.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin time log create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO time_logs (id, staff_id, date, hours, subject, course, description, group_id, created_at, updated_at) VALUES (:id, :staff_id, :date, :hours, :subject, :course, :description, :group_id, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create time log: %w", err)
	}
	if err := replaceLogStudents(ctx, tx, log.ID, log.StudentIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit time log create: %w", err)
	}
	return nil
}

// Update rewrites the row and replaces the student attribution set. The
// service layer guarantees group and student attribution are mutually
// exclusive before this is called.
func (r *TimeLogRepository) Update(ctx context.Context, log *models.TimeLog) error {
	log.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin time log update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE time_logs SET date = :date, hours = :hours, subject = :subject, course = :course, description = :description, group_id = :group_id, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("update time log: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM time_log_students WHERE time_log_id = $1`, log.ID); err != nil {
		return fmt.Errorf("clear time log students: %w", err)
	}
	if err := replaceLogStudents(ctx, tx, log.ID, log.StudentIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit time log update: %w", err)
	}
	return nil
}

// FindByID returns a time log with its student attributions resolved.
func (r *TimeLogRepository) FindByID(ctx context.Context, id string) (*models.TimeLog, error) {
	query := fmt.Sprintf("SELECT %s FROM time_logs WHERE id = $1 LIMIT 1", timeLogColumns)
	var log models.TimeLog
	if err := r.db.GetContext(ctx, &log, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find time log by id: %w", err)
	}

	logs := []models.TimeLog{log}
	if err := r.attachStudents(ctx, logs); err != nil {
		return nil, err
	}
	return &logs[0], nil
}

// List returns time logs based on filters with total count.
func (r *TimeLogRepository) List(ctx context.Context, filter models.TimeLogFilter) ([]models.TimeLog, int, error) {
	baseQuery := `FROM time_logs WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.StaffID != "" {
		conditions = append(conditions, fmt.Sprintf("staff_id = $%d", len(args)+1))
		args = append(args, filter.StaffID)
	}
	if filter.GroupID != "" {
		conditions = append(conditions, fmt.Sprintf("group_id = $%d", len(args)+1))
		args = append(args, filter.GroupID)
	}
	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(subject) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Subject)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"date": true, "hours": true, "subject": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "date"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", timeLogColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var logs []models.TimeLog
	if err := r.db.SelectContext(ctx, &logs, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list time logs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count time logs: %w", err)
	}

	if err := r.attachStudents(ctx, logs); err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// Delete removes a time log and its attribution rows.
func (r *TimeLogRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin time log delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM time_log_students WHERE time_log_id = $1`, id); err != nil {
		return fmt.Errorf("delete time log students: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM time_logs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete time log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit time log delete: %w", err)
	}
	return nil
}

// SumHours returns the total hours and entry count for a staff member
// within the closed interval [start, end].
func (r *TimeLogRepository) SumHours(ctx context.Context, staffID string, window models.Window) (float64, int, error) {
	const query = `SELECT COALESCE(SUM(hours), 0) AS total, COUNT(*) AS entries FROM time_logs WHERE staff_id = $1 AND date >= $2 AND date <= $3`
	var row struct {
		Total   float64 `db:"total"`
		Entries int     `db:"entries"`
	}
	if err := r.db.GetContext(ctx, &row, query, staffID, window.Start, window.End); err != nil {
		return 0, 0, fmt.Errorf("sum hours: %w", err)
	}
	return row.Total, row.Entries, nil
}

// Breakdown returns summed hours per (subject, course) within the closed
// interval, ordered by hours descending. Tie order follows store order and
// is not deterministic.
func (r *TimeLogRepository) Breakdown(ctx context.Context, staffID string, window models.Window) ([]models.BreakdownRow, error) {
	const query = `SELECT subject, COALESCE(course, '') AS course, SUM(hours) AS hours FROM time_logs WHERE staff_id = $1 AND date >= $2 AND date <= $3 GROUP BY subject, COALESCE(course, '') ORDER BY SUM(hours) DESC`
	var rows []models.BreakdownRow
	if err := r.db.SelectContext(ctx, &rows, query, staffID, window.Start, window.End); err != nil {
		return nil, fmt.Errorf("hours breakdown: %w", err)
	}
	return rows, nil
}

// ListForStudent returns every entry attributed to the student, either
// directly or through current group membership. DISTINCT keeps an entry
// that somehow matches both paths from being counted twice.
func (r *TimeLogRepository) ListForStudent(ctx context.Context, studentID string) ([]models.TimeLog, error) {
	const query = `SELECT DISTINCT t.id, t.staff_id, t.date, t.hours, t.subject, t.course, t.description, t.group_id, t.created_at, t.updated_at
FROM time_logs t
LEFT JOIN time_log_students ts ON ts.time_log_id = t.id
WHERE ts.student_id = $1 OR t.group_id IN (SELECT group_id FROM group_students WHERE student_id = $1)
ORDER BY t.date DESC`
	var logs []models.TimeLog
	if err := r.db.SelectContext(ctx, &logs, query, studentID); err != nil {
		return nil, fmt.Errorf("list time logs for student: %w", err)
	}
	if err := r.attachStudents(ctx, logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *TimeLogRepository) attachStudents(ctx context.Context, logs []models.TimeLog) error {
	if len(logs) == 0 {
		return nil
	}
	ids := make([]string, len(logs))
	for i := range logs {
		ids[i] = logs[i].ID
	}

	query, args, err := sqlx.In(`SELECT time_log_id, student_id FROM time_log_students WHERE time_log_id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("build student attribution query: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []struct {
		TimeLogID string `db:"time_log_id"`
		StudentID string `db:"student_id"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return fmt.Errorf("load student attributions: %w", err)
	}

	byLog := make(map[string][]string, len(logs))
	for _, row := range rows {
		byLog[row.TimeLogID] = append(byLog[row.TimeLogID], row.StudentID)
	}
	for i := range logs {
		logs[i].StudentIDs = byLog[logs[i].ID]
	}
	return nil
}

func replaceLogStudents(ctx context.Context, tx *sqlx.Tx, logID string, studentIDs []string) error {
	const query = `INSERT INTO time_log_students (time_log_id, student_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, studentID := range studentIDs {
		if _, err := tx.ExecContext(ctx, query, logID, studentID); err != nil {
			return fmt.Errorf("insert time log student: %w", err)
		}
	}
	return nil
}
