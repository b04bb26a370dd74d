package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// MonthlyReport is a point-in-time snapshot of a staff member's teaching
// hours for one calendar month. Staff name and email are denormalised at
// generation time so the report stays readable after the staff record
// changes or is removed. At most one report exists per (staff, month, year).
type MonthlyReport struct {
	ID          string          `db:"id" json:"id"`
	StaffID     string          `db:"staff_id" json:"staff_id"`
	StaffName   string          `db:"staff_name" json:"staff_name"`
	StaffEmail  string          `db:"staff_email" json:"staff_email"`
	Month       int             `db:"month" json:"month"`
	Year        int             `db:"year" json:"year"`
	TotalHours  float64         `db:"total_hours" json:"total_hours"`
	Breakdown   ReportBreakdown `db:"breakdown" json:"breakdown"`
	PeriodStart time.Time       `db:"period_start" json:"period_start"`
	PeriodEnd   time.Time       `db:"period_end" json:"period_end"`
	GeneratedAt time.Time       `db:"generated_at" json:"generated_at"`
	EmailSentAt *time.Time      `db:"email_sent_at" json:"email_sent_at,omitempty"`
}

// ReportBreakdown stores the ordered per-(subject, course) hour rows as
// JSONB. Order is descending by hours; ties keep store order and are not
// deterministic.
type ReportBreakdown []BreakdownRow

// Value marshals the breakdown to JSON for persistence.
func (b ReportBreakdown) Value() (driver.Value, error) {
	if b == nil {
		b = ReportBreakdown{}
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal report breakdown: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the breakdown slice.
func (b *ReportBreakdown) Scan(value interface{}) error {
	if value == nil {
		*b = ReportBreakdown{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ReportBreakdown", value)
	}
	if len(data) == 0 {
		*b = ReportBreakdown{}
		return nil
	}
	if err := json.Unmarshal(data, b); err != nil {
		return fmt.Errorf("unmarshal report breakdown: %w", err)
	}
	return nil
}

// ReportFilter captures filtering options for listing monthly reports.
type ReportFilter struct {
	StaffID   string
	Year      *int
	Month     *int
	EmailSent *bool
	Page      int
	PageSize  int
}
