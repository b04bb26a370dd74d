package models

import "time"

// AttributionKind tags who a time log's hours are attributed to. A log is
// attributed to exactly one of: nobody, a group, or an explicit student set.
type AttributionKind string

const (
	AttributionNone     AttributionKind = "NONE"
	AttributionGroup    AttributionKind = "GROUP"
	AttributionStudents AttributionKind = "STUDENTS"
)

// TimeLog is one teaching-hour entry recorded by a staff member.
type TimeLog struct {
	ID          string    `db:"id" json:"id"`
	StaffID     string    `db:"staff_id" json:"staff_id"`
	Date        time.Time `db:"date" json:"date"`
	Hours       float64   `db:"hours" json:"hours"`
	Subject     string    `db:"subject" json:"subject"`
	Course      *string   `db:"course" json:"course,omitempty"`
	Description *string   `db:"description" json:"description,omitempty"`
	GroupID     *string   `db:"group_id" json:"group_id,omitempty"`
	StudentIDs  []string  `db:"-" json:"student_ids,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Attribution reports which variant the entry currently holds.
func (t *TimeLog) Attribution() AttributionKind {
	switch {
	case t.GroupID != nil && *t.GroupID != "":
		return AttributionGroup
	case len(t.StudentIDs) > 0:
		return AttributionStudents
	default:
		return AttributionNone
	}
}

// TimeLogFilter captures filtering options for listing time logs.
type TimeLogFilter struct {
	StaffID   string
	GroupID   string
	Subject   string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// BreakdownRow is the summed hours for one (subject, course) pair.
type BreakdownRow struct {
	Subject string  `db:"subject" json:"subject"`
	Course  string  `db:"course" json:"course"`
	Hours   float64 `db:"hours" json:"hours"`
}

// HoursSummary aggregates a staff member's entries over a window.
type HoursSummary struct {
	TotalHours float64        `json:"total_hours"`
	EntryCount int            `json:"entry_count"`
	Breakdown  []BreakdownRow `json:"breakdown"`
	Window     Window         `json:"window"`
}

// Window is a closed date interval: both Start and End days are included.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DayWindow covers the given moment's calendar day, midnight to midnight in
// its location.
func DayWindow(now time.Time) Window {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return Window{Start: day, End: day}
}

// WeekWindow covers the Sunday-to-Saturday week containing the given moment.
func WeekWindow(now time.Time) Window {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	sunday := day.AddDate(0, 0, -int(day.Weekday()))
	return Window{Start: sunday, End: sunday.AddDate(0, 0, 6)}
}

// MonthWindowAt covers the full calendar month containing the given moment.
func MonthWindowAt(now time.Time) Window {
	return MonthWindow(now.Year(), now.Month(), now.Location())
}

// MonthWindow covers the first-to-last calendar day of the given month.
func MonthWindow(year int, month time.Month, loc *time.Location) Window {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Window{Start: first, End: first.AddDate(0, 1, -1)}
}

// PreviousMonthWindow covers the calendar month before the given moment.
// This is the default period for the end-of-month dispatch trigger.
func PreviousMonthWindow(now time.Time) Window {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	prev := first.AddDate(0, -1, 0)
	return MonthWindow(prev.Year(), prev.Month(), now.Location())
}
