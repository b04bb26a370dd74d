package dto

import "github.com/hazelpoint/tutorhub-api/internal/models"

// StaffDashboard summarises a staff member's logged hours for the common
// portal windows.
type StaffDashboard struct {
	StaffID    string              `json:"staff_id"`
	Today      models.HoursSummary `json:"today"`
	ThisWeek   models.HoursSummary `json:"this_week"`
	ThisMonth  models.HoursSummary `json:"this_month"`
	RecentLogs []models.TimeLog    `json:"recent_logs"`
}

// StudentDashboard lists every entry attributed to a student, either
// directly or through current group membership, with the summed hours.
type StudentDashboard struct {
	StudentID  string           `json:"student_id"`
	TotalHours float64          `json:"total_hours"`
	EntryCount int              `json:"entry_count"`
	Entries    []models.TimeLog `json:"entries"`
}
