package dto

import (
	"time"

	"github.com/hazelpoint/tutorhub-api/internal/models"
)

// GenerateReportsRequest drives manual report generation. Month and year
// default to the current calendar month when omitted; SendEmails chains
// dispatch after generation.
type GenerateReportsRequest struct {
	Month      int    `json:"month" validate:"omitempty,min=1,max=12"`
	Year       int    `json:"year" validate:"omitempty,min=2000,max=2200"`
	StaffID    string `json:"staff_id" validate:"omitempty,uuid4"`
	SendEmails bool   `json:"send_emails"`
}

// GenerateReportsResponse summarises a generation run.
type GenerateReportsResponse struct {
	Month     int                    `json:"month"`
	Year      int                    `json:"year"`
	Generated int                    `json:"generated"`
	Reports   []models.MonthlyReport `json:"reports,omitempty"`
	Dispatch  []DispatchResult       `json:"dispatch,omitempty"`
}

// DispatchResult is the per-report outcome of a dispatch batch. A failed
// delivery never aborts the remaining reports.
type DispatchResult struct {
	ReportID string     `json:"report_id"`
	StaffID  string     `json:"staff_id"`
	Email    string     `json:"email"`
	Sent     bool       `json:"sent"`
	SentAt   *time.Time `json:"sent_at,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// CronRunResponse is returned by the periodic trigger endpoint.
type CronRunResponse struct {
	Month     int `json:"month"`
	Year      int `json:"year"`
	Generated int `json:"generated"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}
