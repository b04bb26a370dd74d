package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hazelpoint/tutorhub-api/internal/dto"
	"github.com/hazelpoint/tutorhub-api/internal/models"
	appErrors "github.com/hazelpoint/tutorhub-api/pkg/errors"
)

type timeLogRepository interface {
	Create(ctx context.Context, log *models.TimeLog) error
	Update(ctx context.Context, log *models.TimeLog) error
	FindByID(ctx context.Context, id string) (*models.TimeLog, error)
	List(ctx context.Context, filter models.TimeLogFilter) ([]models.TimeLog, int, error)
	Delete(ctx context.Context, id string) error
	SumHours(ctx context.Context, staffID string, window models.Window) (float64, int, error)
	Breakdown(ctx context.Context, staffID string, window models.Window) ([]models.BreakdownRow, error)
	ListForStudent(ctx context.Context, studentID string) ([]models.TimeLog, error)
}

type timeLogGroupRepository interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
}

// CreateTimeLogRequest holds payload for recording a teaching-hour entry.
// GroupID and StudentIDs are mutually exclusive; both may be empty for
// unattributed hours (admin work, preparation).
type CreateTimeLogRequest struct {
	StaffID     string    `json:"staff_id" validate:"required,uuid"`
	Date        time.Time `json:"date" validate:"required"`
	Hours       float64   `json:"hours" validate:"gte=0,lte=24"`
	Subject     string    `json:"subject" validate:"required"`
	Course      string    `json:"course"`
	Description string    `json:"description"`
	GroupID     string    `json:"group_id" validate:"omitempty,uuid"`
	StudentIDs  []string  `json:"student_ids" validate:"omitempty,dive,uuid"`
}

// UpdateTimeLogRequest holds payload for rewriting an entry. The attribution
// written here replaces the existing one entirely.
type UpdateTimeLogRequest struct {
	Date        time.Time `json:"date" validate:"required"`
	Hours       float64   `json:"hours" validate:"gte=0,lte=24"`
	Subject     string    `json:"subject" validate:"required"`
	Course      string    `json:"course"`
	Description string    `json:"description"`
	GroupID     string    `json:"group_id" validate:"omitempty,uuid"`
	StudentIDs  []string  `json:"student_ids" validate:"omitempty,dive,uuid"`
}

// TimeLogService handles teaching-hour entries and the aggregations
// computed over them.
type TimeLogService struct {
	repo      timeLogRepository
	staff     groupStaffRepository
	students  groupStudentRepository
	groups    timeLogGroupRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimeLogService constructs the time log service.
func NewTimeLogService(repo timeLogRepository, staff groupStaffRepository, students groupStudentRepository, groups timeLogGroupRepository, validate *validator.Validate, logger *zap.Logger) *TimeLogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimeLogService{repo: repo, staff: staff, students: students, groups: groups, validator: validate, logger: logger}
}

// List returns time logs and pagination metadata.
func (s *TimeLogService) List(ctx context.Context, filter models.TimeLogFilter) ([]models.TimeLog, *models.Pagination, error) {
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time logs")
	}
	pagination := buildPagination(filter.Page, filter.PageSize, total)
	return logs, pagination, nil
}

// Get returns one entry with its attribution resolved.
func (s *TimeLogService) Get(ctx context.Context, id string) (*models.TimeLog, error) {
	log, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time log not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time log")
	}
	return log, nil
}

// Create records a new entry.
func (s *TimeLogService) Create(ctx context.Context, req CreateTimeLogRequest) (*models.TimeLog, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time log payload")
	}
	if req.GroupID != "" && len(req.StudentIDs) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "an entry is attributed to a group or to students, not both")
	}

	if _, err := s.staff.FindByID(ctx, req.StaffID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrValidation, "staff does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify staff")
	}
	if err := s.verifyAttribution(ctx, req.GroupID, req.StudentIDs); err != nil {
		return nil, err
	}

	log := &models.TimeLog{
		StaffID:     req.StaffID,
		Date:        dateOnly(req.Date),
		Hours:       req.Hours,
		Subject:     req.Subject,
		Course:      optString(req.Course),
		Description: optString(req.Description),
		GroupID:     optString(req.GroupID),
		StudentIDs:  req.StudentIDs,
	}
	if err := s.repo.Create(ctx, log); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create time log")
	}
	return log, nil
}

// Update rewrites an entry, replacing its attribution.
func (s *TimeLogService) Update(ctx context.Context, id string, req UpdateTimeLogRequest) (*models.TimeLog, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time log payload")
	}
	if req.GroupID != "" && len(req.StudentIDs) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "an entry is attributed to a group or to students, not both")
	}

	log, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.verifyAttribution(ctx, req.GroupID, req.StudentIDs); err != nil {
		return nil, err
	}

	log.Date = dateOnly(req.Date)
	log.Hours = req.Hours
	log.Subject = req.Subject
	log.Course = optString(req.Course)
	log.Description = optString(req.Description)
	log.GroupID = optString(req.GroupID)
	log.StudentIDs = req.StudentIDs

	if err := s.repo.Update(ctx, log); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update time log")
	}
	return log, nil
}

// Delete removes an entry.
func (s *TimeLogService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete time log")
	}
	return nil
}

// Summarize computes total hours, entry count and the per subject/course
// breakdown for one staff member over a closed date window.
func (s *TimeLogService) Summarize(ctx context.Context, staffID string, window models.Window) (*models.HoursSummary, error) {
	total, count, err := s.repo.SumHours(ctx, staffID, window)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum hours")
	}

	breakdown, err := s.repo.Breakdown(ctx, staffID, window)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute breakdown")
	}

	return &models.HoursSummary{
		TotalHours: total,
		EntryCount: count,
		Breakdown:  breakdown,
		Window:     window,
	}, nil
}

// StaffSummary computes the day, week and month summaries anchored at now.
func (s *TimeLogService) StaffSummary(ctx context.Context, staffID string, now time.Time) (*dto.StaffDashboard, error) {
	today, err := s.Summarize(ctx, staffID, models.DayWindow(now))
	if err != nil {
		return nil, err
	}
	week, err := s.Summarize(ctx, staffID, models.WeekWindow(now))
	if err != nil {
		return nil, err
	}
	month, err := s.Summarize(ctx, staffID, models.MonthWindowAt(now))
	if err != nil {
		return nil, err
	}

	recent, _, err := s.repo.List(ctx, models.TimeLogFilter{StaffID: staffID, Page: 1, PageSize: 10})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent logs")
	}

	return &dto.StaffDashboard{
		StaffID:    staffID,
		Today:      *today,
		ThisWeek:   *week,
		ThisMonth:  *month,
		RecentLogs: recent,
	}, nil
}

// StudentSummary lists every entry attributed to the student and sums the
// hours. Entries are counted once even when both a direct attribution and a
// group membership point at them.
func (s *TimeLogService) StudentSummary(ctx context.Context, studentID string) (*dto.StudentDashboard, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	entries, err := s.repo.ListForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student entries")
	}

	var total float64
	for _, entry := range entries {
		total += entry.Hours
	}

	return &dto.StudentDashboard{
		StudentID:  studentID,
		TotalHours: total,
		EntryCount: len(entries),
		Entries:    entries,
	}, nil
}

func (s *TimeLogService) verifyAttribution(ctx context.Context, groupID string, studentIDs []string) error {
	if groupID != "" {
		if _, err := s.groups.FindByID(ctx, groupID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrValidation, "group does not exist")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify group")
		}
	}
	for _, studentID := range studentIDs {
		if _, err := s.students.FindByID(ctx, studentID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrValidation, "student does not exist: "+studentID)
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify student")
		}
	}
	return nil
}

// dateOnly truncates a timestamp to its calendar day in UTC. Entries are
// keyed by day, not by moment.
func dateOnly(ts time.Time) time.Time {
	ts = ts.UTC()
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}
