package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hazelpoint/tutorhub-api/internal/models"
	appErrors "github.com/hazelpoint/tutorhub-api/pkg/errors"
)

const (
	testStaffID   = "9f1b6c2e-5a3d-4e7f-8b9c-0d1e2f3a4b5c"
	testStudentID = "1a2b3c4d-5e6f-4a7b-8c9d-0e1f2a3b4c5d"
	testGroupID   = "7e6d5c4b-3a2f-4e1d-9c8b-7a6f5e4d3c2b"
)

type mockTimeLogRepo struct {
	logs        map[string]*models.TimeLog
	created     []*models.TimeLog
	sumTotal    float64
	sumCount    int
	sumWindows  []models.Window
	breakdown   []models.BreakdownRow
	forStudent  []models.TimeLog
	listResults []models.TimeLog
}

func (m *mockTimeLogRepo) Create(ctx context.Context, log *models.TimeLog) error {
	log.ID = "tl-1"
	m.created = append(m.created, log)
	return nil
}

func (m *mockTimeLogRepo) Update(ctx context.Context, log *models.TimeLog) error {
	return nil
}

func (m *mockTimeLogRepo) FindByID(ctx context.Context, id string) (*models.TimeLog, error) {
	log, ok := m.logs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return log, nil
}

func (m *mockTimeLogRepo) List(ctx context.Context, filter models.TimeLogFilter) ([]models.TimeLog, int, error) {
	return m.listResults, len(m.listResults), nil
}

func (m *mockTimeLogRepo) Delete(ctx context.Context, id string) error {
	delete(m.logs, id)
	return nil
}

func (m *mockTimeLogRepo) SumHours(ctx context.Context, staffID string, window models.Window) (float64, int, error) {
	m.sumWindows = append(m.sumWindows, window)
	return m.sumTotal, m.sumCount, nil
}

func (m *mockTimeLogRepo) Breakdown(ctx context.Context, staffID string, window models.Window) ([]models.BreakdownRow, error) {
	return m.breakdown, nil
}

func (m *mockTimeLogRepo) ListForStudent(ctx context.Context, studentID string) ([]models.TimeLog, error) {
	return m.forStudent, nil
}

type mockTimeLogStaff struct {
	missing bool
}

func (m *mockTimeLogStaff) FindByID(ctx context.Context, id string) (*models.Staff, error) {
	if m.missing {
		return nil, sql.ErrNoRows
	}
	return &models.Staff{ID: id, FullName: "Tutor", Email: "tutor@example.com"}, nil
}

type mockTimeLogStudents struct {
	missing bool
}

func (m *mockTimeLogStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if m.missing {
		return nil, sql.ErrNoRows
	}
	return &models.Student{ID: id, FullName: "Student"}, nil
}

type mockTimeLogGroups struct {
	missing bool
}

func (m *mockTimeLogGroups) FindByID(ctx context.Context, id string) (*models.Group, error) {
	if m.missing {
		return nil, sql.ErrNoRows
	}
	return &models.Group{ID: id, Name: "Group"}, nil
}

func newTestTimeLogService(repo *mockTimeLogRepo) *TimeLogService {
	return NewTimeLogService(repo, &mockTimeLogStaff{}, &mockTimeLogStudents{}, &mockTimeLogGroups{}, validator.New(), zap.NewNop())
}

func TestTimeLogServiceCreateRejectsDualAttribution(t *testing.T) {
	svc := newTestTimeLogService(&mockTimeLogRepo{})

	_, err := svc.Create(context.Background(), CreateTimeLogRequest{
		StaffID:    testStaffID,
		Date:       time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC),
		Hours:      2,
		Subject:    "Math",
		GroupID:    testGroupID,
		StudentIDs: []string{testStudentID},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestTimeLogServiceCreateTruncatesDate(t *testing.T) {
	repo := &mockTimeLogRepo{}
	svc := newTestTimeLogService(repo)

	log, err := svc.Create(context.Background(), CreateTimeLogRequest{
		StaffID: testStaffID,
		Date:    time.Date(2026, time.February, 3, 17, 45, 12, 0, time.UTC),
		Hours:   1.5,
		Subject: "Physics",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC), log.Date)
	assert.Equal(t, models.AttributionNone, log.Attribution())
}

func TestTimeLogServiceCreateUnknownGroup(t *testing.T) {
	repo := &mockTimeLogRepo{}
	svc := NewTimeLogService(repo, &mockTimeLogStaff{}, &mockTimeLogStudents{}, &mockTimeLogGroups{missing: true}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateTimeLogRequest{
		StaffID: testStaffID,
		Date:    time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC),
		Hours:   2,
		Subject: "Math",
		GroupID: testGroupID,
	})
	require.Error(t, err)
	assert.Empty(t, repo.created)
}

func TestTimeLogServiceCreateRejectsOutOfRangeHours(t *testing.T) {
	svc := newTestTimeLogService(&mockTimeLogRepo{})

	for _, hours := range []float64{-1, -0.5, 25} {
		_, err := svc.Create(context.Background(), CreateTimeLogRequest{
			StaffID: testStaffID,
			Date:    time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC),
			Hours:   hours,
			Subject: "Math",
		})
		require.Error(t, err, "hours=%v", hours)
	}
}

func TestTimeLogServiceCreateAllowsZeroHours(t *testing.T) {
	repo := &mockTimeLogRepo{}
	svc := newTestTimeLogService(repo)

	entry, err := svc.Create(context.Background(), CreateTimeLogRequest{
		StaffID: testStaffID,
		Date:    time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC),
		Hours:   0,
		Subject: "Math",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, entry.Hours)
}

func TestTimeLogServiceSummarize(t *testing.T) {
	repo := &mockTimeLogRepo{
		sumTotal: 7.5,
		sumCount: 3,
		breakdown: []models.BreakdownRow{
			{Subject: "Math", Course: "Algebra", Hours: 5},
			{Subject: "Physics", Course: "", Hours: 2.5},
		},
	}
	svc := newTestTimeLogService(repo)

	window := models.MonthWindow(2026, time.February, time.UTC)
	summary, err := svc.Summarize(context.Background(), testStaffID, window)
	require.NoError(t, err)
	assert.Equal(t, 7.5, summary.TotalHours)
	assert.Equal(t, 3, summary.EntryCount)
	assert.Len(t, summary.Breakdown, 2)
	assert.Equal(t, window, summary.Window)

	// Breakdown rows partition the total.
	var sum float64
	for _, row := range summary.Breakdown {
		sum += row.Hours
	}
	assert.Equal(t, summary.TotalHours, sum)
}

func TestTimeLogServiceStaffSummaryWindows(t *testing.T) {
	repo := &mockTimeLogRepo{}
	svc := newTestTimeLogService(repo)

	// A Tuesday: the week window must start the preceding Sunday.
	now := time.Date(2026, time.February, 3, 15, 0, 0, 0, time.UTC)
	_, err := svc.StaffSummary(context.Background(), testStaffID, now)
	require.NoError(t, err)

	require.Len(t, repo.sumWindows, 3)
	day, week, month := repo.sumWindows[0], repo.sumWindows[1], repo.sumWindows[2]
	assert.Equal(t, time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC), day.Start)
	assert.Equal(t, day.Start, day.End)
	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), week.Start)
	assert.Equal(t, time.Date(2026, time.February, 7, 0, 0, 0, 0, time.UTC), week.End)
	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), month.Start)
	assert.Equal(t, time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC), month.End)
}

func TestTimeLogServiceStudentSummary(t *testing.T) {
	groupID := testGroupID
	repo := &mockTimeLogRepo{
		forStudent: []models.TimeLog{
			{ID: "tl-1", Hours: 2, Subject: "Math", StudentIDs: []string{testStudentID}},
			{ID: "tl-2", Hours: 1.5, Subject: "Physics", GroupID: &groupID},
		},
	}
	svc := newTestTimeLogService(repo)

	dashboard, err := svc.StudentSummary(context.Background(), testStudentID)
	require.NoError(t, err)
	assert.Equal(t, 3.5, dashboard.TotalHours)
	assert.Equal(t, 2, dashboard.EntryCount)
}

func TestTimeLogServiceStudentSummaryUnknownStudent(t *testing.T) {
	svc := NewTimeLogService(&mockTimeLogRepo{}, &mockTimeLogStaff{}, &mockTimeLogStudents{missing: true}, &mockTimeLogGroups{}, validator.New(), zap.NewNop())

	_, err := svc.StudentSummary(context.Background(), testStudentID)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestTimeLogServiceDeleteMissing(t *testing.T) {
	svc := newTestTimeLogService(&mockTimeLogRepo{logs: map[string]*models.TimeLog{}})

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
