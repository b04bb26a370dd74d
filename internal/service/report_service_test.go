package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hazelpoint/tutorhub-api/internal/dto"
	"github.com/hazelpoint/tutorhub-api/internal/models"
	"github.com/hazelpoint/tutorhub-api/pkg/mail"
)

type mockReportRepo struct {
	upserts   []*models.MonthlyReport
	reports   map[string]*models.MonthlyReport
	sentIDs   []string
	upsertErr error
}

func (m *mockReportRepo) Upsert(ctx context.Context, report *models.MonthlyReport) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	report.ID = fmt.Sprintf("r-%s-%d-%d", report.StaffID, report.Month, report.Year)
	report.EmailSentAt = nil
	if m.reports == nil {
		m.reports = make(map[string]*models.MonthlyReport)
	}
	stored := *report
	m.reports[report.ID] = &stored
	m.upserts = append(m.upserts, &stored)
	return nil
}

func (m *mockReportRepo) FindByID(ctx context.Context, id string) (*models.MonthlyReport, error) {
	report, ok := m.reports[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return report, nil
}

func (m *mockReportRepo) List(ctx context.Context, filter models.ReportFilter) ([]models.MonthlyReport, int, error) {
	var out []models.MonthlyReport
	for _, report := range m.reports {
		out = append(out, *report)
	}
	return out, len(out), nil
}

func (m *mockReportRepo) SetEmailSent(ctx context.Context, id string, sentAt time.Time) error {
	m.sentIDs = append(m.sentIDs, id)
	if report, ok := m.reports[id]; ok {
		report.EmailSentAt = &sentAt
	}
	return nil
}

func (m *mockReportRepo) ClearEmailSent(ctx context.Context, id string) error {
	if report, ok := m.reports[id]; ok {
		report.EmailSentAt = nil
	}
	return nil
}

type mockReportStaff struct {
	active []models.Staff
}

func (m *mockReportStaff) ListActive(ctx context.Context) ([]models.Staff, error) {
	return m.active, nil
}

func (m *mockReportStaff) FindByID(ctx context.Context, id string) (*models.Staff, error) {
	for _, member := range m.active {
		if member.ID == id {
			return &member, nil
		}
	}
	return nil, sql.ErrNoRows
}

type mockAggregator struct {
	summaries map[string]*models.HoursSummary
	windows   []models.Window
}

func (m *mockAggregator) Summarize(ctx context.Context, staffID string, window models.Window) (*models.HoursSummary, error) {
	m.windows = append(m.windows, window)
	if summary, ok := m.summaries[staffID]; ok {
		return summary, nil
	}
	return &models.HoursSummary{Window: window}, nil
}

type mockMailer struct {
	sent    []*mail.Message
	failFor map[string]bool
}

func (m *mockMailer) Send(ctx context.Context, msg *mail.Message) error {
	if m.failFor[msg.ToAddress] {
		return errors.New("smtp rejected")
	}
	m.sent = append(m.sent, msg)
	return nil
}

type mockReportAudit struct {
	logs []*models.AuditLog
}

func (m *mockReportAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func newTestReportService(repo reportRepository, staff *mockReportStaff, agg *mockAggregator, mailer *mockMailer) *ReportService {
	svc := NewReportService(repo, staff, agg, &mockReportAudit{}, mailer, nil, validator.New(), zap.NewNop(), ReportConfig{})
	svc.now = func() time.Time { return time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestReportServiceGenerateCoversAllActiveStaff(t *testing.T) {
	repo := &mockReportRepo{}
	staff := &mockReportStaff{active: []models.Staff{
		{ID: "s1", FullName: "Alice", Email: "alice@example.com"},
		{ID: "s2", FullName: "Bob", Email: "bob@example.com"},
	}}
	agg := &mockAggregator{summaries: map[string]*models.HoursSummary{
		"s1": {TotalHours: 12.5, EntryCount: 4, Breakdown: []models.BreakdownRow{{Subject: "Math", Hours: 12.5}}},
	}}
	svc := newTestReportService(repo, staff, agg, &mockMailer{})

	resp, err := svc.Generate(context.Background(), dto.GenerateReportsRequest{Month: 2, Year: 2026})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Generated)

	// Staff with zero logged hours still get a report.
	assert.Len(t, repo.upserts, 2)
	assert.Equal(t, 12.5, repo.upserts[0].TotalHours)
	assert.Equal(t, 0.0, repo.upserts[1].TotalHours)

	// The aggregation window is the full requested month, inclusive.
	require.NotEmpty(t, agg.windows)
	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), agg.windows[0].Start)
	assert.Equal(t, time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC), agg.windows[0].End)
}

func TestReportServiceGenerateDefaultsToCurrentMonth(t *testing.T) {
	repo := &mockReportRepo{}
	staff := &mockReportStaff{active: []models.Staff{{ID: "s1", FullName: "Alice", Email: "alice@example.com"}}}
	svc := newTestReportService(repo, staff, &mockAggregator{}, &mockMailer{})

	resp, err := svc.Generate(context.Background(), dto.GenerateReportsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Month)
	assert.Equal(t, 2026, resp.Year)
}

func TestReportServiceGenerateOverwritesPreviousRun(t *testing.T) {
	repo := &mockReportRepo{}
	staff := &mockReportStaff{active: []models.Staff{{ID: "s1", FullName: "Alice", Email: "alice@example.com"}}}
	agg := &mockAggregator{summaries: map[string]*models.HoursSummary{
		"s1": {TotalHours: 5, EntryCount: 2},
	}}
	mailer := &mockMailer{}
	svc := newTestReportService(repo, staff, agg, mailer)

	first, err := svc.Generate(context.Background(), dto.GenerateReportsRequest{Month: 2, Year: 2026, SendEmails: true})
	require.NoError(t, err)
	require.True(t, first.Dispatch[0].Sent)

	reportID := first.Reports[0].ID
	require.NotNil(t, repo.reports[reportID].EmailSentAt)

	agg.summaries["s1"] = &models.HoursSummary{TotalHours: 7, EntryCount: 3}
	_, err = svc.Generate(context.Background(), dto.GenerateReportsRequest{Month: 2, Year: 2026})
	require.NoError(t, err)

	// Regeneration replaces the snapshot and resets the sent marker.
	assert.Equal(t, 7.0, repo.reports[reportID].TotalHours)
	assert.Nil(t, repo.reports[reportID].EmailSentAt)
}

func TestReportServiceDispatchContinuesAfterFailure(t *testing.T) {
	repo := &mockReportRepo{reports: map[string]*models.MonthlyReport{}}
	mailer := &mockMailer{failFor: map[string]bool{"bob@example.com": true}}
	svc := newTestReportService(repo, &mockReportStaff{}, &mockAggregator{}, mailer)

	reports := []models.MonthlyReport{
		{ID: "r1", StaffID: "s1", StaffEmail: "alice@example.com", Month: 2, Year: 2026},
		{ID: "r2", StaffID: "s2", StaffEmail: "bob@example.com", Month: 2, Year: 2026},
		{ID: "r3", StaffID: "s3", StaffEmail: "carol@example.com", Month: 2, Year: 2026},
	}

	results := svc.Dispatch(context.Background(), reports)
	require.Len(t, results, 3)
	assert.True(t, results[0].Sent)
	assert.False(t, results[1].Sent)
	assert.NotEmpty(t, results[1].Error)
	assert.True(t, results[2].Sent)

	// Only the delivered reports get their sent marker updated.
	assert.Equal(t, []string{"r1", "r3"}, repo.sentIDs)
}

func TestReportServiceRunCronUsesPreviousMonth(t *testing.T) {
	repo := &mockReportRepo{}
	staff := &mockReportStaff{active: []models.Staff{
		{ID: "s1", FullName: "Alice", Email: "alice@example.com"},
		{ID: "s2", FullName: "Bob", Email: "bob@example.com"},
	}}
	mailer := &mockMailer{failFor: map[string]bool{"bob@example.com": true}}
	svc := newTestReportService(repo, staff, &mockAggregator{}, mailer)

	run, err := svc.RunCron(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, run.Month)
	assert.Equal(t, 2026, run.Year)
	assert.Equal(t, 2, run.Generated)
	assert.Equal(t, 1, run.Sent)
	assert.Equal(t, 1, run.Failed)
}

func TestReportServiceResend(t *testing.T) {
	sentAt := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockReportRepo{reports: map[string]*models.MonthlyReport{
		"r1": {ID: "r1", StaffID: "s1", StaffEmail: "alice@example.com", Month: 2, Year: 2026, EmailSentAt: &sentAt},
	}}
	mailer := &mockMailer{}
	svc := newTestReportService(repo, &mockReportStaff{}, &mockAggregator{}, mailer)

	result, err := svc.Resend(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, result.Sent)
	assert.Len(t, mailer.sent, 1)
	require.NotNil(t, repo.reports["r1"].EmailSentAt)
	assert.True(t, repo.reports["r1"].EmailSentAt.After(sentAt))
}

func TestReportServiceResendFailureLeavesMarkerCleared(t *testing.T) {
	sentAt := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockReportRepo{reports: map[string]*models.MonthlyReport{
		"r1": {ID: "r1", StaffID: "s1", StaffEmail: "alice@example.com", Month: 2, Year: 2026, EmailSentAt: &sentAt},
	}}
	mailer := &mockMailer{failFor: map[string]bool{"alice@example.com": true}}
	svc := newTestReportService(repo, &mockReportStaff{}, &mockAggregator{}, mailer)

	result, err := svc.Resend(context.Background(), "r1")
	require.NoError(t, err)
	assert.False(t, result.Sent)
	assert.NotEmpty(t, result.Error)
	assert.Nil(t, repo.reports["r1"].EmailSentAt)
}

func TestReportServiceGenerateSingleStaff(t *testing.T) {
	bobID := "0c7b7c1e-4a4f-4f8e-9a2a-0f6d1b9c2a11"
	repo := &mockReportRepo{}
	staff := &mockReportStaff{active: []models.Staff{
		{ID: "3b8c1f4a-2d5e-4c7b-8a9d-1e2f3a4b5c6d", FullName: "Alice", Email: "alice@example.com"},
		{ID: bobID, FullName: "Bob", Email: "bob@example.com"},
	}}
	svc := newTestReportService(repo, staff, &mockAggregator{}, &mockMailer{})

	resp, err := svc.Generate(context.Background(), dto.GenerateReportsRequest{Month: 2, Year: 2026, StaffID: bobID})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Generated)
	assert.Equal(t, bobID, repo.upserts[0].StaffID)
}

func TestReportServiceGenerateUnmatchedStaffFilter(t *testing.T) {
	repo := &mockReportRepo{}
	staff := &mockReportStaff{active: []models.Staff{
		{ID: "3b8c1f4a-2d5e-4c7b-8a9d-1e2f3a4b5c6d", FullName: "Alice", Email: "alice@example.com"},
	}}
	svc := newTestReportService(repo, staff, &mockAggregator{}, &mockMailer{})

	resp, err := svc.Generate(context.Background(), dto.GenerateReportsRequest{
		Month:   2,
		Year:    2026,
		StaffID: "9d1e2f3a-4b5c-4d6e-8f9a-0b1c2d3e4f5a",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Generated)
	assert.Empty(t, repo.upserts)
}

type pagedReportRepo struct {
	mockReportRepo
	all   []models.MonthlyReport
	pages []int
}

func (m *pagedReportRepo) List(ctx context.Context, filter models.ReportFilter) ([]models.MonthlyReport, int, error) {
	m.pages = append(m.pages, filter.Page)
	start := (filter.Page - 1) * filter.PageSize
	if start >= len(m.all) {
		return nil, len(m.all), nil
	}
	end := start + filter.PageSize
	if end > len(m.all) {
		end = len(m.all)
	}
	return m.all[start:end], len(m.all), nil
}

func TestReportServiceExportCSVPagesThroughAllReports(t *testing.T) {
	repo := &pagedReportRepo{}
	for i := 0; i < 250; i++ {
		repo.all = append(repo.all, models.MonthlyReport{
			ID:        fmt.Sprintf("r%d", i),
			StaffName: fmt.Sprintf("Staff %d", i),
			Month:     2,
			Year:      2026,
		})
	}
	svc := newTestReportService(repo, &mockReportStaff{}, &mockAggregator{}, &mockMailer{})

	year := 2026
	data, err := svc.ExportCSV(context.Background(), models.ReportFilter{Year: &year})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, repo.pages)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	// header row plus every report.
	assert.Len(t, lines, 251)
	assert.Contains(t, string(data), "Staff 249")
}
