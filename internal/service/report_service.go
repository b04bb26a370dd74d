package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hazelpoint/tutorhub-api/internal/dto"
	"github.com/hazelpoint/tutorhub-api/internal/models"
	appErrors "github.com/hazelpoint/tutorhub-api/pkg/errors"
	"github.com/hazelpoint/tutorhub-api/pkg/export"
	"github.com/hazelpoint/tutorhub-api/pkg/mail"
)

type reportRepository interface {
	Upsert(ctx context.Context, report *models.MonthlyReport) error
	FindByID(ctx context.Context, id string) (*models.MonthlyReport, error)
	List(ctx context.Context, filter models.ReportFilter) ([]models.MonthlyReport, int, error)
	SetEmailSent(ctx context.Context, id string, sentAt time.Time) error
	ClearEmailSent(ctx context.Context, id string) error
}

type reportStaffRepository interface {
	ListActive(ctx context.Context) ([]models.Staff, error)
	FindByID(ctx context.Context, id string) (*models.Staff, error)
}

type hoursAggregator interface {
	Summarize(ctx context.Context, staffID string, window models.Window) (*models.HoursSummary, error)
}

type reportAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ReportConfig governs generation and dispatch behaviour.
type ReportConfig struct {
	AttachPDF bool
}

// ReportService generates monthly teaching-hour reports and emails them to
// staff. Generation is an overwrite: at most one report exists per
// (staff, month, year) and regenerating replaces the previous snapshot.
type ReportService struct {
	repo       reportRepository
	staff      reportStaffRepository
	aggregator hoursAggregator
	audit      reportAuditRepository
	mailer     mail.Mailer
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	config     ReportConfig
	now        func() time.Time
}

// NewReportService constructs the report service.
func NewReportService(repo reportRepository, staff reportStaffRepository, aggregator hoursAggregator, audit reportAuditRepository, mailer mail.Mailer, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config ReportConfig) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:       repo,
		staff:      staff,
		aggregator: aggregator,
		audit:      audit,
		mailer:     mailer,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		config:     config,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Generate builds reports for the requested month. With no staff filter
// every active staff member gets a report, including those with zero logged
// hours. Month and year default to the current calendar month.
func (s *ReportService) Generate(ctx context.Context, req dto.GenerateReportsRequest) (*dto.GenerateReportsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate payload")
	}

	now := s.now()
	month, year := req.Month, req.Year
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}

	staff, err := s.resolveStaff(ctx, req.StaffID)
	if err != nil {
		return nil, err
	}

	window := models.MonthWindow(year, time.Month(month), time.UTC)
	reports := make([]models.MonthlyReport, 0, len(staff))
	for _, member := range staff {
		report, err := s.generateOne(ctx, member, month, year, window)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}

	s.recordAudit(ctx, models.AuditActionReportGenerate, fmt.Sprintf(`{"month":%d,"year":%d,"generated":%d}`, month, year, len(reports)))

	resp := &dto.GenerateReportsResponse{
		Month:     month,
		Year:      year,
		Generated: len(reports),
		Reports:   reports,
	}
	if req.SendEmails {
		resp.Dispatch = s.Dispatch(ctx, reports)
	}
	return resp, nil
}

// Dispatch emails each report to its staff member sequentially. One failed
// delivery is recorded in its result and never aborts the rest of the batch.
func (s *ReportService) Dispatch(ctx context.Context, reports []models.MonthlyReport) []dto.DispatchResult {
	results := make([]dto.DispatchResult, 0, len(reports))
	for _, report := range reports {
		result := dto.DispatchResult{
			ReportID: report.ID,
			StaffID:  report.StaffID,
			Email:    report.StaffEmail,
		}

		if err := s.sendReport(ctx, &report); err != nil {
			result.Error = err.Error()
			s.metrics.RecordReportDispatch(false)
			s.logger.Warn("report email delivery failed",
				zap.String("report_id", report.ID),
				zap.String("staff_email", report.StaffEmail),
				zap.Error(err))
		} else {
			sentAt := s.now()
			result.Sent = true
			result.SentAt = &sentAt
			s.metrics.RecordReportDispatch(true)
			if err := s.repo.SetEmailSent(ctx, report.ID, sentAt); err != nil {
				s.logger.Warn("failed to mark report as sent", zap.String("report_id", report.ID), zap.Error(err))
			}
		}
		results = append(results, result)
	}

	s.recordAudit(ctx, models.AuditActionReportDispatch, fmt.Sprintf(`{"attempted":%d}`, len(results)))
	return results
}

// Resend clears a report's sent marker and delivers it again.
func (s *ReportService) Resend(ctx context.Context, reportID string) (*dto.DispatchResult, error) {
	report, err := s.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ClearEmailSent(ctx, report.ID); err != nil {
		return nil, err
	}
	report.EmailSentAt = nil
	results := s.Dispatch(ctx, []models.MonthlyReport{*report})
	return &results[0], nil
}

// RunCron is the periodic end-of-month trigger: it generates reports for
// the previous calendar month for all active staff and emails them.
func (s *ReportService) RunCron(ctx context.Context) (*dto.CronRunResponse, error) {
	window := models.PreviousMonthWindow(s.now())
	month := int(window.Start.Month())
	year := window.Start.Year()

	resp, err := s.Generate(ctx, dto.GenerateReportsRequest{Month: month, Year: year, SendEmails: true})
	if err != nil {
		return nil, err
	}

	run := &dto.CronRunResponse{Month: month, Year: year, Generated: resp.Generated}
	for _, result := range resp.Dispatch {
		if result.Sent {
			run.Sent++
		} else {
			run.Failed++
		}
	}
	return run, nil
}

// Get returns one report.
func (s *ReportService) Get(ctx context.Context, id string) (*models.MonthlyReport, error) {
	report, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	return report, nil
}

// List returns reports and pagination metadata.
func (s *ReportService) List(ctx context.Context, filter models.ReportFilter) ([]models.MonthlyReport, *models.Pagination, error) {
	reports, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	pagination := buildPagination(filter.Page, filter.PageSize, total)
	return reports, pagination, nil
}

// ExportCSV renders the filtered reports as a CSV statement.
func (s *ReportService) ExportCSV(ctx context.Context, filter models.ReportFilter) ([]byte, error) {
	filter.Page = 1
	filter.PageSize = 100
	var reports []models.MonthlyReport
	for {
		page, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
		}
		reports = append(reports, page...)
		if len(page) == 0 || len(reports) >= total {
			break
		}
		filter.Page++
	}

	table := export.Table{
		Title:   "Monthly Teaching Hours",
		Headers: []string{"Staff", "Email", "Month", "Year", "Total Hours", "Generated At", "Email Sent At"},
	}
	for _, report := range reports {
		sentAt := ""
		if report.EmailSentAt != nil {
			sentAt = report.EmailSentAt.Format(time.RFC3339)
		}
		table.Rows = append(table.Rows, []string{
			report.StaffName,
			report.StaffEmail,
			fmt.Sprintf("%d", report.Month),
			fmt.Sprintf("%d", report.Year),
			fmt.Sprintf("%.2f", report.TotalHours),
			report.GeneratedAt.Format(time.RFC3339),
			sentAt,
		})
	}

	data, err := export.CSV(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return data, nil
}

func (s *ReportService) resolveStaff(ctx context.Context, staffID string) ([]models.Staff, error) {
	if staffID != "" {
		member, err := s.staff.FindByID(ctx, staffID)
		if err != nil {
			// An unmatched filter is not an error: nobody to report on.
			if err == sql.ErrNoRows {
				return nil, nil
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff")
		}
		return []models.Staff{*member}, nil
	}

	staff, err := s.staff.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active staff")
	}
	return staff, nil
}

func (s *ReportService) generateOne(ctx context.Context, member models.Staff, month, year int, window models.Window) (*models.MonthlyReport, error) {
	summary, err := s.aggregator.Summarize(ctx, member.ID, window)
	if err != nil {
		return nil, err
	}

	report := &models.MonthlyReport{
		StaffID:     member.ID,
		StaffName:   member.FullName,
		StaffEmail:  member.Email,
		Month:       month,
		Year:        year,
		TotalHours:  summary.TotalHours,
		Breakdown:   models.ReportBreakdown(summary.Breakdown),
		PeriodStart: window.Start,
		PeriodEnd:   window.End,
		GeneratedAt: s.now(),
	}
	if err := s.repo.Upsert(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report")
	}
	return report, nil
}

func (s *ReportService) sendReport(ctx context.Context, report *models.MonthlyReport) error {
	msg := &mail.Message{
		ToName:    report.StaffName,
		ToAddress: report.StaffEmail,
		Subject:   fmt.Sprintf("Teaching hours for %s %d", time.Month(report.Month), report.Year),
		HTMLBody:  renderReportHTML(report),
		TextBody:  renderReportText(report),
	}

	if s.config.AttachPDF {
		attachment, err := renderReportPDF(report)
		if err != nil {
			s.logger.Warn("failed to render report attachment", zap.String("report_id", report.ID), zap.Error(err))
		} else {
			msg.Attachments = append(msg.Attachments, *attachment)
		}
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		return appErrors.Wrap(err, appErrors.ErrMailDelivery.Code, appErrors.ErrMailDelivery.Status, "failed to deliver report email")
	}
	return nil
}

func (s *ReportService) recordAudit(ctx context.Context, action, payload string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		Action:    action,
		Resource:  "reports",
		NewValues: []byte(payload),
	}); err != nil {
		s.logger.Warn("failed to record report audit log", zap.String("action", action), zap.Error(err))
	}
}

func renderReportHTML(report *models.MonthlyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Teaching hours for %s %d</h2>", time.Month(report.Month), report.Year)
	fmt.Fprintf(&b, "<p>Hi %s,</p>", report.StaffName)
	fmt.Fprintf(&b, "<p>You logged a total of <strong>%.2f hours</strong> between %s and %s.</p>",
		report.TotalHours,
		report.PeriodStart.Format("2 January 2006"),
		report.PeriodEnd.Format("2 January 2006"))

	if len(report.Breakdown) > 0 {
		b.WriteString(`<table border="1" cellpadding="6" cellspacing="0"><tr><th>Subject</th><th>Course</th><th>Hours</th></tr>`)
		for _, row := range report.Breakdown {
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%.2f</td></tr>", row.Subject, row.Course, row.Hours)
		}
		b.WriteString("</table>")
	} else {
		b.WriteString("<p>No hours were logged this month.</p>")
	}
	return b.String()
}

func renderReportText(report *models.MonthlyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Teaching hours for %s %d\n\n", time.Month(report.Month), report.Year)
	fmt.Fprintf(&b, "Total: %.2f hours (%s to %s)\n",
		report.TotalHours,
		report.PeriodStart.Format("2006-01-02"),
		report.PeriodEnd.Format("2006-01-02"))
	for _, row := range report.Breakdown {
		fmt.Fprintf(&b, "- %s / %s: %.2f\n", row.Subject, row.Course, row.Hours)
	}
	return b.String()
}

func renderReportPDF(report *models.MonthlyReport) (*mail.Attachment, error) {
	table := export.Table{
		Title:   fmt.Sprintf("Teaching hours %s %d - %s", time.Month(report.Month), report.Year, report.StaffName),
		Headers: []string{"Subject", "Course", "Hours"},
	}
	for _, row := range report.Breakdown {
		table.Rows = append(table.Rows, []string{row.Subject, row.Course, fmt.Sprintf("%.2f", row.Hours)})
	}

	data, err := export.PDF(table)
	if err != nil {
		return nil, err
	}
	return &mail.Attachment{
		Filename:    fmt.Sprintf("teaching-hours-%04d-%02d.pdf", report.Year, report.Month),
		ContentType: "application/pdf",
		Content:     data,
	}, nil
}
