package handler

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hazelpoint/tutorhub-api/internal/dto"
	"github.com/hazelpoint/tutorhub-api/internal/models"
	"github.com/hazelpoint/tutorhub-api/internal/service"
	appErrors "github.com/hazelpoint/tutorhub-api/pkg/errors"
	"github.com/hazelpoint/tutorhub-api/pkg/response"
)

// CronSecretHeader authenticates the external scheduler calling the
// periodic trigger endpoint.
const CronSecretHeader = "X-Cron-Secret"

// ReportHandler exposes monthly report endpoints.
type ReportHandler struct {
	reports    *service.ReportService
	cronSecret string
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService, cronSecret string) *ReportHandler {
	return &ReportHandler{reports: reports, cronSecret: cronSecret}
}

// List godoc
// @Summary List monthly reports
// @Tags Reports
// @Produce json
// @Param staffId query string false "Filter by staff"
// @Param month query int false "Filter by month"
// @Param year query int false "Filter by year"
// @Param sent query bool false "Filter by email delivery state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	var filter models.ReportFilter
	filter.StaffID = c.Query("staffId")
	if month, err := strconv.Atoi(c.Query("month")); err == nil {
		filter.Month = &month
	}
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.Year = &year
	}
	filter.EmailSent = boolQuery(c, "sent")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	reports, pagination, err := h.reports.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, pagination)
}

// Get godoc
// @Summary Get report detail
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Generate godoc
// @Summary Generate monthly reports
// @Description Build report snapshots for the requested month; optionally dispatch emails
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.GenerateReportsRequest true "Generation options"
// @Success 200 {object} response.Envelope
// @Router /reports/generate [post]
func (h *ReportHandler) Generate(c *gin.Context) {
	var req dto.GenerateReportsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	resp, err := h.reports.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Resend godoc
// @Summary Resend a report email
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id}/resend [post]
func (h *ReportHandler) Resend(c *gin.Context) {
	result, err := h.reports.Resend(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ExportCSV godoc
// @Summary Export reports as CSV
// @Tags Reports
// @Produce text/csv
// @Param month query int false "Filter by month"
// @Param year query int false "Filter by year"
// @Success 200 {string} string "CSV payload"
// @Router /reports/export [get]
func (h *ReportHandler) ExportCSV(c *gin.Context) {
	var filter models.ReportFilter
	filter.StaffID = c.Query("staffId")
	if month, err := strconv.Atoi(c.Query("month")); err == nil {
		filter.Month = &month
	}
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.Year = &year
	}

	data, err := h.reports.ExportCSV(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="monthly-reports.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// Cron godoc
// @Summary Periodic report trigger
// @Description Generates and dispatches reports for the previous month. Authenticated by shared secret, not JWT.
// @Tags Reports
// @Produce json
// @Param X-Cron-Secret header string true "Scheduler secret"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /reports/cron [post]
func (h *ReportHandler) Cron(c *gin.Context) {
	secret := c.GetHeader(CronSecretHeader)
	if h.cronSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(h.cronSecret)) != 1 {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid cron secret"))
		return
	}

	run, err := h.reports.RunCron(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}
