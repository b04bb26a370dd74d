package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazelpoint/tutorhub-api/internal/models"
	"github.com/hazelpoint/tutorhub-api/internal/service"
	"github.com/hazelpoint/tutorhub-api/pkg/mail"
)

type cronReportRepo struct{}

func (cronReportRepo) Upsert(ctx context.Context, report *models.MonthlyReport) error {
	report.ID = "r1"
	return nil
}
func (cronReportRepo) FindByID(ctx context.Context, id string) (*models.MonthlyReport, error) {
	return nil, nil
}
func (cronReportRepo) List(ctx context.Context, filter models.ReportFilter) ([]models.MonthlyReport, int, error) {
	return nil, 0, nil
}
func (cronReportRepo) SetEmailSent(ctx context.Context, id string, sentAt time.Time) error {
	return nil
}
func (cronReportRepo) ClearEmailSent(ctx context.Context, id string) error { return nil }

type cronStaffRepo struct {
	active []models.Staff
}

func (m cronStaffRepo) ListActive(ctx context.Context) ([]models.Staff, error) {
	return m.active, nil
}
func (m cronStaffRepo) FindByID(ctx context.Context, id string) (*models.Staff, error) {
	return nil, nil
}

type cronAggregator struct{}

func (cronAggregator) Summarize(ctx context.Context, staffID string, window models.Window) (*models.HoursSummary, error) {
	return &models.HoursSummary{TotalHours: 4, EntryCount: 2, Window: window}, nil
}

type cronMailer struct {
	sent int
}

func (m *cronMailer) Send(ctx context.Context, msg *mail.Message) error {
	m.sent++
	return nil
}

func newCronHandler(secret string, mailer mail.Mailer) *ReportHandler {
	svc := service.NewReportService(
		cronReportRepo{},
		cronStaffRepo{active: []models.Staff{{ID: "s1", FullName: "Alice", Email: "alice@example.com"}}},
		cronAggregator{},
		nil,
		mailer,
		nil,
		nil,
		nil,
		service.ReportConfig{},
	)
	return NewReportHandler(svc, secret)
}

func cronRequest(handler *ReportHandler, secret string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/reports/cron", nil)
	if secret != "" {
		req.Header.Set(CronSecretHeader, secret)
	}
	c.Request = req
	handler.Cron(c)
	return w
}

func TestReportHandlerCronRejectsBadSecret(t *testing.T) {
	mailer := &cronMailer{}
	handler := newCronHandler("right", mailer)

	w := cronRequest(handler, "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, mailer.sent)
}

func TestReportHandlerCronRejectsMissingSecret(t *testing.T) {
	handler := newCronHandler("right", &cronMailer{})

	w := cronRequest(handler, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReportHandlerCronRejectsWhenUnconfigured(t *testing.T) {
	// An empty configured secret disables the endpoint instead of making it
	// world-callable.
	handler := newCronHandler("", &cronMailer{})

	w := cronRequest(handler, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReportHandlerCronRunsWithValidSecret(t *testing.T) {
	mailer := &cronMailer{}
	handler := newCronHandler("right", mailer)

	w := cronRequest(handler, "right")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, mailer.sent)

	var body struct {
		Data struct {
			Generated int `json:"generated"`
			Sent      int `json:"sent"`
			Failed    int `json:"failed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.Generated)
	assert.Equal(t, 1, body.Data.Sent)
	assert.Equal(t, 0, body.Data.Failed)
}
