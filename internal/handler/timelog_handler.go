package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hazelpoint/tutorhub-api/internal/models"
	"github.com/hazelpoint/tutorhub-api/internal/service"
	appErrors "github.com/hazelpoint/tutorhub-api/pkg/errors"
	"github.com/hazelpoint/tutorhub-api/pkg/response"
)

// TimeLogHandler exposes teaching-hour entry endpoints. Staff callers are
// scoped to their own entries; admins see everything.
type TimeLogHandler struct {
	logs  *service.TimeLogService
	staff *service.StaffService
}

// NewTimeLogHandler constructs TimeLogHandler.
func NewTimeLogHandler(logs *service.TimeLogService, staff *service.StaffService) *TimeLogHandler {
	return &TimeLogHandler{logs: logs, staff: staff}
}

// List godoc
// @Summary List time logs
// @Tags TimeLogs
// @Produce json
// @Param staffId query string false "Filter by staff (admin only)"
// @Param groupId query string false "Filter by group"
// @Param subject query string false "Filter by subject"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /time-logs [get]
func (h *TimeLogHandler) List(c *gin.Context) {
	var filter models.TimeLogFilter
	filter.StaffID = c.Query("staffId")
	filter.GroupID = c.Query("groupId")
	filter.Subject = c.Query("subject")
	filter.From = dateQuery(c, "from")
	filter.To = dateQuery(c, "to")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	staffID, err := h.scopeStaff(c, filter.StaffID)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.StaffID = staffID

	logs, pagination, err := h.logs.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}

// Get godoc
// @Summary Get time log detail
// @Tags TimeLogs
// @Produce json
// @Param id path string true "Time log ID"
// @Success 200 {object} response.Envelope
// @Router /time-logs/{id} [get]
func (h *TimeLogHandler) Get(c *gin.Context) {
	log, err := h.logs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.authorizeEntry(c, log); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, log, nil)
}

// Create godoc
// @Summary Record a time log
// @Tags TimeLogs
// @Accept json
// @Produce json
// @Param payload body service.CreateTimeLogRequest true "Time log payload"
// @Success 201 {object} response.Envelope
// @Router /time-logs [post]
func (h *TimeLogHandler) Create(c *gin.Context) {
	var req service.CreateTimeLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	// Staff callers always log against their own profile.
	claims := claimsFromContext(c)
	if claims != nil && claims.Role == models.RoleStaff {
		profile, err := h.staff.GetByUserID(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		req.StaffID = profile.ID
	}

	log, err := h.logs.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, log)
}

// Update godoc
// @Summary Update a time log
// @Tags TimeLogs
// @Accept json
// @Produce json
// @Param id path string true "Time log ID"
// @Param payload body service.UpdateTimeLogRequest true "Time log payload"
// @Success 200 {object} response.Envelope
// @Router /time-logs/{id} [put]
func (h *TimeLogHandler) Update(c *gin.Context) {
	var req service.UpdateTimeLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	existing, err := h.logs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.authorizeEntry(c, existing); err != nil {
		response.Error(c, err)
		return
	}

	log, err := h.logs.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, log, nil)
}

// Delete godoc
// @Summary Delete a time log
// @Tags TimeLogs
// @Produce json
// @Param id path string true "Time log ID"
// @Success 204
// @Router /time-logs/{id} [delete]
func (h *TimeLogHandler) Delete(c *gin.Context) {
	existing, err := h.logs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.authorizeEntry(c, existing); err != nil {
		response.Error(c, err)
		return
	}

	if err := h.logs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Summary godoc
// @Summary Hour totals over a date window
// @Tags TimeLogs
// @Produce json
// @Param staffId query string false "Staff (admin only)"
// @Param from query string true "Start date (YYYY-MM-DD)"
// @Param to query string true "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /time-logs/summary [get]
func (h *TimeLogHandler) Summary(c *gin.Context) {
	staffID, err := h.scopeStaff(c, c.Query("staffId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if staffID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "staffId is required"))
		return
	}

	from := dateQuery(c, "from")
	to := dateQuery(c, "to")
	if from == nil || to == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from and to dates are required"))
		return
	}
	if to.Before(*from) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must not precede from"))
		return
	}

	summary, err := h.logs.Summarize(c.Request.Context(), staffID, models.Window{Start: *from, End: *to})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// scopeStaff narrows the staff filter to the caller's own profile for
// STAFF-role requests. Admins may pass any staff id, or none.
func (h *TimeLogHandler) scopeStaff(c *gin.Context, requested string) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil || claims.Role != models.RoleStaff {
		return requested, nil
	}

	profile, err := h.staff.GetByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		return "", err
	}
	if requested != "" && requested != profile.ID {
		return "", appErrors.Clone(appErrors.ErrForbidden, "staff may only query their own entries")
	}
	return profile.ID, nil
}

func (h *TimeLogHandler) authorizeEntry(c *gin.Context, log *models.TimeLog) error {
	claims := claimsFromContext(c)
	if claims == nil || claims.Role != models.RoleStaff {
		return nil
	}
	profile, err := h.staff.GetByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		return err
	}
	if log.StaffID != profile.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "entry belongs to another staff member")
	}
	return nil
}

func dateQuery(c *gin.Context, name string) *time.Time {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &parsed
}
