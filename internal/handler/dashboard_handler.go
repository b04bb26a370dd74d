package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hazelpoint/tutorhub-api/internal/models"
	"github.com/hazelpoint/tutorhub-api/internal/service"
	appErrors "github.com/hazelpoint/tutorhub-api/pkg/errors"
	"github.com/hazelpoint/tutorhub-api/pkg/response"
)

// DashboardHandler exposes the portal landing summaries.
type DashboardHandler struct {
	dashboards *service.DashboardService
	staff      *service.StaffService
	students   *service.StudentService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboards *service.DashboardService, staff *service.StaffService, students *service.StudentService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards, staff: staff, students: students}
}

// Staff godoc
// @Summary Staff dashboard
// @Description Day, week and month hour summaries for a staff member
// @Tags Dashboards
// @Produce json
// @Param id path string true "Staff ID"
// @Success 200 {object} response.Envelope
// @Router /dashboards/staff/{id} [get]
func (h *DashboardHandler) Staff(c *gin.Context) {
	staffID := c.Param("id")
	claims := claimsFromContext(c)
	if claims != nil && claims.Role == models.RoleStaff {
		profile, err := h.staff.GetByUserID(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if staffID != profile.ID {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "staff may only view their own dashboard"))
			return
		}
	}

	dashboard, err := h.dashboards.Staff(c.Request.Context(), staffID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}

// Me godoc
// @Summary Caller's own dashboard
// @Description Resolve the caller's profile and return the matching dashboard
// @Tags Dashboards
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboards/me [get]
func (h *DashboardHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	switch claims.Role {
	case models.RoleStaff:
		profile, err := h.staff.GetByUserID(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		dashboard, err := h.dashboards.Staff(c.Request.Context(), profile.ID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, dashboard, nil)
	case models.RoleStudent:
		profile, err := h.students.GetByUserID(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		dashboard, err := h.dashboards.Student(c.Request.Context(), profile.ID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, dashboard, nil)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "admins have no personal dashboard"))
	}
}

// Student godoc
// @Summary Student dashboard
// @Description All entries attributed to a student with summed hours
// @Tags Dashboards
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /dashboards/students/{id} [get]
func (h *DashboardHandler) Student(c *gin.Context) {
	studentID := c.Param("id")
	claims := claimsFromContext(c)
	if claims != nil && claims.Role == models.RoleStudent {
		profile, err := h.students.GetByUserID(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if studentID != profile.ID {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "students may only view their own dashboard"))
			return
		}
	}

	dashboard, err := h.dashboards.Student(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}
