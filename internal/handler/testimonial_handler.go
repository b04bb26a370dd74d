package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hazelpoint/tutorhub-api/internal/models"
	"github.com/hazelpoint/tutorhub-api/internal/service"
	appErrors "github.com/hazelpoint/tutorhub-api/pkg/errors"
	"github.com/hazelpoint/tutorhub-api/pkg/response"
)

// TestimonialHandler exposes testimonial endpoints. ListPublic is the only
// unauthenticated route in the API.
type TestimonialHandler struct {
	testimonials *service.TestimonialService
}

// NewTestimonialHandler constructs TestimonialHandler.
func NewTestimonialHandler(testimonials *service.TestimonialService) *TestimonialHandler {
	return &TestimonialHandler{testimonials: testimonials}
}

// ListPublic godoc
// @Summary Approved testimonials for the marketing site
// @Tags Testimonials
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /testimonials [get]
func (h *TestimonialHandler) ListPublic(c *gin.Context) {
	testimonials, err := h.testimonials.ListPublic(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, testimonials, nil)
}

// List godoc
// @Summary List all testimonials (admin)
// @Tags Testimonials
// @Produce json
// @Param approved query bool false "Filter by approval state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/testimonials [get]
func (h *TestimonialHandler) List(c *gin.Context) {
	var filter models.TestimonialFilter
	filter.Approved = boolQuery(c, "approved")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	testimonials, pagination, err := h.testimonials.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, testimonials, pagination)
}

// Create godoc
// @Summary Create testimonial
// @Tags Testimonials
// @Accept json
// @Produce json
// @Param payload body service.CreateTestimonialRequest true "Testimonial payload"
// @Success 201 {object} response.Envelope
// @Router /admin/testimonials [post]
func (h *TestimonialHandler) Create(c *gin.Context) {
	var req service.CreateTestimonialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	testimonial, err := h.testimonials.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, testimonial)
}

// Update godoc
// @Summary Update testimonial
// @Tags Testimonials
// @Accept json
// @Produce json
// @Param id path string true "Testimonial ID"
// @Param payload body service.UpdateTestimonialRequest true "Testimonial payload"
// @Success 200 {object} response.Envelope
// @Router /admin/testimonials/{id} [put]
func (h *TestimonialHandler) Update(c *gin.Context) {
	var req service.UpdateTestimonialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	testimonial, err := h.testimonials.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, testimonial, nil)
}

// Delete godoc
// @Summary Delete testimonial
// @Tags Testimonials
// @Produce json
// @Param id path string true "Testimonial ID"
// @Success 204
// @Router /admin/testimonials/{id} [delete]
func (h *TestimonialHandler) Delete(c *gin.Context) {
	if err := h.testimonials.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
