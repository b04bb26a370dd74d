package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hazelpoint/tutorhub-api/internal/models"
	appErrors "github.com/hazelpoint/tutorhub-api/pkg/errors"
)

const testimonialCacheKey = "testimonials:public"

type testimonialRepository interface {
	List(ctx context.Context, filter models.TestimonialFilter) ([]models.Testimonial, int, error)
	FindByID(ctx context.Context, id string) (*models.Testimonial, error)
	Create(ctx context.Context, testimonial *models.Testimonial) error
	Update(ctx context.Context, testimonial *models.Testimonial) error
	Delete(ctx context.Context, id string) error
}

// CreateTestimonialRequest holds payload for creating testimonials.
type CreateTestimonialRequest struct {
	AuthorName   string `json:"author_name" validate:"required"`
	Quote        string `json:"quote" validate:"required"`
	Rating       int    `json:"rating" validate:"required,min=1,max=5"`
	Approved     bool   `json:"approved"`
	DisplayOrder int    `json:"display_order" validate:"min=0"`
}

// UpdateTestimonialRequest holds payload for updating testimonials.
type UpdateTestimonialRequest struct {
	AuthorName   string `json:"author_name" validate:"required"`
	Quote        string `json:"quote" validate:"required"`
	Rating       int    `json:"rating" validate:"required,min=1,max=5"`
	Approved     bool   `json:"approved"`
	DisplayOrder int    `json:"display_order" validate:"min=0"`
}

// TestimonialService handles the public marketing quotes. The public list
// is cached since it changes rarely and is unauthenticated.
type TestimonialService struct {
	repo      testimonialRepository
	cache     *CacheService
	ttl       time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTestimonialService constructs the testimonial service.
func NewTestimonialService(repo testimonialRepository, cache *CacheService, ttl time.Duration, validate *validator.Validate, logger *zap.Logger) *TestimonialService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &TestimonialService{repo: repo, cache: cache, ttl: ttl, validator: validate, logger: logger}
}

// ListPublic returns approved testimonials in display order.
func (s *TestimonialService) ListPublic(ctx context.Context) ([]models.Testimonial, error) {
	var cached []models.Testimonial
	if hit, _ := s.cache.Get(ctx, testimonialCacheKey, &cached); hit {
		return cached, nil
	}

	approved := true
	testimonials, _, err := s.repo.List(ctx, models.TestimonialFilter{Approved: &approved, Page: 1, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list testimonials")
	}

	if err := s.cache.Set(ctx, testimonialCacheKey, testimonials, s.ttl); err != nil {
		s.logger.Debug("testimonial cache write failed", zap.Error(err))
	}
	return testimonials, nil
}

// List returns all testimonials for the admin panel.
func (s *TestimonialService) List(ctx context.Context, filter models.TestimonialFilter) ([]models.Testimonial, *models.Pagination, error) {
	testimonials, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list testimonials")
	}
	pagination := buildPagination(filter.Page, filter.PageSize, total)
	return testimonials, pagination, nil
}

// Get returns one testimonial.
func (s *TestimonialService) Get(ctx context.Context, id string) (*models.Testimonial, error) {
	testimonial, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "testimonial not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load testimonial")
	}
	return testimonial, nil
}

// Create registers a new testimonial.
func (s *TestimonialService) Create(ctx context.Context, req CreateTestimonialRequest) (*models.Testimonial, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid testimonial payload")
	}

	testimonial := &models.Testimonial{
		AuthorName:   req.AuthorName,
		Quote:        req.Quote,
		Rating:       req.Rating,
		Approved:     req.Approved,
		DisplayOrder: req.DisplayOrder,
	}
	if err := s.repo.Create(ctx, testimonial); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create testimonial")
	}
	s.invalidate(ctx)
	return testimonial, nil
}

// Update rewrites a testimonial.
func (s *TestimonialService) Update(ctx context.Context, id string, req UpdateTestimonialRequest) (*models.Testimonial, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid testimonial payload")
	}

	testimonial, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	testimonial.AuthorName = req.AuthorName
	testimonial.Quote = req.Quote
	testimonial.Rating = req.Rating
	testimonial.Approved = req.Approved
	testimonial.DisplayOrder = req.DisplayOrder

	if err := s.repo.Update(ctx, testimonial); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update testimonial")
	}
	s.invalidate(ctx)
	return testimonial, nil
}

// Delete removes a testimonial.
func (s *TestimonialService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete testimonial")
	}
	s.invalidate(ctx)
	return nil
}

func (s *TestimonialService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, testimonialCacheKey); err != nil {
		s.logger.Debug("testimonial cache invalidation failed", zap.Error(err))
	}
}
