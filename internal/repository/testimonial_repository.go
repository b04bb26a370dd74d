package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hazelpoint/tutorhub-api/internal/models"
)

const testimonialColumns = `id, author_name, quote, rating, approved, display_order, created_at, updated_at`

// TestimonialRepository provides database access for testimonials.
type TestimonialRepository struct {
	db *sqlx.DB
}

// NewTestimonialRepository creates a new instance of TestimonialRepository.
func NewTestimonialRepository(db *sqlx.DB) *TestimonialRepository {
	return &TestimonialRepository{db: db}
}

// List returns testimonials based on filters with total count.
func (r *TestimonialRepository) List(ctx context.Context, filter models.TestimonialFilter) ([]models.Testimonial, int, error) {
	baseQuery := `FROM testimonials WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Approved != nil {
		conditions = append(conditions, fmt.Sprintf("approved = $%d", len(args)+1))
		args = append(args, *filter.Approved)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY display_order ASC, created_at DESC LIMIT %d OFFSET %d", testimonialColumns, baseQuery, pageSize, offset)

	var testimonials []models.Testimonial
	if err := r.db.SelectContext(ctx, &testimonials, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list testimonials: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count testimonials: %w", err)
	}
	return testimonials, total, nil
}

// FindByID returns a testimonial by its identifier.
func (r *TestimonialRepository) FindByID(ctx context.Context, id string) (*models.Testimonial, error) {
	query := fmt.Sprintf("SELECT %s FROM testimonials WHERE id = $1 LIMIT 1", testimonialColumns)
	var testimonial models.Testimonial
	if err := r.db.GetContext(ctx, &testimonial, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find testimonial by id: %w", err)
	}
	return &testimonial, nil
}

// Create inserts a new testimonial.
func (r *TestimonialRepository) Create(ctx context.Context, testimonial *models.Testimonial) error {
	if testimonial.ID == "" {
		testimonial.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	testimonial.CreatedAt = now
	testimonial.UpdatedAt = now

	const query = `INSERT INTO testimonials (id, author_name, quote, rating, approved, display_order, created_at, updated_at) VALUES (:id, :author_name, :quote, :rating, :approved, :display_order, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, testimonial); err != nil {
		return fmt.Errorf("create testimonial: %w", err)
	}
	return nil
}

// Update rewrites an existing testimonial.
func (r *TestimonialRepository) Update(ctx context.Context, testimonial *models.Testimonial) error {
	testimonial.UpdatedAt = time.Now().UTC()

	const query = `UPDATE testimonials SET author_name = :author_name, quote = :quote, rating = :rating, approved = :approved, display_order = :display_order, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, testimonial)
	if err != nil {
		return fmt.Errorf("update testimonial: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update testimonial: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a testimonial.
func (r *TestimonialRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM testimonials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete testimonial: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete testimonial: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
