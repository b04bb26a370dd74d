package models

import "time"

// Testimonial is a marketing-site quote from a student or parent. Only
// approved rows are served publicly.
type Testimonial struct {
	ID           string    `db:"id" json:"id"`
	AuthorName   string    `db:"author_name" json:"author_name"`
	Quote        string    `db:"quote" json:"quote"`
	Rating       int       `db:"rating" json:"rating"`
	Approved     bool      `db:"approved" json:"approved"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// TestimonialFilter captures admin listing options.
type TestimonialFilter struct {
	Approved *bool
	Page     int
	PageSize int
}
