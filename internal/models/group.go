package models

import "time"

// Group is a named set of students taught together by one staff member.
type Group struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	StaffID     string    `db:"staff_id" json:"staff_id"`
	Description *string   `db:"description" json:"description,omitempty"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// GroupDetail is a group with its resolved member set.
type GroupDetail struct {
	Group
	StudentIDs []string `json:"student_ids"`
}

// GroupFilter captures filtering options for listing groups.
type GroupFilter struct {
	StaffID   string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
