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

const groupColumns = `id, name, staff_id, description, active, created_at, updated_at`

// GroupRepository provides database access for student groups.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository creates a new instance of GroupRepository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// List returns groups based on filters with total count.
func (r *GroupRepository) List(ctx context.Context, filter models.GroupFilter) ([]models.Group, int, error) {
	baseQuery := `FROM groups WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.StaffID != "" {
		conditions = append(conditions, fmt.Sprintf("staff_id = $%d", len(args)+1))
		args = append(args, filter.StaffID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"name": true, "created_at": true, "updated_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", groupColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list groups: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count groups: %w", err)
	}

	return groups, total, nil
}

// FindByID returns a group by identifier.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	query := fmt.Sprintf("SELECT %s FROM groups WHERE id = $1 LIMIT 1", groupColumns)
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find group by id: %w", err)
	}
	return &group, nil
}

// MemberIDs returns the student identifiers currently in the group.
func (r *GroupRepository) MemberIDs(ctx context.Context, groupID string) ([]string, error) {
	const query = `SELECT student_id FROM group_students WHERE group_id = $1 ORDER BY student_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, groupID); err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	return ids, nil
}

// GroupIDsForStudent resolves every group the student currently belongs to.
func (r *GroupRepository) GroupIDsForStudent(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT group_id FROM group_students WHERE student_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("list groups for student: %w", err)
	}
	return ids, nil
}

// Create inserts a new group and its initial member set.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group, studentIDs []string) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin group create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO groups (id, name, staff_id, description, active, created_at, updated_at) VALUES (:id, :name, :staff_id, :description, :active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	if err := insertMembers(ctx, tx, group.ID, studentIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit group create: %w", err)
	}
	return nil
}

// Update updates the group row and, when studentIDs is non-nil, replaces
// the whole member set.
func (r *GroupRepository) Update(ctx context.Context, group *models.Group, studentIDs []string) error {
	group.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin group update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE groups SET name = :name, staff_id = :staff_id, description = :description, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("update group: %w", err)
	}

	if studentIDs != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM group_students WHERE group_id = $1`, group.ID); err != nil {
			return fmt.Errorf("clear group members: %w", err)
		}
		if err := insertMembers(ctx, tx, group.ID, studentIDs); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit group update: %w", err)
	}
	return nil
}

// Delete removes the group. Referencing time logs survive with their group
// reference unset.
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin group delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	statements := []string{
		`UPDATE time_logs SET group_id = NULL, updated_at = NOW() WHERE group_id = $1`,
		`DELETE FROM group_students WHERE group_id = $1`,
		`DELETE FROM groups WHERE id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete group: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit group delete: %w", err)
	}
	return nil
}

func insertMembers(ctx context.Context, tx *sqlx.Tx, groupID string, studentIDs []string) error {
	const query = `INSERT INTO group_students (group_id, student_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, studentID := range studentIDs {
		if _, err := tx.ExecContext(ctx, query, groupID, studentID); err != nil {
			return fmt.Errorf("insert group member: %w", err)
		}
	}
	return nil
}
