package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hazelpoint/tutorhub-api/internal/models"
	appErrors "github.com/hazelpoint/tutorhub-api/pkg/errors"
)

type groupRepository interface {
	List(ctx context.Context, filter models.GroupFilter) ([]models.Group, int, error)
	FindByID(ctx context.Context, id string) (*models.Group, error)
	MemberIDs(ctx context.Context, groupID string) ([]string, error)
	Create(ctx context.Context, group *models.Group, studentIDs []string) error
	Update(ctx context.Context, group *models.Group, studentIDs []string) error
	Delete(ctx context.Context, id string) error
}

type groupStaffRepository interface {
	FindByID(ctx context.Context, id string) (*models.Staff, error)
}

type groupStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// CreateGroupRequest holds payload for creating groups.
type CreateGroupRequest struct {
	Name        string   `json:"name" validate:"required"`
	StaffID     string   `json:"staff_id" validate:"required,uuid"`
	Description string   `json:"description"`
	StudentIDs  []string `json:"student_ids" validate:"omitempty,dive,uuid"`
}

// UpdateGroupRequest holds payload for updating groups. A nil StudentIDs
// leaves the membership untouched; a non-nil slice replaces it entirely.
type UpdateGroupRequest struct {
	Name        string   `json:"name" validate:"required"`
	StaffID     string   `json:"staff_id" validate:"required,uuid"`
	Description string   `json:"description"`
	Active      bool     `json:"active"`
	StudentIDs  []string `json:"student_ids" validate:"omitempty,dive,uuid"`
}

// GroupService handles group roster use-cases.
type GroupService struct {
	repo      groupRepository
	staff     groupStaffRepository
	students  groupStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGroupService constructs the group service.
func NewGroupService(repo groupRepository, staff groupStaffRepository, students groupStudentRepository, validate *validator.Validate, logger *zap.Logger) *GroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{repo: repo, staff: staff, students: students, validator: validate, logger: logger}
}

// List returns groups and pagination metadata.
func (s *GroupService) List(ctx context.Context, filter models.GroupFilter) ([]models.Group, *models.Pagination, error) {
	groups, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	pagination := buildPagination(filter.Page, filter.PageSize, total)
	return groups, pagination, nil
}

// Get returns one group with its member set resolved.
func (s *GroupService) Get(ctx context.Context, id string) (*models.GroupDetail, error) {
	group, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}

	members, err := s.repo.MemberIDs(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group members")
	}
	return &models.GroupDetail{Group: *group, StudentIDs: members}, nil
}

// Create registers a new group with an optional initial member set.
func (s *GroupService) Create(ctx context.Context, req CreateGroupRequest) (*models.GroupDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	if err := s.verifyStaff(ctx, req.StaffID); err != nil {
		return nil, err
	}
	if err := s.verifyStudents(ctx, req.StudentIDs); err != nil {
		return nil, err
	}

	group := &models.Group{
		Name:        req.Name,
		StaffID:     req.StaffID,
		Description: optString(req.Description),
		Active:      true,
	}
	if err := s.repo.Create(ctx, group, req.StudentIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}
	return &models.GroupDetail{Group: *group, StudentIDs: req.StudentIDs}, nil
}

// Update rewrites a group and, when a member set is provided, replaces the
// membership wholesale.
func (s *GroupService) Update(ctx context.Context, id string, req UpdateGroupRequest) (*models.GroupDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}

	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.verifyStaff(ctx, req.StaffID); err != nil {
		return nil, err
	}
	if req.StudentIDs != nil {
		if err := s.verifyStudents(ctx, req.StudentIDs); err != nil {
			return nil, err
		}
	}

	group := detail.Group
	group.Name = req.Name
	group.StaffID = req.StaffID
	group.Description = optString(req.Description)
	group.Active = req.Active

	if err := s.repo.Update(ctx, &group, req.StudentIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update group")
	}

	members := detail.StudentIDs
	if req.StudentIDs != nil {
		members = req.StudentIDs
	}
	return &models.GroupDetail{Group: group, StudentIDs: members}, nil
}

// Delete removes a group. Time logs that pointed at it keep their hours and
// lose only the group reference.
func (s *GroupService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete group")
	}
	return nil
}

func (s *GroupService) verifyStaff(ctx context.Context, staffID string) error {
	if _, err := s.staff.FindByID(ctx, staffID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrValidation, "staff does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify staff")
	}
	return nil
}

func (s *GroupService) verifyStudents(ctx context.Context, studentIDs []string) error {
	for _, studentID := range studentIDs {
		if _, err := s.students.FindByID(ctx, studentID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrValidation, "student does not exist: "+studentID)
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify student")
		}
	}
	return nil
}
