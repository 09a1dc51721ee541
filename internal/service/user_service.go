package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Deactivate(ctx context.Context, id string) error
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, activity activityRecorder, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, activity: activity, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown role filter")
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, newPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create provisions a new account.
func (s *UserService) Create(ctx context.Context, req models.CreateUserRequest, actorID string, meta models.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		StudentNo:    req.StudentNo,
		Department:   req.Department,
		Active:       true,
		PasswordHash: string(passwordHash),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if appErrors.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email or student number already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	payload, _ := json.Marshal(map[string]interface{}{"id": user.ID, "email": user.Email, "role": user.Role})
	recordActivity(ctx, s.activity, s.logger, &models.ActivityLog{
		UserID:     &actorID,
		Action:     models.ActivityUserCreate,
		Resource:   "users",
		ResourceID: &user.ID,
		Metadata:   payload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})

	return user, nil
}

// Update patches the mutable profile fields of a user.
func (s *UserService) Update(ctx context.Context, id string, req models.UpdateUserRequest, actorID string, meta models.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Role != nil {
		if id == actorID && *req.Role != user.Role {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot change your own role")
		}
		user.Role = *req.Role
	}
	if req.StudentNo != nil {
		user.StudentNo = req.StudentNo
	}
	if req.Department != nil {
		user.Department = req.Department
	}
	if req.Active != nil {
		if id == actorID && !*req.Active {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot deactivate your own account")
		}
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if appErrors.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student number already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	payload, _ := json.Marshal(map[string]interface{}{"role": user.Role, "active": user.Active})
	recordActivity(ctx, s.activity, s.logger, &models.ActivityLog{
		UserID:     &actorID,
		Action:     models.ActivityUserUpdate,
		Resource:   "users",
		ResourceID: &user.ID,
		Metadata:   payload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})

	return user, nil
}

// Deactivate soft-deletes a user. Accounts are never hard deleted because
// submissions, grades and activity rows reference them.
func (s *UserService) Deactivate(ctx context.Context, id string, actorID string, meta models.RequestMeta) error {
	if id == actorID {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot deactivate your own account")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate user")
	}

	recordActivity(ctx, s.activity, s.logger, &models.ActivityLog{
		UserID:     &actorID,
		Action:     models.ActivityUserDeactivate,
		Resource:   "users",
		ResourceID: &id,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	return nil
}
