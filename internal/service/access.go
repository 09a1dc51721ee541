package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

type activityRecorder interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
}

// chartInvalidator drops cached report charts after writes that feed them.
type chartInvalidator interface {
	InvalidateCharts(ctx context.Context)
}

type courseMembership interface {
	Exists(ctx context.Context, userID, courseID string) (bool, error)
	CourseIDsByUser(ctx context.Context, userID string) ([]string, error)
}

// CourseAccess answers course-level authorization questions for the caller.
// Admins see everything, faculty the courses they teach and students the
// courses they are enrolled in.
type CourseAccess struct {
	enrollments courseMembership
	teaching    courseMembership
}

// NewCourseAccess constructs a CourseAccess.
func NewCourseAccess(enrollments, teaching courseMembership) *CourseAccess {
	return &CourseAccess{enrollments: enrollments, teaching: teaching}
}

// IsMember reports whether the actor may read the course.
func (a *CourseAccess) IsMember(ctx context.Context, actorID string, role models.UserRole, courseID string) (bool, error) {
	switch role {
	case models.RoleAdmin:
		return true, nil
	case models.RoleFaculty:
		return a.teaching.Exists(ctx, actorID, courseID)
	case models.RoleStudent:
		return a.enrollments.Exists(ctx, actorID, courseID)
	}
	return false, nil
}

// RequireMember fails with Forbidden unless the actor may read the course.
func (a *CourseAccess) RequireMember(ctx context.Context, actorID string, role models.UserRole, courseID string) error {
	ok, err := a.IsMember(ctx, actorID, role, courseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course access")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrForbidden, "no access to this course")
	}
	return nil
}

// RequireManager fails unless the actor is an admin or teaches the course.
func (a *CourseAccess) RequireManager(ctx context.Context, actorID string, role models.UserRole, courseID string) error {
	if role == models.RoleAdmin {
		return nil
	}
	if role != models.RoleFaculty {
		return appErrors.Clone(appErrors.ErrForbidden, "only course staff can perform this action")
	}
	ok, err := a.teaching.Exists(ctx, actorID, courseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teaching assignment")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrForbidden, "you do not teach this course")
	}
	return nil
}

// CourseIDs returns the courses the actor belongs to. Admins get nil with
// all=true.
func (a *CourseAccess) CourseIDs(ctx context.Context, actorID string, role models.UserRole) (ids []string, all bool, err error) {
	switch role {
	case models.RoleAdmin:
		return nil, true, nil
	case models.RoleFaculty:
		ids, err = a.teaching.CourseIDsByUser(ctx, actorID)
	case models.RoleStudent:
		ids, err = a.enrollments.CourseIDsByUser(ctx, actorID)
	}
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve course membership")
	}
	return ids, false, nil
}

func recordActivity(ctx context.Context, recorder activityRecorder, logger *zap.Logger, entry *models.ActivityLog) {
	if recorder == nil {
		return
	}
	if err := recorder.Create(ctx, entry); err != nil {
		logger.Warn("failed to record activity", zap.String("action", entry.Action), zap.Error(err))
	}
}

func invalidateCharts(ctx context.Context, charts chartInvalidator) {
	if charts != nil {
		charts.InvalidateCharts(ctx)
	}
}

// notFoundOr maps sql.ErrNoRows to NotFound and anything else to Internal.
func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}

// staleOr maps sql.ErrNoRows from a status-guarded update to Conflict.
func staleOr(err error, conflict, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrConflict, conflict)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}

func newPagination(page, pageSize, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}

func stringPtr(v string) *string {
	return &v
}
