package service

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

type attendanceRepository interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.Attendance, error)
	Toggle(ctx context.Context, sessionID, userID, markedBy string) (*models.Attendance, error)
	ListForStudent(ctx context.Context, userID, courseID string) ([]models.StudentAttendanceRecord, error)
}

type rosterReader interface {
	Roster(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
	Exists(ctx context.Context, userID, courseID string) (bool, error)
}

type sessionReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassSession, error)
}

// AttendanceService builds attendance sheets and toggles presence.
type AttendanceService struct {
	repo     attendanceRepository
	roster   rosterReader
	sessions sessionReader
	access   *CourseAccess
	charts   chartInvalidator
	logger   *zap.Logger
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(repo attendanceRepository, roster rosterReader, sessions sessionReader, access *CourseAccess, charts chartInvalidator, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, roster: roster, sessions: sessions, access: access, charts: charts, logger: logger}
}

// ComputeAttendanceStats derives present/absent counts and a rounded
// percentage. An empty sheet reports 0%.
func ComputeAttendanceStats(entries []models.AttendanceEntry) models.AttendanceStats {
	stats := models.AttendanceStats{Total: len(entries)}
	for _, entry := range entries {
		if entry.IsPresent {
			stats.Present++
		}
	}
	stats.Absent = stats.Total - stats.Present
	stats.Percentage = percentage(stats.Present, stats.Total)
	return stats
}

func percentage(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// MergeAttendance lays the persisted rows over the roster. Students without a
// row get an absent placeholder.
func MergeAttendance(roster []models.EnrollmentDetail, rows []models.Attendance) []models.AttendanceEntry {
	byUser := make(map[string]models.Attendance, len(rows))
	for _, row := range rows {
		byUser[row.UserID] = row
	}

	entries := make([]models.AttendanceEntry, 0, len(roster))
	for _, student := range roster {
		entry := models.AttendanceEntry{
			UserID:      student.UserID,
			StudentName: student.StudentName,
			StudentNo:   student.StudentNo,
		}
		if row, ok := byUser[student.UserID]; ok {
			id := row.ID
			entry.ID = &id
			entry.IsPresent = row.IsPresent
		} else {
			entry.IsPlaceholder = true
		}
		entries = append(entries, entry)
	}
	return entries
}

// Sheet returns the merged attendance sheet of a session.
func (s *AttendanceService) Sheet(ctx context.Context, sessionID, actorID string, role models.UserRole) (*models.AttendanceSheet, error) {
	session, err := s.managedSession(ctx, sessionID, actorID, role)
	if err != nil {
		return nil, err
	}
	return s.buildSheet(ctx, session)
}

// Toggle flips a student's presence. A placeholder becomes a present row; a
// real row is inverted.
func (s *AttendanceService) Toggle(ctx context.Context, sessionID, userID, actorID string, role models.UserRole) (*models.AttendanceSheet, error) {
	session, err := s.managedSession(ctx, sessionID, actorID, role)
	if err != nil {
		return nil, err
	}

	enrolled, err := s.roster.Exists(ctx, userID, session.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrNotEnrolled, "student is not enrolled in this course")
	}

	if _, err := s.repo.Toggle(ctx, sessionID, userID, actorID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle attendance")
	}
	invalidateCharts(ctx, s.charts)

	return s.buildSheet(ctx, session)
}

// ForStudent returns the actor's own attendance, optionally for one course.
func (s *AttendanceService) ForStudent(ctx context.Context, actorID, courseID string) (*models.StudentAttendanceSummary, error) {
	if courseID != "" {
		if err := s.access.RequireMember(ctx, actorID, models.RoleStudent, courseID); err != nil {
			return nil, err
		}
	}
	records, err := s.repo.ListForStudent(ctx, actorID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	if records == nil {
		records = []models.StudentAttendanceRecord{}
	}

	entries := make([]models.AttendanceEntry, len(records))
	for i, record := range records {
		entries[i] = models.AttendanceEntry{
			UserID:        actorID,
			IsPresent:     record.IsPresent != nil && *record.IsPresent,
			IsPlaceholder: record.IsPresent == nil,
		}
	}
	return &models.StudentAttendanceSummary{Records: records, Stats: ComputeAttendanceStats(entries)}, nil
}

func (s *AttendanceService) managedSession(ctx context.Context, sessionID, actorID string, role models.UserRole) (*models.ClassSession, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, notFoundOr(err, "session not found", "failed to load session")
	}
	if err := s.access.RequireManager(ctx, actorID, role, session.CourseID); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *AttendanceService) buildSheet(ctx context.Context, session *models.ClassSession) (*models.AttendanceSheet, error) {
	roster, err := s.roster.Roster(ctx, session.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	rows, err := s.repo.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	entries := MergeAttendance(roster, rows)
	return &models.AttendanceSheet{
		Session: *session,
		Entries: entries,
		Stats:   ComputeAttendanceStats(entries),
	}, nil
}
