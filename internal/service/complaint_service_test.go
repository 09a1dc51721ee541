package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

type memoryComplaints struct {
	items      map[string]*models.Complaint
	lastFilter models.ComplaintFilter
}

func (m *memoryComplaints) List(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintDetail, int, error) {
	m.lastFilter = filter
	return []models.ComplaintDetail{}, 0, nil
}

func (m *memoryComplaints) CountOpen(ctx context.Context) (int, error) {
	count := 0
	for _, item := range m.items {
		if item.Status == models.ComplaintStatusPending || item.Status == models.ComplaintStatusInProgress {
			count++
		}
	}
	return count, nil
}

func (m *memoryComplaints) FindByID(ctx context.Context, id string) (*models.Complaint, error) {
	if item, ok := m.items[id]; ok {
		copied := *item
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryComplaints) Create(ctx context.Context, item *models.Complaint) error {
	item.ID = "q1"
	item.Status = models.ComplaintStatusPending
	m.items[item.ID] = item
	return nil
}

func (m *memoryComplaints) UpdateStatus(ctx context.Context, item *models.Complaint, from models.ComplaintStatus) error {
	current, ok := m.items[item.ID]
	if !ok || current.Status != from {
		return sql.ErrNoRows
	}
	m.items[item.ID] = item
	return nil
}

func TestComplaintLifecycle(t *testing.T) {
	repo := &memoryComplaints{items: map[string]*models.Complaint{}}
	charts := &mockChartInvalidator{}
	svc := NewComplaintService(repo, charts, nil, zap.NewNop())
	ctx := context.Background()

	item, err := svc.Create(ctx, models.CreateComplaintRequest{Category: "facilities", Subject: " Broken projector ", Body: "Room 204"}, "stu")
	require.NoError(t, err)
	assert.Equal(t, "Broken projector", item.Subject)

	open, err := svc.CountOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, open)

	progress, err := svc.UpdateStatus(ctx, item.ID, models.UpdateComplaintStatusRequest{Status: models.ComplaintStatusInProgress}, "admin")
	require.NoError(t, err)
	assert.Nil(t, progress.ResolvedAt)

	response := "replaced"
	resolved, err := svc.UpdateStatus(ctx, item.ID, models.UpdateComplaintStatusRequest{Status: models.ComplaintStatusResolved, Response: &response}, "admin")
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	require.NotNil(t, resolved.HandledBy)
	assert.Equal(t, "admin", *resolved.HandledBy)
	assert.Equal(t, 3, charts.calls)

	_, err = svc.UpdateStatus(ctx, item.ID, models.UpdateComplaintStatusRequest{Status: models.ComplaintStatusInProgress}, "admin")
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)

	open, err = svc.CountOpen(ctx)
	require.NoError(t, err)
	assert.Zero(t, open)
}

func TestComplaintValidationAndScoping(t *testing.T) {
	repo := &memoryComplaints{items: map[string]*models.Complaint{}}
	svc := NewComplaintService(repo, nil, nil, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Create(ctx, models.CreateComplaintRequest{Category: "parking", Subject: "x", Body: "y"}, "stu")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, _, err = svc.List(ctx, models.ComplaintFilter{}, "stu", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "stu", repo.lastFilter.UserID)

	_, _, err = svc.List(ctx, models.ComplaintFilter{Status: models.ComplaintStatusPending}, "admin", models.RoleAdmin)
	require.NoError(t, err)
	assert.Empty(t, repo.lastFilter.UserID)

	_, err = svc.UpdateStatus(ctx, "missing", models.UpdateComplaintStatusRequest{Status: models.ComplaintStatusResolved}, "admin")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
