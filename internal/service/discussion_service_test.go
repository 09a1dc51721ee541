package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

type mockDiscussionRepo struct {
	threads  map[string]*models.DiscussionSummary
	comments map[string]string
	upvotes  map[string]bool
	deleted  []string
}

func newMockDiscussionRepo() *mockDiscussionRepo {
	return &mockDiscussionRepo{
		threads: map[string]*models.DiscussionSummary{
			"d1": {Discussion: models.Discussion{ID: "d1", CourseID: "c1", UserID: "stu"}},
		},
		comments: map[string]string{"k1": "c1"},
		upvotes:  map[string]bool{},
	}
}

func (m *mockDiscussionRepo) ListByCourse(ctx context.Context, courseID, viewerID string) ([]models.DiscussionSummary, error) {
	var out []models.DiscussionSummary
	for _, d := range m.threads {
		if d.CourseID == courseID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockDiscussionRepo) FindSummary(ctx context.Context, id, viewerID string) (*models.DiscussionSummary, error) {
	if d, ok := m.threads[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDiscussionRepo) ListComments(ctx context.Context, discussionID, viewerID string) ([]models.CommentDetail, error) {
	return nil, nil
}

func (m *mockDiscussionRepo) CourseIDForComment(ctx context.Context, commentID string) (string, error) {
	if courseID, ok := m.comments[commentID]; ok {
		return courseID, nil
	}
	return "", sql.ErrNoRows
}

func (m *mockDiscussionRepo) Create(ctx context.Context, item *models.Discussion) error {
	item.ID = "d-new"
	m.threads[item.ID] = &models.DiscussionSummary{Discussion: *item}
	return nil
}

func (m *mockDiscussionRepo) CreateComment(ctx context.Context, item *models.DiscussionComment) error {
	item.ID = "k-new"
	return nil
}

func (m *mockDiscussionRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.threads, id)
	return nil
}

func (m *mockDiscussionRepo) ToggleUpvote(ctx context.Context, target models.UpvoteTarget, targetID, userID string) (*models.UpvoteResult, error) {
	key := string(target) + targetID + userID
	m.upvotes[key] = !m.upvotes[key]
	count := 0
	if m.upvotes[key] {
		count = 1
	}
	return &models.UpvoteResult{Upvoted: m.upvotes[key], Count: count}, nil
}

type recordingPublisher struct {
	topics   []string
	payloads [][]byte
}

func (p *recordingPublisher) Publish(topic string, payload []byte) {
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
}

func newDiscussionFixture(local bool) (*DiscussionService, *mockDiscussionRepo, *recordingPublisher) {
	repo := newMockDiscussionRepo()
	events := &recordingPublisher{}
	access := NewCourseAccess(newMembership("stu", "c1", "stu2", "c1"), newMembership("fac", "c1"))
	return NewDiscussionService(repo, access, events, local, nil, zap.NewNop()), repo, events
}

func TestDiscussionCreatePublishesLocally(t *testing.T) {
	svc, _, events := newDiscussionFixture(true)

	item, err := svc.Create(context.Background(), "c1", models.CreateDiscussionRequest{Title: " Week 3 ", Body: "question"}, "stu", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "Week 3", item.Title)

	require.Equal(t, []string{"c1"}, events.topics)
	var event models.DiscussionEvent
	require.NoError(t, json.Unmarshal(events.payloads[0], &event))
	assert.Equal(t, DiscussionEventRefresh, event.Type)
	assert.Equal(t, "discussion", event.Entity)
	assert.Equal(t, "d-new", event.EntityID)
}

func TestDiscussionWritesDoNotPublishWhenListening(t *testing.T) {
	svc, _, events := newDiscussionFixture(false)
	_, err := svc.Comment(context.Background(), "d1", models.CreateCommentRequest{Body: "same here"}, "stu2", models.RoleStudent)
	require.NoError(t, err)
	assert.Empty(t, events.topics)
}

func TestDiscussionRequiresMembership(t *testing.T) {
	svc, _, _ := newDiscussionFixture(true)
	ctx := context.Background()

	_, err := svc.List(ctx, "c1", "outsider", models.RoleStudent)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.ToggleUpvote(ctx, models.UpvoteTargetComment, "k1", "outsider", models.RoleStudent)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.ToggleUpvote(ctx, models.UpvoteTargetComment, "missing", "stu", models.RoleStudent)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDiscussionToggleUpvote(t *testing.T) {
	svc, _, _ := newDiscussionFixture(true)
	ctx := context.Background()

	first, err := svc.ToggleUpvote(ctx, models.UpvoteTargetDiscussion, "d1", "stu2", models.RoleStudent)
	require.NoError(t, err)
	assert.True(t, first.Upvoted)

	second, err := svc.ToggleUpvote(ctx, models.UpvoteTargetDiscussion, "d1", "stu2", models.RoleStudent)
	require.NoError(t, err)
	assert.False(t, second.Upvoted)
	assert.Zero(t, second.Count)
}

func TestDiscussionDeleteAuthorOrAdmin(t *testing.T) {
	svc, repo, _ := newDiscussionFixture(true)
	ctx := context.Background()

	err := svc.Delete(ctx, "d1", "stu2", models.RoleStudent)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)

	require.NoError(t, svc.Delete(ctx, "d1", "admin", models.RoleAdmin))
	assert.Equal(t, []string{"d1"}, repo.deleted)
}

func TestDiscussionGetReturnsEmptyComments(t *testing.T) {
	svc, _, _ := newDiscussionFixture(true)
	thread, err := svc.Get(context.Background(), "d1", "fac", models.RoleFaculty)
	require.NoError(t, err)
	assert.NotNil(t, thread.Comments)
}

func TestDiscussionRelay(t *testing.T) {
	svc, _, events := newDiscussionFixture(false)

	svc.Relay(`{"course_id":"c1","entity":"comment","entity_id":"k9","op":"insert"}`)
	svc.Relay("not json")
	svc.Relay("")

	require.Equal(t, []string{"c1", ""}, events.topics)
	var event models.DiscussionEvent
	require.NoError(t, json.Unmarshal(events.payloads[0], &event))
	assert.Equal(t, DiscussionEventRefresh, event.Type)
	assert.Equal(t, "k9", event.EntityID)
}
