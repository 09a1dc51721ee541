package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/internal/repository"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

type sessionRepoStub struct {
	users      map[string]*models.User
	tokens     map[string]*models.RefreshToken
	rotateErr  error
	createErr  error
	revokedAll []string
	lastLogin  bool
}

func newSessionRepo(users ...*models.User) *sessionRepoStub {
	repo := &sessionRepoStub{users: map[string]*models.User{}, tokens: map[string]*models.RefreshToken{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *sessionRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *sessionRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (r *sessionRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	r.lastLogin = true
	return nil
}

func (r *sessionRepoStub) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	r.users[id].PasswordHash = passwordHash
	for _, t := range r.tokens {
		if t.UserID == id {
			t.Revoked = true
		}
	}
	return nil
}

func (r *sessionRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.tokens[token.TokenHash] = token
	return nil
}

func (r *sessionRepoStub) FindRefreshToken(ctx context.Context, hash string) (*models.RefreshToken, error) {
	if t, ok := r.tokens[hash]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (r *sessionRepoStub) RotateRefreshToken(ctx context.Context, oldID string, next *models.RefreshToken) error {
	if r.rotateErr != nil {
		return r.rotateErr
	}
	for _, t := range r.tokens {
		if t.ID == oldID {
			t.Revoked = true
			t.ReplacedBy = &next.ID
		}
	}
	r.tokens[next.TokenHash] = next
	return nil
}

func (r *sessionRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, t := range r.tokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (r *sessionRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) (int64, error) {
	r.revokedAll = append(r.revokedAll, userID)
	var n int64
	for _, t := range r.tokens {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			n++
		}
	}
	return n, nil
}

type mockActivityRecorder struct {
	entries []*models.ActivityLog
	err     error
}

func (m *mockActivityRecorder) Create(ctx context.Context, entry *models.ActivityLog) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockActivityRecorder) actions() []string {
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

func studentAccount(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	no := "S-1001"
	return &models.User{ID: "u1", Email: "ana@campus.edu", FullName: "Ana", Role: models.RoleStudent, StudentNo: &no, PasswordHash: string(hash), Active: true}
}

func newAuthService(repo *sessionRepoStub, activity *mockActivityRecorder) *AuthService {
	return NewAuthService(repo, activity, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: time.Hour,
		Issuer:             "campus-lms-api",
	})
}

func assertAppCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, appErrors.FromError(err).Code)
}

func TestAuthLoginIssuesSessionAndStoresHashOnly(t *testing.T) {
	repo := newSessionRepo(studentAccount(t, "correct horse"))
	activity := &mockActivityRecorder{}
	svc := newAuthService(repo, activity)

	session, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@campus.edu", Password: "correct horse"}, models.RequestMeta{IP: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", session.TokenType)
	assert.Equal(t, int64(900), session.ExpiresIn)
	assert.Equal(t, "S-1001", *session.User.StudentNo)
	assert.True(t, repo.lastLogin)

	require.Len(t, repo.tokens, 1)
	stored, ok := repo.tokens[hashRefreshToken(session.RefreshToken)]
	require.True(t, ok)
	assert.NotEqual(t, session.RefreshToken, stored.TokenHash)
	assert.Len(t, stored.TokenHash, 64)
	assert.Equal(t, "10.0.0.1", stored.IPAddress)

	claims, err := svc.ValidateToken(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, []string{models.ActivityLogin}, activity.actions())
}

func TestAuthLoginRejectsBadCredentialsUniformly(t *testing.T) {
	repo := newSessionRepo(studentAccount(t, "correct horse"))
	activity := &mockActivityRecorder{}
	svc := newAuthService(repo, activity)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@campus.edu", Password: "wrong"}, models.RequestMeta{})
	assertAppCode(t, err, appErrors.ErrInvalidCredentials.Code)
	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "nobody@campus.edu", Password: "wrong"}, models.RequestMeta{})
	assertAppCode(t, err, appErrors.ErrInvalidCredentials.Code)

	assert.Empty(t, repo.tokens)
	assert.Equal(t, []string{models.ActivityLoginFailed, models.ActivityLoginFailed}, activity.actions())
	assert.Nil(t, activity.entries[0].UserID)
}

func TestAuthLoginInactiveAccount(t *testing.T) {
	user := studentAccount(t, "correct horse")
	user.Active = false
	svc := newAuthService(newSessionRepo(user), &mockActivityRecorder{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@campus.edu", Password: "correct horse"}, models.RequestMeta{})
	assertAppCode(t, err, appErrors.ErrInactiveAccount.Code)
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	repo := newSessionRepo(studentAccount(t, "pw-12345"))
	svc := newAuthService(repo, &mockActivityRecorder{})
	session, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@campus.edu", Password: "pw-12345"}, models.RequestMeta{})
	require.NoError(t, err)

	pair, err := svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: session.RefreshToken}, models.RequestMeta{})
	require.NoError(t, err)
	assert.NotEqual(t, session.RefreshToken, pair.RefreshToken)

	old := repo.tokens[hashRefreshToken(session.RefreshToken)]
	assert.True(t, old.Revoked)
	require.NotNil(t, old.ReplacedBy)
	assert.False(t, repo.tokens[hashRefreshToken(pair.RefreshToken)].Revoked)
}

func TestAuthRefreshReuseRevokesEverySession(t *testing.T) {
	repo := newSessionRepo(studentAccount(t, "pw-12345"))
	activity := &mockActivityRecorder{}
	svc := newAuthService(repo, activity)
	session, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@campus.edu", Password: "pw-12345"}, models.RequestMeta{})
	require.NoError(t, err)
	pair, err := svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: session.RefreshToken}, models.RequestMeta{})
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: session.RefreshToken}, models.RequestMeta{})
	assertAppCode(t, err, appErrors.ErrUnauthorized.Code)
	assert.Equal(t, []string{"u1"}, repo.revokedAll)
	assert.True(t, repo.tokens[hashRefreshToken(pair.RefreshToken)].Revoked)
	assert.Contains(t, activity.actions(), models.ActivitySessionsRevoked)
}

func TestAuthRefreshLosingRotationRaceRevokes(t *testing.T) {
	repo := newSessionRepo(studentAccount(t, "pw-12345"))
	svc := newAuthService(repo, &mockActivityRecorder{})
	session, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@campus.edu", Password: "pw-12345"}, models.RequestMeta{})
	require.NoError(t, err)

	repo.rotateErr = repository.ErrTokenRotated
	_, err = svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: session.RefreshToken}, models.RequestMeta{})
	assertAppCode(t, err, appErrors.ErrUnauthorized.Code)
	assert.Equal(t, []string{"u1"}, repo.revokedAll)
}

func TestAuthRefreshExpired(t *testing.T) {
	repo := newSessionRepo(studentAccount(t, "pw-12345"))
	svc := newAuthService(repo, &mockActivityRecorder{})
	session, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@campus.edu", Password: "pw-12345"}, models.RequestMeta{})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	_, err = svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: session.RefreshToken}, models.RequestMeta{})
	assertAppCode(t, err, appErrors.ErrUnauthorized.Code)
	assert.Empty(t, repo.revokedAll)
}

func TestAuthLogoutChecksOwnership(t *testing.T) {
	repo := newSessionRepo(studentAccount(t, "pw-12345"))
	svc := newAuthService(repo, &mockActivityRecorder{})
	session, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@campus.edu", Password: "pw-12345"}, models.RequestMeta{})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), "someone-else", models.LogoutRequest{RefreshToken: session.RefreshToken}, models.RequestMeta{})
	assertAppCode(t, err, appErrors.ErrForbidden.Code)

	require.NoError(t, svc.Logout(context.Background(), "u1", models.LogoutRequest{RefreshToken: session.RefreshToken}, models.RequestMeta{}))
	assert.True(t, repo.tokens[hashRefreshToken(session.RefreshToken)].Revoked)
}

func TestAuthLogoutAllDevices(t *testing.T) {
	repo := newSessionRepo(studentAccount(t, "pw-12345"))
	activity := &mockActivityRecorder{}
	svc := newAuthService(repo, activity)
	for i := 0; i < 2; i++ {
		_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@campus.edu", Password: "pw-12345"}, models.RequestMeta{})
		require.NoError(t, err)
	}

	require.NoError(t, svc.Logout(context.Background(), "u1", models.LogoutRequest{AllDevices: true}, models.RequestMeta{}))
	for _, tok := range repo.tokens {
		assert.True(t, tok.Revoked)
	}
	last := activity.entries[len(activity.entries)-1]
	assert.JSONEq(t, `{"all_devices":true,"sessions":2}`, string(last.Metadata))
}

func TestAuthLogoutRequiresTokenOrAllDevices(t *testing.T) {
	svc := newAuthService(newSessionRepo(), &mockActivityRecorder{})
	err := svc.Logout(context.Background(), "u1", models.LogoutRequest{}, models.RequestMeta{})
	assertAppCode(t, err, appErrors.ErrValidation.Code)
}

func TestAuthChangePassword(t *testing.T) {
	repo := newSessionRepo(studentAccount(t, "old-password"))
	svc := newAuthService(repo, &mockActivityRecorder{})
	session, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@campus.edu", Password: "old-password"}, models.RequestMeta{})
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "nope", NewPassword: "new-password"}, models.RequestMeta{})
	assertAppCode(t, err, appErrors.ErrForbidden.Code)

	err = svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "old-password", NewPassword: "old-password"}, models.RequestMeta{})
	assertAppCode(t, err, appErrors.ErrValidation.Code)

	require.NoError(t, svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "old-password", NewPassword: "new-password"}, models.RequestMeta{}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users["u1"].PasswordHash), []byte("new-password")))
	assert.True(t, repo.tokens[hashRefreshToken(session.RefreshToken)].Revoked)
}

func TestAuthValidateTokenRejections(t *testing.T) {
	repo := newSessionRepo(studentAccount(t, "pw-12345"))
	svc := newAuthService(repo, &mockActivityRecorder{})

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		UserID: "u1", Role: models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "campus-lms-api", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err := foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assertAppCode(t, err, appErrors.ErrUnauthorized.Code)

	wrongIssuer := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		UserID: "u1", Role: models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "elsewhere", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err = wrongIssuer.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assertAppCode(t, err, appErrors.ErrUnauthorized.Code)

	session, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@campus.edu", Password: "pw-12345"}, models.RequestMeta{})
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	_, err = svc.ValidateToken(session.AccessToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token expired")
}

func TestAuthMeRejectsDeactivatedAccount(t *testing.T) {
	user := studentAccount(t, "pw-12345")
	repo := newSessionRepo(user)
	svc := newAuthService(repo, &mockActivityRecorder{})

	info, err := svc.Me(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "ana@campus.edu", info.Email)

	user.Active = false
	_, err = svc.Me(context.Background(), "u1")
	assertAppCode(t, err, appErrors.ErrInactiveAccount.Code)
}
