package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/internal/repository"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

type sessionRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, hash string) (*models.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID string, next *models.RefreshToken) error
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) (int64, error)
}

// AuthConfig tunes token issuing.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
	Audience           []string
	// ClockSkew is tolerated on exp/nbf when validating access tokens.
	ClockSkew time.Duration
}

// AuthService signs users in and validates their access tokens. Every
// request re-derives identity from the bearer token; nothing is cached
// between requests.
type AuthService struct {
	repo      sessionRepository
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(repo sessionRepository, activity activityRecorder, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 15 * time.Minute
	}
	if config.RefreshTokenExpiry <= 0 {
		config.RefreshTokenExpiry = 7 * 24 * time.Hour
	}
	return &AuthService{
		repo:      repo,
		activity:  activity,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Login checks credentials and opens a new session.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest, meta models.RequestMeta) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordFailedLogin(ctx, req.Email, meta)
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		s.recordFailedLogin(ctx, req.Email, meta)
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "")
	}

	pair, raw, err := s.issue(user, meta)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateRefreshToken(ctx, raw); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}
	if err := s.repo.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}
	s.record(ctx, user.ID, models.ActivityLogin, meta, nil)

	return &models.Session{TokenPair: *pair, User: models.NewUserInfo(user)}, nil
}

// Refresh exchanges a live refresh token for a new pair. Presenting a token
// that was already rotated revokes every session of its owner.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshRequest, meta models.RequestMeta) (*models.TokenPair, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload")
	}
	stored, err := s.lookup(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	if stored.ReplacedBy != nil {
		s.revokeAll(ctx, stored.UserID, meta, "refresh token reuse")
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token reuse detected; all sessions revoked")
	}
	if !stored.Usable(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is expired or revoked")
	}

	user, err := s.repo.FindByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "")
	}

	pair, next, err := s.issue(user, meta)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RotateRefreshToken(ctx, stored.ID, next); err != nil {
		if errors.Is(err, repository.ErrTokenRotated) {
			s.revokeAll(ctx, stored.UserID, meta, "concurrent refresh")
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token reuse detected; all sessions revoked")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rotate session")
	}
	return pair, nil
}

// Logout ends the session behind the refresh token, or every session of the
// caller when AllDevices is set.
func (s *AuthService) Logout(ctx context.Context, userID string, req models.LogoutRequest, meta models.RequestMeta) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid logout payload")
	}
	if req.AllDevices {
		n, err := s.repo.RevokeUserRefreshTokens(ctx, userID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke sessions")
		}
		s.record(ctx, userID, models.ActivityLogout, meta, map[string]interface{}{"all_devices": true, "sessions": n})
		return nil
	}

	stored, err := s.lookup(ctx, req.RefreshToken)
	if err != nil {
		return err
	}
	if stored.UserID != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "token does not belong to the caller")
	}
	if err := s.repo.RevokeRefreshToken(ctx, stored.ID, s.now()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke session")
	}
	s.record(ctx, userID, models.ActivityLogout, meta, nil)
	return nil
}

// ChangePassword verifies the old password, stores the new hash and ends
// every open session.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest, meta models.RequestMeta) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change password payload")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return notFoundOr(err, "user not found", "failed to load user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)) != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "old password does not match")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, userID, string(hash), s.now()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	s.record(ctx, userID, models.ActivityPasswordChange, meta, nil)
	return nil
}

// ValidateToken parses an HS256 access token and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(s.config.ClockSkew),
		jwt.WithTimeFunc(s.now),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.config.AccessTokenSecret), nil
	}, opts...)
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "token expired"
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, msg)
	}
	if !token.Valid || claims.UserID == "" || !claims.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token subject")
	}
	return claims, nil
}

// Me returns the caller's current profile. Deactivated accounts are
// rejected even while their access token is still valid.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "")
	}
	info := models.NewUserInfo(user)
	return &info, nil
}

// issue signs an access token and mints a refresh token. The returned row
// carries only the hash; the raw value exists only in the pair.
func (s *AuthService) issue(user *models.User, meta models.RequestMeta) (*models.TokenPair, *models.RefreshToken, error) {
	now := s.now()
	accessExpiry := now.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		UserID:   user.ID,
		Role:     user.Role,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			Audience:  s.config.Audience,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExpiry),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign access token")
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}
	refresh := base64.RawURLEncoding.EncodeToString(buf)
	row := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: hashRefreshToken(refresh),
		ExpiresAt: now.Add(s.config.RefreshTokenExpiry),
		CreatedAt: now,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	return &models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		ExpiresIn:        int64(s.config.AccessTokenExpiry.Seconds()),
		AccessExpiresAt:  accessExpiry,
		RefreshExpiresAt: row.ExpiresAt,
	}, row, nil
}

func (s *AuthService) lookup(ctx context.Context, raw string) (*models.RefreshToken, error) {
	stored, err := s.repo.FindRefreshToken(ctx, hashRefreshToken(raw))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not recognised")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return stored, nil
}

func (s *AuthService) revokeAll(ctx context.Context, userID string, meta models.RequestMeta, reason string) {
	n, err := s.repo.RevokeUserRefreshTokens(ctx, userID)
	if err != nil {
		s.logger.Error("failed to revoke sessions", zap.String("user_id", userID), zap.Error(err))
		return
	}
	s.logger.Warn("sessions revoked", zap.String("user_id", userID), zap.String("reason", reason), zap.Int64("sessions", n))
	s.record(ctx, userID, models.ActivitySessionsRevoked, meta, map[string]interface{}{"reason": reason, "sessions": n})
}

func (s *AuthService) recordFailedLogin(ctx context.Context, email string, meta models.RequestMeta) {
	payload, _ := json.Marshal(map[string]string{"email": email})
	recordActivity(ctx, s.activity, s.logger, &models.ActivityLog{
		Action:    models.ActivityLoginFailed,
		Resource:  "auth",
		Metadata:  payload,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	})
}

func (s *AuthService) record(ctx context.Context, userID, action string, meta models.RequestMeta, details map[string]interface{}) {
	entry := &models.ActivityLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "auth",
		ResourceID: &userID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if details != nil {
		if payload, err := json.Marshal(details); err == nil {
			entry.Metadata = payload
		}
	}
	recordActivity(ctx, s.activity, s.logger, entry)
}

func hashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
