package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/pkg/database"
)

// ErrTokenRotated is returned when a refresh token was revoked between
// lookup and rotation, which means it was presented twice.
var ErrTokenRotated = errors.New("refresh token already rotated")

var userColumnList = []string{"id", "email", "password_hash", "full_name", "role", "student_no", "department", "active", "last_login", "created_at", "updated_at"}

var userColumns = strings.Join(userColumnList, ", ")

const refreshTokenColumns = `id, user_id, token_hash, expires_at, created_at, revoked, revoked_at, replaced_by, ip_address, user_agent`

var userSortColumns = map[string]string{
	"email":      "email",
	"full_name":  "full_name",
	"created_at": "created_at",
	"last_login": "last_login",
}

// UserRepository stores accounts and their refresh sessions.
type UserRepository struct {
	db *sqlx.DB
	sb squirrel.StatementBuilderType
}

// NewUserRepository creates a UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db, sb: psql}
}

// FindByEmail looks a user up case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) filtered(builder squirrel.SelectBuilder, filter models.UserFilter) squirrel.SelectBuilder {
	if filter.Role != nil {
		builder = builder.Where(squirrel.Eq{"role": *filter.Role})
	}
	if filter.Active != nil {
		builder = builder.Where(squirrel.Eq{"active": *filter.Active})
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		builder = builder.Where(squirrel.Or{
			squirrel.Like{"LOWER(email)": like},
			squirrel.Like{"LOWER(full_name)": like},
			squirrel.Like{"LOWER(COALESCE(student_no, ''))": like},
		})
	}
	return builder
}

// List pages through users matching the filter and returns the total.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	_, size, offset := paginate(filter.Page, filter.PageSize)
	query, args, err := r.filtered(r.sb.Select(userColumnList...).From("users"), filter).
		OrderBy(orderClause(userSortColumns, filter.SortBy, filter.SortOrder, "created_at")).
		Limit(uint64(size)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list users: %w", err)
	}
	users := make([]models.User, 0)
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery, countArgs, err := r.filtered(r.sb.Select("COUNT(*)").From("users"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count users: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, total, nil
}

// Create inserts a user, filling id and timestamps.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	const query = `INSERT INTO users (id, email, password_hash, full_name, role, student_no, department, active, created_at, updated_at)
VALUES (:id, :email, :password_hash, :full_name, :role, :student_no, :department, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update writes the mutable profile columns.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET full_name = :full_name, role = :role, student_no = :student_no, department = :department,
active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// Deactivate marks a user inactive and ends every session they hold.
func (r *UserRepository) Deactivate(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE users SET active = FALSE, updated_at = $2 WHERE id = $1`, id, now)
		if err != nil {
			return fmt.Errorf("deactivate user: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return sql.ErrNoRows
		}
		if _, err := tx.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`, id, now); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
		return nil
	})
}

// UpdateLastLogin stamps a successful sign-in.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdatePassword replaces the hash and revokes all sessions atomically.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, passwordHash, updatedAt); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`, id, updatedAt); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
		return nil
	})
}

// CreateRefreshToken stores a new session.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, insertRefreshToken, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

const insertRefreshToken = `INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at, ip_address, user_agent)
VALUES (:id, :user_id, :token_hash, :expires_at, :created_at, :ip_address, :user_agent)`

// FindRefreshToken returns the session whose token hashes to hash.
func (r *UserRepository) FindRefreshToken(ctx context.Context, hash string) (*models.RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token_hash = $1`
	var token models.RefreshToken
	if err := r.db.GetContext(ctx, &token, query, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &token, nil
}

// RotateRefreshToken inserts next and revokes oldID in one transaction. The
// old row must still be live; otherwise ErrTokenRotated is returned and
// nothing is written.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, oldID string, next *models.RefreshToken) error {
	if next.ID == "" {
		next.ID = uuid.NewString()
	}
	if next.CreatedAt.IsZero() {
		next.CreatedAt = time.Now().UTC()
	}
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, insertRefreshToken, next); err != nil {
			return fmt.Errorf("create refresh token: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2, replaced_by = $3 WHERE id = $1 AND revoked = FALSE`,
			oldID, next.CreatedAt, next.ID)
		if err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrTokenRotated
		}
		return nil
	})
}

// RevokeRefreshToken ends a single session.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1 AND revoked = FALSE`, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserRefreshTokens ends every live session of a user and returns how
// many were revoked.
func (r *UserRepository) RevokeUserRefreshTokens(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`, userID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
