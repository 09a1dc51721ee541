package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-lms-api/internal/models"
)

const materialColumns = `id, course_id, title, description, file_url, file_key, file_name, mime_type, size_bytes, uploaded_by, created_at`

// MaterialRepository persists study material metadata.
type MaterialRepository struct {
	db *sqlx.DB
}

// NewMaterialRepository constructs the repository.
func NewMaterialRepository(db *sqlx.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

// ListByCourse returns a course's materials newest first.
func (r *MaterialRepository) ListByCourse(ctx context.Context, courseID string) ([]models.StudyMaterial, error) {
	query := `SELECT ` + materialColumns + ` FROM study_materials WHERE course_id = $1 ORDER BY created_at DESC`
	var items []models.StudyMaterial
	if err := r.db.SelectContext(ctx, &items, query, courseID); err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return items, nil
}

// FindByID fetches a material.
func (r *MaterialRepository) FindByID(ctx context.Context, id string) (*models.StudyMaterial, error) {
	query := `SELECT ` + materialColumns + ` FROM study_materials WHERE id = $1`
	var item models.StudyMaterial
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find material: %w", err)
	}
	return &item, nil
}

// Create inserts a material row.
func (r *MaterialRepository) Create(ctx context.Context, item *models.StudyMaterial) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO study_materials (id, course_id, title, description, file_url, file_key, file_name, mime_type, size_bytes, uploaded_by, created_at)
VALUES (:id, :course_id, :title, :description, :file_url, :file_key, :file_name, :mime_type, :size_bytes, :uploaded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create material: %w", err)
	}
	return nil
}

// Delete removes a material row.
func (r *MaterialRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM study_materials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
