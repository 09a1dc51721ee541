package models

import "time"

// StudyMaterial is an uploaded course resource.
type StudyMaterial struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	FileURL     string    `db:"file_url" json:"file_url"`
	FileKey     string    `db:"file_key" json:"-"`
	FileName    string    `db:"file_name" json:"file_name"`
	MimeType    string    `db:"mime_type" json:"mime_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	UploadedBy  string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// UploadedFile describes a blob persisted under the upload root.
type UploadedFile struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}
