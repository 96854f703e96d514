package models

import (
	"time"

	"github.com/google/uuid"
)

type Note struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	Title        string     `json:"title"`
	SourceType   string     `json:"source_type"` // "text" | "file"
	FileName     *string    `json:"file_name"`
	Content      string     `json:"content"`
	Status       string     `json:"status"` // "pending" | "processing" | "completed" | "failed"
	ErrorMessage *string    `json:"error_message"`
	CourseID     *uuid.UUID `json:"course_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type CreateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// AIProcessingLog records one attempt against the external AI API,
// including the fallback decision when the attempt failed.
type AIProcessingLog struct {
	ID         uuid.UUID `json:"id"`
	NoteID     uuid.UUID `json:"note_id"`
	UserID     uuid.UUID `json:"user_id"`
	Provider   string    `json:"provider"`
	Status     string    `json:"status"` // "success" | "api_error" | "parse_error" | "fallback_used"
	Detail     *string   `json:"detail"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
