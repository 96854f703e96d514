package models

import (
	"time"

	"github.com/google/uuid"
)

// Course is the unit the generation pipeline produces and the viewer
// consumes. Lessons and progress are stored as jsonb columns; progress is
// keyed by lesson index.
type Course struct {
	ID               uuid.UUID              `json:"id"`
	UserID           uuid.UUID              `json:"user_id"`
	Title            string                 `json:"title"`
	Summary          string                 `json:"summary"`
	Topics           []string               `json:"topics"`
	Lessons          []Lesson               `json:"lessons"`
	Progress         map[int]LessonProgress `json:"progress"`
	CompletedLessons int                    `json:"completed_lessons"`
	NotesExcerpt     string                 `json:"notes_excerpt"`
	Source           string                 `json:"source"` // "ai" | "fallback"
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	LastAccessedAt   *time.Time             `json:"last_accessed_at"`
}

// Lesson is immutable once generated except for the legacy Completed flag;
// the course-level progress map is the authoritative completion record.
type Lesson struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Content    string      `json:"content"` // HTML blob
	Completed  bool        `json:"completed"`
	Quiz       Quiz        `json:"quiz"`
	Flashcards []Flashcard `json:"flashcards"`
}

type Quiz struct {
	Questions []QuizQuestion `json:"questions"`
}

// QuizQuestion carries exactly 4 options. CorrectIndex is assigned at
// generation time and frozen into the stored record.
type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

type Flashcard struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// LessonProgress is created on first lesson view and updated on quiz pass
// or explicit completion toggle. Unsynced marks an in-memory entry whose
// store write failed.
type LessonProgress struct {
	Viewed       bool       `json:"viewed"`
	Completed    bool       `json:"completed"`
	Score        *float64   `json:"score,omitempty"`
	LastViewedAt *time.Time `json:"last_viewed_at,omitempty"`
	Unsynced     bool       `json:"unsynced,omitempty"`
}

type RecordProgressRequest struct {
	Completed bool     `json:"completed"`
	Score     *float64 `json:"score"`
}

type SubmitQuizRequest struct {
	Answers []int `json:"answers"`
}

type QuizResult struct {
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`
}

type SharedCourse struct {
	ID         uuid.UUID  `json:"id"`
	CourseID   uuid.UUID  `json:"course_id"`
	OwnerID    uuid.UUID  `json:"owner_id"`
	ShareToken string     `json:"share_token"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at"`
}
