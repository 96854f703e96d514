package models

import (
	"time"

	"github.com/google/uuid"
)

// StudyActivity is an append-only event: one row per lesson view,
// completion, or quiz pass. The dashboard derives streaks and the activity
// feed from it.
type StudyActivity struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	CourseID    uuid.UUID `json:"course_id"`
	LessonIndex int       `json:"lesson_index"`
	EventType   string    `json:"event_type"` // "lesson_viewed" | "lesson_completed" | "quiz_passed"
	Score       *float64  `json:"score"`
	CreatedAt   time.Time `json:"created_at"`
}

type DashboardStats struct {
	TotalCourses      int     `json:"total_courses"`
	CompletedCourses  int     `json:"completed_courses"`
	AverageCompletion float64 `json:"average_completion"`
	LoginStreak       int     `json:"login_streak"`
	LongestStreak     int     `json:"longest_streak"`
	StudyMinutes      int     `json:"study_minutes"`
	LessonsCompleted  int     `json:"lessons_completed"`
	QuizzesPassed     int     `json:"quizzes_passed"`
}
