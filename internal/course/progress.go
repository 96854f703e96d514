package course

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"studyforge-backend/internal/models"
)

// PassThreshold is the minimum quiz percentage that marks a lesson
// completed.
const PassThreshold = 70.0

// CourseStore is the persistence boundary for course reads and progress
// writes.
type CourseStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Course, error)
	UpdateLessonProgress(ctx context.Context, courseID uuid.UUID, lessonIndex int, progress models.LessonProgress, completedDelta int) error
}

// Tracker records per-lesson progress for one course. Writes are
// optimistic: the in-memory mirror updates first, and a failed store write
// marks the entry unsynced instead of rolling back.
type Tracker struct {
	store  CourseStore
	course *models.Course
}

func NewTracker(store CourseStore, c *models.Course) *Tracker {
	if c.Progress == nil {
		c.Progress = map[int]models.LessonProgress{}
	}
	return &Tracker{store: store, course: c}
}

// Record writes a LessonProgress entry for the given lesson. A viewed-only
// record (completed=false) never clears an existing completed flag or
// score. The denormalized completed-lesson counter moves only on a
// false-to-true completion transition, which also makes repeated identical
// calls idempotent.
func (t *Tracker) Record(ctx context.Context, lessonIndex int, completed bool, score *float64) error {
	if lessonIndex < 0 || lessonIndex >= len(t.course.Lessons) {
		return fmt.Errorf("lesson index %d out of range", lessonIndex)
	}

	existing := t.course.Progress[lessonIndex]
	now := time.Now()

	entry := models.LessonProgress{
		Viewed:       true,
		Completed:    existing.Completed || completed,
		Score:        existing.Score,
		LastViewedAt: &now,
	}
	if completed && score != nil {
		entry.Score = score
	}

	delta := 0
	if entry.Completed && !existing.Completed {
		delta = 1
	}

	t.course.Progress[lessonIndex] = entry
	t.course.CompletedLessons += delta

	if err := t.store.UpdateLessonProgress(ctx, t.course.ID, lessonIndex, entry, delta); err != nil {
		entry.Unsynced = true
		t.course.Progress[lessonIndex] = entry
		return fmt.Errorf("failed to persist lesson progress: %w", err)
	}

	return nil
}

// CompletionPercent recomputes aggregate course completion from the
// progress map.
func (t *Tracker) CompletionPercent() float64 {
	if len(t.course.Lessons) == 0 {
		return 0
	}
	completed := 0
	for _, p := range t.course.Progress {
		if p.Completed {
			completed++
		}
	}
	return float64(completed) / float64(len(t.course.Lessons)) * 100
}

// Grade scores a quiz submission: matched correct indices over total,
// pass at PassThreshold. Missing or out-of-range answers count as wrong.
func Grade(quiz models.Quiz, answers []int) models.QuizResult {
	total := len(quiz.Questions)
	correct := 0
	for i, q := range quiz.Questions {
		if i < len(answers) && answers[i] == q.CorrectIndex {
			correct++
		}
	}
	pct := 0.0
	if total > 0 {
		pct = float64(correct) / float64(total) * 100
	}
	return models.QuizResult{
		Correct:    correct,
		Total:      total,
		Percentage: pct,
		Passed:     pct >= PassThreshold,
	}
}
