package course

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"studyforge-backend/internal/models"
)

type progressWrite struct {
	courseID    uuid.UUID
	lessonIndex int
	progress    models.LessonProgress
	delta       int
}

type fakeStore struct {
	course     *models.Course
	courses    []models.Course
	writes     []progressWrite
	failWrites bool
	failList   bool
	listCalls  int
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	if f.course == nil || f.course.ID != id {
		return nil, errors.New("course not found")
	}
	return f.course, nil
}

func (f *fakeStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Course, error) {
	f.listCalls++
	if f.failList {
		return nil, errors.New("list unavailable")
	}
	return f.courses, nil
}

func (f *fakeStore) UpdateLessonProgress(ctx context.Context, courseID uuid.UUID, lessonIndex int, progress models.LessonProgress, delta int) error {
	if f.failWrites {
		return errors.New("store unavailable")
	}
	f.writes = append(f.writes, progressWrite{courseID, lessonIndex, progress, delta})
	return nil
}

func testCourse(lessonCount int) *models.Course {
	c := &models.Course{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Title:     "Operating Systems Overview",
		Progress:  map[int]models.LessonProgress{},
		CreatedAt: time.Now(),
	}
	for i := 0; i < lessonCount; i++ {
		lesson := models.Lesson{
			ID:    fmt.Sprintf("lesson-%d", i),
			Title: fmt.Sprintf("Topic %d", i+1),
		}
		for q := 0; q < 5; q++ {
			lesson.Quiz.Questions = append(lesson.Quiz.Questions, models.QuizQuestion{
				Question:     fmt.Sprintf("Question %d", q+1),
				Options:      []string{"a", "b", "c", "d"},
				CorrectIndex: q % 4,
			})
		}
		for card := 0; card < 5; card++ {
			lesson.Flashcards = append(lesson.Flashcards, models.Flashcard{
				Term:       fmt.Sprintf("term %d", card),
				Definition: fmt.Sprintf("definition %d", card),
			})
		}
		c.Lessons = append(c.Lessons, lesson)
	}
	return c
}

func TestGrade(t *testing.T) {
	quiz := testCourse(1).Lessons[0].Quiz

	tests := []struct {
		name       string
		answers    []int
		correct    int
		percentage float64
		passed     bool
	}{
		{"all correct", []int{0, 1, 2, 3, 0}, 5, 100, true},
		{"all wrong", []int{1, 2, 3, 0, 1}, 0, 0, false},
		{"four of five", []int{0, 1, 2, 3, 1}, 4, 80, true},
		{"three of five", []int{0, 1, 2, 0, 1}, 3, 60, false},
		{"short answer slice", []int{0, 1}, 2, 40, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Grade(quiz, tt.answers)
			if result.Correct != tt.correct {
				t.Errorf("correct = %d, want %d", result.Correct, tt.correct)
			}
			if result.Percentage != tt.percentage {
				t.Errorf("percentage = %v, want %v", result.Percentage, tt.percentage)
			}
			if result.Passed != tt.passed {
				t.Errorf("passed = %v, want %v", result.Passed, tt.passed)
			}
		})
	}
}

func TestTrackerRecordIdempotent(t *testing.T) {
	store := &fakeStore{}
	c := testCourse(3)
	tracker := NewTracker(store, c)
	score := 80.0

	for i := 0; i < 2; i++ {
		if err := tracker.Record(context.Background(), 1, true, &score); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	if len(c.Progress) != 1 {
		t.Fatalf("expected one progress entry, got %d", len(c.Progress))
	}
	entry := c.Progress[1]
	if !entry.Completed || entry.Score == nil || *entry.Score != 80 {
		t.Errorf("unexpected entry %+v", entry)
	}
	if c.CompletedLessons != 1 {
		t.Errorf("counter should move once, got %d", c.CompletedLessons)
	}
	if len(store.writes) != 2 {
		t.Fatalf("expected both writes to reach the store, got %d", len(store.writes))
	}
	if store.writes[0].delta != 1 || store.writes[1].delta != 0 {
		t.Errorf("expected deltas 1 then 0, got %d and %d", store.writes[0].delta, store.writes[1].delta)
	}
}

func TestTrackerViewDoesNotDowngrade(t *testing.T) {
	store := &fakeStore{}
	c := testCourse(3)
	tracker := NewTracker(store, c)
	score := 90.0

	if err := tracker.Record(context.Background(), 0, true, &score); err != nil {
		t.Fatal(err)
	}
	if err := tracker.Record(context.Background(), 0, false, nil); err != nil {
		t.Fatal(err)
	}

	entry := c.Progress[0]
	if !entry.Completed {
		t.Error("viewed-only record cleared the completed flag")
	}
	if entry.Score == nil || *entry.Score != 90 {
		t.Error("viewed-only record cleared the score")
	}
	if c.CompletedLessons != 1 {
		t.Errorf("counter = %d, want 1", c.CompletedLessons)
	}
}

func TestTrackerMarksUnsyncedOnWriteFailure(t *testing.T) {
	store := &fakeStore{failWrites: true}
	c := testCourse(3)
	tracker := NewTracker(store, c)
	score := 75.0

	err := tracker.Record(context.Background(), 2, true, &score)
	if err == nil {
		t.Fatal("expected an error from the failed write")
	}

	entry := c.Progress[2]
	if !entry.Unsynced {
		t.Error("expected the entry marked unsynced")
	}
	if !entry.Completed {
		t.Error("optimistic local state should survive the failure")
	}
	if c.CompletedLessons != 1 {
		t.Errorf("optimistic counter = %d, want 1", c.CompletedLessons)
	}
}

func TestTrackerRejectsOutOfRangeIndex(t *testing.T) {
	tracker := NewTracker(&fakeStore{}, testCourse(2))
	if err := tracker.Record(context.Background(), 5, true, nil); err == nil {
		t.Error("expected out-of-range error")
	}
	if err := tracker.Record(context.Background(), -1, false, nil); err == nil {
		t.Error("expected out-of-range error")
	}
}

func TestCompletionPercent(t *testing.T) {
	store := &fakeStore{}
	c := testCourse(4)
	tracker := NewTracker(store, c)

	if got := tracker.CompletionPercent(); got != 0 {
		t.Errorf("fresh course completion = %v, want 0", got)
	}
	tracker.Record(context.Background(), 0, true, nil)
	tracker.Record(context.Background(), 1, true, nil)
	tracker.Record(context.Background(), 2, false, nil)
	if got := tracker.CompletionPercent(); got != 50 {
		t.Errorf("completion = %v, want 50", got)
	}
}
