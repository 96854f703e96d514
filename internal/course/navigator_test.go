package course

import (
	"context"
	"errors"
	"testing"
)

func newTestNavigator(t *testing.T, lessons int) (*Navigator, *fakeStore) {
	t.Helper()
	c := testCourse(lessons)
	store := &fakeStore{course: c, courses: nil}
	nav := NewNavigator(store, c.UserID)
	if err := nav.SelectCourse(context.Background(), c.ID); err != nil {
		t.Fatalf("select course: %v", err)
	}
	return nav, store
}

func TestSelectCourseLandsOnFirstLesson(t *testing.T) {
	nav, store := newTestNavigator(t, 3)

	if nav.State() != StateLessonView {
		t.Fatalf("state = %v, want lesson view", nav.State())
	}
	if nav.LessonIndex() != 0 {
		t.Errorf("lesson index = %d, want 0", nav.LessonIndex())
	}
	// Opening the lesson records a viewed-only entry.
	if len(store.writes) != 1 {
		t.Fatalf("expected one progress write, got %d", len(store.writes))
	}
	w := store.writes[0]
	if !w.progress.Viewed || w.progress.Completed || w.delta != 0 {
		t.Errorf("unexpected viewed write %+v", w)
	}
}

func TestSelectCourseMissing(t *testing.T) {
	c := testCourse(1)
	store := &fakeStore{course: c}
	nav := NewNavigator(store, c.UserID)

	if err := nav.SelectCourse(context.Background(), c.UserID); err == nil {
		t.Fatal("expected error for unknown course id")
	}
	if nav.State() == StateLessonView {
		t.Error("navigation should abort on missing course")
	}
}

func TestLessonBoundaries(t *testing.T) {
	nav, _ := newTestNavigator(t, 2)

	if err := nav.PrevLesson(context.Background()); !errors.Is(err, ErrAtBoundary) {
		t.Errorf("prev at first lesson: err = %v, want boundary", err)
	}
	if err := nav.NextLesson(context.Background()); err != nil {
		t.Fatalf("next: %v", err)
	}
	if nav.LessonIndex() != 1 {
		t.Errorf("lesson index = %d, want 1", nav.LessonIndex())
	}
	if err := nav.NextLesson(context.Background()); !errors.Is(err, ErrAtBoundary) {
		t.Errorf("next at last lesson: err = %v, want boundary", err)
	}
}

func TestQuizIncompleteSubmissionRejected(t *testing.T) {
	nav, store := newTestNavigator(t, 1)

	if err := nav.StartQuiz(); err != nil {
		t.Fatal(err)
	}
	nav.SelectAnswer(0, 0)
	nav.SelectAnswer(1, 1)

	_, err := nav.SubmitQuiz(context.Background())
	var incomplete *IncompleteQuizError
	if !errors.As(err, &incomplete) {
		t.Fatalf("err = %v, want IncompleteQuizError", err)
	}
	if len(incomplete.Unanswered) != 3 {
		t.Errorf("unanswered = %v, want 3 entries", incomplete.Unanswered)
	}
	if nav.State() != StateQuizActive {
		t.Error("rejected submit must leave the quiz active")
	}
	// Only the initial viewed write; nothing persisted on rejection.
	if len(store.writes) != 1 {
		t.Errorf("expected no extra writes, got %d", len(store.writes))
	}
}

func TestQuizPassRecordsCompletion(t *testing.T) {
	nav, store := newTestNavigator(t, 1)
	quiz := nav.Course().Lessons[0].Quiz

	if err := nav.StartQuiz(); err != nil {
		t.Fatal(err)
	}
	for i, q := range quiz.Questions {
		nav.SelectAnswer(i, q.CorrectIndex)
	}

	result, err := nav.SubmitQuiz(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Percentage != 100 || !result.Passed {
		t.Errorf("result = %+v, want full marks", result)
	}
	if nav.State() != StateQuizGraded {
		t.Errorf("state = %v, want graded", nav.State())
	}

	last := store.writes[len(store.writes)-1]
	if !last.progress.Completed || last.progress.Score == nil || *last.progress.Score != 100 {
		t.Errorf("completion write = %+v", last.progress)
	}
	if last.delta != 1 {
		t.Errorf("delta = %d, want 1", last.delta)
	}
}

func TestQuizFailDoesNotRecordCompletion(t *testing.T) {
	nav, store := newTestNavigator(t, 1)
	quiz := nav.Course().Lessons[0].Quiz

	nav.StartQuiz()
	for i, q := range quiz.Questions {
		// Three correct out of five: 60%, under the pass threshold.
		answer := q.CorrectIndex
		if i >= 3 {
			answer = (q.CorrectIndex + 1) % 4
		}
		nav.SelectAnswer(i, answer)
	}

	result, err := nav.SubmitQuiz(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Passed {
		t.Errorf("60%% should not pass: %+v", result)
	}
	if len(store.writes) != 1 {
		t.Errorf("sub-threshold score must not persist, writes = %d", len(store.writes))
	}
	if nav.Course().Progress[0].Completed {
		t.Error("lesson marked completed on a failed quiz")
	}
}

func TestResetQuizClearsSelections(t *testing.T) {
	nav, _ := newTestNavigator(t, 1)
	quiz := nav.Course().Lessons[0].Quiz

	nav.StartQuiz()
	for i, q := range quiz.Questions {
		nav.SelectAnswer(i, q.CorrectIndex)
	}
	if _, err := nav.SubmitQuiz(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := nav.ResetQuiz(); err != nil {
		t.Fatal(err)
	}
	if nav.State() != StateQuizActive {
		t.Errorf("state = %v, want active", nav.State())
	}
	if _, err := nav.SubmitQuiz(context.Background()); err == nil {
		t.Error("selections should be cleared after reset")
	}
}

func TestFlashcardWrapping(t *testing.T) {
	nav, _ := newTestNavigator(t, 1)
	deckLen := len(nav.Course().Lessons[0].Flashcards)

	if err := nav.PrevCard(); err != nil {
		t.Fatal(err)
	}
	if nav.CardIndex() != deckLen-1 {
		t.Errorf("prev from 0 = %d, want %d", nav.CardIndex(), deckLen-1)
	}
	if err := nav.NextCard(); err != nil {
		t.Fatal(err)
	}
	if nav.CardIndex() != 0 {
		t.Errorf("next from last = %d, want 0", nav.CardIndex())
	}
}

func TestFlashcardFlip(t *testing.T) {
	nav, _ := newTestNavigator(t, 1)

	nav.FlipCard()
	if !nav.CardFlipped() {
		t.Error("expected card flipped")
	}
	if nav.CardIndex() != 0 {
		t.Error("flip must not move the index")
	}
	nav.FlipCard()
	if nav.CardFlipped() {
		t.Error("expected card back on the front")
	}

	nav.FlipCard()
	nav.NextCard()
	if nav.CardFlipped() {
		t.Error("navigation should show the new card front side up")
	}
}

func TestBackReturnsToDashboardAndRefreshes(t *testing.T) {
	nav, store := newTestNavigator(t, 2)

	if err := nav.Back(context.Background()); err != nil {
		t.Fatal(err)
	}
	if nav.State() != StateDashboard {
		t.Errorf("state = %v, want dashboard", nav.State())
	}
	if nav.Course() != nil {
		t.Error("active course should be cleared")
	}
	if store.listCalls != 1 {
		t.Errorf("expected one course list refresh, got %d", store.listCalls)
	}
}

func TestBackSurfacesRefreshFailure(t *testing.T) {
	nav, store := newTestNavigator(t, 1)
	store.failList = true

	err := nav.Back(context.Background())
	if err == nil {
		t.Fatal("expected refresh error")
	}
	if nav.State() != StateDashboard {
		t.Error("transition should complete even when the refresh fails")
	}
}
