package course

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"studyforge-backend/internal/models"
)

// State identifies the navigator's current view.
type State int

const (
	StateDashboard State = iota
	StateCourseView
	StateLessonView
	StateQuizActive
	StateQuizGraded
)

func (s State) String() string {
	switch s {
	case StateDashboard:
		return "dashboard"
	case StateCourseView:
		return "course"
	case StateLessonView:
		return "lesson"
	case StateQuizActive:
		return "quiz"
	case StateQuizGraded:
		return "quiz-graded"
	}
	return "unknown"
}

var (
	ErrNoCourse      = errors.New("no active course")
	ErrNoFlashcards  = errors.New("lesson has no flashcards")
	ErrAtBoundary    = errors.New("already at the first or last lesson")
	ErrNotInLesson   = errors.New("not viewing a lesson")
	ErrQuizNotActive = errors.New("no quiz in progress")
)

// IncompleteQuizError rejects a submit while any question is unanswered.
// The indices are transient UI state, not persisted anywhere.
type IncompleteQuizError struct {
	Unanswered []int
}

func (e *IncompleteQuizError) Error() string {
	return fmt.Sprintf("quiz incomplete: %d unanswered question(s)", len(e.Unanswered))
}

// Navigator owns all view state that the original client kept in module
// globals: the active course, lesson index, quiz selections, and the
// flashcard sub-state. Every mutation goes through a named transition;
// invalid transitions return an error and leave the state unchanged.
type Navigator struct {
	store  CourseStore
	userID uuid.UUID

	state       State
	courses     []models.Course
	course      *models.Course
	tracker     *Tracker
	lessonIndex int

	selections map[int]int
	lastResult *models.QuizResult

	cardIndex   int
	cardFlipped bool
}

func NewNavigator(store CourseStore, userID uuid.UUID) *Navigator {
	return &Navigator{
		store:  store,
		userID: userID,
		state:  StateDashboard,
	}
}

func (n *Navigator) State() State                    { return n.state }
func (n *Navigator) Course() *models.Course          { return n.course }
func (n *Navigator) LessonIndex() int                { return n.lessonIndex }
func (n *Navigator) Courses() []models.Course        { return n.courses }
func (n *Navigator) LastResult() *models.QuizResult  { return n.lastResult }
func (n *Navigator) CardIndex() int                  { return n.cardIndex }
func (n *Navigator) CardFlipped() bool               { return n.cardFlipped }

// RefreshCourses reloads the dashboard course list.
func (n *Navigator) RefreshCourses(ctx context.Context) error {
	courses, err := n.store.ListByUser(ctx, n.userID)
	if err != nil {
		return fmt.Errorf("failed to load course list: %w", err)
	}
	n.courses = courses
	return nil
}

// SelectCourse loads a course and enters it, landing on the first lesson
// when one exists.
func (n *Navigator) SelectCourse(ctx context.Context, id uuid.UUID) error {
	c, err := n.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load course: %w", err)
	}

	n.course = c
	n.tracker = NewTracker(n.store, c)
	n.state = StateCourseView

	if len(c.Lessons) > 0 {
		return n.OpenLesson(ctx, 0)
	}
	return nil
}

// OpenLesson switches to the lesson at index i and records a viewed-only
// progress entry. A failed progress write does not block the transition.
func (n *Navigator) OpenLesson(ctx context.Context, i int) error {
	if n.course == nil {
		return ErrNoCourse
	}
	if i < 0 || i >= len(n.course.Lessons) {
		return fmt.Errorf("lesson index %d out of range", i)
	}

	n.lessonIndex = i
	n.state = StateLessonView
	n.selections = nil
	n.lastResult = nil
	n.cardIndex = 0
	n.cardFlipped = false

	if err := n.tracker.Record(ctx, i, false, nil); err != nil {
		log.Printf("WARN: view progress for lesson %d not persisted: %v", i, err)
	}
	return nil
}

func (n *Navigator) NextLesson(ctx context.Context) error {
	if n.state != StateLessonView && n.state != StateQuizActive && n.state != StateQuizGraded {
		return ErrNotInLesson
	}
	if n.lessonIndex+1 >= len(n.course.Lessons) {
		return ErrAtBoundary
	}
	return n.OpenLesson(ctx, n.lessonIndex+1)
}

func (n *Navigator) PrevLesson(ctx context.Context) error {
	if n.state != StateLessonView && n.state != StateQuizActive && n.state != StateQuizGraded {
		return ErrNotInLesson
	}
	if n.lessonIndex == 0 {
		return ErrAtBoundary
	}
	return n.OpenLesson(ctx, n.lessonIndex-1)
}

// StartQuiz enters the active lesson's quiz with cleared selections.
func (n *Navigator) StartQuiz() error {
	if n.state != StateLessonView && n.state != StateQuizGraded {
		return ErrNotInLesson
	}
	if len(n.course.Lessons[n.lessonIndex].Quiz.Questions) == 0 {
		return errors.New("lesson has no quiz")
	}
	n.state = StateQuizActive
	n.selections = make(map[int]int)
	n.lastResult = nil
	return nil
}

// SelectAnswer records the chosen option for one question.
func (n *Navigator) SelectAnswer(question, option int) error {
	if n.state != StateQuizActive {
		return ErrQuizNotActive
	}
	quiz := n.course.Lessons[n.lessonIndex].Quiz
	if question < 0 || question >= len(quiz.Questions) {
		return fmt.Errorf("question index %d out of range", question)
	}
	if option < 0 || option >= len(quiz.Questions[question].Options) {
		return fmt.Errorf("option index %d out of range", option)
	}
	n.selections[question] = option
	return nil
}

// SubmitQuiz grades the active quiz. Submission is rejected with an
// IncompleteQuizError while any question is unanswered. A passing score
// records lesson completion; a failed progress write is logged and does
// not block the result.
func (n *Navigator) SubmitQuiz(ctx context.Context) (*models.QuizResult, error) {
	if n.state != StateQuizActive {
		return nil, ErrQuizNotActive
	}

	quiz := n.course.Lessons[n.lessonIndex].Quiz
	var unanswered []int
	for i := range quiz.Questions {
		if _, ok := n.selections[i]; !ok {
			unanswered = append(unanswered, i)
		}
	}
	if len(unanswered) > 0 {
		return nil, &IncompleteQuizError{Unanswered: unanswered}
	}

	answers := make([]int, len(quiz.Questions))
	for i := range quiz.Questions {
		answers[i] = n.selections[i]
	}
	result := Grade(quiz, answers)

	n.state = StateQuizGraded
	n.lastResult = &result

	if result.Passed {
		score := result.Percentage
		if err := n.tracker.Record(ctx, n.lessonIndex, true, &score); err != nil {
			log.Printf("WARN: quiz completion for lesson %d not persisted: %v", n.lessonIndex, err)
		}
	}
	return &result, nil
}

// ResetQuiz returns a graded quiz to the active state with cleared
// selections.
func (n *Navigator) ResetQuiz() error {
	if n.state != StateQuizGraded {
		return errors.New("no graded quiz to reset")
	}
	n.state = StateQuizActive
	n.selections = make(map[int]int)
	n.lastResult = nil
	return nil
}

// CloseQuiz returns from the quiz to the lesson view.
func (n *Navigator) CloseQuiz() error {
	if n.state != StateQuizActive && n.state != StateQuizGraded {
		return ErrQuizNotActive
	}
	n.state = StateLessonView
	n.selections = nil
	n.lastResult = nil
	return nil
}

// NextCard advances the flashcard index, wrapping past the end of the
// deck. Navigation shows the new card front side up.
func (n *Navigator) NextCard() error {
	deck, err := n.deck()
	if err != nil {
		return err
	}
	n.cardIndex = (n.cardIndex + 1) % len(deck)
	n.cardFlipped = false
	return nil
}

// PrevCard steps back, wrapping from the first card to the last.
func (n *Navigator) PrevCard() error {
	deck, err := n.deck()
	if err != nil {
		return err
	}
	n.cardIndex = (n.cardIndex - 1 + len(deck)) % len(deck)
	n.cardFlipped = false
	return nil
}

// FlipCard toggles the current card between front and back without moving
// the index.
func (n *Navigator) FlipCard() error {
	if _, err := n.deck(); err != nil {
		return err
	}
	n.cardFlipped = !n.cardFlipped
	return nil
}

func (n *Navigator) deck() ([]models.Flashcard, error) {
	if n.state != StateLessonView {
		return nil, ErrNotInLesson
	}
	deck := n.course.Lessons[n.lessonIndex].Flashcards
	if len(deck) == 0 {
		return nil, ErrNoFlashcards
	}
	return deck, nil
}

// Back leaves the course and returns to the dashboard, refreshing the
// course list. The refresh failure is reported but the transition always
// completes.
func (n *Navigator) Back(ctx context.Context) error {
	n.state = StateDashboard
	n.course = nil
	n.tracker = nil
	n.lessonIndex = 0
	n.selections = nil
	n.lastResult = nil
	n.cardIndex = 0
	n.cardFlipped = false

	return n.RefreshCourses(ctx)
}
