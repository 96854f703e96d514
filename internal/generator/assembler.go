package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"studyforge-backend/internal/models"
)

const excerptLimit = 1000

// Assembler builds complete fallback courses from raw notes. All randomness
// (title fallback, lesson count, quiz correct indices) comes from the
// injected source and is frozen into the returned record, so a seeded
// Assembler is fully reproducible.
type Assembler struct {
	rng *rand.Rand
}

func New(rng *rand.Rand) *Assembler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Assembler{rng: rng}
}

// Generate is pure construction: nothing is persisted and no external call
// is made. Lesson count is uniform in [5,9]; topics are zipped into lessons
// in extraction order, with a random generic title if topics run out.
func (a *Assembler) Generate(userID uuid.UUID, notes string) *models.Course {
	title := DeriveTitle(notes, a.rng)
	topics := ExtractTopics(notes)
	summary := DeriveSummary(topics)

	lessonCount := 5 + a.rng.Intn(5)
	lessons := make([]models.Lesson, 0, lessonCount)
	for i := 0; i < lessonCount; i++ {
		lessonTitle := ""
		if i < len(topics) {
			lessonTitle = topics[i]
		} else {
			lessonTitle = fmt.Sprintf("Lesson %d: %s", i+1, genericLessonTitles[a.rng.Intn(len(genericLessonTitles))])
		}

		lessons = append(lessons, models.Lesson{
			ID:         fmt.Sprintf("lesson-%d", i),
			Title:      lessonTitle,
			Content:    LessonContent(lessonTitle),
			Completed:  false,
			Quiz:       BuildQuiz(lessonTitle, a.rng),
			Flashcards: BuildFlashcards(lessonTitle),
		})
	}

	excerpt := notes
	if r := []rune(excerpt); len(r) > excerptLimit {
		excerpt = string(r[:excerptLimit]) + "..."
	}

	return &models.Course{
		ID:           uuid.New(),
		UserID:       userID,
		Title:        title,
		Summary:      summary,
		Topics:       topics,
		Lessons:      lessons,
		Progress:     map[int]models.LessonProgress{},
		NotesExcerpt: excerpt,
		Source:       "fallback",
	}
}
