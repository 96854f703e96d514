package generator

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
)

const sampleNotes = "Machine Learning Basics\n\nSupervised Learning involves training a model on labeled data.\nUnsupervised Learning finds structure without labels."

func TestGenerateCourseShape(t *testing.T) {
	userID := uuid.New()
	for seed := int64(0); seed < 20; seed++ {
		course := New(rand.New(rand.NewSource(seed))).Generate(userID, sampleNotes)

		if n := len(course.Lessons); n < 5 || n > 9 {
			t.Fatalf("seed %d: lesson count %d out of [5,9]", seed, n)
		}
		for i, lesson := range course.Lessons {
			if lesson.ID != fmt.Sprintf("lesson-%d", i) {
				t.Errorf("seed %d: lesson %d has id %q", seed, i, lesson.ID)
			}
			if len(lesson.Quiz.Questions) != 5 {
				t.Errorf("seed %d: lesson %d quiz has %d questions", seed, i, len(lesson.Quiz.Questions))
			}
			for qi, q := range lesson.Quiz.Questions {
				if len(q.Options) != 4 {
					t.Errorf("seed %d: lesson %d question %d has %d options", seed, i, qi, len(q.Options))
				}
				if q.CorrectIndex < 0 || q.CorrectIndex > 3 {
					t.Errorf("seed %d: lesson %d question %d correct index %d", seed, i, qi, q.CorrectIndex)
				}
			}
			if len(lesson.Flashcards) != 5 {
				t.Errorf("seed %d: lesson %d has %d flashcards", seed, i, len(lesson.Flashcards))
			}
			if lesson.Completed {
				t.Errorf("seed %d: lesson %d generated as completed", seed, i)
			}
		}
	}
}

func TestGenerateCourseMetadata(t *testing.T) {
	userID := uuid.New()
	course := New(testRand()).Generate(userID, sampleNotes)

	if course.UserID != userID {
		t.Errorf("expected owner %s, got %s", userID, course.UserID)
	}
	if course.Title != "Machine Learning Basics" {
		t.Errorf("expected title from first line, got %q", course.Title)
	}
	if course.Source != "fallback" {
		t.Errorf("expected fallback source marker, got %q", course.Source)
	}
	if len(course.Progress) != 0 {
		t.Errorf("expected empty progress map, got %v", course.Progress)
	}
	if course.NotesExcerpt != sampleNotes {
		t.Errorf("short notes should be retained verbatim, got %q", course.NotesExcerpt)
	}

	foundML, foundSL := false, false
	for _, topic := range course.Topics {
		if topic == "Machine Learning Basics" {
			foundML = true
		}
		if topic == "Supervised Learning" {
			foundSL = true
		}
	}
	if !foundML || !foundSL {
		t.Errorf("expected genuine topics in course record, got %v", course.Topics)
	}
}

func TestGenerateCourseTruncatesExcerpt(t *testing.T) {
	long := "Distributed Systems Primer\n" + strings.Repeat("x", 2000)
	course := New(testRand()).Generate(uuid.New(), long)
	if len(course.NotesExcerpt) != 1003 {
		t.Errorf("expected 1000 chars plus ellipsis, got %d", len(course.NotesExcerpt))
	}
	if !strings.HasSuffix(course.NotesExcerpt, "...") {
		t.Error("expected ellipsis on truncated excerpt")
	}
}

func TestGenerateCourseTruncatesMultibyteExcerpt(t *testing.T) {
	long := "Распределённые системы: введение\n" + strings.Repeat("ж", 2000)
	course := New(testRand()).Generate(uuid.New(), long)
	if got := utf8.RuneCountInString(course.NotesExcerpt); got != 1003 {
		t.Errorf("expected 1000 chars plus ellipsis, got %d", got)
	}
	if !utf8.ValidString(course.NotesExcerpt) {
		t.Error("truncated excerpt is not valid UTF-8")
	}
}

func TestGenerateCourseSeededReproducibility(t *testing.T) {
	first := New(rand.New(rand.NewSource(99))).Generate(uuid.New(), sampleNotes)
	second := New(rand.New(rand.NewSource(99))).Generate(uuid.New(), sampleNotes)

	if len(first.Lessons) != len(second.Lessons) {
		t.Fatalf("same seed produced different lesson counts: %d vs %d", len(first.Lessons), len(second.Lessons))
	}
	for i := range first.Lessons {
		fq, sq := first.Lessons[i].Quiz.Questions, second.Lessons[i].Quiz.Questions
		for qi := range fq {
			if fq[qi].CorrectIndex != sq[qi].CorrectIndex {
				t.Errorf("lesson %d question %d: answers diverge under the same seed", i, qi)
			}
		}
	}
}
