package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"google.golang.org/api/option"

	"studyforge-backend/internal/generator"
	"studyforge-backend/internal/models"
	"studyforge-backend/internal/repository"
)

var errAINotConfigured = errors.New("Gemini API key not configured")

// CourseGenService turns raw notes into a persisted course. It tries the
// Gemini API first and falls back to the deterministic generator on any
// API, parse, or validation failure, so generation itself never fails the
// job.
type CourseGenService struct {
	client     *genai.Client
	model      *genai.GenerativeModel
	courseRepo *repository.CourseRepo
	aiLogRepo  *repository.AILogRepo
	redis      *redis.Client
	rateChan   chan struct{} // Token bucket
	fallback   *generator.Assembler
	rng        *rand.Rand
}

func NewCourseGenService(
	apiKey string,
	concurrentReqs int,
	courseRepo *repository.CourseRepo,
	aiLogRepo *repository.AILogRepo,
	redisClient *redis.Client,
) (*CourseGenService, error) {
	s := &CourseGenService{
		courseRepo: courseRepo,
		aiLogRepo:  aiLogRepo,
		redis:      redisClient,
		fallback:   generator.New(nil),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if apiKey == "" {
		log.Println("WARN: GEMINI_API_KEY not set, every course will use the fallback generator")
	} else {
		ctx := context.Background()
		client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}

		model := client.GenerativeModel("gemini-3-flash-preview")
		model.SetTemperature(0.3)
		model.SetTopP(0.95)

		s.client = client
		s.model = model
	}

	// Token bucket for rate limiting
	s.rateChan = make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		s.rateChan <- struct{}{}
	}

	return s, nil
}

func (s *CourseGenService) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// acquireRate blocks until a rate slot is available
func (s *CourseGenService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *CourseGenService) releaseRate() {
	s.rateChan <- struct{}{}
}

// PublishUpdate sends a WebSocket update via Redis pub/sub
func (s *CourseGenService) PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, _ := json.Marshal(msg)
	s.redis.Publish(ctx, fmt.Sprintf("user_updates:%s", userID.String()), string(data))
}

// GenerateCourse runs the full generation flow for one note and persists
// the resulting course. The returned course carries Source "ai" or
// "fallback" depending on which path produced it.
func (s *CourseGenService) GenerateCourse(ctx context.Context, job *models.Job, note *models.Note) (*models.Course, error) {
	s.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type:    "status_update",
		Payload: models.StatusUpdate{JobID: job.ID, Step: 1, StepName: "Analyzing Notes"},
	})

	course, err := s.generateWithAI(ctx, note)
	if err != nil {
		if !errors.Is(err, errAINotConfigured) {
			log.Printf("WARN: AI generation failed for note %s, using fallback: %v", note.ID, err)
		}
		s.logAttempt(ctx, note, "fallback_used", err.Error(), 0)

		s.PublishUpdate(ctx, job.UserID, models.WSMessage{
			Type:    "status_update",
			Payload: models.StatusUpdate{JobID: job.ID, Step: 2, StepName: "Building Course"},
		})
		course = s.fallback.Generate(note.UserID, note.Content)
	}

	if err := s.courseRepo.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to persist course: %w", err)
	}
	return course, nil
}

// aiCoursePayload is the JSON shape requested from the model. Flashcards
// and quizzes are parallel to lessons by index.
type aiCoursePayload struct {
	Title      string               `json:"title"`
	Summary    string               `json:"summary"`
	Topics     []string             `json:"topics"`
	Lessons    []aiLesson           `json:"lessons"`
	Flashcards [][]models.Flashcard `json:"flashcards"`
	Quizzes    []aiQuiz             `json:"quizzes"`
}

type aiLesson struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type aiQuiz struct {
	Topic     string           `json:"topic"`
	Questions []aiQuizQuestion `json:"questions"`
}

type aiQuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}

func (s *CourseGenService) generateWithAI(ctx context.Context, note *models.Note) (*models.Course, error) {
	if s.model == nil {
		return nil, errAINotConfigured
	}
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	start := time.Now()
	prompt := buildCoursePrompt(note.Content)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		s.logAttempt(ctx, note, "api_error", err.Error(), time.Since(start).Milliseconds())
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	rawText := extractText(resp)
	if rawText == "" {
		s.logAttempt(ctx, note, "api_error", "empty response", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("Gemini returned empty text")
	}

	cleaned := cleanJSONResponse(rawText)
	var payload aiCoursePayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		s.logAttempt(ctx, note, "parse_error", err.Error(), time.Since(start).Milliseconds())
		return nil, fmt.Errorf("failed to parse Gemini response: %w", err)
	}

	course, err := s.buildCourse(note, &payload)
	if err != nil {
		s.logAttempt(ctx, note, "parse_error", err.Error(), time.Since(start).Milliseconds())
		return nil, err
	}

	s.logAttempt(ctx, note, "success", "", time.Since(start).Milliseconds())
	if err := s.aiLogRepo.StoreRawResponse(ctx, note.ID, cleaned); err != nil {
		log.Printf("WARN: failed to store raw AI response for note %s: %v", note.ID, err)
	}

	return course, nil
}

// buildCourse validates the payload and assembles a course from it. Gaps
// in the parallel arrays (missing deck or quiz for a lesson) are filled
// from the deterministic templates rather than failing the whole response.
func (s *CourseGenService) buildCourse(note *models.Note, payload *aiCoursePayload) (*models.Course, error) {
	if payload.Title == "" || len(payload.Lessons) == 0 {
		return nil, fmt.Errorf("AI response missing title or lessons")
	}

	title := payload.Title
	if r := []rune(title); len(r) > 50 {
		title = string(r[:47]) + "..."
	}

	lessons := make([]models.Lesson, 0, len(payload.Lessons))
	for i, l := range payload.Lessons {
		lesson := models.Lesson{
			ID:      fmt.Sprintf("lesson-%d", i),
			Title:   l.Title,
			Content: l.Content,
		}
		if lesson.Title == "" {
			return nil, fmt.Errorf("AI response lesson %d has no title", i)
		}

		if i < len(payload.Flashcards) && len(payload.Flashcards[i]) > 0 {
			lesson.Flashcards = payload.Flashcards[i]
		} else {
			lesson.Flashcards = generator.BuildFlashcards(lesson.Title)
		}

		if i < len(payload.Quizzes) {
			questions := validateQuizQuestions(payload.Quizzes[i].Questions)
			lesson.Quiz = models.Quiz{Questions: questions}
		}
		if len(lesson.Quiz.Questions) == 0 {
			lesson.Quiz = generator.BuildQuiz(lesson.Title, s.rng)
		}

		lessons = append(lessons, lesson)
	}

	excerpt := note.Content
	if r := []rune(excerpt); len(r) > 1000 {
		excerpt = string(r[:1000]) + "..."
	}

	return &models.Course{
		ID:           uuid.New(),
		UserID:       note.UserID,
		Title:        title,
		Summary:      payload.Summary,
		Topics:       payload.Topics,
		Lessons:      lessons,
		Progress:     map[int]models.LessonProgress{},
		NotesExcerpt: excerpt,
		Source:       "ai",
	}, nil
}

// validateQuizQuestions drops questions without exactly 4 options and
// clamps out-of-range correct indices.
func validateQuizQuestions(raw []aiQuizQuestion) []models.QuizQuestion {
	var valid []models.QuizQuestion
	for _, q := range raw {
		if q.Question == "" || len(q.Options) != 4 {
			continue
		}
		idx := q.CorrectAnswer
		if idx < 0 || idx >= len(q.Options) {
			idx = 0
		}
		valid = append(valid, models.QuizQuestion{
			Question:     q.Question,
			Options:      q.Options,
			CorrectIndex: idx,
		})
	}
	return valid
}

func (s *CourseGenService) logAttempt(ctx context.Context, note *models.Note, status, detail string, durationMs int64) {
	entry := &models.AIProcessingLog{
		NoteID:     note.ID,
		UserID:     note.UserID,
		Provider:   "gemini",
		Status:     status,
		DurationMs: durationMs,
	}
	if detail != "" {
		entry.Detail = &detail
	}
	if err := s.aiLogRepo.Log(ctx, entry); err != nil {
		log.Printf("WARN: failed to write AI processing log for note %s: %v", note.ID, err)
	}
}

func buildCoursePrompt(notes string) string {
	var b strings.Builder

	b.WriteString("You are an expert educational content creator and tutor. Analyze the following study notes and create a comprehensive learning experience by extracting:\n\n")
	b.WriteString("1. A clear, descriptive course title based on the content\n")
	b.WriteString("2. The main topics covered (5-7 topics)\n")
	b.WriteString("3. A detailed summary of the overall content (200-300 words)\n")
	b.WriteString("4. For each topic:\n")
	b.WriteString("   - A lesson with detailed explanations, examples, and key points\n")
	b.WriteString("   - 5 important flashcards (term and definition) that capture key concepts\n")
	b.WriteString("   - 5 challenging multiple-choice quiz questions with 4 options each\n\n")
	b.WriteString(`Format your response as a structured JSON object with the following schema:
{
  "title": "Generated course title",
  "summary": "Comprehensive summary of the content",
  "topics": ["Topic 1", "Topic 2"],
  "lessons": [
    {"title": "Topic 1", "content": "Detailed lesson content with HTML formatting for better readability"}
  ],
  "flashcards": [
    [{"term": "Term 1", "definition": "Definition 1"}]
  ],
  "quizzes": [
    {"topic": "Topic 1", "questions": [{"question": "Question text", "options": ["Option A", "Option B", "Option C", "Option D"], "correctAnswer": 0}]}
  ]
}

Use HTML formatting in the lesson content for better readability (headings, paragraphs, lists). Return ONLY the JSON object.

Study notes:
`)
	b.WriteString(notes)

	return b.String()
}

// cleanJSONResponse strips Markdown code fences the model tends to wrap
// JSON in.
func cleanJSONResponse(response string) string {
	if strings.Contains(response, "```json") {
		parts := strings.SplitN(response, "```json", 2)
		return strings.TrimSpace(strings.SplitN(parts[1], "```", 2)[0])
	}
	if strings.Contains(response, "```") {
		parts := strings.SplitN(response, "```", 3)
		if len(parts) >= 2 {
			return strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(response)
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
