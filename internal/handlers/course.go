package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"studyforge-backend/internal/course"
	"studyforge-backend/internal/middleware"
	"studyforge-backend/internal/models"
	"studyforge-backend/internal/repository"
)

type CourseHandler struct {
	courseRepo   courseRepository
	shareRepo    shareRepository
	activityRepo activityAppender
}

type courseRepository interface {
	course.CourseStore
	Delete(ctx context.Context, id, userID uuid.UUID) (bool, error)
}

type shareRepository interface {
	Create(ctx context.Context, s *models.SharedCourse) error
	GetActiveByCourse(ctx context.Context, courseID uuid.UUID) (*models.SharedCourse, error)
	GetByToken(ctx context.Context, token string) (*models.SharedCourse, error)
	Revoke(ctx context.Context, courseID, ownerID uuid.UUID) (bool, error)
}

type activityAppender interface {
	Append(ctx context.Context, a *models.StudyActivity) error
}

func NewCourseHandler(courseRepo *repository.CourseRepo, shareRepo *repository.ShareRepo, activityRepo *repository.ActivityRepo) *CourseHandler {
	return &CourseHandler{
		courseRepo:   courseRepo,
		shareRepo:    shareRepo,
		activityRepo: activityRepo,
	}
}

func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	courses, err := h.courseRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch courses", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"courses": courses})
}

func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedCourse(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid course ID", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	deleted, err := h.courseRepo.Delete(r.Context(), id, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete course", r))
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Course not found", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Course deleted"})
}

// RecordProgress writes one lesson progress entry. A viewed-only call never
// downgrades an existing completed entry.
func (h *CourseHandler) RecordProgress(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedCourse(w, r)
	if !ok {
		return
	}

	lessonIndex, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || lessonIndex < 0 || lessonIndex >= len(c.Lessons) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid lesson index", r))
		return
	}

	var req models.RecordProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	tracker := course.NewTracker(h.courseRepo, c)
	if err := tracker.Record(r.Context(), lessonIndex, req.Completed, req.Score); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to record progress", r))
		return
	}

	eventType := "lesson_viewed"
	if req.Completed {
		eventType = "lesson_completed"
	}
	h.appendActivity(r, c, lessonIndex, eventType, req.Score)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"progress":           c.Progress[lessonIndex],
		"completed_lessons":  c.CompletedLessons,
		"completion_percent": tracker.CompletionPercent(),
	})
}

// SubmitQuiz grades an answer sheet against the lesson's stored quiz. A
// passing score records lesson completion with the percentage as the score.
func (h *CourseHandler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedCourse(w, r)
	if !ok {
		return
	}

	lessonIndex, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || lessonIndex < 0 || lessonIndex >= len(c.Lessons) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid lesson index", r))
		return
	}

	var req models.SubmitQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	quiz := c.Lessons[lessonIndex].Quiz
	if len(req.Answers) > len(quiz.Questions) {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Answer count does not match question count",
			map[string]string{"answers": "expected " + strconv.Itoa(len(quiz.Questions)) + " answers, got " + strconv.Itoa(len(req.Answers))}, r))
		return
	}
	if len(req.Answers) < len(quiz.Questions) {
		missing := []int{}
		for i := len(req.Answers); i < len(quiz.Questions); i++ {
			missing = append(missing, i)
		}
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "All questions must be answered",
			map[string]string{"answers": "unanswered question indices: " + intsToString(missing)}, r))
		return
	}

	result := course.Grade(quiz, req.Answers)

	if result.Passed {
		tracker := course.NewTracker(h.courseRepo, c)
		score := result.Percentage
		if err := tracker.Record(r.Context(), lessonIndex, true, &score); err != nil {
			log.Printf("WARN: failed to persist quiz pass for course %s lesson %d: %v", c.ID, lessonIndex, err)
		}
		h.appendActivity(r, c, lessonIndex, "quiz_passed", &score)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"result":   result,
		"progress": c.Progress[lessonIndex],
	})
}

func (h *CourseHandler) CreateShare(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedCourse(w, r)
	if !ok {
		return
	}

	// Reuse an existing unrevoked token
	existing, err := h.shareRepo.GetActiveByCourse(r.Context(), c.ID)
	if err == nil {
		writeJSON(w, http.StatusOK, existing)
		return
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create share link", r))
		return
	}

	share := &models.SharedCourse{
		CourseID:   c.ID,
		OwnerID:    c.UserID,
		ShareToken: generateShareToken(),
	}

	if err := h.shareRepo.Create(r.Context(), share); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create share link", r))
		return
	}

	writeJSON(w, http.StatusCreated, share)
}

func (h *CourseHandler) RevokeShare(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid course ID", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	revoked, err := h.shareRepo.Revoke(r.Context(), id, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to revoke share link", r))
		return
	}
	if !revoked {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No active share link for this course", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Share link revoked"})
}

// GetShared serves a shared course to anyone holding the token. The owner's
// progress and source notes stay private.
func (h *CourseHandler) GetShared(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	share, err := h.shareRepo.GetByToken(r.Context(), token)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Shared course not found", r))
		return
	}

	c, err := h.courseRepo.GetByID(r.Context(), share.CourseID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Shared course not found", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"title":   c.Title,
		"summary": c.Summary,
		"topics":  c.Topics,
		"lessons": c.Lessons,
		"source":  c.Source,
	})
}

// ownedCourse loads the course from the URL param and enforces ownership.
func (h *CourseHandler) ownedCourse(w http.ResponseWriter, r *http.Request) (*models.Course, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid course ID", r))
		return nil, false
	}

	c, err := h.courseRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Course not found", r))
		return nil, false
	}

	userID := middleware.GetUserID(r.Context())
	if c.UserID != userID {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}

	return c, true
}

func (h *CourseHandler) appendActivity(r *http.Request, c *models.Course, lessonIndex int, eventType string, score *float64) {
	event := &models.StudyActivity{
		UserID:      c.UserID,
		CourseID:    c.ID,
		LessonIndex: lessonIndex,
		EventType:   eventType,
		Score:       score,
	}
	if err := h.activityRepo.Append(r.Context(), event); err != nil {
		log.Printf("WARN: failed to append %s activity for course %s: %v", eventType, c.ID, err)
	}
}

func generateShareToken() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func intsToString(values []int) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ", "
		}
		out += strconv.Itoa(v)
	}
	return out
}
