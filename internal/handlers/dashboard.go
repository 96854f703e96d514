package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"studyforge-backend/internal/middleware"
	"studyforge-backend/internal/models"
	"studyforge-backend/internal/repository"
)

type DashboardHandler struct {
	courseRepo   *repository.CourseRepo
	activityRepo *repository.ActivityRepo
	userRepo     *repository.UserRepo
}

func NewDashboardHandler(courseRepo *repository.CourseRepo, activityRepo *repository.ActivityRepo, userRepo *repository.UserRepo) *DashboardHandler {
	return &DashboardHandler{
		courseRepo:   courseRepo,
		activityRepo: activityRepo,
		userRepo:     userRepo,
	}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	ctx := r.Context()

	total, completed, avgCompletion, err := h.courseRepo.Stats(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to compute stats", r))
		return
	}

	lessonsCompleted, quizzesPassed, err := h.activityRepo.EventCounts(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to compute stats", r))
		return
	}

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
		return
	}

	writeJSON(w, http.StatusOK, models.DashboardStats{
		TotalCourses:      total,
		CompletedCourses:  completed,
		AverageCompletion: avgCompletion,
		LoginStreak:       user.LoginStreak,
		LongestStreak:     user.LongestStreak,
		LessonsCompleted:  lessonsCompleted,
		QuizzesPassed:     quizzesPassed,
		StudyMinutes:      user.StudyMinutes,
	})
}

// Recent returns the courses the user touched last, most recent first.
func (h *DashboardHandler) Recent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	courses, err := h.courseRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch courses", r))
		return
	}

	sort.SliceStable(courses, func(i, j int) bool {
		return lastTouched(courses[i]).After(lastTouched(courses[j]))
	})

	if len(courses) > 6 {
		courses = courses[:6]
	}

	type recentCourse struct {
		ID               uuid.UUID  `json:"id"`
		Title            string     `json:"title"`
		LessonCount      int        `json:"lesson_count"`
		CompletedLessons int        `json:"completed_lessons"`
		Source           string     `json:"source"`
		LastAccessedAt   *time.Time `json:"last_accessed_at"`
		CreatedAt        time.Time  `json:"created_at"`
	}

	items := make([]recentCourse, 0, len(courses))
	for _, c := range courses {
		items = append(items, recentCourse{
			ID:               c.ID,
			Title:            c.Title,
			LessonCount:      len(c.Lessons),
			CompletedLessons: c.CompletedLessons,
			Source:           c.Source,
			LastAccessedAt:   c.LastAccessedAt,
			CreatedAt:        c.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"recent": items})
}

func lastTouched(c models.Course) time.Time {
	if c.LastAccessedAt != nil {
		return *c.LastAccessedAt
	}
	return c.CreatedAt
}

// Activity returns the recent event feed plus the set of active study days
// over the last 30, for the dashboard heatmap.
func (h *DashboardHandler) Activity(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	ctx := r.Context()

	events, err := h.activityRepo.ListByUser(ctx, userID, 20)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch activity", r))
		return
	}

	since := time.Now().AddDate(0, 0, -30)
	days, err := h.activityRepo.ActiveDays(ctx, userID, since)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch activity", r))
		return
	}

	activeDays := make([]string, 0, len(days))
	for _, d := range days {
		activeDays = append(activeDays, d.Format("2006-01-02"))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events":      events,
		"active_days": activeDays,
	})
}

// User & Settings handler

type UserHandler struct {
	userRepo *repository.UserRepo
}

func NewUserHandler(userRepo *repository.UserRepo) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
		return
	}

	if user.PasswordHash == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "This account signs in with Google", r))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "Current password is incorrect", r))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), 12)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to hash password", r))
		return
	}

	h.userRepo.UpdatePassword(r.Context(), userID, string(hash))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

func (h *UserHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	settings, err := h.userRepo.GetSettings(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Settings not found", r))
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *UserHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var s models.UserSettings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	s.UserID = userID

	if err := h.userRepo.UpdateSettings(r.Context(), &s); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update settings", r))
		return
	}

	writeJSON(w, http.StatusOK, s)
}

// AddStudyTime accumulates minutes reported by the client timer.
func (h *UserHandler) AddStudyTime(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		Minutes int `json:"minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.Minutes < 1 || req.Minutes > 240 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Minutes must be between 1 and 240", r))
		return
	}

	if err := h.userRepo.AddStudyMinutes(r.Context(), userID, req.Minutes); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to record study time", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"added_minutes": req.Minutes})
}

// Job handler

type JobHandler struct {
	jobRepo *repository.JobRepo
}

func NewJobHandler(jobRepo *repository.JobRepo) *JobHandler {
	return &JobHandler{jobRepo: jobRepo}
}

func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid job ID", r))
		return
	}

	job, err := h.jobRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Job not found", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	if job.UserID != userID {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return
	}

	writeJSON(w, http.StatusOK, job)
}
