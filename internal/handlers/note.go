package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"studyforge-backend/internal/middleware"
	"studyforge-backend/internal/models"
	"studyforge-backend/internal/repository"
	"studyforge-backend/internal/services"
)

type NoteHandler struct {
	noteRepo    *repository.NoteRepo
	jobRepo     *repository.JobRepo
	fileExtract *services.FileExtractService
	redis       *redis.Client
	uploadDir   string
	maxUploadMB int
}

func NewNoteHandler(
	noteRepo *repository.NoteRepo,
	jobRepo *repository.JobRepo,
	fileExtract *services.FileExtractService,
	redisClient *redis.Client,
	uploadDir string,
	maxUploadMB int,
) *NoteHandler {
	return &NoteHandler{
		noteRepo:    noteRepo,
		jobRepo:     jobRepo,
		fileExtract: fileExtract,
		redis:       redisClient,
		uploadDir:   uploadDir,
		maxUploadMB: maxUploadMB,
	}
}

func (h *NoteHandler) CreateText(w http.ResponseWriter, r *http.Request) {
	var req models.CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"content": "Notes content must not be empty"}, r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Untitled notes"
	}

	note := &models.Note{
		UserID:     userID,
		Title:      title,
		SourceType: "text",
		Content:    req.Content,
	}

	if err := h.noteRepo.Create(r.Context(), note); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create note", r))
		return
	}

	h.enqueueGeneration(w, r, note)
}

func (h *NoteHandler) Upload(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(h.maxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR",
			fmt.Sprintf("Upload exceeds the %dMB limit or is not valid multipart data", h.maxUploadMB), r))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Missing file field", r))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !services.IsSupported(ext) {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"file": fmt.Sprintf("Unsupported file type %s (allowed: .pdf .txt .md .docx)", ext)}, r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	// Persist to disk so extraction can use path-based readers
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store uploaded file", r))
		return
	}

	storedPath := filepath.Join(h.uploadDir, uuid.New().String()+ext)
	dst, err := os.Create(storedPath)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store uploaded file", r))
		return
	}

	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(storedPath)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store uploaded file", r))
		return
	}
	dst.Close()
	defer os.Remove(storedPath)

	content, err := h.fileExtract.ExtractTextFromPath(storedPath)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"file": fmt.Sprintf("Could not extract text: %v", err)}, r))
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(header.Filename, ext)
	}

	fileName := header.Filename
	note := &models.Note{
		UserID:     userID,
		Title:      title,
		SourceType: "file",
		FileName:   &fileName,
		Content:    content,
	}

	if err := h.noteRepo.Create(r.Context(), note); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create note", r))
		return
	}

	h.enqueueGeneration(w, r, note)
}

// enqueueGeneration creates the job row, pushes it onto the Redis queue and
// answers 202. A failed push marks both rows failed so the client is not
// left polling a job that will never run.
func (h *NoteHandler) enqueueGeneration(w http.ResponseWriter, r *http.Request, note *models.Note) {
	job := &models.Job{
		UserID:      note.UserID,
		Type:        "course-generation",
		ReferenceID: note.ID,
	}

	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create job", r))
		return
	}

	jobBytes, _ := json.Marshal(job)
	if h.redis == nil {
		h.jobRepo.UpdateStatus(r.Context(), job.ID, "failed")
		h.noteRepo.MarkFailed(r.Context(), note.ID, "generation queue is unavailable")
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Generation queue is unavailable", r))
		return
	}

	if err := h.redis.LPush(r.Context(), "queue:course-generation", string(jobBytes)).Err(); err != nil {
		log.Printf("failed to enqueue course-generation job %s: %v", job.ID, err)
		h.jobRepo.UpdateStatus(r.Context(), job.ID, "failed")
		h.noteRepo.MarkFailed(r.Context(), note.ID, "failed to enqueue generation job")
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to enqueue generation job", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"note_id": note.ID,
		"job_id":  job.ID,
	})
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	if limit <= 0 || limit > 50 {
		limit = 20
	}

	notes, err := h.noteRepo.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch notes", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notes":  notes,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid note ID", r))
		return
	}

	note, err := h.noteRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Note not found", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	if note.UserID != userID {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return
	}

	writeJSON(w, http.StatusOK, note)
}
