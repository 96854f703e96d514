package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"studyforge-backend/internal/middleware"
	"studyforge-backend/internal/models"
)

type progressWrite struct {
	courseID    uuid.UUID
	lessonIndex int
	progress    models.LessonProgress
	delta       int
}

type stubCourseRepo struct {
	course     *models.Course
	deleteOK   bool
	writes     []progressWrite
	failUpdate bool
}

func (s *stubCourseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	if s.course == nil || s.course.ID != id {
		return nil, context.Canceled
	}
	return s.course, nil
}

func (s *stubCourseRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Course, error) {
	if s.course == nil {
		return nil, nil
	}
	return []models.Course{*s.course}, nil
}

func (s *stubCourseRepo) UpdateLessonProgress(ctx context.Context, courseID uuid.UUID, lessonIndex int, progress models.LessonProgress, delta int) error {
	if s.failUpdate {
		return context.Canceled
	}
	s.writes = append(s.writes, progressWrite{courseID, lessonIndex, progress, delta})
	return nil
}

func (s *stubCourseRepo) Delete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	return s.deleteOK, nil
}

type stubShareRepo struct {
	share     *models.SharedCourse
	activeErr error
	created   *models.SharedCourse
	revoked   bool
}

func (s *stubShareRepo) Create(ctx context.Context, sc *models.SharedCourse) error {
	s.created = sc
	return nil
}

func (s *stubShareRepo) GetActiveByCourse(ctx context.Context, courseID uuid.UUID) (*models.SharedCourse, error) {
	if s.activeErr != nil {
		return nil, s.activeErr
	}
	if s.share == nil {
		return nil, pgx.ErrNoRows
	}
	return s.share, nil
}

func (s *stubShareRepo) GetByToken(ctx context.Context, token string) (*models.SharedCourse, error) {
	if s.share == nil || s.share.ShareToken != token {
		return nil, pgx.ErrNoRows
	}
	return s.share, nil
}

func (s *stubShareRepo) Revoke(ctx context.Context, courseID, ownerID uuid.UUID) (bool, error) {
	s.revoked = true
	return s.share != nil, nil
}

type stubActivityRepo struct {
	events []*models.StudyActivity
}

func (s *stubActivityRepo) Append(ctx context.Context, a *models.StudyActivity) error {
	s.events = append(s.events, a)
	return nil
}

func testCourse(owner uuid.UUID, lessonCount int) *models.Course {
	lessons := make([]models.Lesson, lessonCount)
	for i := range lessons {
		questions := make([]models.QuizQuestion, 5)
		for q := range questions {
			questions[q] = models.QuizQuestion{
				Question:     fmt.Sprintf("Q%d", q),
				Options:      []string{"a", "b", "c", "d"},
				CorrectIndex: 0,
			}
		}
		lessons[i] = models.Lesson{
			ID:    fmt.Sprintf("lesson-%d", i),
			Title: fmt.Sprintf("Lesson %d: Topic", i+1),
			Quiz:  models.Quiz{Questions: questions},
		}
	}
	return &models.Course{
		ID:       uuid.New(),
		UserID:   owner,
		Title:    "Test Course",
		Lessons:  lessons,
		Progress: map[int]models.LessonProgress{},
	}
}

func courseRequest(method, path string, body interface{}, userID uuid.UUID, params map[string]string) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
	return req
}

func TestCourseHandler_RecordProgress_NonOwnerForbidden(t *testing.T) {
	owner := uuid.New()
	c := testCourse(owner, 3)
	repo := &stubCourseRepo{course: c}
	h := &CourseHandler{courseRepo: repo, activityRepo: &stubActivityRepo{}}

	req := courseRequest(http.MethodPost, "/api/v1/courses/"+c.ID.String()+"/lessons/0/progress",
		models.RecordProgressRequest{}, uuid.New(),
		map[string]string{"id": c.ID.String(), "index": "0"})

	rr := httptest.NewRecorder()
	h.RecordProgress(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rr.Code)
	}
	if len(repo.writes) != 0 {
		t.Fatalf("non-owner must not write progress")
	}
}

func TestCourseHandler_RecordProgress_ViewedOnly(t *testing.T) {
	owner := uuid.New()
	c := testCourse(owner, 3)
	repo := &stubCourseRepo{course: c}
	activity := &stubActivityRepo{}
	h := &CourseHandler{courseRepo: repo, activityRepo: activity}

	req := courseRequest(http.MethodPost, "/api/v1/courses/"+c.ID.String()+"/lessons/1/progress",
		models.RecordProgressRequest{Completed: false}, owner,
		map[string]string{"id": c.ID.String(), "index": "1"})

	rr := httptest.NewRecorder()
	h.RecordProgress(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if len(repo.writes) != 1 {
		t.Fatalf("expected 1 progress write, got %d", len(repo.writes))
	}
	w := repo.writes[0]
	if !w.progress.Viewed || w.progress.Completed || w.delta != 0 {
		t.Errorf("viewed-only write wrong: %+v delta=%d", w.progress, w.delta)
	}
	if len(activity.events) != 1 || activity.events[0].EventType != "lesson_viewed" {
		t.Errorf("expected one lesson_viewed event, got %+v", activity.events)
	}
}

func TestCourseHandler_RecordProgress_Completion(t *testing.T) {
	owner := uuid.New()
	c := testCourse(owner, 3)
	repo := &stubCourseRepo{course: c}
	activity := &stubActivityRepo{}
	h := &CourseHandler{courseRepo: repo, activityRepo: activity}

	req := courseRequest(http.MethodPost, "/api/v1/courses/"+c.ID.String()+"/lessons/0/progress",
		models.RecordProgressRequest{Completed: true}, owner,
		map[string]string{"id": c.ID.String(), "index": "0"})

	rr := httptest.NewRecorder()
	h.RecordProgress(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if len(repo.writes) != 1 || repo.writes[0].delta != 1 {
		t.Fatalf("completion should bump the counter by 1: %+v", repo.writes)
	}
	if len(activity.events) != 1 || activity.events[0].EventType != "lesson_completed" {
		t.Errorf("expected one lesson_completed event, got %+v", activity.events)
	}
}

func TestCourseHandler_RecordProgress_InvalidIndex(t *testing.T) {
	owner := uuid.New()
	c := testCourse(owner, 3)
	repo := &stubCourseRepo{course: c}
	h := &CourseHandler{courseRepo: repo, activityRepo: &stubActivityRepo{}}

	for _, index := range []string{"-1", "3", "abc"} {
		req := courseRequest(http.MethodPost, "/api/v1/courses/"+c.ID.String()+"/lessons/"+index+"/progress",
			models.RecordProgressRequest{}, owner,
			map[string]string{"id": c.ID.String(), "index": index})

		rr := httptest.NewRecorder()
		h.RecordProgress(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("index %q: expected status %d, got %d", index, http.StatusBadRequest, rr.Code)
		}
	}
	if len(repo.writes) != 0 {
		t.Fatalf("invalid indices must not write progress")
	}
}

func TestCourseHandler_SubmitQuiz_IncompleteAnswers(t *testing.T) {
	owner := uuid.New()
	c := testCourse(owner, 2)
	repo := &stubCourseRepo{course: c}
	h := &CourseHandler{courseRepo: repo, activityRepo: &stubActivityRepo{}}

	req := courseRequest(http.MethodPost, "/api/v1/courses/"+c.ID.String()+"/lessons/0/quiz/submit",
		models.SubmitQuizRequest{Answers: []int{0, 0, 0}}, owner,
		map[string]string{"id": c.ID.String(), "index": "0"})

	rr := httptest.NewRecorder()
	h.SubmitQuiz(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}

	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error.Fields["answers"] != "unanswered question indices: 3, 4" {
		t.Errorf("unexpected fields: %+v", resp.Error.Fields)
	}
	if len(repo.writes) != 0 {
		t.Fatalf("incomplete submission must not write progress")
	}
}

func TestCourseHandler_SubmitQuiz_PassRecordsCompletion(t *testing.T) {
	owner := uuid.New()
	c := testCourse(owner, 2)
	repo := &stubCourseRepo{course: c}
	activity := &stubActivityRepo{}
	h := &CourseHandler{courseRepo: repo, activityRepo: activity}

	// 4 of 5 correct = 80%, above the pass threshold
	req := courseRequest(http.MethodPost, "/api/v1/courses/"+c.ID.String()+"/lessons/1/quiz/submit",
		models.SubmitQuizRequest{Answers: []int{0, 0, 0, 0, 1}}, owner,
		map[string]string{"id": c.ID.String(), "index": "1"})

	rr := httptest.NewRecorder()
	h.SubmitQuiz(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp struct {
		Result models.QuizResult `json:"result"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Result.Passed || resp.Result.Correct != 4 || resp.Result.Percentage != 80.0 {
		t.Errorf("unexpected result: %+v", resp.Result)
	}

	if len(repo.writes) != 1 {
		t.Fatalf("pass should record completion, writes: %d", len(repo.writes))
	}
	w := repo.writes[0]
	if !w.progress.Completed || w.progress.Score == nil || *w.progress.Score != 80.0 || w.delta != 1 {
		t.Errorf("pass write wrong: %+v delta=%d", w.progress, w.delta)
	}
	if len(activity.events) != 1 || activity.events[0].EventType != "quiz_passed" {
		t.Errorf("expected one quiz_passed event, got %+v", activity.events)
	}
}

func TestCourseHandler_SubmitQuiz_TooManyAnswers(t *testing.T) {
	owner := uuid.New()
	c := testCourse(owner, 2)
	repo := &stubCourseRepo{course: c}
	h := &CourseHandler{courseRepo: repo, activityRepo: &stubActivityRepo{}}

	req := courseRequest(http.MethodPost, "/api/v1/courses/"+c.ID.String()+"/lessons/0/quiz/submit",
		models.SubmitQuizRequest{Answers: []int{0, 0, 0, 0, 0, 0, 0}}, owner,
		map[string]string{"id": c.ID.String(), "index": "0"})

	rr := httptest.NewRecorder()
	h.SubmitQuiz(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}

	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error.Fields["answers"] != "expected 5 answers, got 7" {
		t.Errorf("unexpected fields: %+v", resp.Error.Fields)
	}
	if len(repo.writes) != 0 {
		t.Fatalf("over-length submission must not write progress")
	}
}

func TestCourseHandler_SubmitQuiz_OutOfRangeAnswersGradeWrong(t *testing.T) {
	owner := uuid.New()
	c := testCourse(owner, 2)
	repo := &stubCourseRepo{course: c}
	h := &CourseHandler{courseRepo: repo, activityRepo: &stubActivityRepo{}}

	// option indices outside [0,3] count as wrong answers, not errors
	req := courseRequest(http.MethodPost, "/api/v1/courses/"+c.ID.String()+"/lessons/0/quiz/submit",
		models.SubmitQuizRequest{Answers: []int{7, -2, 0, 0, 0}}, owner,
		map[string]string{"id": c.ID.String(), "index": "0"})

	rr := httptest.NewRecorder()
	h.SubmitQuiz(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}

	var resp struct {
		Result models.QuizResult `json:"result"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Result.Correct != 3 || resp.Result.Percentage != 60.0 || resp.Result.Passed {
		t.Errorf("unexpected result: %+v", resp.Result)
	}
	if len(repo.writes) != 0 {
		t.Fatalf("failing score must not record progress")
	}
}

func TestCourseHandler_SubmitQuiz_FailDoesNotRecord(t *testing.T) {
	owner := uuid.New()
	c := testCourse(owner, 2)
	repo := &stubCourseRepo{course: c}
	activity := &stubActivityRepo{}
	h := &CourseHandler{courseRepo: repo, activityRepo: activity}

	// 3 of 5 correct = 60%, below the pass threshold
	req := courseRequest(http.MethodPost, "/api/v1/courses/"+c.ID.String()+"/lessons/0/quiz/submit",
		models.SubmitQuizRequest{Answers: []int{0, 0, 0, 1, 1}}, owner,
		map[string]string{"id": c.ID.String(), "index": "0"})

	rr := httptest.NewRecorder()
	h.SubmitQuiz(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp struct {
		Result models.QuizResult `json:"result"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Result.Passed {
		t.Errorf("60%% should not pass: %+v", resp.Result)
	}
	if len(repo.writes) != 0 || len(activity.events) != 0 {
		t.Errorf("failing score must not record progress or activity")
	}
}

func TestCourseHandler_Delete_NotFoundForNonOwner(t *testing.T) {
	repo := &stubCourseRepo{deleteOK: false}
	h := &CourseHandler{courseRepo: repo}

	id := uuid.New()
	req := courseRequest(http.MethodDelete, "/api/v1/courses/"+id.String(), nil, uuid.New(),
		map[string]string{"id": id.String()})

	rr := httptest.NewRecorder()
	h.Delete(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestCourseHandler_GetShared_HidesProgress(t *testing.T) {
	owner := uuid.New()
	c := testCourse(owner, 2)
	c.Progress[0] = models.LessonProgress{Viewed: true, Completed: true}
	c.NotesExcerpt = "private source notes"

	repo := &stubCourseRepo{course: c}
	share := &stubShareRepo{share: &models.SharedCourse{
		CourseID:   c.ID,
		OwnerID:    owner,
		ShareToken: "abc123",
	}}
	h := &CourseHandler{courseRepo: repo, shareRepo: share}

	req := courseRequest(http.MethodGet, "/api/v1/shared/abc123", nil, uuid.Nil,
		map[string]string{"token": "abc123"})

	rr := httptest.NewRecorder()
	h.GetShared(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload["title"] != "Test Course" {
		t.Errorf("expected course title, got %v", payload["title"])
	}
	for _, hidden := range []string{"progress", "notes_excerpt", "user_id"} {
		if _, ok := payload[hidden]; ok {
			t.Errorf("shared payload must not expose %q", hidden)
		}
	}
}

func TestCourseHandler_GetShared_UnknownToken(t *testing.T) {
	h := &CourseHandler{courseRepo: &stubCourseRepo{}, shareRepo: &stubShareRepo{}}

	req := courseRequest(http.MethodGet, "/api/v1/shared/nope", nil, uuid.Nil,
		map[string]string{"token": "nope"})

	rr := httptest.NewRecorder()
	h.GetShared(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestCourseHandler_CreateShare_ReusesActiveToken(t *testing.T) {
	owner := uuid.New()
	c := testCourse(owner, 2)
	existing := &models.SharedCourse{CourseID: c.ID, OwnerID: owner, ShareToken: "existing"}

	repo := &stubCourseRepo{course: c}
	share := &stubShareRepo{share: existing}
	h := &CourseHandler{courseRepo: repo, shareRepo: share}

	req := courseRequest(http.MethodPost, "/api/v1/courses/"+c.ID.String()+"/share", nil, owner,
		map[string]string{"id": c.ID.String()})

	rr := httptest.NewRecorder()
	h.CreateShare(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if share.created != nil {
		t.Fatalf("existing active share must be reused, not recreated")
	}

	var payload models.SharedCourse
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.ShareToken != "existing" {
		t.Errorf("expected existing token, got %q", payload.ShareToken)
	}
}

func TestCourseHandler_CreateShare_NewToken(t *testing.T) {
	owner := uuid.New()
	c := testCourse(owner, 2)
	share := &stubShareRepo{}
	h := &CourseHandler{courseRepo: &stubCourseRepo{course: c}, shareRepo: share}

	req := courseRequest(http.MethodPost, "/api/v1/courses/"+c.ID.String()+"/share", nil, owner,
		map[string]string{"id": c.ID.String()})

	rr := httptest.NewRecorder()
	h.CreateShare(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}
	if share.created == nil {
		t.Fatal("expected a share to be created")
	}
	if utf8.RuneCountInString(share.created.ShareToken) != 32 {
		t.Errorf("expected 32-char hex token, got %q", share.created.ShareToken)
	}
}

func TestCourseHandler_CreateShare_LookupFailure(t *testing.T) {
	owner := uuid.New()
	c := testCourse(owner, 2)
	share := &stubShareRepo{activeErr: errors.New("connection refused")}
	h := &CourseHandler{courseRepo: &stubCourseRepo{course: c}, shareRepo: share}

	req := courseRequest(http.MethodPost, "/api/v1/courses/"+c.ID.String()+"/share", nil, owner,
		map[string]string{"id": c.ID.String()})

	rr := httptest.NewRecorder()
	h.CreateShare(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
	if share.created != nil {
		t.Fatal("a failed lookup must not create a new share row")
	}
}
