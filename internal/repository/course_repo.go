package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyforge-backend/internal/models"
)

type CourseRepo struct {
	pool *pgxpool.Pool
}

func NewCourseRepo(pool *pgxpool.Pool) *CourseRepo {
	return &CourseRepo{pool: pool}
}

func (r *CourseRepo) Create(ctx context.Context, c *models.Course) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	lessonsBytes, err := json.Marshal(c.Lessons)
	if err != nil {
		return fmt.Errorf("failed to marshal lessons: %w", err)
	}
	progressBytes, _ := json.Marshal(c.Progress)
	if c.Progress == nil {
		progressBytes = []byte("{}")
	}

	query := `INSERT INTO courses (id, user_id, title, summary, topics, lessons_json, progress_json, completed_lessons, notes_excerpt, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		c.ID, c.UserID, c.Title, c.Summary, c.Topics, lessonsBytes, progressBytes, c.CompletedLessons, c.NotesExcerpt, c.Source,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *CourseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	c := &models.Course{}
	var lessonsBytes, progressBytes []byte

	query := `SELECT id, user_id, title, summary, topics, lessons_json, progress_json, completed_lessons,
		notes_excerpt, source, created_at, updated_at, last_accessed_at
		FROM courses WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.Title, &c.Summary, &c.Topics, &lessonsBytes, &progressBytes, &c.CompletedLessons,
		&c.NotesExcerpt, &c.Source, &c.CreatedAt, &c.UpdatedAt, &c.LastAccessedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(lessonsBytes, &c.Lessons); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lessons for course %s: %w", id, err)
	}
	c.Progress = map[int]models.LessonProgress{}
	if len(progressBytes) > 0 {
		if err := json.Unmarshal(progressBytes, &c.Progress); err != nil {
			return nil, fmt.Errorf("failed to unmarshal progress for course %s: %w", id, err)
		}
	}

	// Update last_accessed_at
	r.pool.Exec(ctx, "UPDATE courses SET last_accessed_at = NOW() WHERE id = $1", id)
	return c, nil
}

// ListByUser returns the user's courses newest first. Lessons are included;
// list views that only need counts can ignore them.
func (r *CourseRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Course, error) {
	query := `SELECT id, user_id, title, summary, topics, lessons_json, progress_json, completed_lessons,
		notes_excerpt, source, created_at, updated_at, last_accessed_at
		FROM courses WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []models.Course
	for rows.Next() {
		c := models.Course{}
		var lessonsBytes, progressBytes []byte
		err := rows.Scan(
			&c.ID, &c.UserID, &c.Title, &c.Summary, &c.Topics, &lessonsBytes, &progressBytes, &c.CompletedLessons,
			&c.NotesExcerpt, &c.Source, &c.CreatedAt, &c.UpdatedAt, &c.LastAccessedAt,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(lessonsBytes, &c.Lessons); err != nil {
			return nil, fmt.Errorf("failed to unmarshal lessons for course %s: %w", c.ID, err)
		}
		c.Progress = map[int]models.LessonProgress{}
		if len(progressBytes) > 0 {
			json.Unmarshal(progressBytes, &c.Progress)
		}
		courses = append(courses, c)
	}

	return courses, rows.Err()
}

// UpdateLessonProgress writes one progress entry into the jsonb map and
// moves the denormalized counter by delta in the same statement.
func (r *CourseRepo) UpdateLessonProgress(ctx context.Context, courseID uuid.UUID, lessonIndex int, progress models.LessonProgress, delta int) error {
	progressBytes, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to marshal progress entry: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`UPDATE courses SET
			progress_json = jsonb_set(COALESCE(progress_json, '{}'::jsonb), ARRAY[$2::text], $3::jsonb),
			completed_lessons = completed_lessons + $4,
			updated_at = NOW()
		WHERE id = $1`,
		courseID, strconv.Itoa(lessonIndex), progressBytes, delta,
	)
	return err
}

func (r *CourseRepo) Delete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM courses WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Stats aggregates the dashboard numbers in one query. A course counts as
// completed when every lesson has a completed progress entry.
func (r *CourseRepo) Stats(ctx context.Context, userID uuid.UUID) (total, completed int, avgCompletion float64, err error) {
	query := `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE jsonb_array_length(lessons_json) > 0 AND completed_lessons >= jsonb_array_length(lessons_json)),
		COALESCE(AVG(completed_lessons::float / NULLIF(jsonb_array_length(lessons_json), 0)) * 100, 0)
		FROM courses WHERE user_id = $1`

	err = r.pool.QueryRow(ctx, query, userID).Scan(&total, &completed, &avgCompletion)
	return total, completed, avgCompletion, err
}
