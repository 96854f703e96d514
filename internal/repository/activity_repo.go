package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyforge-backend/internal/models"
)

// ActivityRepo writes the append-only study event log. Rows are never
// updated or deleted.
type ActivityRepo struct {
	pool *pgxpool.Pool
}

func NewActivityRepo(pool *pgxpool.Pool) *ActivityRepo {
	return &ActivityRepo{pool: pool}
}

func (r *ActivityRepo) Append(ctx context.Context, a *models.StudyActivity) error {
	a.ID = uuid.New()

	query := `INSERT INTO study_activity (id, user_id, course_id, lesson_index, event_type, score)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		a.ID, a.UserID, a.CourseID, a.LessonIndex, a.EventType, a.Score,
	).Scan(&a.CreatedAt)
}

func (r *ActivityRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.StudyActivity, error) {
	query := `SELECT id, user_id, course_id, lesson_index, event_type, score, created_at
		FROM study_activity WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.StudyActivity
	for rows.Next() {
		a := models.StudyActivity{}
		err := rows.Scan(&a.ID, &a.UserID, &a.CourseID, &a.LessonIndex, &a.EventType, &a.Score, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		events = append(events, a)
	}

	return events, rows.Err()
}

// EventCounts returns lessons completed and quizzes passed across all of
// the user's courses.
func (r *ActivityRepo) EventCounts(ctx context.Context, userID uuid.UUID) (lessonsCompleted, quizzesPassed int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE event_type = 'lesson_completed'),
			COUNT(*) FILTER (WHERE event_type = 'quiz_passed')
		FROM study_activity WHERE user_id = $1
	`, userID).Scan(&lessonsCompleted, &quizzesPassed)
	return lessonsCompleted, quizzesPassed, err
}

// ActiveDays lists the distinct days with any study event since the cutoff,
// newest first. The dashboard uses it for streak display.
func (r *ActivityRepo) ActiveDays(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT date_trunc('day', created_at) AS day
		FROM study_activity
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY day DESC
	`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		days = append(days, day)
	}

	return days, rows.Err()
}
