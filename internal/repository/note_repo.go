package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyforge-backend/internal/models"
)

type NoteRepo struct {
	pool *pgxpool.Pool
}

func NewNoteRepo(pool *pgxpool.Pool) *NoteRepo {
	return &NoteRepo{pool: pool}
}

func (r *NoteRepo) Create(ctx context.Context, n *models.Note) error {
	n.ID = uuid.New()
	if n.Status == "" {
		n.Status = "pending"
	}

	query := `INSERT INTO notes (id, user_id, title, source_type, file_name, content, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		n.ID, n.UserID, n.Title, n.SourceType, n.FileName, n.Content, n.Status,
	).Scan(&n.CreatedAt, &n.UpdatedAt)
}

func (r *NoteRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Note, error) {
	n := &models.Note{}
	query := `SELECT id, user_id, title, source_type, file_name, content, status, error_message, course_id, created_at, updated_at
		FROM notes WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&n.ID, &n.UserID, &n.Title, &n.SourceType, &n.FileName, &n.Content,
		&n.Status, &n.ErrorMessage, &n.CourseID, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// ListByUser omits note content; list views only need metadata and status.
func (r *NoteRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Note, error) {
	query := `SELECT id, user_id, title, source_type, file_name, status, error_message, course_id, created_at, updated_at
		FROM notes WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []models.Note
	for rows.Next() {
		n := models.Note{}
		err := rows.Scan(
			&n.ID, &n.UserID, &n.Title, &n.SourceType, &n.FileName,
			&n.Status, &n.ErrorMessage, &n.CourseID, &n.CreatedAt, &n.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}

	return notes, rows.Err()
}

func (r *NoteRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, "UPDATE notes SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	return err
}

func (r *NoteRepo) MarkCompleted(ctx context.Context, id, courseID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE notes SET status = 'completed', course_id = $1, error_message = NULL, updated_at = NOW() WHERE id = $2",
		courseID, id,
	)
	return err
}

func (r *NoteRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE notes SET status = 'failed', error_message = $1, updated_at = NOW() WHERE id = $2",
		errMsg, id,
	)
	return err
}
