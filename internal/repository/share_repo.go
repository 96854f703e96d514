package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyforge-backend/internal/models"
)

type ShareRepo struct {
	pool *pgxpool.Pool
}

func NewShareRepo(pool *pgxpool.Pool) *ShareRepo {
	return &ShareRepo{pool: pool}
}

func (r *ShareRepo) Create(ctx context.Context, s *models.SharedCourse) error {
	s.ID = uuid.New()

	query := `INSERT INTO shared_courses (id, course_id, owner_id, share_token)
		VALUES ($1, $2, $3, $4) RETURNING created_at`

	return r.pool.QueryRow(ctx, query, s.ID, s.CourseID, s.OwnerID, s.ShareToken).Scan(&s.CreatedAt)
}

// GetActiveByCourse returns the existing unrevoked share for a course, so
// repeated share requests reuse one token.
func (r *ShareRepo) GetActiveByCourse(ctx context.Context, courseID uuid.UUID) (*models.SharedCourse, error) {
	s := &models.SharedCourse{}
	query := `SELECT id, course_id, owner_id, share_token, created_at, revoked_at
		FROM shared_courses WHERE course_id = $1 AND revoked_at IS NULL`

	err := r.pool.QueryRow(ctx, query, courseID).Scan(
		&s.ID, &s.CourseID, &s.OwnerID, &s.ShareToken, &s.CreatedAt, &s.RevokedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *ShareRepo) GetByToken(ctx context.Context, token string) (*models.SharedCourse, error) {
	s := &models.SharedCourse{}
	query := `SELECT id, course_id, owner_id, share_token, created_at, revoked_at
		FROM shared_courses WHERE share_token = $1 AND revoked_at IS NULL`

	err := r.pool.QueryRow(ctx, query, token).Scan(
		&s.ID, &s.CourseID, &s.OwnerID, &s.ShareToken, &s.CreatedAt, &s.RevokedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *ShareRepo) Revoke(ctx context.Context, courseID, ownerID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		"UPDATE shared_courses SET revoked_at = NOW() WHERE course_id = $1 AND owner_id = $2 AND revoked_at IS NULL",
		courseID, ownerID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
