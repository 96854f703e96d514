package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyforge-backend/internal/models"
)

// AILogRepo audits external AI calls: one row per attempt plus the raw
// response body for successful calls.
type AILogRepo struct {
	pool *pgxpool.Pool
}

func NewAILogRepo(pool *pgxpool.Pool) *AILogRepo {
	return &AILogRepo{pool: pool}
}

func (r *AILogRepo) Log(ctx context.Context, l *models.AIProcessingLog) error {
	l.ID = uuid.New()

	query := `INSERT INTO ai_processing_logs (id, note_id, user_id, provider, status, detail, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		l.ID, l.NoteID, l.UserID, l.Provider, l.Status, l.Detail, l.DurationMs,
	).Scan(&l.CreatedAt)
}

func (r *AILogRepo) StoreRawResponse(ctx context.Context, noteID uuid.UUID, raw string) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO raw_processed_data (id, note_id, raw_response) VALUES ($1, $2, $3)",
		uuid.New(), noteID, raw,
	)
	return err
}

func (r *AILogRepo) ListByNote(ctx context.Context, noteID uuid.UUID) ([]models.AIProcessingLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, note_id, user_id, provider, status, detail, duration_ms, created_at
		FROM ai_processing_logs WHERE note_id = $1 ORDER BY created_at`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.AIProcessingLog
	for rows.Next() {
		l := models.AIProcessingLog{}
		err := rows.Scan(&l.ID, &l.NoteID, &l.UserID, &l.Provider, &l.Status, &l.Detail, &l.DurationMs, &l.CreatedAt)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}

	return logs, rows.Err()
}
