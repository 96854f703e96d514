package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyforge-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

type ReminderRecipient struct {
	ID            uuid.UUID
	Email         string
	FullName      string
	CreatedAt     time.Time
	LastSentAtRaw string
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, email, password_hash, full_name, is_verified, is_active, auth_provider, google_id,
	login_streak, longest_streak, last_login_date, study_minutes, created_at, last_login_at`

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, full_name, is_verified, auth_provider, google_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	user.ID = uuid.New()
	user.IsActive = true
	if user.AuthProvider == "" {
		user.AuthProvider = "password"
	}

	return r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FullName, user.IsVerified, user.AuthProvider, user.GoogleID,
	).Scan(&user.CreatedAt)
}

func (r *UserRepo) scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.IsVerified, &user.IsActive,
		&user.AuthProvider, &user.GoogleID, &user.LoginStreak, &user.LongestStreak, &user.LastLoginDate,
		&user.StudyMinutes, &user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email))
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

func (r *UserRepo) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE google_id = $1", googleID))
}

func (r *UserRepo) LinkGoogle(ctx context.Context, userID uuid.UUID, googleID string) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET google_id = $1 WHERE id = $2", googleID, userID)
	return err
}

func (r *UserRepo) VerifyEmail(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET is_verified = TRUE WHERE id = $1", userID)
	return err
}

// UpdateLoginStreak records a login: last_login_at, the streak counters,
// and the login date they were computed from.
func (r *UserRepo) UpdateLoginStreak(ctx context.Context, userID uuid.UUID, streak, longest int, loginDate time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET login_streak = $1, longest_streak = $2, last_login_date = $3, last_login_at = NOW() WHERE id = $4`,
		streak, longest, loginDate, userID,
	)
	return err
}

func (r *UserRepo) AddStudyMinutes(ctx context.Context, userID uuid.UUID, minutes int) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET study_minutes = study_minutes + $1 WHERE id = $2", minutes, userID)
	return err
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET password_hash = $1 WHERE id = $2", passwordHash, userID)
	return err
}

func (r *UserRepo) CreateSettings(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "INSERT INTO user_settings (user_id) VALUES ($1) ON CONFLICT DO NOTHING", userID)
	return err
}

func (r *UserRepo) GetSettings(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error) {
	s := &models.UserSettings{}
	query := `SELECT user_id, theme, timer_json, notifications_json, updated_at
		FROM user_settings WHERE user_id = $1`
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&s.UserID, &s.Theme, &s.TimerJSON, &s.NotificationsJSON, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *UserRepo) UpdateSettings(ctx context.Context, s *models.UserSettings) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE user_settings SET theme = $1, timer_json = $2, notifications_json = $3, updated_at = NOW() WHERE user_id = $4`,
		s.Theme, s.TimerJSON, s.NotificationsJSON, s.UserID,
	)
	return err
}

// GetNotificationSetting reads a boolean key from notifications_json,
// falling back to defaultValue when the key or the settings row is absent.
func (r *UserRepo) GetNotificationSetting(ctx context.Context, userID uuid.UUID, key string, defaultValue bool) (bool, error) {
	var enabled bool
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(
			CASE
				WHEN us.notifications_json ? $2 THEN (us.notifications_json->>$2)::boolean
				ELSE $3
			END, $3)
		FROM users u
		LEFT JOIN user_settings us ON us.user_id = u.id
		WHERE u.id = $1
	`, userID, key, defaultValue).Scan(&enabled)
	if err != nil {
		return defaultValue, err
	}
	return enabled, nil
}

// SetNotificationTimestamp merges a single timestamp key into
// notifications_json, used for reminder de-duplication.
func (r *UserRepo) SetNotificationTimestamp(ctx context.Context, userID uuid.UUID, key string, at time.Time) error {
	formatted := at.UTC().Format(time.RFC3339)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_settings (user_id, notifications_json, updated_at)
		VALUES (
			$1,
			jsonb_build_object($2::text, to_jsonb($3::text)),
			NOW()
		)
		ON CONFLICT (user_id) DO UPDATE
		SET notifications_json = COALESCE(user_settings.notifications_json, '{}'::jsonb) ||
			jsonb_build_object($2::text, to_jsonb($3::text)),
			updated_at = NOW()
	`, userID, key, formatted)
	return err
}

// ListReminderRecipients returns verified active users who have the given
// notification key enabled, along with the raw last-sent timestamp stored
// under lastSentKey.
func (r *UserRepo) ListReminderRecipients(ctx context.Context, notificationKey, lastSentKey string) ([]ReminderRecipient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			u.id,
			u.email,
			u.full_name,
			u.created_at,
			COALESCE(us.notifications_json->>$2, '') AS last_sent_at
		FROM users u
		LEFT JOIN user_settings us ON us.user_id = u.id
		WHERE u.is_active = TRUE
		  AND u.is_verified = TRUE
		  AND COALESCE((
			CASE
				WHEN LOWER(COALESCE(us.notifications_json->>$1, '')) IN ('true', 'false')
				THEN (us.notifications_json->>$1)::boolean
				ELSE false
			END
		  ), false) = TRUE
	`, notificationKey, lastSentKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipients := make([]ReminderRecipient, 0)
	for rows.Next() {
		var recipient ReminderRecipient
		if scanErr := rows.Scan(
			&recipient.ID,
			&recipient.Email,
			&recipient.FullName,
			&recipient.CreatedAt,
			&recipient.LastSentAtRaw,
		); scanErr != nil {
			return nil, scanErr
		}
		recipients = append(recipients, recipient)
	}

	return recipients, rows.Err()
}

// GetLatestActivityAt reports the user's most recent study event or course
// creation, for idle-user reminders.
func (r *UserRepo) GetLatestActivityAt(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	var ts pgtype.Timestamptz
	err := r.pool.QueryRow(ctx, `
		SELECT MAX(last_activity_at) FROM (
			SELECT MAX(created_at) AS last_activity_at FROM study_activity WHERE user_id = $1
			UNION ALL
			SELECT MAX(created_at) AS last_activity_at FROM courses WHERE user_id = $1
		) activity
	`, userID).Scan(&ts)
	if err != nil {
		return nil, err
	}
	if !ts.Valid {
		return nil, nil
	}
	t := ts.Time
	return &t, nil
}
