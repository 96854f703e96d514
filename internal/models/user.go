package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	FullName      string     `json:"full_name"`
	IsVerified    bool       `json:"is_verified"`
	IsActive      bool       `json:"is_active"`
	AuthProvider  string     `json:"auth_provider"`
	GoogleID      *string    `json:"-"`
	LoginStreak   int        `json:"login_streak"`
	LongestStreak int        `json:"longest_streak"`
	LastLoginDate *time.Time `json:"last_login_date"`
	StudyMinutes  int        `json:"study_minutes"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at"`
}

type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token"`
}

// UserSettings holds client preferences persisted server-side. TimerJSON
// carries the pomodoro settings (work/break minutes, sessions before a long
// break); the countdown itself runs on the client.
type UserSettings struct {
	UserID            uuid.UUID       `json:"user_id"`
	Theme             string          `json:"theme"`
	TimerJSON         json.RawMessage `json:"timer"`
	NotificationsJSON json.RawMessage `json:"notifications"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
