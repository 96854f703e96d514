package services

import (
	"context"
	"log"
	"time"

	"studyforge-backend/internal/repository"
)

const (
	studyReminderLastSentKey = "study_reminders_last_sent_at"
	studyReminderInterval    = 72 * time.Hour
)

// NotificationScheduler nudges idle users by email. One loop, driven by a
// coarse poll interval; per-user de-duplication rides on the last-sent
// timestamp stored in their settings.
type NotificationScheduler struct {
	userRepo     *repository.UserRepo
	email        *EmailService
	pollInterval time.Duration
	stopChan     chan struct{}
}

func NewNotificationScheduler(userRepo *repository.UserRepo, email *EmailService, pollInterval time.Duration) *NotificationScheduler {
	return &NotificationScheduler{
		userRepo:     userRepo,
		email:        email,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
	}
}

func (s *NotificationScheduler) Start() {
	if s.userRepo == nil || s.email == nil {
		return
	}

	go s.loop()

	log.Printf("Notification scheduler started (poll every %s)", s.pollInterval)
}

func (s *NotificationScheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *NotificationScheduler) loop() {
	// Run on startup as well as by interval.
	s.sendStudyReminders(context.Background(), time.Now().UTC())

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sendStudyReminders(context.Background(), time.Now().UTC())
		}
	}
}

func (s *NotificationScheduler) sendStudyReminders(ctx context.Context, now time.Time) {
	recipients, err := s.userRepo.ListReminderRecipients(ctx, "study_reminders", studyReminderLastSentKey)
	if err != nil {
		log.Printf("study reminders: failed to list recipients: %v", err)
		return
	}

	for _, recipient := range recipients {
		if !shouldSendByLastSent(recipient.LastSentAtRaw, studyReminderInterval, now) {
			continue
		}

		lastActivityAt, activityErr := s.userRepo.GetLatestActivityAt(ctx, recipient.ID)
		if activityErr != nil {
			log.Printf("study reminders: failed to load latest activity for user %s: %v", recipient.ID, activityErr)
			continue
		}

		referenceTime := reminderReferenceTime(lastActivityAt, recipient.CreatedAt)
		if now.Sub(referenceTime) < studyReminderInterval {
			continue
		}

		if err := s.email.SendStudyReminderEmail(recipient.Email, recipient.FullName, lastActivityAt); err != nil {
			log.Printf("study reminders: failed to send to %s: %v", recipient.Email, err)
			continue
		}

		if err := s.userRepo.SetNotificationTimestamp(ctx, recipient.ID, studyReminderLastSentKey, now); err != nil {
			log.Printf("study reminders: failed to persist last sent at for user %s: %v", recipient.ID, err)
		}
	}
}

func shouldSendByLastSent(lastSentRaw string, minInterval time.Duration, now time.Time) bool {
	if lastSentRaw == "" {
		return true
	}

	lastSentAt, err := time.Parse(time.RFC3339, lastSentRaw)
	if err != nil {
		return true
	}

	return now.Sub(lastSentAt) >= minInterval
}

func reminderReferenceTime(lastActivityAt *time.Time, createdAt time.Time) time.Time {
	if lastActivityAt != nil && !lastActivityAt.IsZero() {
		return lastActivityAt.UTC()
	}

	return createdAt.UTC()
}
