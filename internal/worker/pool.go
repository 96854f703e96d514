package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"studyforge-backend/internal/models"
	"studyforge-backend/internal/repository"
	"studyforge-backend/internal/services"
)

const courseQueue = "queue:course-generation"

type Pool struct {
	redis       *redis.Client
	coursegen   *services.CourseGenService
	email       *services.EmailService
	userRepo    *repository.UserRepo
	noteRepo    *repository.NoteRepo
	jobRepo     *repository.JobRepo
	workerCount int
	stopChan    chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	coursegen *services.CourseGenService,
	email *services.EmailService,
	userRepo *repository.UserRepo,
	noteRepo *repository.NoteRepo,
	jobRepo *repository.JobRepo,
	workerCount int,
) *Pool {
	return &Pool{
		redis:       redisClient,
		coursegen:   coursegen,
		email:       email,
		userRepo:    userRepo,
		noteRepo:    noteRepo,
		jobRepo:     jobRepo,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, courseQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		// Parse job
		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing job %s (note: %s)", id, job.ID, job.ReferenceID)

		p.jobRepo.UpdateStatus(ctx, job.ID, "processing")
		p.noteRepo.UpdateStatus(ctx, job.ReferenceID, "processing")

		course, processErr := p.processCourseGeneration(ctx, &job)

		if processErr != nil {
			p.handleFailure(ctx, &job, processErr)
		} else {
			p.handleSuccess(ctx, &job, course)
		}

		// Release lock
		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) processCourseGeneration(ctx context.Context, job *models.Job) (*models.Course, error) {
	note, err := p.noteRepo.GetByID(ctx, job.ReferenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	if note.Content == "" {
		return nil, fmt.Errorf("note %s has no content", note.ID)
	}

	return p.coursegen.GenerateCourse(ctx, job, note)
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job, course *models.Course) {
	p.jobRepo.UpdateStatus(ctx, job.ID, "completed")

	if err := p.noteRepo.MarkCompleted(ctx, job.ReferenceID, course.ID); err != nil {
		log.Printf("failed to link course %s to note %s: %v", course.ID, job.ReferenceID, err)
	}

	go p.sendCourseReadyEmail(context.Background(), job, course)

	p.coursegen.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "completed",
		Payload: models.CompletedEvent{
			JobID:      job.ID,
			ResultID:   course.ID,
			ResultType: "course",
			Source:     course.Source,
		},
	})

	log.Printf("Job %s completed successfully (course %s, source %s)", job.ID, course.ID, course.Source)
}

func (p *Pool) sendCourseReadyEmail(ctx context.Context, job *models.Job, course *models.Course) {
	if p.email == nil || p.userRepo == nil {
		return
	}

	enabled, err := p.userRepo.GetNotificationSetting(ctx, job.UserID, "course_ready", true)
	if err != nil {
		log.Printf("failed to load course_ready notification preference for user %s: %v", job.UserID, err)
		return
	}

	if !enabled {
		return
	}

	user, err := p.userRepo.GetByID(ctx, job.UserID)
	if err != nil {
		log.Printf("failed to load user %s for course-ready email: %v", job.UserID, err)
		return
	}

	if err := p.email.SendCourseReadyEmail(user.Email, course.Title, course.ID.String()); err != nil {
		log.Printf("failed to send course-ready email to %s for course %s: %v", user.Email, course.ID, err)
	}
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	job.RetryCount++
	errMsg := err.Error()

	if job.RetryCount < 3 {
		// Re-queue with backoff
		log.Printf("Job %s failed (attempt %d): %s, retrying", job.ID, job.RetryCount, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "queued")
		p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)
		p.noteRepo.UpdateStatus(ctx, job.ReferenceID, "pending")

		jobBytes, _ := json.Marshal(job)
		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
		time.AfterFunc(backoff, func() {
			p.redis.LPush(context.Background(), courseQueue, string(jobBytes))
		})
	} else {
		// Max retries reached
		log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "failed")
		p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)
		p.noteRepo.MarkFailed(ctx, job.ReferenceID, errMsg)

		p.coursegen.PublishUpdate(ctx, job.UserID, models.WSMessage{
			Type: "error",
			Payload: models.ErrorEvent{
				JobID:        job.ID,
				ErrorCode:    "JOB_FAILED",
				ErrorMessage: errMsg,
			},
		})
	}
}
