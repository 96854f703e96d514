package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studyforge-backend/internal/config"
	"studyforge-backend/internal/database"
	"studyforge-backend/internal/handlers"
	"studyforge-backend/internal/middleware"
	"studyforge-backend/internal/repository"
	"studyforge-backend/internal/router"
	"studyforge-backend/internal/services"
	"studyforge-backend/internal/websocket"
	"studyforge-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting StudyForge Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	noteRepo := repository.NewNoteRepo(pool)
	courseRepo := repository.NewCourseRepo(pool)
	activityRepo := repository.NewActivityRepo(pool)
	shareRepo := repository.NewShareRepo(pool)
	jobRepo := repository.NewJobRepo(pool)
	aiLogRepo := repository.NewAILogRepo(pool)

	// ──── Step 5: Initialize Course Generation ────
	courseGenService, err := services.NewCourseGenService(
		cfg.GeminiAPIKey,
		cfg.GeminiConcurrentReqs,
		courseRepo,
		aiLogRepo,
		redisClients.Queue,
	)
	if err != nil {
		log.Fatalf("✗ Course generation service initialization failed: %v", err)
	}
	defer courseGenService.Close()
	log.Println("✓ Course generation service initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.FrontendURL)
	fileExtractService := services.NewFileExtractService()
	authService := services.NewAuthService(userRepo, redisClients.Queue, jwtAuth, emailService, cfg.GoogleClientID)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService, cfg.FrontendURL)
	noteHandler := handlers.NewNoteHandler(noteRepo, jobRepo, fileExtractService, redisClients.Queue, cfg.UploadDir, cfg.MaxUploadMB)
	courseHandler := handlers.NewCourseHandler(courseRepo, shareRepo, activityRepo)
	dashboardHandler := handlers.NewDashboardHandler(courseRepo, activityRepo, userRepo)
	userHandler := handlers.NewUserHandler(userRepo)
	jobHandler := handlers.NewJobHandler(jobRepo)

	// ──── Step 6: Start Job Worker Pool ────
	workerPool := worker.NewPool(
		redisClients.Queue,
		courseGenService,
		emailService,
		userRepo,
		noteRepo,
		jobRepo,
		cfg.WorkerCount,
	)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	notificationScheduler := services.NewNotificationScheduler(userRepo, emailService, time.Duration(cfg.ReminderIntervalMin)*time.Minute)
	notificationScheduler.Start()
	log.Println("✓ Notification scheduler started")

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret, cfg.FrontendURL)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		noteHandler,
		courseHandler,
		dashboardHandler,
		userHandler,
		jobHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		notificationScheduler.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ StudyForge Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
