package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobarin/papervid/internal/api"
	"github.com/bobarin/papervid/internal/config"
	"github.com/bobarin/papervid/internal/db"
	"github.com/bobarin/papervid/internal/pipeline"
	"github.com/bobarin/papervid/internal/queue"
	"github.com/bobarin/papervid/internal/services"
	"github.com/bobarin/papervid/internal/worker"
)

func main() {
	log.Println("Starting Papervid API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	// Connect to Redis queue
	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	// Create API handler
	handler := api.NewHandler(database, q, cfg.UploadDir, cfg.DefaultQuality)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCtx context.Context
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting background processing...")

		// Initialize services
		plannerSvc := services.NewOpenAIService(cfg.OpenAIKey, cfg.OpenAIModel)
		pdfSvc := services.NewPDFService()
		githubSvc := services.NewGitHubService(plannerSvc, cfg.GitHubToken)
		tutorialSvc := services.NewTutorialService(plannerSvc)
		ffmpegSvc := services.NewFFmpegService(cfg.WorkDir)
		manimSvc := services.NewManimService()
		ttsSvc := services.NewLMNTService(cfg.LMNTKey, cfg.LMNTVoiceID)
		log.Printf("TTS provider: LMNT (voice: %s)", cfg.LMNTVoiceID)

		veoSvc, err := services.NewVeoService(context.Background(), cfg.GeminiKey, cfg.VeoModel, ffmpegSvc)
		if err != nil {
			log.Fatalf("Failed to initialize Veo service: %v", err)
		}
		log.Printf("Veo video generation enabled (model: %s)", cfg.VeoModel)

		renderer := pipeline.NewRenderer(manimSvc, veoSvc, ttsSvc, ffmpegSvc)

		// Create worker
		w := worker.New(database, q, plannerSvc, pdfSvc, githubSvc, tutorialSvc, renderer, cfg.WorkDir, cfg.OutputDir)

		// Start worker in background
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown worker
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
