package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bobarin/papervid/internal/db"
	"github.com/bobarin/papervid/internal/models"
	"github.com/bobarin/papervid/internal/pipeline"
	"github.com/bobarin/papervid/internal/queue"
	"github.com/bobarin/papervid/internal/services"
)

type Worker struct {
	db        *db.DB
	queue     *queue.Queue
	planner   *services.OpenAIService
	pdf       *services.PDFService
	github    *services.GitHubService
	tutorial  *services.TutorialService
	renderer  *pipeline.Renderer
	workDir   string // per-job subdirectories for intermediate artifacts
	outputDir string // final videos and tutorials land here
}

func New(
	database *db.DB,
	q *queue.Queue,
	plannerSvc *services.OpenAIService,
	pdfSvc *services.PDFService,
	githubSvc *services.GitHubService,
	tutorialSvc *services.TutorialService,
	renderer *pipeline.Renderer,
	workDir, outputDir string,
) *Worker {
	return &Worker{
		db:        database,
		queue:     q,
		planner:   plannerSvc,
		pdf:       pdfSvc,
		github:    githubSvc,
		tutorial:  tutorialSvc,
		renderer:  renderer,
		workDir:   workDir,
		outputDir: outputDir,
	}
}

// Start begins processing jobs from all queues
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Printf("Worker started with concurrency: %d", concurrency)

	// Start workers for each queue type
	for i := 0; i < concurrency; i++ {
		go w.processQueue(ctx, queue.QueueGenerateVideo, w.handleGenerateVideo)
		go w.processQueue(ctx, queue.QueueExtractGitHub, w.handleExtractGitHub)
		go w.processQueue(ctx, queue.QueueGenerateTutorial, w.handleGenerateTutorial)
	}

	<-ctx.Done()
	log.Println("Worker shutting down...")
}

func (w *Worker) processQueue(ctx context.Context, queueName string, handler func(context.Context, *queue.Job) error) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := w.queue.Dequeue(ctx, queueName, 5*time.Second)
			if err != nil {
				log.Printf("Error dequeuing from %s: %v", queueName, err)
				continue
			}

			if job == nil {
				continue // No job available, retry
			}

			log.Printf("Processing job %s (type: %s)", job.ID, job.Type)

			if err := w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusProcessing); err != nil {
				log.Printf("Failed to update job status: %v", err)
			}

			if err := handler(ctx, job); err != nil {
				log.Printf("Job %s failed: %v", job.ID, err)
				w.db.UpdateJobError(ctx, job.ID, err.Error())
			} else {
				log.Printf("Job %s completed successfully", job.ID)
				w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusCompleted)
			}
		}
	}
}

// handleGenerateVideo runs the full paper-to-video pipeline for one job:
// resolve the PDF, extract its text, plan the shot list, render and
// assemble, and record the final artifact on the job.
func (w *Worker) handleGenerateVideo(ctx context.Context, qjob *queue.Job) error {
	job, err := w.db.GetJob(ctx, qjob.ID)
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}
	if job.PDFPath == nil || *job.PDFPath == "" {
		return fmt.Errorf("job has no pdf source")
	}

	jobWorkDir := filepath.Join(w.workDir, job.ID.String())
	if err := os.MkdirAll(jobWorkDir, 0755); err != nil {
		return fmt.Errorf("failed to create job work dir: %w", err)
	}
	defer os.RemoveAll(jobWorkDir)

	pdfPath, err := w.resolvePDF(ctx, *job.PDFPath, jobWorkDir)
	if err != nil {
		return err
	}

	text, err := w.pdf.ExtractText(pdfPath)
	if err != nil {
		return err
	}

	shotList, err := w.planner.GenerateShotList(ctx, text)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	outputPath := filepath.Join(w.outputDir, fmt.Sprintf("video_%s.mp4", job.ID))

	if err := w.renderer.GenerateVideo(ctx, shotList.Clips, jobWorkDir, outputPath, job.Quality); err != nil {
		return err
	}

	if err := w.db.SetJobVideoPath(ctx, job.ID, outputPath); err != nil {
		return fmt.Errorf("failed to record video path: %w", err)
	}

	return nil
}

// handleExtractGitHub runs the README extraction for one job and stores the
// result payload on the job record.
func (w *Worker) handleExtractGitHub(ctx context.Context, qjob *queue.Job) error {
	job, err := w.db.GetJob(ctx, qjob.ID)
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}
	if job.PDFPath == nil || *job.PDFPath == "" {
		return fmt.Errorf("job has no pdf source")
	}

	jobWorkDir := filepath.Join(w.workDir, job.ID.String())
	if err := os.MkdirAll(jobWorkDir, 0755); err != nil {
		return fmt.Errorf("failed to create job work dir: %w", err)
	}
	defer os.RemoveAll(jobWorkDir)

	pdfPath, err := w.resolvePDF(ctx, *job.PDFPath, jobWorkDir)
	if err != nil {
		return err
	}

	text, err := w.pdf.ExtractText(pdfPath)
	if err != nil {
		return err
	}

	extraction, err := w.github.Process(ctx, text)
	if err != nil {
		return err
	}

	result := models.JSONB{
		"github_links": extraction.Links,
		"readmes":      extraction.Readmes,
	}
	if err := w.db.SetJobResult(ctx, job.ID, result); err != nil {
		return fmt.Errorf("failed to record extraction result: %w", err)
	}

	return nil
}

// handleGenerateTutorial produces an interactive HTML tutorial for the paper
// and stores the artifact path on the job record.
func (w *Worker) handleGenerateTutorial(ctx context.Context, qjob *queue.Job) error {
	job, err := w.db.GetJob(ctx, qjob.ID)
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}
	if job.PDFPath == nil || *job.PDFPath == "" {
		return fmt.Errorf("job has no pdf source")
	}

	jobWorkDir := filepath.Join(w.workDir, job.ID.String())
	if err := os.MkdirAll(jobWorkDir, 0755); err != nil {
		return fmt.Errorf("failed to create job work dir: %w", err)
	}
	defer os.RemoveAll(jobWorkDir)

	pdfPath, err := w.resolvePDF(ctx, *job.PDFPath, jobWorkDir)
	if err != nil {
		return err
	}

	text, err := w.pdf.ExtractText(pdfPath)
	if err != nil {
		return err
	}

	html, err := w.tutorial.GenerateHTML(ctx, text)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	outputPath := filepath.Join(w.outputDir, fmt.Sprintf("tutorial_%s.html", job.ID))
	if err := os.WriteFile(outputPath, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write tutorial file: %w", err)
	}

	result := models.JSONB{"html_path": outputPath}
	if err := w.db.SetJobResult(ctx, job.ID, result); err != nil {
		return fmt.Errorf("failed to record tutorial result: %w", err)
	}

	return nil
}

// resolvePDF turns the job's pdf source into a local file path, downloading
// into the job work dir when the source is a URL.
func (w *Worker) resolvePDF(ctx context.Context, source, jobWorkDir string) (string, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		if _, err := os.Stat(source); err != nil {
			return "", fmt.Errorf("pdf not found at %s: %w", source, err)
		}
		return source, nil
	}

	localPath := filepath.Join(jobWorkDir, "paper.pdf")
	if err := w.pdf.Download(ctx, source, localPath); err != nil {
		return "", err
	}
	return localPath, nil
}
