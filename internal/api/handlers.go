package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bobarin/papervid/internal/db"
	"github.com/bobarin/papervid/internal/models"
	"github.com/bobarin/papervid/internal/queue"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxUploadBytes caps PDF uploads at 50 MB.
const maxUploadBytes = 50 << 20

type Handler struct {
	db             *db.DB
	queue          *queue.Queue
	uploadDir      string
	defaultQuality string // used when a request omits quality
}

func NewHandler(database *db.DB, q *queue.Queue, uploadDir, defaultQuality string) *Handler {
	return &Handler{
		db:             database,
		queue:          q,
		uploadDir:      uploadDir,
		defaultQuality: defaultQuality,
	}
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateVideo handles POST /v1/videos
// The paper arrives by reference: a server-local path or a URL.
func (h *Handler) CreateVideo(w http.ResponseWriter, r *http.Request) {
	var req models.CreateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.PDFPath == "" && req.PDFURL == "" {
		respondError(w, http.StatusBadRequest, "Either pdf_path or pdf_url is required")
		return
	}
	if req.PDFPath != "" && req.PDFURL != "" {
		respondError(w, http.StatusBadRequest, "Provide pdf_path or pdf_url, not both")
		return
	}

	source := req.PDFPath
	if source == "" {
		source = req.PDFURL
	}

	h.createVideoJob(w, r, source, req.Quality)
}

// UploadVideo handles POST /v1/videos/upload
// Accepts a multipart PDF upload and creates the job in one step.
func (h *Handler) UploadVideo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form or file too large")
		return
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing 'pdf' file field")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		respondError(w, http.StatusBadRequest, "Only .pdf files are accepted")
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to prepare upload directory")
		return
	}

	destPath := filepath.Join(h.uploadDir, uuid.New().String()+".pdf")
	dest, err := os.Create(destPath)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	defer dest.Close()

	if _, err := io.Copy(dest, file); err != nil {
		os.Remove(destPath)
		respondError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}

	h.createVideoJob(w, r, destPath, r.FormValue("quality"))
}

func (h *Handler) createVideoJob(w http.ResponseWriter, r *http.Request, pdfSource, quality string) {
	if quality == "" {
		quality = h.defaultQuality
	}

	job := &models.Job{
		ID:      uuid.New(),
		Type:    models.JobTypeGenerateVideo,
		Status:  models.JobStatusPending,
		PDFPath: &pdfSource,
		Quality: models.ParseQuality(quality),
	}

	if err := h.db.CreateJob(r.Context(), job); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	if err := h.queue.EnqueueGenerateVideo(r.Context(), job.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusCreated, models.CreateJobResponse{
		JobID:   job.ID,
		Status:  job.Status,
		Message: "Video generation queued",
	})
}

// CreateGitHub handles POST /v1/github
func (h *Handler) CreateGitHub(w http.ResponseWriter, r *http.Request) {
	var req models.CreateGitHubRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.PDFPath == "" && req.PDFURL == "" {
		respondError(w, http.StatusBadRequest, "Either pdf_path or pdf_url is required")
		return
	}
	if req.PDFPath != "" && req.PDFURL != "" {
		respondError(w, http.StatusBadRequest, "Provide pdf_path or pdf_url, not both")
		return
	}

	source := req.PDFPath
	if source == "" {
		source = req.PDFURL
	}

	job := &models.Job{
		ID:      uuid.New(),
		Type:    models.JobTypeExtractGitHub,
		Status:  models.JobStatusPending,
		PDFPath: &source,
	}

	if err := h.db.CreateJob(r.Context(), job); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	if err := h.queue.EnqueueExtractGitHub(r.Context(), job.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusCreated, models.CreateJobResponse{
		JobID:   job.ID,
		Status:  job.Status,
		Message: "GitHub extraction queued",
	})
}

// CreateTutorial handles POST /v1/tutorials
func (h *Handler) CreateTutorial(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTutorialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.PDFPath == "" && req.PDFURL == "" {
		respondError(w, http.StatusBadRequest, "Either pdf_path or pdf_url is required")
		return
	}
	if req.PDFPath != "" && req.PDFURL != "" {
		respondError(w, http.StatusBadRequest, "Provide pdf_path or pdf_url, not both")
		return
	}

	source := req.PDFPath
	if source == "" {
		source = req.PDFURL
	}

	job := &models.Job{
		ID:      uuid.New(),
		Type:    models.JobTypeGenerateTutorial,
		Status:  models.JobStatusPending,
		PDFPath: &source,
	}

	if err := h.db.CreateJob(r.Context(), job); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	if err := h.queue.EnqueueGenerateTutorial(r.Context(), job.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusCreated, models.CreateJobResponse{
		JobID:   job.ID,
		Status:  job.Status,
		Message: "Tutorial generation queued",
	})
}

// DownloadTutorial handles GET /v1/tutorials/{id}/download
// Serves the HTML page of a completed generate_tutorial job.
func (h *Handler) DownloadTutorial(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.db.GetJob(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	if job.Type != models.JobTypeGenerateTutorial {
		respondError(w, http.StatusBadRequest, "Job is not a tutorial job")
		return
	}
	htmlPath := jobHTMLPath(job)
	if job.Status != models.JobStatusCompleted || htmlPath == "" {
		respondError(w, http.StatusConflict, fmt.Sprintf("Tutorial not ready (status: %s)", job.Status))
		return
	}

	if _, err := os.Stat(htmlPath); err != nil {
		respondError(w, http.StatusNotFound, "Tutorial file no longer exists")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeFile(w, r, htmlPath)
}

// jobHTMLPath reads the tutorial artifact path off a job's result payload.
func jobHTMLPath(job *models.Job) string {
	if job.Result == nil {
		return ""
	}
	path, _ := job.Result["html_path"].(string)
	return path
}

// ListJobs handles GET /v1/jobs
// Query params:
//   - limit:  max results per page (default 20, max 100)
//   - offset: number of results to skip (default 0)
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	jobs, total, err := h.db.ListJobs(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	if jobs == nil {
		jobs = []models.Job{}
	}

	respondJSON(w, http.StatusOK, models.ListJobsResponse{
		Jobs:  jobs,
		Total: total,
	})
}

// GetJob handles GET /v1/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.db.GetJob(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	respondJSON(w, http.StatusOK, job)
}

// DownloadVideo handles GET /v1/videos/{id}/download
// Streams the final artifact of a completed generate_video job.
func (h *Handler) DownloadVideo(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.db.GetJob(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	if job.Type != models.JobTypeGenerateVideo {
		respondError(w, http.StatusBadRequest, "Job is not a video generation job")
		return
	}
	if job.Status != models.JobStatusCompleted || job.VideoPath == nil {
		respondError(w, http.StatusConflict, fmt.Sprintf("Video not ready (status: %s)", job.Status))
		return
	}

	if _, err := os.Stat(*job.VideoPath); err != nil {
		respondError(w, http.StatusNotFound, "Video file no longer exists")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="video_%s.mp4"`, job.ID))
	w.Header().Set("Content-Type", "video/mp4")
	http.ServeFile(w, r, *job.VideoPath)
}

// DeleteJob handles DELETE /v1/jobs/{id}
// Removes the job record and its final artifact if one exists.
func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.db.GetJob(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	if job.VideoPath != nil {
		os.Remove(*job.VideoPath)
	}
	if htmlPath := jobHTMLPath(job); htmlPath != "" {
		os.Remove(htmlPath)
	}

	if err := h.db.DeleteJob(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete job")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
