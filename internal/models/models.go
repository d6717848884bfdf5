package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Enums

type JobType string

const (
	JobTypeGenerateVideo    JobType = "generate_video"
	JobTypeExtractGitHub    JobType = "extract_github"
	JobTypeGenerateTutorial JobType = "generate_tutorial"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// ClipType identifies which renderer a shot-list entry targets.
// The set is closed: anything else is an invalid spec and the clip pipeline
// substitutes a placeholder for it.
type ClipType string

const (
	ClipTypeManim ClipType = "manim"
	ClipTypeVeo   ClipType = "veo"
)

// Quality is the animation-renderer quality hint.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// ParseQuality maps a user-supplied string onto a known quality level,
// defaulting to medium for anything unrecognized.
func ParseQuality(s string) Quality {
	switch Quality(s) {
	case QualityLow, QualityMedium, QualityHigh:
		return Quality(s)
	default:
		return QualityMedium
	}
}

// Flag returns the single-letter manim quality flag for this level.
func (q Quality) Flag() string {
	switch q {
	case QualityLow:
		return "-ql"
	case QualityHigh:
		return "-qh"
	default:
		return "-qm"
	}
}

// ---------------------------------------------------------------------------
// Shot list — the LLM-authored plan the clip pipeline consumes
// ---------------------------------------------------------------------------

// ClipSpec is one entry of the shot list: either manim code or a Veo prompt,
// plus a voice-over line. Exactly one of Code/Prompt must be populated,
// matching Type.
type ClipSpec struct {
	Type      ClipType `json:"type"`
	Code      *string  `json:"code,omitempty"`
	Prompt    *string  `json:"prompt,omitempty"`
	VoiceOver string   `json:"voice_over"`
}

// Validate checks the exactly-one-of invariant between Code and Prompt.
// An invalid spec never raises past the pipeline boundary — the pipeline maps
// it to a placeholder — but dispatch uses this to decide.
func (c ClipSpec) Validate() error {
	switch c.Type {
	case ClipTypeManim:
		if c.Code == nil || *c.Code == "" {
			return fmt.Errorf("manim clip has no code")
		}
		if c.Prompt != nil && *c.Prompt != "" {
			return fmt.Errorf("manim clip must not carry a prompt")
		}
	case ClipTypeVeo:
		if c.Prompt == nil || *c.Prompt == "" {
			return fmt.Errorf("veo clip has no prompt")
		}
		if c.Code != nil && *c.Code != "" {
			return fmt.Errorf("veo clip must not carry code")
		}
	default:
		return fmt.Errorf("unknown clip type %q", c.Type)
	}
	return nil
}

// ShotList is the full plan returned by the shot-list producer.
type ShotList struct {
	Clips []ClipSpec `json:"clips"`
}

// ---------------------------------------------------------------------------
// GitHub extraction result
// ---------------------------------------------------------------------------

// ReadmeResult holds one repository's fetched and simplified README.
// Error is set when the repository could not be fetched; it never fails the
// extraction as a whole.
type ReadmeResult struct {
	URL        string  `json:"url"`
	Original   string  `json:"original,omitempty"`
	Simplified string  `json:"simplified,omitempty"`
	Error      *string `json:"error,omitempty"`
}

// GitHubExtraction is the stored result of an extract_github job.
type GitHubExtraction struct {
	Links   []string       `json:"github_links"`
	Readmes []ReadmeResult `json:"readmes"`
}

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// ---------------------------------------------------------------------------
// Job model
// ---------------------------------------------------------------------------

type Job struct {
	ID           uuid.UUID  `json:"id"`
	Type         JobType    `json:"type"`
	Status       JobStatus  `json:"status"`
	PDFPath      *string    `json:"pdf_path,omitempty"` // local path or http(s) URL
	Quality      Quality    `json:"quality"`
	VideoPath    *string    `json:"video_path,omitempty"` // final artifact, set on completion
	Result       JSONB      `json:"result,omitempty"`     // extract_github / generate_tutorial payload
	ErrorMessage *string    `json:"error,omitempty"`
	Attempts     int        `json:"attempts"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// DTOs for API requests/responses

type CreateVideoRequest struct {
	PDFPath string `json:"pdf_path,omitempty"`
	PDFURL  string `json:"pdf_url,omitempty"`
	Quality string `json:"quality,omitempty"` // low, medium, high (default: medium)
}

type CreateGitHubRequest struct {
	PDFPath string `json:"pdf_path,omitempty"`
	PDFURL  string `json:"pdf_url,omitempty"`
}

type CreateTutorialRequest struct {
	PDFPath string `json:"pdf_path,omitempty"`
	PDFURL  string `json:"pdf_url,omitempty"`
}

type CreateJobResponse struct {
	JobID   uuid.UUID `json:"job_id"`
	Status  JobStatus `json:"status"`
	Message string    `json:"message"`
}

type ListJobsResponse struct {
	Jobs  []Job `json:"jobs"`
	Total int   `json:"total"`
}
