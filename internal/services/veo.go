package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/genai"
)

// ---------------------------------------------------------------------------
// Veo Video Generation Service
// Wraps Google's Veo text-to-video backend. Generation is a long-running
// operation: submit, poll with a fixed delay until done or the deadline hits,
// then download and sanitize the asset. The public Render contract never
// fails for backend reasons — anything unrecoverable becomes a placeholder.
// ---------------------------------------------------------------------------

const (
	defaultVeoModel    = "veo-2.0-generate-001"
	veoPollInterval    = 10 * time.Second
	veoMaxPollDuration = 5 * time.Minute // Max time to wait for a single video

	veoClipSeconds = 5
	veoAspectRatio = "16:9"
)

// VeoService handles video generation via Google's Veo models.
// The genai client is constructed once and owned by the service — no
// module-level client state.
type VeoService struct {
	client *genai.Client
	model  string
	ffmpeg *FFmpegService
}

// NewVeoService creates a new Veo video generation service.
// apiKey: the Gemini API key (same key works for both Gemini and Veo)
// model: the Veo model to use (empty string defaults to veo-2.0-generate-001)
func NewVeoService(ctx context.Context, apiKey, model string, ffmpegSvc *FFmpegService) (*VeoService, error) {
	if model == "" {
		model = defaultVeoModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &VeoService{
		client: client,
		model:  model,
		ffmpeg: ffmpegSvc,
	}, nil
}

// Render generates a clip for the prompt and writes it to outputDir as
// name.mp4. Backend failures, invalid assets, and timeouts all degrade to a
// fixed-duration placeholder under the placeholder_<ordinal> name; an error is
// returned only when even the placeholder cannot be written.
func (s *VeoService) Render(ctx context.Context, prompt, outputDir, name string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	outputPath := filepath.Join(outputDir, name+".mp4")

	placeholderPath := filepath.Join(outputDir, placeholderName(name))

	videoBytes, err := s.generate(ctx, prompt)
	if err != nil {
		log.Printf("[Veo] Generation failed for %s, substituting placeholder: %v", name, err)
		return s.placeholder(ctx, placeholderPath)
	}

	if err := os.WriteFile(outputPath, videoBytes, 0644); err != nil {
		return "", fmt.Errorf("failed to write veo clip: %w", err)
	}

	if err := s.validate(ctx, outputPath, name); err != nil {
		log.Printf("[Veo] Downloaded asset invalid for %s, substituting placeholder: %v", name, err)
		return s.placeholder(ctx, placeholderPath)
	}

	// Re-encode to the canonical codec/pixel-format/frame-rate for downstream
	// compatibility. The raw download is kept if re-encoding fails.
	reencoded := outputPath + ".reenc.mp4"
	if err := s.ffmpeg.Reencode(ctx, outputPath, reencoded); err != nil {
		log.Printf("[Veo] WARNING: re-encode failed for %s, keeping original asset: %v", name, err)
		os.Remove(reencoded)
	} else if err := os.Rename(reencoded, outputPath); err != nil {
		log.Printf("[Veo] WARNING: could not swap re-encoded asset for %s: %v", name, err)
		os.Remove(reencoded)
	}

	return outputPath, nil
}

// placeholder writes the standard blank clip to path.
func (s *VeoService) placeholder(ctx context.Context, path string) (string, error) {
	if err := s.ffmpeg.CreatePlaceholder(ctx, path); err != nil {
		return "", fmt.Errorf("failed to create placeholder: %w", err)
	}
	return path, nil
}

// placeholderName maps a clip name onto the placeholder naming scheme, so a
// failed generation shows up in the run directory under the same
// placeholder_<ordinal> convention the pipeline itself uses.
func placeholderName(name string) string {
	if suffix, ok := strings.CutPrefix(name, "clip_"); ok {
		return "placeholder_" + suffix + ".mp4"
	}
	return "placeholder_" + name + ".mp4"
}

// validate confirms the downloaded asset is a well-formed video: non-zero
// size and at least one video stream in the container. A sub-second duration
// is logged but not rejected on that basis alone.
func (s *VeoService) validate(ctx context.Context, path, name string) error {
	stat, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("asset missing on disk: %w", err)
	}
	if stat.Size() == 0 {
		return fmt.Errorf("asset is empty")
	}

	info, err := s.ffmpeg.Probe(ctx, path)
	if err != nil {
		return fmt.Errorf("asset could not be probed: %w", err)
	}
	if !info.HasVideoStream() {
		return fmt.Errorf("asset has no video stream")
	}

	if d := info.DurationSeconds(); d > 0 && d < 1.0 {
		log.Printf("[Veo] WARNING: clip %s duration is very short: %.2fs", name, d)
	}

	return nil
}

// generate submits the prompt and polls the long-running operation until it
// completes, is cancelled, or exceeds the wall-clock ceiling.
func (s *VeoService) generate(ctx context.Context, prompt string) ([]byte, error) {
	duration := int32(veoClipSeconds)
	config := &genai.GenerateVideosConfig{
		AspectRatio:      veoAspectRatio,
		PersonGeneration: "dont_allow",
		NumberOfVideos:   1,
		DurationSeconds:  &duration,
	}

	log.Printf("[Veo] Starting video generation (model=%s, promptLen=%d)", s.model, len(prompt))

	operation, err := s.client.Models.GenerateVideos(ctx, s.model, prompt, nil, config)
	if err != nil {
		return nil, fmt.Errorf("failed to start video generation: %w", err)
	}

	log.Printf("[Veo] Operation started: %s", operation.Name)

	// Poll until done, cancelled, or timed out
	deadline := time.Now().Add(veoMaxPollDuration)
	pollCount := 0
	for !operation.Done {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("video generation timed out after %v (polled %d times)", veoMaxPollDuration, pollCount)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("video generation cancelled: %w", ctx.Err())
		case <-time.After(veoPollInterval):
		}

		pollCount++
		operation, err = s.client.Operations.GetVideosOperation(ctx, operation, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to poll operation (attempt %d): %w", pollCount, err)
		}

		log.Printf("[Veo] Poll %d: done=%v", pollCount, operation.Done)
	}

	// Check for operation-level errors (e.g. invalid request, quota exceeded)
	if operation.Error != nil && len(operation.Error) > 0 {
		errJSON, _ := json.Marshal(operation.Error)
		return nil, fmt.Errorf("video generation operation failed: %s", string(errJSON))
	}

	if operation.Response == nil {
		return nil, fmt.Errorf("no response in completed operation after %d polls (operation: %s)", pollCount, operation.Name)
	}

	if len(operation.Response.GeneratedVideos) == 0 {
		respJSON, _ := json.Marshal(operation.Response)
		return nil, fmt.Errorf("no videos in response (full response: %s)", string(respJSON))
	}

	video := operation.Response.GeneratedVideos[0]
	if video.Video == nil {
		return nil, fmt.Errorf("generated video object is nil")
	}

	log.Printf("[Veo] Video ready, downloading...")

	downloadURI := genai.NewDownloadURIFromVideo(video.Video)
	videoBytes, err := s.client.Files.Download(ctx, downloadURI, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download generated video: %w", err)
	}

	if len(videoBytes) == 0 {
		return nil, fmt.Errorf("downloaded video is empty (0 bytes)")
	}

	log.Printf("[Veo] Video generated successfully (%d bytes, %d polls)", len(videoBytes), pollCount)

	return videoBytes, nil
}
