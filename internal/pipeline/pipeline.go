package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/bobarin/papervid/internal/models"
	"github.com/bobarin/papervid/internal/services"
)

// ---------------------------------------------------------------------------
// Clip pipeline
// Renders every clip of a shot list, narrates it, and assembles the results
// into a single deliverable video. A clip can never sink the job: render and
// narration failures degrade per-clip, and only a placeholder that cannot
// even be written is fatal.
// ---------------------------------------------------------------------------

// AnimationRenderer renders program-defined clips (manim code).
type AnimationRenderer interface {
	Render(ctx context.Context, code, outputDir, name string, quality models.Quality) (string, error)
}

// PromptRenderer renders prompt-defined clips (text-to-video).
type PromptRenderer interface {
	Render(ctx context.Context, prompt, outputDir, name string) (string, error)
}

// Toolkit is the slice of the media layer the pipeline depends on.
type Toolkit interface {
	CreatePlaceholder(ctx context.Context, outputPath string) error
	Combine(ctx context.Context, videoPath, audioPath, outputPath string) string
	Duration(ctx context.Context, path string) (float64, error)
	DecodeFirstFrame(ctx context.Context, path string) error
	Normalize(ctx context.Context, inputPath, outputPath string) error
	Concat(ctx context.Context, clipPaths []string, outputPath string) error
}

// Renderer drives the full shot-list-to-video pipeline.
type Renderer struct {
	animation AnimationRenderer
	prompts   PromptRenderer
	tts       services.TTSService
	media     Toolkit
}

func NewRenderer(animation AnimationRenderer, prompts PromptRenderer, tts services.TTSService, media Toolkit) *Renderer {
	return &Renderer{
		animation: animation,
		prompts:   prompts,
		tts:       tts,
		media:     media,
	}
}

// GenerateVideo runs the whole pipeline for a shot list and writes the final
// video to outputPath. workDir holds every intermediate artifact; the caller
// owns its cleanup. An empty shot list is rejected before anything is written.
func (r *Renderer) GenerateVideo(ctx context.Context, specs []models.ClipSpec, workDir, outputPath string, quality models.Quality) error {
	if len(specs) == 0 {
		return fmt.Errorf("shot list is empty, nothing to render")
	}

	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}

	clipPaths, err := r.RenderAll(ctx, specs, workDir, quality)
	if err != nil {
		return err
	}

	return r.Assemble(ctx, clipPaths, workDir, outputPath)
}

// RenderAll renders every clip in order and returns one path per spec, in
// the same order. Invalid specs and failed renders become placeholders;
// narration is attached when synthesis succeeds and skipped when it does not.
// The only error RenderAll returns is a placeholder that cannot be written.
func (r *Renderer) RenderAll(ctx context.Context, specs []models.ClipSpec, workDir string, quality models.Quality) ([]string, error) {
	paths := make([]string, 0, len(specs))

	for i, spec := range specs {
		log.Printf("[Pipeline] Rendering clip %d/%d (type=%s)", i+1, len(specs), spec.Type)

		clipPath, err := r.renderClip(ctx, spec, workDir, i, quality)
		if err != nil {
			return nil, err
		}

		paths = append(paths, r.narrate(ctx, spec.VoiceOver, clipPath, workDir, i))
	}

	return paths, nil
}

// renderClip produces the video for one spec. All expected failures resolve
// to a placeholder at placeholder_%03d.mp4.
func (r *Renderer) renderClip(ctx context.Context, spec models.ClipSpec, workDir string, ordinal int, quality models.Quality) (string, error) {
	name := fmt.Sprintf("clip_%03d", ordinal)

	if err := spec.Validate(); err != nil {
		log.Printf("[Pipeline] Clip %d invalid, substituting placeholder: %v", ordinal, err)
		return r.placeholder(ctx, workDir, ordinal)
	}

	var clipPath string
	var err error
	switch spec.Type {
	case models.ClipTypeManim:
		clipPath, err = r.animation.Render(ctx, *spec.Code, workDir, name, quality)
	case models.ClipTypeVeo:
		clipPath, err = r.prompts.Render(ctx, *spec.Prompt, workDir, name)
	default:
		err = fmt.Errorf("unknown clip type %q", spec.Type)
	}

	if err != nil {
		log.Printf("[Pipeline] Clip %d render failed, substituting placeholder: %v", ordinal, err)
		return r.placeholder(ctx, workDir, ordinal)
	}

	return clipPath, nil
}

func (r *Renderer) placeholder(ctx context.Context, workDir string, ordinal int) (string, error) {
	path := filepath.Join(workDir, fmt.Sprintf("placeholder_%03d.mp4", ordinal))
	if err := r.media.CreatePlaceholder(ctx, path); err != nil {
		return "", fmt.Errorf("failed to create placeholder for clip %d: %w", ordinal, err)
	}
	return path, nil
}

// narrate synthesizes the voice-over and muxes it onto the clip. Every
// failure leaves the clip silent; the returned path is always usable.
func (r *Renderer) narrate(ctx context.Context, voiceOver, clipPath, workDir string, ordinal int) string {
	if voiceOver == "" {
		return clipPath
	}

	audio, err := r.tts.Synthesize(ctx, voiceOver)
	if err != nil {
		log.Printf("[Pipeline] Narration failed for clip %d, keeping silent clip: %v", ordinal, err)
		return clipPath
	}

	audioPath := filepath.Join(workDir, fmt.Sprintf("audio_clip_%03d.%s", ordinal, audio.Format))
	if err := os.WriteFile(audioPath, audio.AudioData, 0644); err != nil {
		log.Printf("[Pipeline] Could not write narration for clip %d, keeping silent clip: %v", ordinal, err)
		return clipPath
	}

	finalPath := filepath.Join(workDir, fmt.Sprintf("final_clip_%03d.mp4", ordinal))
	return r.media.Combine(ctx, clipPath, audioPath, finalPath)
}

// Assemble normalizes the surviving clips to a common format and
// concatenates them into outputPath. Clips that cannot be probed, have no
// positive duration, or whose first frame cannot be decoded are dropped;
// order is preserved among survivors. Zero survivors is an error.
func (r *Renderer) Assemble(ctx context.Context, clipPaths []string, workDir, outputPath string) error {
	var usable []string
	for i, path := range clipPaths {
		if err := r.checkClip(ctx, path); err != nil {
			log.Printf("[Pipeline] Dropping clip %d from final cut: %v", i, err)
			continue
		}
		usable = append(usable, path)
	}

	if len(usable) == 0 {
		return fmt.Errorf("no usable clips to assemble out of %d rendered", len(clipPaths))
	}

	log.Printf("[Pipeline] Assembling %d/%d clips", len(usable), len(clipPaths))

	normalized := make([]string, 0, len(usable))
	defer func() {
		for _, p := range normalized {
			os.Remove(p)
		}
	}()

	for i, path := range usable {
		normPath := filepath.Join(workDir, fmt.Sprintf("normalized_%03d.mp4", i))
		if err := r.media.Normalize(ctx, path, normPath); err != nil {
			return fmt.Errorf("failed to normalize clip %d: %w", i, err)
		}
		normalized = append(normalized, normPath)
	}

	if err := r.media.Concat(ctx, normalized, outputPath); err != nil {
		return fmt.Errorf("failed to concatenate clips: %w", err)
	}

	log.Printf("[Pipeline] Final video written to %s", outputPath)

	return nil
}

// checkClip decides whether a rendered clip can survive into the final cut.
func (r *Renderer) checkClip(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("clip missing on disk: %w", err)
	}

	duration, err := r.media.Duration(ctx, path)
	if err != nil {
		return fmt.Errorf("clip duration unreadable: %w", err)
	}
	if duration <= 0 {
		return fmt.Errorf("clip has non-positive duration %.2f", duration)
	}

	if err := r.media.DecodeFirstFrame(ctx, path); err != nil {
		return fmt.Errorf("clip first frame undecodable: %w", err)
	}

	return nil
}
