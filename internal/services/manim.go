package services

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/bobarin/papervid/internal/models"
)

// ---------------------------------------------------------------------------
// Manim Animation Renderer
// Materializes LLM-authored scene code as a temporary script, invokes the
// manim CLI as a subprocess, and locates the rendered artifact among manim's
// internal output tree.
// ---------------------------------------------------------------------------

// scriptHeader is prepended to every scene so the generated code can assume
// the standard manim namespace.
const scriptHeader = "from manim import *\nimport numpy as np\n\n"

type ManimService struct{}

func NewManimService() *ManimService {
	return &ManimService{}
}

// Render executes the scene code and returns the path of the rendered video.
// A non-zero exit or a missing artifact is an expected failure mode — it is
// returned as an error for the caller to substitute a placeholder, never a
// panic. The temporary script is removed regardless of outcome.
func (s *ManimService) Render(ctx context.Context, code, outputDir, name string, quality models.Quality) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	scriptFile, err := os.CreateTemp("", name+"_*.py")
	if err != nil {
		return "", fmt.Errorf("failed to create scene script: %w", err)
	}
	scriptPath := scriptFile.Name()
	defer os.Remove(scriptPath)

	if _, err := scriptFile.WriteString(scriptHeader + code); err != nil {
		scriptFile.Close()
		return "", fmt.Errorf("failed to write scene script: %w", err)
	}
	scriptFile.Close()

	args := []string{
		scriptPath,
		"-o", outputDir,
		"--media_dir", outputDir,
		"-v", "WARNING",
		quality.Flag(),
	}

	log.Printf("[Manim] Rendering %s (quality=%s)", name, quality)

	cmd := exec.CommandContext(ctx, "manim", args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("manim exited with error for %s: %w (stderr: %s)", name, err, truncateString(stderr.String(), 500))
	}

	artifacts, err := scanVideoArtifacts(outputDir)
	if err != nil {
		return "", fmt.Errorf("failed to scan manim output: %w", err)
	}

	selected, ok := pickRenderedArtifact(artifacts)
	if !ok {
		return "", fmt.Errorf("manim produced no video artifact for %s", name)
	}

	log.Printf("[Manim] Selected artifact for %s: %s", name, selected)
	return selected, nil
}

// videoArtifact is a candidate output file found in the renderer's tree.
type videoArtifact struct {
	path    string
	modTime time.Time
}

// scanVideoArtifacts walks the output tree collecting every mp4 manim wrote,
// including intermediate partial-movie files which are filtered later.
func scanVideoArtifacts(root string) ([]videoArtifact, error) {
	var artifacts []videoArtifact

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".mp4") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		artifacts = append(artifacts, videoArtifact{path: path, modTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return artifacts, nil
}

// pickRenderedArtifact selects the final rendered video: partial-movie
// intermediates are excluded by naming convention and the most recently
// written remaining file wins. If filtering removes everything, the
// unfiltered set is used as a fallback.
func pickRenderedArtifact(artifacts []videoArtifact) (string, bool) {
	if len(artifacts) == 0 {
		return "", false
	}

	finals := make([]videoArtifact, 0, len(artifacts))
	for _, a := range artifacts {
		if !strings.Contains(a.path, "partial") {
			finals = append(finals, a)
		}
	}
	if len(finals) == 0 {
		finals = artifacts
	}

	latest := finals[0]
	for _, a := range finals[1:] {
		if a.modTime.After(latest.modTime) {
			latest = a
		}
	}

	return latest.path, true
}

// truncateString truncates a string to maxLen and appends "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
