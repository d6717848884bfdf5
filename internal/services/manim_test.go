package services

import (
	"testing"
	"time"
)

func TestPickRenderedArtifact(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("prefers newest non-partial", func(t *testing.T) {
		artifacts := []videoArtifact{
			{path: "out/videos/partial_movie_files/Scene/0001.mp4", modTime: base.Add(3 * time.Minute)},
			{path: "out/videos/480p15/Scene.mp4", modTime: base.Add(1 * time.Minute)},
			{path: "out/videos/480p15/Scene2.mp4", modTime: base.Add(2 * time.Minute)},
		}

		got, ok := pickRenderedArtifact(artifacts)
		if !ok {
			t.Fatal("expected an artifact")
		}
		if got != "out/videos/480p15/Scene2.mp4" {
			t.Errorf("picked %s, want newest non-partial", got)
		}
	})

	t.Run("falls back to partials when nothing else exists", func(t *testing.T) {
		artifacts := []videoArtifact{
			{path: "out/partial_movie_files/a.mp4", modTime: base},
			{path: "out/partial_movie_files/b.mp4", modTime: base.Add(time.Minute)},
		}

		got, ok := pickRenderedArtifact(artifacts)
		if !ok {
			t.Fatal("expected fallback artifact")
		}
		if got != "out/partial_movie_files/b.mp4" {
			t.Errorf("picked %s, want newest from unfiltered set", got)
		}
	})

	t.Run("empty set", func(t *testing.T) {
		if _, ok := pickRenderedArtifact(nil); ok {
			t.Error("expected no artifact for empty set")
		}
	})
}
