package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bobarin/papervid/internal/models"
	"github.com/bobarin/papervid/internal/services"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeAnimation struct {
	failOrdinals map[string]bool // keyed by clip name
	calls        []string
}

func (f *fakeAnimation) Render(ctx context.Context, code, outputDir, name string, quality models.Quality) (string, error) {
	f.calls = append(f.calls, name)
	if f.failOrdinals[name] {
		return "", fmt.Errorf("render exploded")
	}
	path := filepath.Join(outputDir, name+".mp4")
	if err := os.WriteFile(path, []byte("anim"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

type fakePrompts struct {
	calls []string
}

func (f *fakePrompts) Render(ctx context.Context, prompt, outputDir, name string) (string, error) {
	f.calls = append(f.calls, name)
	path := filepath.Join(outputDir, name+".mp4")
	if err := os.WriteFile(path, []byte("veo"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeTTS struct {
	fail  bool
	calls int
}

func (f *fakeTTS) Synthesize(ctx context.Context, text string) (*services.TTSResponse, error) {
	f.calls++
	if f.fail {
		return nil, fmt.Errorf("tts unavailable")
	}
	return &services.TTSResponse{AudioData: []byte("RIFF"), Format: "wav"}, nil
}

type fakeMedia struct {
	durations       map[string]float64 // by base name; missing means 5s
	failPlaceholder bool
	failFirstFrame  map[string]bool
	combineCalls    int
	normalizeCalls  int
	concatInputs    []string
}

func (f *fakeMedia) CreatePlaceholder(ctx context.Context, outputPath string) error {
	if f.failPlaceholder {
		return fmt.Errorf("disk full")
	}
	return os.WriteFile(outputPath, []byte("blank"), 0644)
}

func (f *fakeMedia) Combine(ctx context.Context, videoPath, audioPath, outputPath string) string {
	f.combineCalls++
	if err := os.WriteFile(outputPath, []byte("muxed"), 0644); err != nil {
		return videoPath
	}
	return outputPath
}

func (f *fakeMedia) Duration(ctx context.Context, path string) (float64, error) {
	if d, ok := f.durations[filepath.Base(path)]; ok {
		return d, nil
	}
	return 5.0, nil
}

func (f *fakeMedia) DecodeFirstFrame(ctx context.Context, path string) error {
	if f.failFirstFrame[filepath.Base(path)] {
		return fmt.Errorf("corrupt stream")
	}
	return nil
}

func (f *fakeMedia) Normalize(ctx context.Context, inputPath, outputPath string) error {
	f.normalizeCalls++
	return os.WriteFile(outputPath, []byte("norm"), 0644)
}

func (f *fakeMedia) Concat(ctx context.Context, clipPaths []string, outputPath string) error {
	f.concatInputs = append([]string{}, clipPaths...)
	return os.WriteFile(outputPath, []byte("final"), 0644)
}

func strptr(s string) *string { return &s }

func newTestRenderer(media *fakeMedia, tts *fakeTTS, anim *fakeAnimation) *Renderer {
	if media == nil {
		media = &fakeMedia{}
	}
	if tts == nil {
		tts = &fakeTTS{}
	}
	if anim == nil {
		anim = &fakeAnimation{}
	}
	return NewRenderer(anim, &fakePrompts{}, tts, media)
}

// ---------------------------------------------------------------------------
// RenderAll
// ---------------------------------------------------------------------------

func TestRenderAllPreservesLengthAndOrder(t *testing.T) {
	workDir := t.TempDir()
	r := newTestRenderer(nil, nil, nil)

	specs := []models.ClipSpec{
		{Type: models.ClipTypeManim, Code: strptr("Scene1"), VoiceOver: "one"},
		{Type: models.ClipTypeVeo, Prompt: strptr("a river"), VoiceOver: "two"},
		{Type: models.ClipTypeManim, Code: strptr("Scene3"), VoiceOver: "three"},
	}

	paths, err := r.RenderAll(context.Background(), specs, workDir, models.QualityMedium)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != len(specs) {
		t.Fatalf("got %d paths, want %d", len(paths), len(specs))
	}
	for i, p := range paths {
		want := fmt.Sprintf("final_clip_%03d.mp4", i)
		if filepath.Base(p) != want {
			t.Errorf("path %d: got %s, want %s", i, filepath.Base(p), want)
		}
	}
}

func TestRenderAllFailedClipBecomesPlaceholder(t *testing.T) {
	workDir := t.TempDir()
	anim := &fakeAnimation{failOrdinals: map[string]bool{"clip_001": true}}
	tts := &fakeTTS{fail: true} // keep outputs raw so placeholder names survive
	r := newTestRenderer(nil, tts, anim)

	specs := []models.ClipSpec{
		{Type: models.ClipTypeManim, Code: strptr("ok"), VoiceOver: "a"},
		{Type: models.ClipTypeManim, Code: strptr("boom"), VoiceOver: "b"},
		{Type: models.ClipTypeManim, Code: strptr("ok"), VoiceOver: "c"},
	}

	paths, err := r.RenderAll(context.Background(), specs, workDir, models.QualityMedium)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(paths[0]) != "clip_000.mp4" {
		t.Errorf("clip 0 should render normally, got %s", paths[0])
	}
	if filepath.Base(paths[1]) != "placeholder_001.mp4" {
		t.Errorf("clip 1 should be a placeholder, got %s", paths[1])
	}
	if filepath.Base(paths[2]) != "clip_002.mp4" {
		t.Errorf("clip 2 should render normally, got %s", paths[2])
	}
}

func TestRenderAllInvalidSpecBecomesPlaceholder(t *testing.T) {
	workDir := t.TempDir()
	tts := &fakeTTS{fail: true}
	r := newTestRenderer(nil, tts, nil)

	specs := []models.ClipSpec{
		{Type: models.ClipTypeManim, VoiceOver: "code missing"},
		{Type: models.ClipTypeVeo, Code: strptr("x"), Prompt: strptr("y"), VoiceOver: "both set"},
	}

	paths, err := r.RenderAll(context.Background(), specs, workDir, models.QualityMedium)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, p := range paths {
		want := fmt.Sprintf("placeholder_%03d.mp4", i)
		if filepath.Base(p) != want {
			t.Errorf("clip %d: got %s, want %s", i, filepath.Base(p), want)
		}
	}
}

func TestRenderAllNarrationFailureKeepsSilentClip(t *testing.T) {
	workDir := t.TempDir()
	media := &fakeMedia{}
	tts := &fakeTTS{fail: true}
	r := newTestRenderer(media, tts, nil)

	specs := []models.ClipSpec{
		{Type: models.ClipTypeManim, Code: strptr("ok"), VoiceOver: "narrate me"},
	}

	paths, err := r.RenderAll(context.Background(), specs, workDir, models.QualityMedium)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(paths[0]) != "clip_000.mp4" {
		t.Errorf("expected the silent original clip, got %s", paths[0])
	}
	if media.combineCalls != 0 {
		t.Errorf("mux should not run when synthesis fails, got %d calls", media.combineCalls)
	}
}

func TestRenderAllEmptyVoiceOverSkipsTTS(t *testing.T) {
	workDir := t.TempDir()
	tts := &fakeTTS{}
	r := newTestRenderer(nil, tts, nil)

	specs := []models.ClipSpec{
		{Type: models.ClipTypeManim, Code: strptr("ok"), VoiceOver: ""},
	}

	if _, err := r.RenderAll(context.Background(), specs, workDir, models.QualityMedium); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tts.calls != 0 {
		t.Errorf("TTS should not be called for empty voice-over, got %d calls", tts.calls)
	}
}

func TestRenderAllPlaceholderWriteFailureIsFatal(t *testing.T) {
	workDir := t.TempDir()
	anim := &fakeAnimation{failOrdinals: map[string]bool{"clip_000": true}}
	media := &fakeMedia{failPlaceholder: true}
	r := newTestRenderer(media, nil, anim)

	specs := []models.ClipSpec{
		{Type: models.ClipTypeManim, Code: strptr("boom"), VoiceOver: "a"},
	}

	if _, err := r.RenderAll(context.Background(), specs, workDir, models.QualityMedium); err == nil {
		t.Fatal("expected error when placeholder cannot be written")
	}
}

// ---------------------------------------------------------------------------
// Assemble
// ---------------------------------------------------------------------------

func writeClips(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, 0, len(names))
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte("clip"), 0644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	return paths
}

func TestAssembleDropsUnusableClipsPreservingOrder(t *testing.T) {
	workDir := t.TempDir()
	clips := writeClips(t, workDir, "a.mp4", "b.mp4", "c.mp4")

	media := &fakeMedia{
		durations: map[string]float64{"a.mp4": 3, "b.mp4": 0, "c.mp4": 2},
	}
	r := newTestRenderer(media, nil, nil)

	out := filepath.Join(workDir, "final.mp4")
	if err := r.Assemble(context.Background(), clips, workDir, out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if media.normalizeCalls != 2 {
		t.Errorf("expected 2 normalizations, got %d", media.normalizeCalls)
	}
	if len(media.concatInputs) != 2 {
		t.Fatalf("expected 2 concat inputs, got %d", len(media.concatInputs))
	}
	// Survivor order: a before c.
	if !strings.Contains(media.concatInputs[0], "normalized_000") ||
		!strings.Contains(media.concatInputs[1], "normalized_001") {
		t.Errorf("concat order wrong: %v", media.concatInputs)
	}
}

func TestAssembleDropsUndecodableClip(t *testing.T) {
	workDir := t.TempDir()
	clips := writeClips(t, workDir, "good.mp4", "bad.mp4")

	media := &fakeMedia{failFirstFrame: map[string]bool{"bad.mp4": true}}
	r := newTestRenderer(media, nil, nil)

	out := filepath.Join(workDir, "final.mp4")
	if err := r.Assemble(context.Background(), clips, workDir, out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if media.normalizeCalls != 1 {
		t.Errorf("expected 1 normalization, got %d", media.normalizeCalls)
	}
}

func TestAssembleFailsWithZeroUsableClips(t *testing.T) {
	workDir := t.TempDir()
	clips := writeClips(t, workDir, "a.mp4", "b.mp4")

	media := &fakeMedia{durations: map[string]float64{"a.mp4": 0, "b.mp4": 0}}
	r := newTestRenderer(media, nil, nil)

	out := filepath.Join(workDir, "final.mp4")
	if err := r.Assemble(context.Background(), clips, workDir, out); err == nil {
		t.Fatal("expected error when no clip survives")
	}
}

// ---------------------------------------------------------------------------
// GenerateVideo
// ---------------------------------------------------------------------------

func TestGenerateVideoRejectsEmptyShotList(t *testing.T) {
	workDir := filepath.Join(t.TempDir(), "untouched")
	r := newTestRenderer(nil, nil, nil)

	err := r.GenerateVideo(context.Background(), nil, workDir, filepath.Join(workDir, "out.mp4"), models.QualityMedium)
	if err == nil {
		t.Fatal("expected error for empty shot list")
	}
	if _, statErr := os.Stat(workDir); !os.IsNotExist(statErr) {
		t.Error("work dir should not be created for an empty shot list")
	}
}

func TestGenerateVideoEndToEnd(t *testing.T) {
	workDir := t.TempDir()
	media := &fakeMedia{}
	r := newTestRenderer(media, nil, nil)

	specs := []models.ClipSpec{
		{Type: models.ClipTypeManim, Code: strptr("Scene"), VoiceOver: "hello"},
		{Type: models.ClipTypeVeo, Prompt: strptr("sunrise"), VoiceOver: "world"},
	}

	out := filepath.Join(workDir, "final.mp4")
	if err := r.GenerateVideo(context.Background(), specs, workDir, out, models.QualityMedium); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("final video missing: %v", err)
	}
	if media.combineCalls != 2 {
		t.Errorf("expected 2 mux calls, got %d", media.combineCalls)
	}
	if media.normalizeCalls != 2 {
		t.Errorf("expected 2 normalizations, got %d", media.normalizeCalls)
	}
}
