package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Output / rendering constants — every clip is normalized to HD landscape at
// 30fps before concatenation, since the two renderers produce different
// native resolutions and frame rates.
const (
	targetWidth  = 1920
	targetHeight = 1080
	videoFPS     = 30

	// PlaceholderSeconds is the fixed duration of the blank clip substituted
	// when a renderer fails.
	PlaceholderSeconds = 5
)

// ---------------------------------------------------------------------------
// FFmpegService
// ---------------------------------------------------------------------------

type FFmpegService struct {
	workDir string
}

func NewFFmpegService(workDir string) *FFmpegService {
	// Create work directory if it doesn't exist
	if err := os.MkdirAll(workDir, 0755); err != nil {
		panic(fmt.Sprintf("failed to create work dir: %v", err))
	}

	return &FFmpegService{
		workDir: workDir,
	}
}

// CreatePlaceholder writes a fixed-duration black video to outputPath.
// Substituted whenever a renderer fails so the shot list keeps its 1:1 shape.
func (s *FFmpegService) CreatePlaceholder(ctx context.Context, outputPath string) error {
	args := []string{
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=black:size=%dx%d:duration=%d", targetWidth, targetHeight, PlaceholderSeconds),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(videoFPS),
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg placeholder failed: %w", err)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Container inspection
// ---------------------------------------------------------------------------

// MediaInfo is the subset of ffprobe's JSON output the pipeline cares about.
type MediaInfo struct {
	Streams []MediaStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type MediaStream struct {
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	RFrameRate string `json:"r_frame_rate"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// HasVideoStream reports whether the container carries at least one video stream.
func (m *MediaInfo) HasVideoStream() bool {
	for _, s := range m.Streams {
		if s.CodecType == "video" {
			return true
		}
	}
	return false
}

// HasAudioStream reports whether the container carries at least one audio stream.
func (m *MediaInfo) HasAudioStream() bool {
	for _, s := range m.Streams {
		if s.CodecType == "audio" {
			return true
		}
	}
	return false
}

// DurationSeconds returns the container-level duration, 0 when unknown.
func (m *MediaInfo) DurationSeconds() float64 {
	d, err := strconv.ParseFloat(strings.TrimSpace(m.Format.Duration), 64)
	if err != nil {
		return 0
	}
	return d
}

// Probe inspects a media file's container metadata via ffprobe.
func (s *FFmpegService) Probe(ctx context.Context, path string) (*MediaInfo, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	var info MediaInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	return &info, nil
}

// Duration returns a media file's duration in seconds using ffprobe.
func (s *FFmpegService) Duration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration failed: %w", err)
	}

	var durationSec float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &durationSec); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return durationSec, nil
}

// DecodeFirstFrame attempts to decode one frame from the clip. The assembler
// drops clips whose first frame cannot be decoded.
func (s *FFmpegService) DecodeFirstFrame(ctx context.Context, path string) error {
	args := []string{
		"-v", "error",
		"-i", path,
		"-frames:v", "1",
		"-f", "null",
		"-",
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("first frame of %s is not decodable: %w", path, err)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Combining narration with video
// ---------------------------------------------------------------------------

// freezeExtension decides whether the video must be extended with a frozen
// last frame to fit the narration, and by how many seconds. A small buffer is
// added so rounding in the audio duration never truncates the final word.
func freezeExtension(videoSec, audioSec float64) (float64, bool) {
	if audioSec <= videoSec {
		return 0, false
	}
	return audioSec - videoSec + 0.1, true
}

// Combine attaches the audio track to the video and writes the result to
// outputPath. When the audio outlasts the video, the video's last frame is
// held for the remainder so narration is never truncated. Any failure —
// missing input, probe error, encode error — degrades to the original video
// path so the caller proceeds with a silent clip.
func (s *FFmpegService) Combine(ctx context.Context, videoPath, audioPath, outputPath string) string {
	if _, err := os.Stat(videoPath); err != nil {
		log.Printf("[FFmpeg] Combine: video missing at %s, keeping original", videoPath)
		return videoPath
	}
	if _, err := os.Stat(audioPath); err != nil {
		log.Printf("[FFmpeg] Combine: audio missing at %s, keeping silent video", audioPath)
		return videoPath
	}

	videoSec, err := s.Duration(ctx, videoPath)
	if err != nil {
		log.Printf("[FFmpeg] Combine: could not probe video duration, keeping silent video: %v", err)
		return videoPath
	}
	audioSec, err := s.Duration(ctx, audioPath)
	if err != nil {
		log.Printf("[FFmpeg] Combine: could not probe audio duration, keeping silent video: %v", err)
		return videoPath
	}

	var args []string
	if pad, needed := freezeExtension(videoSec, audioSec); needed {
		// Narration outlasts the video: clone the last frame for the gap,
		// then end when the audio ends.
		log.Printf("[FFmpeg] Audio is %.2fs longer than video — freezing last frame", audioSec-videoSec)
		filter := fmt.Sprintf("[0:v]tpad=stop_mode=clone:stop_duration=%.2f[v]", pad)
		args = []string{
			"-i", videoPath,
			"-i", audioPath,
			"-filter_complex", filter,
			"-map", "[v]",
			"-map", "1:a",
			"-c:v", "libx264",
			"-c:a", "aac",
			"-pix_fmt", "yuv420p",
			"-shortest",
			"-y",
			outputPath,
		}
	} else {
		// Audio fits inside the video: attach as-is, it simply ends early.
		args = []string{
			"-i", videoPath,
			"-i", audioPath,
			"-map", "0:v",
			"-map", "1:a",
			"-c:v", "libx264",
			"-c:a", "aac",
			"-pix_fmt", "yuv420p",
			"-y",
			outputPath,
		}
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		log.Printf("[FFmpeg] Combine failed, keeping silent video: %v", err)
		return videoPath
	}

	return outputPath
}

// ---------------------------------------------------------------------------
// Normalization and concatenation
// ---------------------------------------------------------------------------

// Reencode rewrites a clip to the canonical codec/pixel-format/frame-rate
// without changing its resolution. Used to sanitize downloaded Veo assets.
func (s *FFmpegService) Reencode(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-i", inputPath,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(videoFPS),
		"-movflags", "+faststart",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg re-encode failed: %w", err)
	}

	return nil
}

// Normalize rescales a clip to the target resolution and frame rate so every
// clip entering concatenation shares one format. Aspect is preserved with
// padding rather than stretching. Clips without an audio track (placeholders,
// silent renders) get a synthesized silent track: the concat demuxer requires
// every segment to carry the same stream layout, and narrated clips arrive
// with audio while silent ones do not.
func (s *FFmpegService) Normalize(ctx context.Context, inputPath, outputPath string) error {
	info, err := s.Probe(ctx, inputPath)
	if err != nil {
		return fmt.Errorf("failed to probe clip before normalize: %w", err)
	}

	args := normalizeArgs(inputPath, outputPath, info.HasAudioStream())

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg normalize failed: %w", err)
	}

	return nil
}

// normalizeArgs builds the ffmpeg invocation for Normalize. Audio is always
// re-encoded to one codec/rate/channel layout so stream-copy concatenation is
// valid across clips from different sources; silent inputs get an anullsrc
// track bounded by -shortest.
func normalizeArgs(inputPath, outputPath string, hasAudio bool) []string {
	vf := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,fps=%d",
		targetWidth, targetHeight, targetWidth, targetHeight, videoFPS,
	)

	args := []string{"-i", inputPath}
	audioMap := "0:a:0"
	if !hasAudio {
		args = append(args, "-f", "lavfi", "-i", "anullsrc=channel_layout=stereo:sample_rate=44100")
		audioMap = "1:a:0"
	}

	args = append(args,
		"-map", "0:v:0",
		"-map", audioMap,
		"-vf", vf,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-ar", "44100",
		"-ac", "2",
		"-pix_fmt", "yuv420p",
	)
	if !hasAudio {
		// anullsrc is infinite; end the silent track with the video.
		args = append(args, "-shortest")
	}

	args = append(args, "-y", outputPath)
	return args
}

// Concat joins normalized clips in order into one file. No cross-fades — a
// direct stream join via the concat demuxer.
func (s *FFmpegService) Concat(ctx context.Context, clipPaths []string, outputPath string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}

	// Create a concat list file. Unique per call so concurrent assemblies
	// don't clobber each other's lists.
	f, err := os.CreateTemp(s.workDir, "concat_*.txt")
	if err != nil {
		return fmt.Errorf("failed to create concat list: %w", err)
	}
	listPath := f.Name()

	for _, path := range clipPaths {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		// Write in FFmpeg concat format
		fmt.Fprintf(f, "file '%s'\n", abs)
	}
	f.Close()
	defer os.Remove(listPath)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy", // Inputs were normalized upstream, no re-encoding needed
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg concatenate failed: %w", err)
	}

	return nil
}

// CreateTempFile returns a path for a temporary file in the service's work directory
func (s *FFmpegService) CreateTempFile(filename string) string {
	return filepath.Join(s.workDir, filename)
}

// Cleanup removes temporary files
func (s *FFmpegService) Cleanup(paths ...string) {
	for _, path := range paths {
		os.Remove(path)
	}
}
