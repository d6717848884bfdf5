package services

import (
	"encoding/json"
	"testing"
)

func TestFreezeExtension(t *testing.T) {
	tests := []struct {
		name     string
		videoSec float64
		audioSec float64
		want     bool
		wantPad  float64
	}{
		{"audio shorter", 5.0, 3.0, false, 0},
		{"equal durations", 5.0, 5.0, false, 0},
		{"audio longer", 2.0, 7.5, true, 5.6},
		{"barely longer", 5.0, 5.01, true, 0.11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pad, needed := freezeExtension(tt.videoSec, tt.audioSec)
			if needed != tt.want {
				t.Fatalf("freezeExtension(%v, %v) needed = %v, want %v", tt.videoSec, tt.audioSec, needed, tt.want)
			}
			if needed && (pad < tt.wantPad-0.001 || pad > tt.wantPad+0.001) {
				t.Errorf("pad = %v, want %v", pad, tt.wantPad)
			}
		})
	}
}

func TestMediaInfoHasVideoStream(t *testing.T) {
	raw := `{
		"streams": [
			{"codec_type": "audio", "duration": "4.8"},
			{"codec_type": "video", "duration": "5.0", "width": 1280, "height": 720, "r_frame_rate": "24/1"}
		],
		"format": {"duration": "5.0"}
	}`

	var info MediaInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		t.Fatalf("failed to parse probe output: %v", err)
	}

	if !info.HasVideoStream() {
		t.Error("expected a video stream")
	}
	if !info.HasAudioStream() {
		t.Error("expected an audio stream")
	}
	if d := info.DurationSeconds(); d != 5.0 {
		t.Errorf("duration = %v, want 5.0", d)
	}
}

func TestNormalizeArgsUniformStreamLayout(t *testing.T) {
	contains := func(args []string, want string) bool {
		for _, a := range args {
			if a == want {
				return true
			}
		}
		return false
	}

	silent := normalizeArgs("placeholder_001.mp4", "normalized_001.mp4", false)
	narrated := normalizeArgs("final_clip_000.mp4", "normalized_000.mp4", true)

	// A silent clip gets a synthesized track so it can sit next to narrated
	// clips in the concat list.
	if !contains(silent, "anullsrc=channel_layout=stereo:sample_rate=44100") {
		t.Error("silent clip should get a synthesized audio track")
	}
	if !contains(silent, "-shortest") {
		t.Error("synthesized track must be bounded by the video duration")
	}
	if !contains(silent, "1:a:0") {
		t.Error("silent clip should map audio from the lavfi input")
	}

	// A narrated clip keeps its own audio and gets no second input.
	if contains(narrated, "anullsrc=channel_layout=stereo:sample_rate=44100") {
		t.Error("narrated clip should not get a synthesized track")
	}
	if !contains(narrated, "0:a:0") {
		t.Error("narrated clip should map its own audio stream")
	}

	// Both layouts re-encode audio to one codec/rate/channel setup.
	for name, args := range map[string][]string{"silent": silent, "narrated": narrated} {
		for _, want := range []string{"aac", "44100", "-ac", "libx264"} {
			if !contains(args, want) {
				t.Errorf("%s args missing %q: %v", name, want, args)
			}
		}
	}
}

func TestMediaInfoAudioOnly(t *testing.T) {
	raw := `{"streams": [{"codec_type": "audio"}], "format": {"duration": "bogus"}}`

	var info MediaInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		t.Fatalf("failed to parse probe output: %v", err)
	}

	if info.HasVideoStream() {
		t.Error("audio-only container should not report a video stream")
	}
	if !info.HasAudioStream() {
		t.Error("audio-only container should report its audio stream")
	}
	if d := info.DurationSeconds(); d != 0 {
		t.Errorf("unparseable duration should be 0, got %v", d)
	}
}
