package services

import "testing"

func TestPlaceholderName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ordinal clip name", "clip_001", "placeholder_001.mp4"},
		{"first ordinal", "clip_000", "placeholder_000.mp4"},
		{"name without clip prefix", "intro", "placeholder_intro.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := placeholderName(tt.in); got != tt.want {
				t.Errorf("placeholderName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
