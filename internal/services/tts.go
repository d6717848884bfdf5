package services

import "context"

// ---------------------------------------------------------------------------
// TTSService — common interface for text-to-speech providers
// Narration is best-effort in the clip pipeline: a provider error leaves the
// clip silent, it never fails the clip.
// ---------------------------------------------------------------------------

// TTSResponse is the common response type from any TTS provider.
type TTSResponse struct {
	AudioData []byte
	Format    string // "wav", "mp3", etc.
}

// TTSService is the interface that any TTS provider must implement.
type TTSService interface {
	// Synthesize converts text to audio using the provider's default voice
	// and settings.
	Synthesize(ctx context.Context, text string) (*TTSResponse, error)
}
