package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ---------------------------------------------------------------------------
// LMNT Text-to-Speech Service
// Uses the LMNT REST API to convert narration text into speech audio.
// The response body is the raw audio file.
// ---------------------------------------------------------------------------

const (
	lmntBaseURL      = "https://api.lmnt.com"
	lmntDefaultVoice = "morgan"
	lmntFormat       = "wav"
	lmntSampleRate   = 24000
)

// LMNTService handles text-to-speech via the LMNT API.
type LMNTService struct {
	apiKey  string
	voiceID string
	client  *http.Client
}

// Ensure LMNTService implements TTSService at compile time.
var _ TTSService = (*LMNTService)(nil)

// NewLMNTService creates an LMNT TTS service. voiceID falls back to the
// default voice when empty.
func NewLMNTService(apiKey, voiceID string) *LMNTService {
	if voiceID == "" {
		voiceID = lmntDefaultVoice
	}
	return &LMNTService{
		apiKey:  apiKey,
		voiceID: voiceID,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type lmntRequest struct {
	Text       string `json:"text"`
	Voice      string `json:"voice"`
	Format     string `json:"format"`
	SampleRate int    `json:"sample_rate"`
}

// Synthesize converts text to speech using LMNT.
// Implements the TTSService interface.
func (s *LMNTService) Synthesize(ctx context.Context, text string) (*TTSResponse, error) {
	reqBody := lmntRequest{
		Text:       text,
		Voice:      s.voiceID,
		Format:     lmntFormat,
		SampleRate: lmntSampleRate,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal LMNT request: %w", err)
	}

	url := lmntBaseURL + "/v1/ai/speech/bytes"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create LMNT request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", s.apiKey)

	log.Printf("[LMNT] Generating speech (voice=%s, textLen=%d)", s.voiceID, len(text))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("LMNT request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("LMNT returned status %d: %s", resp.StatusCode, string(body))
	}

	// Read audio data — the response body IS the audio file
	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read LMNT audio response: %w", err)
	}

	if len(audioData) == 0 {
		return nil, fmt.Errorf("LMNT returned empty audio")
	}

	log.Printf("[LMNT] Speech generated (%d bytes)", len(audioData))

	return &TTSResponse{
		AudioData: audioData,
		Format:    lmntFormat,
	}, nil
}
