package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ScriptRequest is the payload for script generation.
type ScriptRequest struct {
	Topic           string `json:"topic"`
	Style           string `json:"style"`
	DurationMinutes int    `json:"duration_minutes"`
	Tone            string `json:"tone,omitempty"`
	IncludeIntro    bool   `json:"include_intro,omitempty"`
	IncludeOutro    bool   `json:"include_outro,omitempty"`
}

type ScriptResult struct {
	Script   string                 `json:"script"`
	Metadata map[string]interface{} `json:"metadata"`
}

// TTSRequest is the payload for speech synthesis.
type TTSRequest struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

type TTSResult struct {
	AudioURL string
	Duration float64
}

// ScriptGenerator produces a podcast script for a topic.
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, req ScriptRequest) (*ScriptResult, error)
}

// SpeechSynthesizer converts a script into hosted audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req TTSRequest) (*TTSResult, error)
}

// AIClient talks to the external AI service over HTTP. It implements both
// ScriptGenerator and SpeechSynthesizer.
type AIClient struct {
	baseURL string
	http    *http.Client
}

func NewAIClient(baseURL string) *AIClient {
	return &AIClient{
		baseURL: baseURL,
		// Script generation and synthesis are slow calls.
		http: &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *AIClient) postJSON(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach AI service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("AI service %s returned %d: %s", path, resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode AI service response: %w", err)
	}
	return nil
}

// GenerateScript calls POST {AI_SERVICE_URL}/script/generate.
func (c *AIClient) GenerateScript(ctx context.Context, req ScriptRequest) (*ScriptResult, error) {
	if req.DurationMinutes <= 0 {
		req.DurationMinutes = 5
	}
	var result ScriptResult
	if err := c.postJSON(ctx, "/script/generate", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type ttsResponse struct {
	Success   bool    `json:"success"`
	AudioFile string  `json:"audio_file"`
	AudioURL  string  `json:"audio_url"`
	Duration  float64 `json:"duration"`
	Error     string  `json:"error"`
}

// Synthesize calls POST {AI_SERVICE_URL}/tts/synthesize. A response without a
// success indicator is treated as failure.
func (c *AIClient) Synthesize(ctx context.Context, req TTSRequest) (*TTSResult, error) {
	if req.Voice == "" {
		req.Voice = "default"
	}
	if req.Speed <= 0 {
		req.Speed = 1.0
	}

	var resp ttsResponse
	if err := c.postJSON(ctx, "/tts/synthesize", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		if resp.Error != "" {
			return nil, fmt.Errorf("TTS generation failed: %s", resp.Error)
		}
		return nil, fmt.Errorf("TTS generation failed")
	}

	audioURL := resp.AudioFile
	if audioURL == "" {
		audioURL = resp.AudioURL
	}
	return &TTSResult{AudioURL: audioURL, Duration: resp.Duration}, nil
}
