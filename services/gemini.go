package services

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiScriptGenerator generates scripts directly with Gemini. Used when no
// external AI service is configured.
type GeminiScriptGenerator struct {
	Model string
}

func NewGeminiScriptGenerator() *GeminiScriptGenerator {
	return &GeminiScriptGenerator{Model: "gemini-2.0-flash"}
}

func (g *GeminiScriptGenerator) GenerateScript(ctx context.Context, req ScriptRequest) (*ScriptResult, error) {
	if req.DurationMinutes <= 0 {
		req.DurationMinutes = 5
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(os.Getenv("GEMINI_API_KEY")))
	if err != nil {
		return nil, fmt.Errorf("cannot create Gemini client: %w", err)
	}
	defer client.Close()

	prompt := fmt.Sprintf(
		"Write a podcast script about %q in a %s style, suitable for roughly %d minutes of narration. "+
			"Include a short intro and outro. Return only the spoken script text.",
		req.Topic, req.Style, req.DurationMinutes,
	)

	model := client.GenerativeModel(g.Model)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no usable candidates")
	}

	script := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	return &ScriptResult{
		Script: script,
		Metadata: map[string]interface{}{
			"provider": "gemini",
			"model":    g.Model,
		},
	}, nil
}
