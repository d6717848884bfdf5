package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/bobarin/papervid/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

// ---------------------------------------------------------------------------
// Shot-list planner
// Asks the LLM to turn a paper into an ordered shot list of manim/veo clips
// with voice-over lines. The model is told to return bare JSON, but the
// parser tolerates prose-wrapped output by brace-matching the first
// well-formed object.
// ---------------------------------------------------------------------------

type OpenAIService struct {
	client *openai.Client
	model  string
}

func NewOpenAIService(apiKey, model string) *OpenAIService {
	return &OpenAIService{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

const shotListSystemPrompt = `Imagine you are 3Blue1Brown himself, an incredible teacher and instructor.
From this paper generate a json object for an educational video that is a list of clips. A clip is either of type "manim", which has code to generate a clip with manim, or of type "veo", with a prompt for a text-to-video model which will generate a clip of about 5 seconds — this prompt is simply a description of what you would like to see in the clip. For all clips write a voice over piece.
Come up with good explanations, interesting analogies and really good but deep explanations. Never dumb this down; keep it technical and treat your audience like grownups. You are an artist and teaching is your craft, treat it with the respect it deserves.
Use veo quite sparingly — it sometimes generates janky, unclean videos. Write manim code that is clean and well formatted; don't write broken code, and be careful not to put text or other objects on top of each other.
Return only the json object of this schema, no other text, no code fences:
{
    "clips": [
        {
            "type": "manim" | "veo",
            "code": "string" | null,
            "prompt": "string" | null,
            "voice_over": "string"
        }
    ]
}`

// GenerateShotList produces the ordered clip plan for a paper.
// paperText is the extracted plain text of the PDF.
func (s *OpenAIService) GenerateShotList(ctx context.Context, paperText string) (*models.ShotList, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: shotListSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: paperText,
			},
		},
		Temperature: 1.0,
	})

	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}

	rawContent := resp.Choices[0].Message.Content
	const maxLogLen = 2000

	list, err := parseShotList(rawContent)
	if err != nil {
		log.Printf("[Planner] parse failed: %v", err)
		log.Printf("[Planner] raw response: %s", truncateString(rawContent, maxLogLen))
		return nil, fmt.Errorf("failed to parse shot list: %w", err)
	}

	if len(list.Clips) == 0 {
		log.Printf("[Planner] raw response: %s", truncateString(rawContent, maxLogLen))
		return nil, fmt.Errorf("shot list has no clips")
	}

	log.Printf("[Planner] shot list generated: %d clips", len(list.Clips))

	return list, nil
}

// Chat runs a single-turn completion and returns the text. Used by the GitHub
// extraction feature for link finding and README simplification.
func (s *OpenAIService) Chat(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}
	return resp.Choices[0].Message.Content, nil
}

// parseShotList unmarshals the model output, falling back to brace-matched
// extraction when the JSON is wrapped in extraneous text.
func parseShotList(raw string) (*models.ShotList, error) {
	var list models.ShotList
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return &list, nil
	}

	embedded, err := extractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(embedded), &list); err != nil {
		return nil, fmt.Errorf("embedded object is not a shot list: %w", err)
	}

	return &list, nil
}

// extractJSONObject returns the first balanced top-level JSON object in s.
// Braces inside string literals (and escaped quotes inside those) are ignored.
func extractJSONObject(s string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("no balanced JSON object found")
}
