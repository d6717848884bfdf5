package services

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// ---------------------------------------------------------------------------
// Interactive tutorial generation
// Turns a paper's text into a single self-contained interactive HTML page via
// the LLM. The model is asked for a complete file; the extractor tolerates
// code fences and surrounding prose.
// ---------------------------------------------------------------------------

// tutorialMaxPaperLen caps how much paper text is sent to the model.
const tutorialMaxPaperLen = 15000

const tutorialPrompt = `I need you to create an interactive HTML page that breaks down this research paper step by step.

Paper content:
%s

Please create a comprehensive, interactive HTML page that includes:

1. **Clean, minimalistic design** with a white background and mostly black text with tasteful accent colors
2. **Step-by-step breakdown** of the paper's key concepts
3. **Interactive demonstrations** where possible (visualizations, simulations, etc.)
4. **Key insights highlighted** in special boxes
5. **Architecture diagrams** if the paper describes models/systems
6. **Results and metrics** presented clearly
7. **Technical innovations** explained with examples

Requirements:
- Make it educational and engaging
- Include interactive elements where they make sense
- Break down complex concepts into digestible sections
- Use modern web technologies (HTML5, CSS3, vanilla JavaScript)
- Make it responsive for mobile devices
- Include hover effects and smooth animations
- Focus on visual learning and interactivity

The page should help someone understand the paper's core contributions, methodology, and significance through interactive exploration rather than just reading dense text.

In addition, the page should have an element users can interact with. And all graphics should be Scalable Vector Graphics.

Please create a complete, self-contained HTML file that I can save and open in a browser.`

// TutorialService generates interactive HTML tutorials from paper text.
type TutorialService struct {
	llm textCompleter
}

func NewTutorialService(llm textCompleter) *TutorialService {
	return &TutorialService{llm: llm}
}

// GenerateHTML produces a self-contained HTML page for the paper.
func (s *TutorialService) GenerateHTML(ctx context.Context, paperText string) (string, error) {
	if len(paperText) > tutorialMaxPaperLen {
		paperText = paperText[:tutorialMaxPaperLen]
	}

	response, err := s.llm.Chat(ctx, fmt.Sprintf(tutorialPrompt, paperText))
	if err != nil {
		return "", fmt.Errorf("tutorial generation failed: %w", err)
	}

	html := extractHTMLContent(response)
	if html == "" {
		return "", fmt.Errorf("tutorial response contained no HTML")
	}

	log.Printf("[Tutorial] Generated HTML page (%d bytes)", len(html))

	return html, nil
}

// extractHTMLContent pulls the HTML document out of a model response that may
// wrap it in code fences or prose. When no marker is found, the whole
// response is returned as-is.
func extractHTMLContent(raw string) string {
	startMarkers := []string{"```html", "<!DOCTYPE html", "<html"}
	endMarkers := []string{"```", "</html>"}

	content := raw
	for _, start := range startMarkers {
		idx := strings.Index(raw, start)
		if idx < 0 {
			continue
		}
		if start == "```html" {
			idx += len(start)
		}

		remaining := raw[idx:]
		content = remaining
		for _, end := range endMarkers {
			endIdx := strings.Index(remaining, end)
			if endIdx < 0 {
				continue
			}
			if end == "</html>" {
				endIdx += len(end)
			}
			content = remaining[:endIdx]
			break
		}
		break
	}

	return strings.TrimSpace(content)
}
