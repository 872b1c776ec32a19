package describer

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

const maxDescriptionChars = 45

// Hosted asks a multimodal LLM for a child-friendly description of the photographed object.
type Hosted struct {
	analyzer ImageAnalyzer
	provider string
	language string
}

func NewHosted(analyzer ImageAnalyzer, provider, language string) *Hosted {
	if language == "" {
		language = "Japanese"
	}
	return &Hosted{analyzer: analyzer, provider: provider, language: language}
}

func (h *Hosted) Source() string {
	return SourceLLM
}

func (h *Hosted) Provider() string {
	return h.provider
}

func (h *Hosted) Describe(ctx context.Context, objectName, place string, image []byte) (string, error) {
	prompt := h.describePrompt(objectName, place)

	text, err := h.analyzer.AnalyzeImage(ctx, image, http.DetectContentType(image), prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	text = cleanAnswer(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty answer from %s", ErrGeneration, h.provider)
	}
	return text, nil
}

func (h *Hosted) describePrompt(objectName, place string) string {
	var sb strings.Builder
	sb.WriteString("You write entries for a photo encyclopedia app used by children.\n")
	if place != "" {
		fmt.Fprintf(&sb, "The photo was taken at: %s.\n", place)
	}
	if objectName != "" {
		fmt.Fprintf(&sb, "The main subject is: %s.\n", objectName)
	} else {
		sb.WriteString("Identify the main subject of the photo.\n")
	}
	fmt.Fprintf(&sb, "Write one gentle sentence in %s, at most %d characters, that includes a visual clue to help find it. ", h.language, maxDescriptionChars)
	sb.WriteString("Return only the sentence, no quotes, no Markdown.")
	return sb.String()
}

type suggestAnswer struct {
	Place        string       `json:"place"`
	Encyclopedia []Suggestion `json:"encyclopedia"`
}

func (h *Hosted) Suggest(ctx context.Context, place string, n int) ([]Suggestion, error) {
	if n <= 0 {
		n = 8
	}

	text, err := h.analyzer.GenerateText(ctx, h.suggestPrompt(place, n))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	suggestions, err := ParseSuggestions(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if len(suggestions) > n {
		suggestions = suggestions[:n]
	}
	return suggestions, nil
}

func (h *Hosted) suggestPrompt(place string, n int) string {
	return fmt.Sprintf(`You are a content editor for a "collect it with photos" encyclopedia app.
For the destination below, pick exactly %d representative things that really exist there and are easy to find and photograph.

Rules:
- prefer things children can find easily: prominent, permanent, signposted on site
- avoid limited-time exhibits and places where photography is often forbidden
- for a zoo, focus on popular animals that are easy to spot
- "name" is short (a proper noun)
- "text" is gentle, child-friendly %s with a visual clue, at most %d characters

Destination: %s

Return ONLY this JSON, no other text or Markdown:
{"place": "%s", "encyclopedia": [{"name": "...", "text": "..."}]}`, n, h.language, maxDescriptionChars, place, place)
}

// ParseSuggestions accepts the suggestion JSON, optionally wrapped in a Markdown code fence.
func ParseSuggestions(text string) ([]Suggestion, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var answer suggestAnswer
	if err := jsoniter.UnmarshalFromString(strings.TrimSpace(text), &answer); err != nil {
		return nil, fmt.Errorf("invalid suggestion JSON: %w", err)
	}

	out := make([]Suggestion, 0, len(answer.Encyclopedia))
	for _, s := range answer.Encyclopedia {
		s.Name = strings.TrimSpace(s.Name)
		s.Text = strings.TrimSpace(s.Text)
		if s.Name == "" {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no suggestions in answer")
	}
	return out, nil
}

func cleanAnswer(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)
	text = strings.Trim(text, "\"'「」`")
	return strings.TrimSpace(text)
}
