package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

type IChatGPT interface {
	AnalyzeImage(ctx context.Context, image []byte, mimeType string, prompt string) (string, error)
	GenerateText(ctx context.Context, prompt string) (string, error)
	Close()
}

type chatGPTService struct {
	client    *openai.Client
	model     string
	maxTokens int
}

func NewChatGPT(apiKey, model string) (IChatGPT, error) {
	if apiKey == "" {
		return nil, errors.New("openai API key is required")
	}

	if model == "" {
		model = openai.GPT4oMini
	}

	return &chatGPTService{
		client:    openai.NewClient(apiKey),
		model:     model,
		maxTokens: 500,
	}, nil
}

// AnalyzeImage sends the prompt and the image as a data URI in a single user message.
func (c *chatGPTService) AnalyzeImage(ctx context.Context, image []byte, mimeType string, prompt string) (string, error) {
	if len(image) == 0 {
		return "", errors.New("empty image data")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	dataURI := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role: openai.ChatMessageRoleUser,
					MultiContent: []openai.ChatMessagePart{
						{Type: openai.ChatMessagePartTypeText, Text: prompt},
						{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURI,
							Detail: openai.ImageURLDetailLow,
						}},
					},
				},
			},
			MaxTokens: c.maxTokens,
		},
	)
	if err != nil {
		return "", fmt.Errorf("ChatGPT API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from ChatGPT")
	}

	return resp.Choices[0].Message.Content, nil
}

func (c *chatGPTService) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "You return ONLY valid JSON, nothing else.",
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Temperature: 0.3,
			MaxTokens:   c.maxTokens * 2,
		},
	)
	if err != nil {
		return "", fmt.Errorf("ChatGPT API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from ChatGPT")
	}

	return resp.Choices[0].Message.Content, nil
}

func (c *chatGPTService) Close() {}
