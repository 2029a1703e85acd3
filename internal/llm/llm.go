package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/proctor/internal/llm/prompts"
	"github.com/pavelanni/proctor/internal/model"
)

// FallbackFeedback is returned in place of grader output whenever the
// external grading call fails for any reason.
const FallbackFeedback = "AI grading unavailable"

// Client wraps an OpenAI-compatible API client used for subjective grading.
// Groq and local inference servers work through the base URL override.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.PromptVariant
}

// New creates a new grading client with the given prompt variant.
func New(baseURL, apiKey, modelName, variant string) (*Client, error) {
	if err := prompts.Load(); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		variant: prompts.PromptVariant(variant),
	}, nil
}

// Ping verifies the grading endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

type gradePayload struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// Grade scores one subjective answer against its question's model answer.
// It never fails: any collaborator error degrades to a zero score with
// FallbackFeedback so one bad grade cannot abort a whole submission.
func (c *Client) Grade(ctx context.Context, q model.Question, studentAnswer string) (int, string) {
	score, feedback, err := c.grade(ctx, q, studentAnswer)
	if err != nil {
		slog.Error("subjective grading failed", "question_id", q.ID, "error", err)
		return 0, FallbackFeedback
	}
	return score, feedback
}

func (c *Client) grade(ctx context.Context, q model.Question, studentAnswer string) (int, string, error) {
	prompt, err := prompts.Build(c.variant, q, studentAnswer)
	if err != nil {
		return 0, "", fmt.Errorf("build prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.4,
		MaxTokens:   200,
	})
	if err != nil {
		return 0, "", fmt.Errorf("LLM grading API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, "", fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM grading response", "question_id", q.ID, "raw", raw)

	var payload gradePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return 0, "", fmt.Errorf("parse grading response: %w (raw: %s)", err, raw)
	}

	feedback := payload.Feedback
	if feedback == "" {
		feedback = FallbackFeedback
	}
	return ClampScore(int(payload.Score), q.Marks), feedback, nil
}

// ClampScore bounds a grader score to [0, maxMarks]. A question authored with
// zero marks can never contribute score.
func ClampScore(score, maxMarks int) int {
	if score < 0 {
		return 0
	}
	if score > maxMarks {
		return maxMarks
	}
	return score
}
