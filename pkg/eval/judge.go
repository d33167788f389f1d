package eval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	judgeDefaultBaseURL = "https://api.openai.com/v1"
	judgeDefaultModel   = "gpt-4o-mini"
	judgeDefaultTimeout = 30 * time.Second
)

const judgeSystemPrompt = `You are an impartial grader. Given a question, a reference answer and a candidate answer, score how correct the candidate answer is on a scale from 0.0 to 1.0. Respond with a JSON object of the form {"score": <number>, "reason": "<one sentence>"} and nothing else.`

// Judge scores answers by calling an OpenAI-compatible chat completions
// endpoint. Errors from the judge are infrastructure errors, never scoring
// failures.
type Judge struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// JudgeConfig configures the remote judge.
type JudgeConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewJudge creates a Judge. Returns an error when no API key is set.
func NewJudge(cfg JudgeConfig) (*Judge, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("judge api key is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = judgeDefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = judgeDefaultModel
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: judgeDefaultTimeout}
	}
	return &Judge{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		model:   model,
		baseURL: baseURL,
		client:  client,
	}, nil
}

type judgeChatRequest struct {
	Model          string         `json:"model"`
	Messages       []judgeMessage `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat *judgeFormat   `json:"response_format,omitempty"`
}

type judgeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type judgeFormat struct {
	Type string `json:"type"`
}

type judgeChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type judgeVerdict struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// Score grades actual against expected for the given input. The returned
// score is clamped to [0, 1].
func (j *Judge) Score(ctx context.Context, input, expected, actual string) (float64, string, error) {
	user := fmt.Sprintf("Question:\n%s\n\nReference answer:\n%s\n\nCandidate answer:\n%s", input, expected, actual)

	payload := judgeChatRequest{
		Model: j.model,
		Messages: []judgeMessage{
			{Role: "system", Content: judgeSystemPrompt},
			{Role: "user", Content: user},
		},
		ResponseFormat: &judgeFormat{Type: "json_object"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, "", fmt.Errorf("judge: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("judge: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+j.apiKey)

	resp, err := j.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("judge: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, "", fmt.Errorf("judge: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, "", fmt.Errorf("judge: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var chat judgeChatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return 0, "", fmt.Errorf("judge: decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return 0, "", errors.New("judge: empty response")
	}

	var verdict judgeVerdict
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &verdict); err != nil {
		return 0, "", fmt.Errorf("judge: decode verdict: %w", err)
	}

	score := verdict.Score
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}
	return score, verdict.Reason, nil
}
