package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	retryDelay     = 500 * time.Millisecond

	replySystemPrompt = "You are a helpful AI teaching assistant. Provide clear, " +
		"educational responses, be encouraging, and break complex topics into " +
		"understandable parts."

	quizSystemPrompt = "You are an expert quiz generator. Create %d multiple choice " +
		"questions about %q at %s level. Respond with a JSON array only, each element " +
		`shaped as {"prompt": "...", "options": ["...", "..."], "correct_index": 0, ` +
		`"explanation": "..."}. correct_index is the zero-based position of the right ` +
		"option. Options must be plausible but only one correct."
)

// Client talks to an OpenAI-compatible chat completion endpoint and
// implements Gateway. One instance is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
}

func (c *Client) GenerateReply(ctx context.Context, history []Turn) (string, error) {
	messages := make([]Turn, 0, len(history)+1)
	messages = append(messages, Turn{Role: "system", Content: replySystemPrompt})
	messages = append(messages, history...)

	reply, err := c.complete(ctx, messages)
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("%w: empty reply", ErrUpstream)
	}
	return reply, nil
}

func (c *Client) GenerateQuiz(ctx context.Context, topic, difficulty string, count int) ([]GeneratedQuestion, error) {
	messages := []Turn{
		{Role: "system", Content: fmt.Sprintf(quizSystemPrompt, count, topic, difficulty)},
		{Role: "user", Content: fmt.Sprintf("Generate %d %s level multiple choice questions about: %s", count, difficulty, topic)},
	}

	raw, err := c.complete(ctx, messages)
	if err != nil {
		return nil, err
	}
	return parseQuestionSet(raw, count)
}

// complete runs the request with at most cfg.Retries extra attempts on
// transport-level failures. Well-formed rejections are returned immediately.
func (c *Client) complete(ctx context.Context, messages []Turn) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrUpstream, ctx.Err())
			case <-time.After(retryDelay):
			}
		}

		content, retryable, err := c.attempt(ctx, messages)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("%w: %v", ErrUpstream, lastErr)
}

func (c *Client) attempt(ctx context.Context, messages []Turn) (content string, retryable bool, err error) {
	reqBody := map[string]interface{}{
		"model":    c.cfg.Model,
		"messages": messages,
		"stream":   false,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", false, fmt.Errorf("marshal gateway request failed: %w", err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", false, fmt.Errorf("build gateway request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("read gateway response failed: %w", err)
	}
	if resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("gateway status %d: %s", resp.StatusCode, string(raw))
	}
	if resp.StatusCode >= 300 {
		return "", false, fmt.Errorf("gateway status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", false, fmt.Errorf("parse gateway json failed: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("empty gateway choices")
	}
	return parsed.Choices[0].Message.Content, false, nil
}

// parseQuestionSet extracts the JSON array from a completion (models often
// wrap it in prose) and validates every question against the contract.
func parseQuestionSet(raw string, count int) ([]GeneratedQuestion, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON array in reply", ErrMalformed)
	}

	var decoded []struct {
		Prompt       string   `json:"prompt"`
		Options      []string `json:"options"`
		CorrectIndex int      `json:"correct_index"`
		Explanation  string   `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(decoded) == 0 {
		return nil, fmt.Errorf("%w: empty question set", ErrMalformed)
	}

	questions := make([]GeneratedQuestion, 0, len(decoded))
	for i, q := range decoded {
		if strings.TrimSpace(q.Prompt) == "" {
			return nil, fmt.Errorf("%w: question %d has no prompt", ErrMalformed, i)
		}
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("%w: question %d has %d options", ErrMalformed, i, len(q.Options))
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return nil, fmt.Errorf("%w: question %d correct_index out of range", ErrMalformed, i)
		}
		questions = append(questions, GeneratedQuestion{
			Prompt:       strings.TrimSpace(q.Prompt),
			Options:      q.Options,
			CorrectIndex: q.CorrectIndex,
			Explanation:  strings.TrimSpace(q.Explanation),
		})
	}
	if count > 0 && len(questions) > count {
		questions = questions[:count]
	}
	return questions, nil
}
