package ai

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUpstream marks gateway failures after retry exhaustion; callers may
	// surface it as retryable.
	ErrUpstream = errors.New("ai gateway request failed")
	// ErrMalformed marks a well-formed upstream reply whose question set does
	// not satisfy the generation contract. Not retried.
	ErrMalformed = errors.New("generated question set is malformed")
)

// Turn is one entry of a chat transcript handed to the responder.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GeneratedQuestion is the structured output of the question generator.
// CorrectIndex is always within range of Options and Options has at least
// two entries; Client validates before returning.
type GeneratedQuestion struct {
	Prompt       string
	Options      []string
	CorrectIndex int
	Explanation  string
}

// Gateway is the boundary to the external responder/generator. Both calls
// block for at most the configured timeout plus one retry.
type Gateway interface {
	GenerateReply(ctx context.Context, history []Turn) (string, error)
	GenerateQuiz(ctx context.Context, topic, difficulty string, count int) ([]GeneratedQuestion, error)
}

// Config is passed at construction time; there is no mutable process-wide
// default model.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// Retries is the number of extra attempts after the first failure on
	// transport-level errors. Rejections (4xx) are never retried.
	Retries int
}
