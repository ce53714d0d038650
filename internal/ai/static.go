package ai

import (
	"context"
	"fmt"
)

// StaticGateway returns deterministic canned content. It serves tests and
// deployments without a configured provider, mirroring the platform's
// behavior when the model backend is unreachable.
type StaticGateway struct{}

var _ Gateway = StaticGateway{}

func (StaticGateway) GenerateReply(_ context.Context, history []Turn) (string, error) {
	last := ""
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "user" {
			last = history[i].Content
			break
		}
	}
	if last == "" {
		return "Hello! Ask me anything you want to study.", nil
	}
	return "Let's work through that step by step: " + last, nil
}

func (StaticGateway) GenerateQuiz(_ context.Context, topic, _ string, count int) ([]GeneratedQuestion, error) {
	if count < 1 {
		count = 1
	}
	options := []string{
		"It requires foundational knowledge",
		"It can be learned in one sitting",
		"It has no practical applications",
		"It is purely theoretical",
	}
	questions := make([]GeneratedQuestion, count)
	for i := range questions {
		questions[i] = GeneratedQuestion{
			Prompt:       fmt.Sprintf("Question %d: which statement about %s is accurate?", i+1, topic),
			Options:      options,
			CorrectIndex: i % len(options),
			Explanation:  "Foundational concepts underpin every part of " + topic + ".",
		}
	}
	return questions, nil
}
