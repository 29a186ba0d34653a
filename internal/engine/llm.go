package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrLLMDisabled is returned when no LLM client is configured.
var ErrLLMDisabled = errors.New("llm summaries disabled")

// complete is swapped in tests.
var complete = func(ctx context.Context, prompt string) (string, error) {
	if cfg.LLMClient == nil {
		return "", ErrLLMDisabled
	}
	return cfg.LLMClient.Complete(ctx, "", prompt)
}

// LLMEnabled reports whether transcript summaries can be produced.
func LLMEnabled() bool {
	return cfg.LLMClient != nil
}

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// CallLLM sends a prompt and returns the trimmed response text.
func CallLLM(ctx context.Context, prompt string) (string, error) {
	metrics.LLMCalls.Add(1)
	resp, err := complete(ctx, prompt)
	if err != nil {
		metrics.LLMErrors.Add(1)
		return "", err
	}
	return stripFences(resp), nil
}

// Summarize produces a short digest of a transcript. The transcript is cut at a
// word boundary to MaxContentChars before it is sent.
func Summarize(ctx context.Context, transcript string) (string, error) {
	transcript = CollapseSpace(transcript)
	if transcript == "" {
		return "", errors.New("summarize: empty transcript")
	}
	if limit := cfg.MaxContentChars; limit > 0 {
		transcript = TruncateAtWord(transcript, limit)
	}
	out, err := CallLLM(ctx, fmt.Sprintf(summaryPrompt, transcript))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	if out == "" {
		return "", errors.New("summarize: empty response")
	}
	return out, nil
}
