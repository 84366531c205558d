package llmutil

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/feedsift/feedsift/internal/llm"
)

type ResponseDecoder func(content string) error

func ModelOrDefault(model, defaultModel string) string {
	if model != "" {
		return model
	}
	return defaultModel
}

// StripMarkdownFences removes a surrounding ```json ... ``` (or bare ```)
// code fence. Chat models frequently wrap JSON payloads in one even when
// asked not to.
func StripMarkdownFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		// drop the language tag on the opening fence line
		first := strings.TrimSpace(trimmed[:idx])
		if first == "" || !strings.ContainsAny(first, " \t{[") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// JSONDecoder returns a decoder that strips markdown fences and unmarshals
// the remainder into v.
func JSONDecoder(v any) ResponseDecoder {
	return func(content string) error {
		return json.Unmarshal([]byte(StripMarkdownFences(content)), v)
	}
}

func ChatCompletionWithRetries(
	ctx context.Context,
	client llm.Client,
	model string,
	messages []llm.Message,
	decodeRetries int,
	decode ResponseDecoder,
	temperature *float64,
) (llm.ChatResponse, error) {
	attempts := decodeRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastResp llm.ChatResponse
	var lastDecodeErr error
	for attempt := 0; attempt < attempts; attempt++ {
		resp, err := client.ChatCompletion(ctx, llm.ChatRequest{
			Model:       model,
			Messages:    messages,
			Temperature: temperature,
		})
		if err != nil {
			return llm.ChatResponse{}, err
		}
		lastResp = resp
		if decode == nil {
			return resp, nil
		}
		if err := decode(resp.Content); err != nil {
			lastDecodeErr = err
			continue
		}
		return resp, nil
	}

	return lastResp, fmt.Errorf("decode response after %d attempt(s): %w; content=%q", attempts, lastDecodeErr, lastResp.Content)
}

// ChatSystemUserWithRetries retries the request when decode fails. The prompt
// is not modified between attempts. A nil decode behaves as a single attempt.
func ChatSystemUserWithRetries(
	ctx context.Context,
	client llm.Client,
	model, systemPrompt, userPrompt string,
	decodeRetries int,
	decode ResponseDecoder,
	temperature *float64,
) (llm.ChatResponse, error) {
	return ChatCompletionWithRetries(ctx, client, model, []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: userPrompt},
	}, decodeRetries, decode, temperature)
}
