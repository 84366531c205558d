package llmutil_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/feedsift/feedsift/internal/llm"
	"github.com/feedsift/feedsift/internal/llm/mock"
	"github.com/feedsift/feedsift/internal/llmutil"
)

func TestStripMarkdownFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced json", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := llmutil.StripMarkdownFences(tc.in)
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
			var parsed map[string]int
			if err := json.Unmarshal([]byte(got), &parsed); err != nil {
				t.Fatalf("stripped content is not valid JSON: %v", err)
			}
		})
	}
}

func TestChatWithRetriesRecoversFromBadJSON(t *testing.T) {
	client := &mock.Client{
		Responses: []llm.ChatResponse{
			{Content: "sorry, here is the data:"},
			{Content: `{"score": 1}`},
		},
	}

	var parsed struct {
		Score int `json:"score"`
	}
	_, err := llmutil.ChatSystemUserWithRetries(context.Background(), client, "test-model", "system", "user", 2, llmutil.JSONDecoder(&parsed), nil)
	if err != nil {
		t.Fatalf("expected recovery on second attempt: %v", err)
	}
	if parsed.Score != 1 {
		t.Fatalf("unexpected decode result: %+v", parsed)
	}
	if len(client.Calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(client.Calls))
	}
}

func TestChatWithRetriesExhaustsAttempts(t *testing.T) {
	client := &mock.Client{
		Responses: []llm.ChatResponse{{Content: "never json"}},
	}

	var parsed map[string]any
	_, err := llmutil.ChatSystemUserWithRetries(context.Background(), client, "test-model", "system", "user", 1, llmutil.JSONDecoder(&parsed), nil)
	if err == nil {
		t.Fatal("expected decode failure after retries")
	}
	if len(client.Calls) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(client.Calls))
	}
}

func TestChatWithRetriesPropagatesTransportError(t *testing.T) {
	transport := errors.New("connection refused")
	client := &mock.Client{Err: transport}

	var parsed map[string]any
	_, err := llmutil.ChatSystemUserWithRetries(context.Background(), client, "test-model", "system", "user", 3, llmutil.JSONDecoder(&parsed), nil)
	if !errors.Is(err, transport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if len(client.Calls) != 1 {
		t.Fatalf("transport errors are not retried, got %d calls", len(client.Calls))
	}
}
