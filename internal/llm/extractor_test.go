package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-agents/internal/convo"
	"ai-agents/internal/schema"
)

// capturedRequest mirrors the wire shape of a completion request; the SDK
// request type holds an interface field and cannot be unmarshaled directly.
type capturedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	ResponseFormat *struct {
		Type       string `json:"type"`
		JSONSchema *struct {
			Name   string          `json:"name"`
			Schema json.RawMessage `json:"schema"`
		} `json:"json_schema"`
	} `json:"response_format"`
}

// newTestClient points the client at a stub completions endpoint.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{APIKey: "test-key", Model: "test-model", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	return client
}

func completionResponse(content string) string {
	resp := map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"model":   "test-model",
		"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"}},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestExtractDecodesCandidate(t *testing.T) {
	var gotReq capturedRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse(`{"project_affected":"Checkout","error_message":"500 on submit"}`)))
	})

	ext := NewStructuredExtractor(client)
	rec, err := ext.Extract(context.Background(), schema.BugReport(), []convo.Turn{
		{Role: convo.RoleUser, Text: "Checkout returns a 500"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Checkout", rec.Text("project_affected"))
	assert.Equal(t, "500 on submit", rec.Text("error_message"))

	require.NotNil(t, gotReq.ResponseFormat)
	assert.Equal(t, string(openai.ChatCompletionResponseFormatTypeJSONSchema), gotReq.ResponseFormat.Type)
	assert.Equal(t, "bug_report", gotReq.ResponseFormat.JSONSchema.Name)
	// system prompt plus the single user turn
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, gotReq.Messages[0].Role)
}

func TestExtractSystemTurnsBecomeAssistant(t *testing.T) {
	var gotReq capturedRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse(`{}`)))
	})

	ext := NewStructuredExtractor(client)
	_, err := ext.Extract(context.Background(), schema.BugReport(), []convo.Turn{
		{Role: convo.RoleUser, Text: "broken"},
		{Role: convo.RoleSystem, Text: "Please provide: steps_to_reproduce."},
		{Role: convo.RoleUser, Text: "open cart, press submit"},
	})
	require.NoError(t, err)
	require.Len(t, gotReq.Messages, 4)
	assert.Equal(t, openai.ChatMessageRoleAssistant, gotReq.Messages[2].Role)
	assert.Equal(t, "Please provide: steps_to_reproduce.", gotReq.Messages[2].Content)
}

func TestExtractMalformedJSONIsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse("not json at all")))
	})

	ext := NewStructuredExtractor(client)
	_, err := ext.Extract(context.Background(), schema.BugReport(), []convo.Turn{{Role: convo.RoleUser, Text: "hi"}})
	assert.Error(t, err)
}

func TestExtractAPIErrorPropagates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	})

	ext := NewStructuredExtractor(client)
	_, err := ext.Extract(context.Background(), schema.BugReport(), []convo.Turn{{Role: convo.RoleUser, Text: "hi"}})
	assert.Error(t, err)
}

func TestCompleteReturnsContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse("a soothing sunset")))
	})

	text, err := client.Complete(context.Background(), "Describe a sunset")
	require.NoError(t, err)
	assert.Equal(t, "a soothing sunset", text)
}
