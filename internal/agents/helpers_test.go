package agents

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"ai-agents/internal/llm"
)

// chatRequest mirrors the fields of a chat completion request the stub
// handlers care about.
type chatRequest struct {
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func lastPrompt(t *testing.T, r *http.Request) string {
	t.Helper()
	var req chatRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	require.NotEmpty(t, req.Messages)
	return req.Messages[len(req.Messages)-1].Content
}

func writeChatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	})
	require.NoError(t, err)
}

func newTestLLM(t *testing.T, handler http.HandlerFunc) *llm.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := llm.NewClient(llm.Config{APIKey: "test", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	return client
}
