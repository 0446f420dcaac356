package agents

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-agents/internal/types"
)

func TestChunkString(t *testing.T) {
	assert.Equal(t, []string{"abcdef"}, chunkString("abcdef", 10))
	assert.Equal(t, []string{"abc", "def", "g"}, chunkString("abcdefg", 3))
	assert.Equal(t, []string{""}, chunkString("", 3))
	assert.Equal(t, []string{"abc"}, chunkString("abc", 0))
}

func TestFileSearchAnswerSingleChunk(t *testing.T) {
	client := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		prompt := lastPrompt(t, r)
		assert.Contains(t, prompt, "notes.txt")
		assert.Contains(t, prompt, "the retry count is 3")
		writeChatReply(t, w, "The retry count is 3.")
	})
	agent := NewFileSearchAgent(client, "http://localhost:8080")

	id := agent.Upload("notes.txt", "the retry count is 3")
	answer, err := agent.Answer(context.Background(), id, "what is the retry count?")
	require.NoError(t, err)
	assert.Equal(t, "The retry count is 3.", answer)
}

func TestFileSearchAnswerChunkedSynthesis(t *testing.T) {
	var calls int
	client := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		prompt := lastPrompt(t, r)
		if strings.Contains(prompt, "synthesize a single") {
			writeChatReply(t, w, "combined answer")
			return
		}
		writeChatReply(t, w, "partial answer")
	})
	agent := NewFileSearchAgent(client, "http://localhost:8080")
	agent.chunkSize = 4

	id := agent.Upload("big.txt", "0123456789")
	answer, err := agent.Answer(context.Background(), id, "summarize")
	require.NoError(t, err)
	assert.Equal(t, "combined answer", answer)
	// 3 chunks plus the synthesis call.
	assert.Equal(t, 4, calls)
}

func TestFileSearchAnswerUnknownFile(t *testing.T) {
	agent := NewFileSearchAgent(nil, "http://localhost:8080")
	_, err := agent.Answer(context.Background(), "missing", "anything")
	assert.EqualError(t, err, "file not found")

	_, err = agent.AnswerMany(context.Background(), []string{"missing"}, "anything")
	assert.ErrorContains(t, err, "missing")
}

func TestFileSearchExecuteUploadOnly(t *testing.T) {
	agent := NewFileSearchAgent(nil, "http://localhost:8080")

	ctx := userExecution("task-1", "ctx-1", "")
	ctx.UserMessage.Parts = []types.Part{{
		Kind: "file",
		File: &types.File{
			Name:  "readme.md",
			Bytes: base64.StdEncoding.EncodeToString([]byte("hello")),
		},
	}}

	result, err := agent.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStateCompleted, result.FinalState)
	assert.Contains(t, result.Task.Status.Message.Parts[0].Text, "Uploaded ")
}

func TestFileSearchUploadRoundTrip(t *testing.T) {
	// Content that is itself valid base64 must survive the upload unchanged.
	agent := NewFileSearchAgent(nil, "http://localhost:8080")

	ctx := userExecution("task-1", "ctx-1", "")
	ctx.UserMessage.Parts = []types.Part{{
		Kind: "file",
		File: &types.File{
			Name:  "hash.txt",
			Bytes: base64.StdEncoding.EncodeToString([]byte("deadbeef")),
		},
	}}

	ids, err := agent.uploadParts(ctx.UserMessage)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, "deadbeef", agent.files[ids[0]].content)
}

func TestFileSearchUploadRejectsRawContent(t *testing.T) {
	agent := NewFileSearchAgent(nil, "http://localhost:8080")

	ctx := userExecution("task-1", "ctx-1", "")
	ctx.UserMessage.Parts = []types.Part{{
		Kind: "file",
		File: &types.File{Name: "notes.txt", Bytes: "not base64 at all!"},
	}}

	_, err := agent.Execute(ctx)
	assert.ErrorContains(t, err, "not base64")
}

func TestFileSearchExecuteQuestionWithoutFiles(t *testing.T) {
	agent := NewFileSearchAgent(nil, "http://localhost:8080")

	result, err := agent.Execute(userExecution("task-1", "ctx-1", "what does the config do?"))
	require.NoError(t, err)
	assert.Equal(t, types.TaskStateInputRequired, result.FinalState)
}

func TestFileSearchExecuteWithMetadataIDs(t *testing.T) {
	client := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		writeChatReply(t, w, "it lists dependencies")
	})
	agent := NewFileSearchAgent(client, "http://localhost:8080")
	id := agent.Upload("go.mod", "module example")

	ctx := userExecution("task-1", "ctx-1", "what is this file?")
	ctx.UserMessage.Metadata = map[string]any{"fileIds": []any{id}}

	result, err := agent.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStateCompleted, result.FinalState)
	assert.Contains(t, result.Task.Status.Message.Parts[0].Text, "it lists dependencies")
}
