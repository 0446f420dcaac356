package agents

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-agents/internal/types"
)

func TestStoryCount(t *testing.T) {
	metadata := func(count any) types.Message {
		return types.Message{Metadata: map[string]any{"count": count}}
	}
	text := func(s string) types.Message {
		return types.Message{Parts: []types.Part{{Kind: "text", Text: s}}}
	}

	t.Run("from metadata", func(t *testing.T) {
		// JSON numbers arrive as float64.
		n, err := storyCount(metadata(float64(5)))
		require.NoError(t, err)
		assert.Equal(t, 5, n)
	})

	t.Run("from text", func(t *testing.T) {
		n, err := storyCount(text("give me the top 7 stories"))
		require.NoError(t, err)
		assert.Equal(t, 7, n)
	})

	t.Run("no number", func(t *testing.T) {
		_, err := storyCount(text("what is happening today"))
		assert.Error(t, err)
	})

	t.Run("zero", func(t *testing.T) {
		_, err := storyCount(metadata(float64(0)))
		assert.Error(t, err)
	})

	t.Run("over the cap", func(t *testing.T) {
		_, err := storyCount(text("11 stories please"))
		assert.Error(t, err)
	})
}

func TestValidateCount(t *testing.T) {
	n, err := validateCount(maxNewsStories)
	require.NoError(t, err)
	assert.Equal(t, maxNewsStories, n)

	_, err = validateCount(-1)
	assert.Error(t, err)
	_, err = validateCount(maxNewsStories + 1)
	assert.Error(t, err)
}

func TestNewsAgentExecute(t *testing.T) {
	const table = "| Headline | Summary |\n| --- | --- |\n| Something happened | Details |"
	client := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		prompt := lastPrompt(t, r)
		assert.Contains(t, prompt, "top 3 news stories")
		writeChatReply(t, w, table)
	})
	agent := NewNewsAgent(client, "http://localhost:8080")

	result, err := agent.Execute(userExecution("task-1", "ctx-1", "3"))
	require.NoError(t, err)
	assert.Equal(t, types.TaskStateCompleted, result.FinalState)
	assert.Equal(t, table, result.Task.Status.Message.Parts[0].Text)
}

func TestNewsAgentRejectsBadCount(t *testing.T) {
	agent := NewNewsAgent(nil, "http://localhost:8080")

	result, err := agent.Execute(userExecution("task-1", "ctx-1", "all the news"))
	require.NoError(t, err)
	assert.Equal(t, types.TaskStateRejected, result.FinalState)
}
