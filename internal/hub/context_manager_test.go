package hub

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-agents/internal/types"
)

func textMessage(role, text string) types.Message {
	return types.Message{
		Kind:  "message",
		Role:  role,
		Parts: []types.Part{{Kind: "text", Text: text}},
	}
}

func TestContextManagerHistoryLimit(t *testing.T) {
	cm := NewContextManager()
	for i := 0; i < 5; i++ {
		cm.AddMessage("ctx-1", textMessage("user", fmt.Sprintf("msg-%d", i)))
	}

	all := cm.History("ctx-1", 0)
	require.Len(t, all, 5)

	recent := cm.History("ctx-1", 2)
	require.Len(t, recent, 2)
	assert.Equal(t, "msg-3", recent[0].Parts[0].Text)
	assert.Equal(t, "msg-4", recent[1].Parts[0].Text)

	assert.Len(t, cm.History("ctx-1", 10), 5)
	assert.Nil(t, cm.History("absent", 0))
}

func TestContextManagerAddMessageCreates(t *testing.T) {
	cm := NewContextManager()
	cm.AddMessage("ctx-new", textMessage("user", "hello"))

	ctx, ok := cm.Get("ctx-new")
	require.True(t, ok)
	assert.False(t, ctx.CreatedAt.IsZero())
	assert.Len(t, ctx.History, 1)
}

func TestContextManagerPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contexts.json")

	cm := NewContextManager()
	cm.SetPersistence(path)
	cm.Create("ctx-1")
	cm.AddMessage("ctx-1", textMessage("user", "hello"))

	reloaded := NewContextManager()
	reloaded.SetPersistence(path)
	require.NoError(t, reloaded.Load())

	history := reloaded.History("ctx-1", 0)
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Parts[0].Text)
}
