package agents

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-agents/internal/jsonrpc"
	"ai-agents/internal/types"
)

// scriptedCaller answers JSON-RPC calls from a per-method table and records
// every call it sees.
type scriptedCaller struct {
	responses map[string]any
	calls     []scriptedCall
}

type scriptedCall struct {
	method string
	params []byte
}

func (c *scriptedCaller) Call(ctx context.Context, method string, params []byte) (jsonrpc.Response, error) {
	c.calls = append(c.calls, scriptedCall{method: method, params: params})
	result, ok := c.responses[method]
	if !ok {
		return jsonrpc.Response{Error: &jsonrpc.RPCError{Code: jsonrpc.ErrMethodNotFound, Message: "method not found"}}, nil
	}
	return jsonrpc.Response{Result: result}, nil
}

func completedTask(id, text string) types.Task {
	msg := types.Message{
		Kind:  "message",
		Role:  "agent",
		Parts: []types.Part{{Kind: "text", Text: text}},
	}
	return types.Task{
		Kind:   "task",
		ID:     id,
		Status: types.TaskStatus{State: types.TaskStateCompleted, Message: &msg},
	}
}

func TestKeywordRoute(t *testing.T) {
	delegates := []string{"bugreport", "standup", "news", "filesearch", "devtools"}
	cases := map[string]string{
		"the app crashed during checkout":  "bugreport",
		"here is my standup for the day":   "standup",
		"top headlines please":             "news",
		"search this document for totals":  "filesearch",
		"run the tests and check git":      "devtools",
		"nothing matches any keyword here": "bugreport",
	}
	for prompt, want := range cases {
		assert.Equal(t, want, keywordRoute(prompt, delegates), prompt)
	}

	// Rules for agents outside the delegate list never fire.
	assert.Equal(t, "news", keywordRoute("the app crashed", []string{"news"}))
}

func TestParseRoutingTargets(t *testing.T) {
	t.Run("plan with targets", func(t *testing.T) {
		targets, notes, err := parseRoutingTargets(
			`{"targets":[{"agentId":"news","message":"top 5"}],"notes":"single match"}`)
		require.NoError(t, err)
		require.Len(t, targets, 1)
		assert.Equal(t, "news", targets[0].AgentID)
		assert.Equal(t, "top 5", targets[0].Message)
		assert.Equal(t, "single match", notes)
	})

	t.Run("flat plan", func(t *testing.T) {
		targets, _, err := parseRoutingTargets(`{"agentId":"standup","message":"format this"}`)
		require.NoError(t, err)
		require.Len(t, targets, 1)
		assert.Equal(t, "standup", targets[0].AgentID)
	})

	t.Run("bare array", func(t *testing.T) {
		targets, _, err := parseRoutingTargets(`[{"agent":"devtools","message":"run tests"}]`)
		require.NoError(t, err)
		require.Len(t, targets, 1)
		assert.Equal(t, "devtools", targets[0].Agent)
	})

	t.Run("json wrapped in prose", func(t *testing.T) {
		targets, _, err := parseRoutingTargets(
			"Here is the plan:\n{\"targets\":[{\"agentId\":\"news\",\"message\":\"go\"}]}\nDone.")
		require.NoError(t, err)
		require.Len(t, targets, 1)
	})

	t.Run("no json", func(t *testing.T) {
		_, _, err := parseRoutingTargets("I cannot decide.")
		assert.Error(t, err)
	})
}

func TestNormalizeTargets(t *testing.T) {
	delegates := []string{"news", "standup"}
	targets := normalizeTargets([]routingTarget{
		{AgentID: "news", Message: "top 5"},
		{AgentID: "intruder", Message: "x"},
		{Agent: "standup", Message: ""},
		{AgentID: "  ", Message: "y"},
	}, delegates, "original request")

	require.Len(t, targets, 2)
	assert.Equal(t, "news", targets[0].AgentID)
	assert.Equal(t, "standup", targets[1].AgentID)
	assert.Equal(t, "original request", targets[1].Message)
}

func TestRouterExecuteFallsBackWithoutModel(t *testing.T) {
	caller := &scriptedCaller{responses: map[string]any{
		"message/send": completedTask("task-9", "| Headline | Summary |"),
	}}
	router := NewRouter(caller, nil, "http://localhost:8080", []string{"news", "standup"})

	result, err := router.Execute(userExecution("task-1", "ctx-1", "give me the top headlines"))
	require.NoError(t, err)
	assert.Equal(t, types.TaskStateCompleted, result.FinalState)

	text := result.Task.Status.Message.Parts[0].Text
	assert.Contains(t, text, "routing fallback used")
	assert.Contains(t, text, "news: | Headline | Summary |")

	var sent struct {
		Message types.Message `json:"message"`
	}
	last := caller.calls[len(caller.calls)-1]
	require.Equal(t, "message/send", last.method)
	require.NoError(t, json.Unmarshal(last.params, &sent))
	assert.Equal(t, "news", sent.Message.Metadata["targetAgent"])
	assert.Equal(t, "ctx-1", sent.Message.ContextID)
}

func TestRouterExecuteNoDelegates(t *testing.T) {
	router := NewRouter(&scriptedCaller{}, nil, "http://localhost:8080", nil)
	_, err := router.Execute(userExecution("task-1", "ctx-1", "anything"))
	assert.Error(t, err)
}

func TestRouterSetDelegates(t *testing.T) {
	router := NewRouter(&scriptedCaller{}, nil, "http://localhost:8080", []string{"news"})
	router.SetDelegates([]string{"standup", "devtools"})
	assert.Equal(t, []string{"standup", "devtools"}, router.Delegates())
}
