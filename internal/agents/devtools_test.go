package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolDefinitions(t *testing.T) {
	tools := toolDefinitions()
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Function.Name)
	}
	assert.ElementsMatch(t,
		[]string{"run_formatter_linter", "run_unit_tests", "check_git_status"}, names)
}

func TestCallToolUnknown(t *testing.T) {
	agent := NewDevToolsAgent(nil, "http://localhost:8080")
	_, err := agent.CallTool(context.Background(), "", "delete_everything", nil)
	assert.ErrorContains(t, err, "unknown tool")
}

func TestCallToolInvalidArguments(t *testing.T) {
	agent := NewDevToolsAgent(nil, "http://localhost:8080")
	_, err := agent.CallTool(context.Background(), "", "run_unit_tests", []byte("{not json"))
	assert.ErrorContains(t, err, "invalid tool arguments")
}

func TestDecodeArgs(t *testing.T) {
	var req GitStatusRequest
	require.NoError(t, decodeArgs(nil, &req))
	assert.Empty(t, req.Path)

	require.NoError(t, decodeArgs([]byte(`{"path":"/tmp/repo"}`), &req))
	assert.Equal(t, "/tmp/repo", req.Path)
}

func TestDevToolsRejectsEmptyPrompt(t *testing.T) {
	agent := NewDevToolsAgent(nil, "http://localhost:8080")
	_, err := agent.Execute(userExecution("task-1", "ctx-1", " "))
	assert.Error(t, err)
}
