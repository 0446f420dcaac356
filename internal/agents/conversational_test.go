package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-agents/internal/convo"
	"ai-agents/internal/render"
	"ai-agents/internal/schema"
	"ai-agents/internal/types"
)

// stubExtractor returns canned candidate records in order.
type stubExtractor struct {
	records []schema.Record
	calls   int
}

func (s *stubExtractor) Extract(ctx context.Context, target schema.Schema, turns []convo.Turn) (schema.Record, error) {
	idx := s.calls
	s.calls++
	if idx >= len(s.records) {
		idx = len(s.records) - 1
	}
	return s.records[idx], nil
}

func userExecution(taskID, contextID, text string) types.ExecutionContext {
	return types.ExecutionContext{
		TaskID:    taskID,
		ContextID: contextID,
		UserMessage: types.Message{
			Kind:  "message",
			Role:  "user",
			Parts: []types.Part{{Kind: "text", Text: text}},
		},
	}
}

func TestConversationalAgentCollectsAcrossTurns(t *testing.T) {
	extractor := &stubExtractor{records: []schema.Record{
		{"project_affected": "billing", "error_message": "panic on save"},
		{"steps_to_reproduce": []string{"open invoice", "click save"}, "severity": "High"},
	}}
	agent := NewBugReportAgent(extractor, "http://localhost:8080", convo.Options{})

	result, err := agent.Execute(userExecution("task-1", "ctx-1", "billing crashes with a panic on save"))
	require.NoError(t, err)
	assert.Equal(t, types.TaskStateInputRequired, result.FinalState)
	require.NotNil(t, result.Task.Status.Message)

	result, err = agent.Execute(userExecution("task-1", "ctx-1", "open an invoice and click save, severity high"))
	require.NoError(t, err)
	assert.Equal(t, types.TaskStateCompleted, result.FinalState)

	require.Len(t, result.Task.Artifacts, 1)
	part := result.Task.Artifacts[0].Parts[0]
	assert.Equal(t, "data", part.Kind)
	record, ok := part.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "billing", record["project_affected"])
	assert.Equal(t, "High", record["severity"])
}

func TestConversationalAgentRendersCompletedRecord(t *testing.T) {
	extractor := &stubExtractor{records: []schema.Record{{
		"yesterday": []string{"shipped the importer"},
		"today":     []string{"code review"},
	}}}
	agent := NewStandupAgent(extractor, "http://localhost:8080", convo.Options{})

	result, err := agent.Execute(userExecution("task-1", "ctx-1", "yesterday I shipped the importer, today code review"))
	require.NoError(t, err)
	assert.Equal(t, types.TaskStateCompleted, result.FinalState)

	text := result.Task.Status.Message.Parts[0].Text
	assert.Contains(t, text, "Daily Standup Update")
	assert.Contains(t, text, "No blockers")
}

func TestConversationalAgentCancelWord(t *testing.T) {
	extractor := &stubExtractor{records: []schema.Record{{}}}
	agent := NewBugReportAgent(extractor, "http://localhost:8080", convo.Options{})

	result, err := agent.Execute(userExecution("task-1", "ctx-1", "cancel"))
	require.NoError(t, err)
	assert.Equal(t, types.TaskStateCanceled, result.FinalState)
}

func TestConversationalAgentSeparateContexts(t *testing.T) {
	extractor := &stubExtractor{records: []schema.Record{
		{"project_affected": "api"},
	}}
	agent := NewBugReportAgent(extractor, "http://localhost:8080", convo.Options{})

	first, err := agent.Execute(userExecution("task-1", "ctx-a", "the api is broken"))
	require.NoError(t, err)
	assert.Equal(t, types.TaskStateInputRequired, first.FinalState)

	// A different context must not see the other conversation's record.
	second, err := agent.Execute(userExecution("task-2", "ctx-b", "the api is broken"))
	require.NoError(t, err)
	assert.Equal(t, types.TaskStateInputRequired, second.FinalState)
	assert.True(t, agent.CancelContext("ctx-a"))
	assert.False(t, agent.CancelContext("ctx-a"))
	assert.True(t, agent.CancelContext("ctx-b"))
}

func TestConversationalAgentFreshSessionAfterCompletion(t *testing.T) {
	extractor := &stubExtractor{records: []schema.Record{{
		"yesterday": []string{"meetings"},
		"today":     []string{"coding"},
	}}}
	agent := NewStandupAgent(extractor, "http://localhost:8080", convo.Options{})

	result, err := agent.Execute(userExecution("task-1", "ctx-1", "meetings yesterday, coding today"))
	require.NoError(t, err)
	assert.Equal(t, types.TaskStateCompleted, result.FinalState)

	result, err = agent.Execute(userExecution("task-2", "ctx-1", "meetings yesterday, coding today"))
	require.NoError(t, err)
	assert.Equal(t, types.TaskStateCompleted, result.FinalState)
}

func TestConversationalAgentEmptyPrompt(t *testing.T) {
	agent := NewBugReportAgent(&stubExtractor{records: []schema.Record{{}}}, "http://localhost:8080", convo.Options{})
	_, err := agent.Execute(userExecution("task-1", "ctx-1", "   "))
	assert.Error(t, err)
}

func TestConversationalAgentHealth(t *testing.T) {
	agent := NewConversationalAgent("x", "X", types.AgentCard{}, schema.BugReport(), nil, render.BugReport, convo.Options{})
	health, err := agent.CheckHealth()
	assert.Error(t, err)
	assert.Equal(t, "unhealthy", health.Status)

	healthy := NewBugReportAgent(&stubExtractor{records: []schema.Record{{}}}, "", convo.Options{})
	health, err = healthy.CheckHealth()
	assert.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
}
