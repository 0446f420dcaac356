package agents

import (
	"strings"
	"time"

	"ai-agents/internal/types"
	"ai-agents/internal/utils"
)

type Agent interface {
	ID() string
	Name() string
	Card() types.AgentCard
	CheckHealth() (types.AgentHealth, error)
	Execute(ctx types.ExecutionContext) (types.ExecutionResult, error)
	Cancel(taskID string) (bool, error)
}

func newCard(id, name, description, baseURL string, skills []types.Skill) types.AgentCard {
	return types.AgentCard{
		ProtocolVersion: "1.0",
		Name:            name,
		Description:     description,
		URL:             baseURL + "/agents/" + id,
		Version:         "1.0.0",
		Provider:        types.Provider{Name: "Local"},
		Skills:          skills,
		Capabilities:    types.AgentCapabilities{Streaming: false, PushNotifications: false, StateTransitionHistory: false},
	}
}

func messageText(msg types.Message) string {
	parts := make([]string, 0, len(msg.Parts))
	for _, part := range msg.Parts {
		if part.Kind == "text" {
			parts = append(parts, part.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func agentMessage(taskID, contextID, text string) types.Message {
	return types.Message{
		Kind:      "message",
		MessageID: utils.NewID("msg"),
		Role:      "agent",
		Parts:     []types.Part{{Kind: "text", Text: text}},
		TaskID:    taskID,
		ContextID: contextID,
	}
}

func taskResult(ctx types.ExecutionContext, state types.TaskState, text string, artifacts []types.Artifact) types.ExecutionResult {
	response := agentMessage(ctx.TaskID, ctx.ContextID, text)
	return types.ExecutionResult{
		Task: types.Task{
			Kind:      "task",
			ID:        ctx.TaskID,
			ContextID: ctx.ContextID,
			Status: types.TaskStatus{
				State:     state,
				Message:   &response,
				Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			},
			History:   append([]types.Message{}, ctx.PreviousHistory...),
			Artifacts: artifacts,
		},
		FinalState: state,
	}
}

func healthyNow() types.AgentHealth {
	return types.AgentHealth{Status: "healthy", LastCheck: time.Now().UTC()}
}
