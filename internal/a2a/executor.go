package a2a

import (
	"context"
	"fmt"
	"time"

	"ai-agents/internal/hub"
	"ai-agents/internal/types"

	sdka2a "github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/a2aproject/a2a-go/a2asrv/eventqueue"
)

// HubExecutor exposes the hub's agents through the A2A AgentExecutor
// interface. Conversational agents surface their follow-up prompts as
// input-required status updates, so a remote A2A client can drive a
// multi-turn collection the same way the local CLI does.
type HubExecutor struct {
	server *hub.Server
}

func NewHubExecutor(server *hub.Server) *HubExecutor {
	return &HubExecutor{server: server}
}

// Execute implements a2asrv.AgentExecutor.
func (e *HubExecutor) Execute(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	targetAgent := e.extractTargetAgent(reqCtx)
	if targetAgent == "" {
		return e.writeFailure(ctx, reqCtx, queue, "metadata.targetAgent required")
	}
	agentInfo, ok := e.server.Registry().Get(targetAgent)
	if !ok {
		return e.writeFailure(ctx, reqCtx, queue, "agent not found: "+targetAgent)
	}

	if reqCtx.StoredTask == nil {
		event := sdka2a.NewStatusUpdateEvent(reqCtx, sdka2a.TaskStateSubmitted, nil)
		if err := queue.Write(ctx, event); err != nil {
			return fmt.Errorf("write state submitted: %w", err)
		}
	}
	event := sdka2a.NewStatusUpdateEvent(reqCtx, sdka2a.TaskStateWorking, nil)
	if err := queue.Write(ctx, event); err != nil {
		return fmt.Errorf("write state working: %w", err)
	}

	result, err := agentInfo.Agent.Execute(e.toExecutionContext(reqCtx))
	if err != nil {
		return e.writeFailure(ctx, reqCtx, queue, err.Error())
	}

	for _, art := range result.Task.Artifacts {
		artEvent := sdka2a.NewArtifactEvent(reqCtx, ToSDKParts(art.Parts)...)
		if err := queue.Write(ctx, artEvent); err != nil {
			return fmt.Errorf("write artifact: %w", err)
		}
	}

	var responseMsg *sdka2a.Message
	if result.Task.Status.Message != nil {
		responseMsg = ToSDKMessage(*result.Task.Status.Message)
	}
	finalEvent := sdka2a.NewStatusUpdateEvent(reqCtx, toSDKTaskState(result.FinalState), responseMsg)
	finalEvent.Final = true
	if err := queue.Write(ctx, finalEvent); err != nil {
		return fmt.Errorf("write final state: %w", err)
	}
	return nil
}

// Cancel implements a2asrv.AgentExecutor.
func (e *HubExecutor) Cancel(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	targetAgent := e.extractTargetAgent(reqCtx)
	if targetAgent != "" {
		if agentInfo, ok := e.server.Registry().Get(targetAgent); ok {
			agentInfo.Agent.Cancel(string(reqCtx.TaskID))
			if c, ok := agentInfo.Agent.(interface{ CancelContext(string) bool }); ok {
				c.CancelContext(reqCtx.ContextID)
			}
		}
	}
	event := sdka2a.NewStatusUpdateEvent(reqCtx, sdka2a.TaskStateCanceled, nil)
	event.Final = true
	if err := queue.Write(ctx, event); err != nil {
		return fmt.Errorf("write state canceled: %w", err)
	}
	return nil
}

func (e *HubExecutor) extractTargetAgent(reqCtx *a2asrv.RequestContext) string {
	if reqCtx.Message != nil && reqCtx.Message.Metadata != nil {
		if agent, ok := reqCtx.Message.Metadata["targetAgent"].(string); ok {
			return agent
		}
	}
	if reqCtx.Metadata != nil {
		if agent, ok := reqCtx.Metadata["targetAgent"].(string); ok {
			return agent
		}
	}
	if reqCtx.StoredTask != nil && reqCtx.StoredTask.Metadata != nil {
		if agent, ok := reqCtx.StoredTask.Metadata["targetAgent"].(string); ok {
			return agent
		}
	}
	return ""
}

func (e *HubExecutor) toExecutionContext(reqCtx *a2asrv.RequestContext) types.ExecutionContext {
	var history []types.Message
	if reqCtx.ContextID != "" {
		history = e.server.Contexts().History(reqCtx.ContextID, 0)
	}
	if reqCtx.StoredTask != nil {
		for _, msg := range reqCtx.StoredTask.History {
			history = append(history, FromSDKMessage(msg))
		}
	}
	return types.ExecutionContext{
		TaskID:          string(reqCtx.TaskID),
		ContextID:       reqCtx.ContextID,
		UserMessage:     FromSDKMessage(reqCtx.Message),
		PreviousHistory: history,
	}
}

func (e *HubExecutor) writeFailure(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue, errMsg string) error {
	errorMessage := sdka2a.NewMessage(sdka2a.MessageRoleAgent, &sdka2a.TextPart{Text: errMsg})
	errorMessage.ID = "error-" + string(reqCtx.TaskID)
	errorMessage.TaskID = reqCtx.TaskID
	errorMessage.ContextID = reqCtx.ContextID
	errorMessage.Metadata = map[string]any{
		"error":     true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	event := sdka2a.NewStatusUpdateEvent(reqCtx, sdka2a.TaskStateFailed, errorMessage)
	event.Final = true
	if err := queue.Write(ctx, event); err != nil {
		return fmt.Errorf("write failure event: %w", err)
	}
	return nil
}
