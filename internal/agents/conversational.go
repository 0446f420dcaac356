package agents

import (
	"context"
	"errors"
	"sync"

	"ai-agents/internal/convo"
	"ai-agents/internal/schema"
	"ai-agents/internal/types"
)

// RenderFunc turns a completed record into the text shown to the user.
type RenderFunc func(schema.Record) string

// ConversationalAgent runs a structured-extraction conversation per context.
// While the record is incomplete it answers with task state input-required
// and a follow-up prompt; once complete it renders the record and attaches
// it as a data artifact. The schema drives everything, so the same type
// backs both the bug report and standup agents.
type ConversationalAgent struct {
	id        string
	name      string
	card      types.AgentCard
	target    schema.Schema
	extractor convo.Extractor
	render    RenderFunc
	opts      convo.Options

	mu       sync.Mutex
	sessions map[string]*convo.Session // keyed by context ID
}

func NewConversationalAgent(id, name string, card types.AgentCard, target schema.Schema, extractor convo.Extractor, render RenderFunc, opts convo.Options) *ConversationalAgent {
	return &ConversationalAgent{
		id:        id,
		name:      name,
		card:      card,
		target:    target,
		extractor: extractor,
		render:    render,
		opts:      opts,
		sessions:  make(map[string]*convo.Session),
	}
}

func (a *ConversationalAgent) ID() string            { return a.id }
func (a *ConversationalAgent) Name() string          { return a.name }
func (a *ConversationalAgent) Card() types.AgentCard { return a.card }

func (a *ConversationalAgent) CheckHealth() (types.AgentHealth, error) {
	if a.extractor == nil {
		health := healthyNow()
		health.Status = "unhealthy"
		health.ErrorMessage = "no extractor configured"
		return health, errors.New("no extractor configured")
	}
	return healthyNow(), nil
}

func (a *ConversationalAgent) Execute(ctx types.ExecutionContext) (types.ExecutionResult, error) {
	text := messageText(ctx.UserMessage)
	if text == "" {
		return types.ExecutionResult{}, errors.New("empty prompt")
	}

	sess := a.session(ctx.ContextID)

	callCtx := context.Background()
	if ctx.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, ctx.Timeout)
		defer cancel()
	}

	step, err := sess.Submit(callCtx, text)
	if errors.Is(err, convo.ErrSessionDone) {
		// Stale session left over from a finished conversation on this
		// context; start fresh with the same input.
		a.dropSession(ctx.ContextID)
		sess = a.session(ctx.ContextID)
		step, err = sess.Submit(callCtx, text)
	}
	if err != nil {
		return types.ExecutionResult{}, err
	}

	if step.Active {
		return taskResult(ctx, types.TaskStateInputRequired, step.Prompt, nil), nil
	}

	a.dropSession(ctx.ContextID)
	switch {
	case step.Record != nil:
		artifacts := []types.Artifact{{
			ArtifactID: "record-" + ctx.TaskID,
			Name:       a.target.Name,
			Parts:      []types.Part{{Kind: "data", Data: map[string]any(step.Record)}},
		}}
		return taskResult(ctx, types.TaskStateCompleted, a.render(step.Record), artifacts), nil
	case step.Reason == convo.ReasonCanceled:
		return taskResult(ctx, types.TaskStateCanceled, step.Prompt, nil), nil
	default:
		return taskResult(ctx, types.TaskStateFailed, step.Prompt, nil), nil
	}
}

func (a *ConversationalAgent) Cancel(taskID string) (bool, error) {
	return false, nil
}

// CancelContext abandons the running conversation on a context, if any.
func (a *ConversationalAgent) CancelContext(contextID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	sess, ok := a.sessions[contextID]
	if !ok {
		return false
	}
	sess.Cancel()
	delete(a.sessions, contextID)
	return true
}

func (a *ConversationalAgent) session(contextID string) *convo.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	if sess, ok := a.sessions[contextID]; ok {
		return sess
	}
	sess := convo.NewSession(a.target, a.extractor, a.opts)
	a.sessions[contextID] = sess
	return sess
}

func (a *ConversationalAgent) dropSession(contextID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, contextID)
}
