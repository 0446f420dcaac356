package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"ai-agents/internal/jsonrpc"
	"ai-agents/internal/llm"
	"ai-agents/internal/types"
	"ai-agents/internal/utils"
)

// RPCCaller dispatches JSON-RPC calls back into the hub.
type RPCCaller interface {
	Call(ctx context.Context, method string, params []byte) (jsonrpc.Response, error)
}

const (
	maxRoutingTargets    = 3
	defaultRouterTimeout = 10 * time.Minute
)

// Router picks the delegate agent best suited to a request and forwards
// the message to it through the hub. Routing decisions come from the model
// with a keyword fallback when the model is unreachable.
type Router struct {
	mu       sync.RWMutex
	caller   RPCCaller
	client   *llm.Client
	agentIDs []string
	card     types.AgentCard
}

type routingTarget struct {
	AgentID string `json:"agentId"`
	Agent   string `json:"agent"`
	Message string `json:"message"`
}

type routingPlan struct {
	Targets []routingTarget `json:"targets"`
	AgentID string          `json:"agentId"`
	Agent   string          `json:"agent"`
	Message string          `json:"message"`
	Notes   string          `json:"notes"`
}

type agentDescriptor struct {
	ID          string
	Name        string
	Description string
}

func NewRouter(caller RPCCaller, client *llm.Client, baseURL string, agentIDs []string) *Router {
	return &Router{
		caller:   caller,
		client:   client,
		agentIDs: agentIDs,
		card: newCard("router", "Router Agent",
			"Routes requests to the agent best suited to handle them", baseURL,
			[]types.Skill{{
				ID:          "routing",
				Name:        "Request routing",
				Description: "Delegates requests to other local agents",
				Tags:        []string{"routing", "delegation"},
			}}),
	}
}

func (r *Router) ID() string            { return "router" }
func (r *Router) Name() string          { return "Router Agent" }
func (r *Router) Card() types.AgentCard { return r.card }

func (r *Router) CheckHealth() (types.AgentHealth, error) {
	if r.caller == nil {
		health := healthyNow()
		health.Status = "unhealthy"
		health.ErrorMessage = "no hub caller configured"
		return health, nil
	}
	return healthyNow(), nil
}

func (r *Router) Execute(ctx types.ExecutionContext) (types.ExecutionResult, error) {
	prompt := messageText(ctx.UserMessage)
	if prompt == "" {
		return types.ExecutionResult{}, errors.New("empty prompt")
	}
	delegates := r.Delegates()
	if len(delegates) == 0 {
		return types.ExecutionResult{}, errors.New("no delegate agents configured")
	}

	timeout := ctx.Timeout
	if timeout <= 0 {
		timeout = defaultRouterTimeout
	}
	callCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	descriptors := r.describeAgents(callCtx, delegates)
	targets, notes, routeErr := r.routeTargets(callCtx, prompt, descriptors)
	routingNote := ""
	if routeErr != nil {
		targets = []routingTarget{{AgentID: keywordRoute(prompt, delegates), Message: prompt}}
		routingNote = fmt.Sprintf("note: routing fallback used (%v)", routeErr)
	}

	targets = normalizeTargets(targets, delegates, prompt)
	if len(targets) == 0 {
		targets = []routingTarget{{AgentID: delegates[0], Message: prompt}}
	}
	if len(targets) > maxRoutingTargets {
		targets = targets[:maxRoutingTargets]
	}

	results := make([]string, 0, len(targets)+2)
	if routingNote != "" {
		results = append(results, routingNote)
	}
	if notes != "" {
		results = append(results, "note: "+strings.TrimSpace(notes))
	}
	for _, target := range targets {
		task, err := r.sendToAgent(callCtx, ctx, target.AgentID, target.Message)
		if err != nil {
			results = append(results, fmt.Sprintf("%s: error: %v", target.AgentID, err))
			continue
		}
		results = append(results, fmt.Sprintf("%s: %s", target.AgentID, taskText(task)))
	}

	return taskResult(ctx, types.TaskStateCompleted, strings.Join(results, "\n\n"), nil), nil
}

func (r *Router) Cancel(taskID string) (bool, error) {
	return false, nil
}

func (r *Router) SetDelegates(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agentIDs = append([]string{}, ids...)
}

func (r *Router) Delegates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.agentIDs...)
}

func (r *Router) routeTargets(ctx context.Context, prompt string, agents []agentDescriptor) ([]routingTarget, string, error) {
	if r.client == nil {
		return nil, "", errors.New("no model client configured")
	}
	reply, err := r.client.Chat(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: buildRoutingPrompt(prompt, agents)},
	})
	if err != nil {
		return nil, "", err
	}
	return parseRoutingTargets(reply.Content)
}

func (r *Router) sendToAgent(ctx context.Context, execCtx types.ExecutionContext, agentID, text string) (types.Task, error) {
	msg := types.Message{
		Kind:      "message",
		MessageID: utils.NewID("msg"),
		Role:      "user",
		Parts:     []types.Part{{Kind: "text", Text: text}},
		ContextID: execCtx.ContextID,
		Metadata:  map[string]any{"targetAgent": agentID},
	}
	if strings.TrimSpace(execCtx.WorkingDir) != "" {
		msg.Metadata["workingDirectory"] = execCtx.WorkingDir
	}
	configuration := map[string]any{"historyLength": 10}
	if execCtx.Timeout > 0 {
		configuration["timeout"] = int(execCtx.Timeout / time.Millisecond)
	}
	params, _ := json.Marshal(map[string]any{
		"message":       msg,
		"configuration": configuration,
	})
	resp, err := r.caller.Call(ctx, "message/send", params)
	if err != nil {
		return types.Task{}, err
	}
	if resp.Error != nil {
		return types.Task{}, errors.New(resp.Error.Message)
	}
	return decodeTask(resp.Result)
}

func (r *Router) describeAgents(ctx context.Context, delegates []string) []agentDescriptor {
	info, err := r.fetchAgentInfo(ctx)
	if err != nil || len(info) == 0 {
		return fallbackDescriptors(delegates)
	}
	byID := make(map[string]agentDescriptor, len(info))
	for _, entry := range info {
		desc := strings.TrimSpace(entry.Card.Description)
		if desc == "" {
			desc = strings.TrimSpace(entry.Name)
		}
		byID[entry.ID] = agentDescriptor{ID: entry.ID, Name: entry.Name, Description: desc}
	}
	descriptors := make([]agentDescriptor, 0, len(delegates))
	for _, id := range delegates {
		if entry, ok := byID[id]; ok {
			descriptors = append(descriptors, entry)
			continue
		}
		descriptors = append(descriptors, agentDescriptor{ID: id, Name: id})
	}
	return descriptors
}

func (r *Router) fetchAgentInfo(ctx context.Context) ([]agentInfo, error) {
	params, _ := json.Marshal(map[string]any{"includeHealth": false})
	resp, err := r.caller.Call(ctx, "hub/agents/list", params)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, errors.New(resp.Error.Message)
	}
	data, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, err
	}
	var entries []agentInfo
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

type agentInfo struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Card types.AgentCard `json:"card"`
}

func buildRoutingPrompt(prompt string, agents []agentDescriptor) string {
	var builder strings.Builder
	builder.WriteString("You are a routing agent for a local agent hub.\n")
	builder.WriteString("Choose the best agent(s) to handle the user request.\n")
	builder.WriteString("Return JSON only with this schema:\n")
	builder.WriteString("{\"targets\":[{\"agentId\":\"<id>\",\"message\":\"<message>\"}],\"notes\":\"optional\"}\n")
	builder.WriteString("Rules:\n")
	builder.WriteString("- Use only agentId values from the list below.\n")
	builder.WriteString("- Use at most 3 targets.\n")
	builder.WriteString("- If a single agent can handle the request, return one target.\n")
	builder.WriteString("- Keep messages concise and grounded in the user request.\n\n")
	builder.WriteString("Available agents:\n")
	for _, agent := range agents {
		line := fmt.Sprintf("- %s: %s", agent.ID, agent.Name)
		if agent.Description != "" {
			line = line + " - " + agent.Description
		}
		builder.WriteString(line + "\n")
	}
	builder.WriteString("\nUser request:\n")
	builder.WriteString(prompt)
	return builder.String()
}

func parseRoutingTargets(text string) ([]routingTarget, string, error) {
	payload := extractJSON(text)
	if payload == "" {
		return nil, "", errors.New("router returned no JSON")
	}
	var plan routingPlan
	if err := json.Unmarshal([]byte(payload), &plan); err == nil {
		targets := plan.Targets
		if len(targets) == 0 && (plan.AgentID != "" || plan.Agent != "") {
			targets = []routingTarget{{AgentID: plan.AgentID, Agent: plan.Agent, Message: plan.Message}}
		}
		if len(targets) > 0 {
			return targets, plan.Notes, nil
		}
	}
	var targets []routingTarget
	if err := json.Unmarshal([]byte(payload), &targets); err == nil && len(targets) > 0 {
		return targets, "", nil
	}
	return nil, "", errors.New("unable to parse routing plan")
}

func extractJSON(text string) string {
	start := strings.IndexAny(text, "{[")
	if start == -1 {
		return ""
	}
	decoder := json.NewDecoder(strings.NewReader(text[start:]))
	var raw json.RawMessage
	if err := decoder.Decode(&raw); err != nil {
		return ""
	}
	return string(raw)
}

func normalizeTargets(targets []routingTarget, delegates []string, fallbackMessage string) []routingTarget {
	if len(targets) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(delegates))
	for _, id := range delegates {
		allowed[id] = struct{}{}
	}
	normalized := make([]routingTarget, 0, len(targets))
	for _, target := range targets {
		agentID := strings.TrimSpace(firstNonEmpty(target.AgentID, target.Agent))
		if agentID == "" {
			continue
		}
		if _, ok := allowed[agentID]; !ok {
			continue
		}
		message := strings.TrimSpace(target.Message)
		if message == "" {
			message = fallbackMessage
		}
		normalized = append(normalized, routingTarget{AgentID: agentID, Message: message})
	}
	return normalized
}

// keywordRoute is the fallback when the model cannot produce a plan.
func keywordRoute(prompt string, delegates []string) string {
	lower := strings.ToLower(prompt)
	rules := []struct {
		agentID  string
		keywords []string
	}{
		{"bugreport", []string{"bug", "crash", "error", "broken", "reproduce"}},
		{"standup", []string{"standup", "stand-up", "yesterday", "blocker"}},
		{"news", []string{"news", "headline", "stories"}},
		{"filesearch", []string{"file", "document", "search"}},
		{"devtools", []string{"test", "format", "lint", "vet", "git"}},
	}
	allowed := make(map[string]struct{}, len(delegates))
	for _, id := range delegates {
		allowed[id] = struct{}{}
	}
	for _, rule := range rules {
		if _, ok := allowed[rule.agentID]; !ok {
			continue
		}
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.agentID
			}
		}
	}
	return delegates[0]
}

func fallbackDescriptors(delegates []string) []agentDescriptor {
	descriptors := make([]agentDescriptor, 0, len(delegates))
	for _, id := range delegates {
		descriptors = append(descriptors, agentDescriptor{ID: id, Name: id})
	}
	return descriptors
}

func decodeTask(result any) (types.Task, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return types.Task{}, err
	}
	var task types.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return types.Task{}, err
	}
	return task, nil
}

func taskText(task types.Task) string {
	if task.Status.Message == nil {
		return string(task.Status.State)
	}
	return messageText(*task.Status.Message)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
