package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai-agents/internal/agents"
	"ai-agents/internal/convo"
	"ai-agents/internal/jsonrpc"
	"ai-agents/internal/llm"
	"ai-agents/internal/types"
	"ai-agents/internal/utils"
)

type Server struct {
	cfg       Config
	logger    *utils.Logger
	registry  *AgentRegistry
	tasks     *TaskManager
	contexts  *ContextManager
	sessions  *SessionManager
	handler   *jsonrpc.Handler
	startTime time.Time
	settings  Settings
}

func NewServer(cfg Config, logger *utils.Logger) *Server {
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(os.Getenv("HOME"), ".ai-agents")
	}
	server := &Server{
		cfg:       cfg,
		logger:    logger,
		registry:  NewAgentRegistry(logger),
		tasks:     NewTaskManager(),
		contexts:  NewContextManager(),
		sessions:  NewSessionManager(),
		handler:   jsonrpc.NewHandler(),
		startTime: time.Now().UTC(),
		settings:  Settings{RouterAgents: append([]string{}, cfg.Router.Agents...)},
	}
	server.tasks.SetPersistence(filepath.Join(cfg.DataDir, "tasks.json"))
	server.contexts.SetPersistence(filepath.Join(cfg.DataDir, "contexts.json"))
	server.sessions.SetDataDir(cfg.DataDir)
	return server
}

func (s *Server) InitAgents(baseURL string) error {
	client, err := llm.NewClient(llm.LoadConfig())
	if err != nil {
		return fmt.Errorf("init model client: %w", err)
	}
	extractor := llm.NewStructuredExtractor(client)
	opts := convo.Options{
		MaxTurns:    s.cfg.Conversation.MaxTurns,
		MaxFailures: s.cfg.Conversation.MaxFailures,
	}
	caller := NewLocalCaller(s.handler)

	agentsList := []agents.Agent{
		agents.NewBugReportAgent(extractor, baseURL, opts),
		agents.NewStandupAgent(extractor, baseURL, opts),
		agents.NewNewsAgent(client, baseURL),
		agents.NewFileSearchAgent(client, baseURL),
		agents.NewDevToolsAgent(client, baseURL),
	}
	if len(s.cfg.Router.Agents) > 0 {
		router := agents.NewRouter(caller, client, baseURL, s.cfg.Router.Agents)
		agentsList = append([]agents.Agent{router}, agentsList...)
	}
	for _, agent := range agentsList {
		s.registry.Register(agent)
	}
	return nil
}

func (s *Server) RegisterHandlers() {
	s.handler.Register("hub/status", s.handleHubStatus)
	s.handler.Register("hub/agents/list", s.handleAgentsList)
	s.handler.Register("hub/agents/get", s.handleAgentsGet)
	s.handler.Register("hub/agents/health", s.handleAgentsHealth)
	s.handler.Register("hub/tasks/list", s.handleTasksList)
	s.handler.Register("hub/contexts/list", s.handleContextsList)
	s.handler.Register("hub/sessions/list", s.handleSessionsList)
	s.handler.Register("hub/sessions/create", s.handleSessionsCreate)
	s.handler.Register("hub/sessions/append", s.handleSessionsAppend)
	s.handler.Register("message/send", s.handleMessageSend)
	s.handler.Register("tasks/get", s.handleTaskGet)
	s.handler.Register("tasks/cancel", s.handleTaskCancel)
}

func (s *Server) Handler() *jsonrpc.Handler {
	return s.handler
}

func (s *Server) AgentsList() []AgentInfo {
	return s.registry.List()
}

func (s *Server) AgentByID(id string) (*AgentInfo, bool) {
	return s.registry.Get(id)
}

func (s *Server) Registry() *AgentRegistry {
	return s.registry
}

func (s *Server) LoadState() error {
	if err := s.EnsureDataDir(); err != nil {
		return err
	}
	if err := s.LoadSettings(); err != nil {
		return err
	}
	if err := s.contexts.Load(); err != nil {
		return err
	}
	if err := s.tasks.Load(); err != nil {
		return err
	}
	return s.sessions.Load()
}

func (s *Server) Config() Config {
	return s.cfg
}

func (s *Server) RouterAgents() []string {
	info, ok := s.registry.Get("router")
	if ok {
		if getter, ok := info.Agent.(interface{ Delegates() []string }); ok {
			return getter.Delegates()
		}
	}
	return append([]string{}, s.cfg.Router.Agents...)
}

func (s *Server) UpdateRouterAgents(ids []string) bool {
	s.cfg.Router.Agents = append([]string{}, ids...)
	s.settings.RouterAgents = append([]string{}, ids...)
	if err := s.SaveSettings(); err != nil {
		s.logger.Warnf("failed to save settings: %v", err)
	}
	info, ok := s.registry.Get("router")
	if !ok {
		return false
	}
	if setter, ok := info.Agent.(interface{ SetDelegates([]string) }); ok {
		setter.SetDelegates(ids)
		return true
	}
	return false
}

func (s *Server) handleHubStatus(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	agentsInfo := s.registry.List()
	resultAgents := make([]map[string]any, 0, len(agentsInfo))
	healthy := 0
	degraded := 0
	unhealthy := 0
	unknown := 0
	for _, info := range agentsInfo {
		status := info.Health.Status
		switch status {
		case "healthy":
			healthy++
		case "degraded":
			degraded++
		case "unhealthy":
			unhealthy++
		default:
			unknown++
		}
		resultAgents = append(resultAgents, map[string]any{
			"id":     info.Agent.ID(),
			"name":   info.Agent.Name(),
			"status": status,
		})
	}
	return map[string]any{
		"version":     "1.0.0",
		"uptime":      int(time.Since(s.startTime).Seconds()),
		"agents":      resultAgents,
		"activeTasks": s.tasks.Active(),
		"totalTasks":  len(s.tasks.List("", "", 0, 0)),
		"total":       len(agentsInfo),
		"healthy":     healthy,
		"degraded":    degraded,
		"unhealthy":   unhealthy,
		"unknown":     unknown,
	}, nil
}

func (s *Server) handleAgentsList(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	var req struct {
		IncludeHealth bool `json:"includeHealth"`
	}
	_ = json.Unmarshal(params, &req)
	infos := s.registry.List()
	result := make([]map[string]any, 0, len(infos))
	for _, info := range infos {
		entry := map[string]any{
			"id":           info.Agent.ID(),
			"name":         info.Agent.Name(),
			"card":         info.Card,
			"registeredAt": info.RegisteredAt.Format(time.RFC3339Nano),
		}
		if req.IncludeHealth {
			entry["health"] = info.Health
		}
		result = append(result, entry)
	}
	return result, nil
}

func (s *Server) handleAgentsGet(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	var req struct {
		AgentID string `json:"agentId"`
	}
	if err := json.Unmarshal(params, &req); err != nil || req.AgentID == "" {
		return nil, &jsonrpc.RPCError{Code: jsonrpc.ErrInvalidParams, Message: "agentId required"}
	}
	info, ok := s.registry.Get(req.AgentID)
	if !ok {
		return nil, &jsonrpc.RPCError{Code: jsonrpc.ErrAgentNotFound, Message: "agent not found"}
	}
	return map[string]any{
		"id":           info.Agent.ID(),
		"name":         info.Agent.Name(),
		"card":         info.Card,
		"health":       info.Health,
		"registeredAt": info.RegisteredAt.Format(time.RFC3339Nano),
	}, nil
}

func (s *Server) handleAgentsHealth(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	var req struct {
		AgentID string `json:"agentId"`
	}
	if err := json.Unmarshal(params, &req); err != nil || req.AgentID == "" {
		return nil, &jsonrpc.RPCError{Code: jsonrpc.ErrInvalidParams, Message: "agentId required"}
	}
	info, ok := s.registry.Get(req.AgentID)
	if !ok {
		return nil, &jsonrpc.RPCError{Code: jsonrpc.ErrAgentNotFound, Message: "agent not found"}
	}
	return info.Health, nil
}

func (s *Server) handleTasksList(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	var req struct {
		ContextID string          `json:"contextId"`
		State     types.TaskState `json:"state"`
		Limit     int             `json:"limit"`
		Offset    int             `json:"offset"`
	}
	_ = json.Unmarshal(params, &req)
	return s.tasks.List(req.ContextID, req.State, req.Limit, req.Offset), nil
}

func (s *Server) handleContextsList(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	var req struct {
		Limit int `json:"limit"`
	}
	_ = json.Unmarshal(params, &req)
	contexts := s.contexts.List(req.Limit)
	result := make([]map[string]any, 0, len(contexts))
	for _, ctx := range contexts {
		result = append(result, map[string]any{
			"id":        ctx.ID,
			"createdAt": ctx.CreatedAt.Format(time.RFC3339Nano),
			"messages":  len(ctx.History),
		})
	}
	return result, nil
}

func (s *Server) handleSessionsList(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	return s.sessions.List(), nil
}

func (s *Server) handleSessionsCreate(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	session, err := s.sessions.Create()
	if err != nil {
		return nil, &jsonrpc.RPCError{Code: jsonrpc.ErrInternalError, Message: err.Error()}
	}
	return session, nil
}

func (s *Server) handleSessionsAppend(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	var req struct {
		SessionID string       `json:"sessionId"`
		Entry     SessionEntry `json:"entry"`
	}
	if err := json.Unmarshal(params, &req); err != nil || req.SessionID == "" {
		return nil, &jsonrpc.RPCError{Code: jsonrpc.ErrInvalidParams, Message: "sessionId required"}
	}
	if req.Entry.Timestamp == "" {
		req.Entry.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if err := s.sessions.AddEntry(req.SessionID, req.Entry); err != nil {
		return nil, &jsonrpc.RPCError{Code: jsonrpc.ErrSessionNotFound, Message: err.Error()}
	}
	return map[string]any{"ok": true}, nil
}

func (s *Server) handleMessageSend(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	var req struct {
		Message       types.Message `json:"message"`
		Configuration struct {
			HistoryLength int    `json:"historyLength"`
			TimeoutMs     int    `json:"timeout"`
			WorkingDir    string `json:"workingDirectory"`
		} `json:"configuration"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, &jsonrpc.RPCError{Code: jsonrpc.ErrInvalidParams, Message: "invalid params"}
	}
	if req.Message.Kind != "message" {
		return nil, &jsonrpc.RPCError{Code: jsonrpc.ErrInvalidParams, Message: "message required"}
	}
	if req.Message.Metadata == nil {
		return nil, &jsonrpc.RPCError{Code: jsonrpc.ErrInvalidParams, Message: "metadata.targetAgent required"}
	}
	agentID, ok := req.Message.Metadata["targetAgent"].(string)
	if !ok || agentID == "" {
		return nil, &jsonrpc.RPCError{Code: jsonrpc.ErrInvalidParams, Message: "metadata.targetAgent required"}
	}
	info, ok := s.registry.Get(agentID)
	if !ok {
		return nil, &jsonrpc.RPCError{Code: jsonrpc.ErrAgentNotFound, Message: "agent not found"}
	}

	contextID := req.Message.ContextID
	if contextID == "" {
		contextID = utils.NewID("ctx")
	}
	if _, exists := s.contexts.Get(contextID); !exists {
		s.contexts.Create(contextID)
	}

	// A message that names an input-required task continues that task
	// instead of opening a new one.
	taskID := continuedTaskID(req.Message, s.tasks)
	if taskID == "" {
		taskID = utils.NewID("task")
		status := types.TaskStatus{State: types.TaskStateSubmitted, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)}
		s.tasks.Create(&types.Task{Kind: "task", ID: taskID, ContextID: contextID, Status: status})
	}
	req.Message.TaskID = taskID
	req.Message.ContextID = contextID
	_ = s.tasks.UpdateStatus(taskID, types.TaskStateWorking, nil)
	s.contexts.AddMessage(contextID, req.Message)

	workingDir := strings.TrimSpace(req.Configuration.WorkingDir)
	if workingDir == "" {
		workingDir = extractWorkingDir(req.Message.Metadata)
	}
	history := s.contexts.History(contextID, req.Configuration.HistoryLength)

	result, err := info.Agent.Execute(types.ExecutionContext{
		TaskID:          taskID,
		ContextID:       contextID,
		UserMessage:     req.Message,
		PreviousHistory: history,
		Timeout:         time.Duration(req.Configuration.TimeoutMs) * time.Millisecond,
		WorkingDir:      workingDir,
	})
	if err != nil {
		failure := &types.Message{Kind: "message", MessageID: "error-" + taskID, Role: "agent", Parts: []types.Part{{Kind: "text", Text: err.Error()}}, TaskID: taskID, ContextID: contextID}
		_ = s.tasks.UpdateStatus(taskID, types.TaskStateFailed, failure)
		return nil, &jsonrpc.RPCError{Code: jsonrpc.ErrInternalError, Message: err.Error()}
	}
	if result.Task.Status.Message != nil {
		result.Task.Status.Message.ContextID = contextID
		result.Task.Status.Message.TaskID = taskID
		s.contexts.AddMessage(contextID, *result.Task.Status.Message)
	}
	_ = s.tasks.UpdateStatus(taskID, result.Task.Status.State, result.Task.Status.Message)
	task, _ := s.tasks.Get(taskID)
	task.Artifacts = result.Task.Artifacts
	task.History = s.contexts.History(contextID, req.Configuration.HistoryLength)
	s.UpdateLastAgent(agentID)

	return task, nil
}

// continuedTaskID returns the ID of the input-required task this message
// resumes, or "" when the message starts a new task.
func continuedTaskID(msg types.Message, tasks *TaskManager) string {
	if msg.TaskID == "" {
		return ""
	}
	task, ok := tasks.Get(msg.TaskID)
	if !ok || task.Status.State != types.TaskStateInputRequired {
		return ""
	}
	return task.ID
}

func (s *Server) handleTaskGet(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(params, &req); err != nil || req.ID == "" {
		return nil, &jsonrpc.RPCError{Code: jsonrpc.ErrInvalidParams, Message: "id required"}
	}
	task, ok := s.tasks.Get(req.ID)
	if !ok {
		return nil, &jsonrpc.RPCError{Code: jsonrpc.ErrTaskNotFound, Message: "task not found"}
	}
	return task, nil
}

func (s *Server) handleTaskCancel(ctx context.Context, params json.RawMessage) (any, *jsonrpc.RPCError) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(params, &req); err != nil || req.ID == "" {
		return nil, &jsonrpc.RPCError{Code: jsonrpc.ErrInvalidParams, Message: "id required"}
	}
	task, ok := s.tasks.Get(req.ID)
	if !ok {
		return nil, &jsonrpc.RPCError{Code: jsonrpc.ErrTaskNotFound, Message: "task not found"}
	}
	switch task.Status.State {
	case types.TaskStateCompleted, types.TaskStateFailed, types.TaskStateCanceled:
		return nil, &jsonrpc.RPCError{Code: jsonrpc.ErrTaskNotCancelable, Message: "task not cancelable"}
	}
	// Abandoning an input-required task also drops the running
	// conversation on its context.
	for _, info := range s.registry.List() {
		if c, ok := info.Agent.(interface{ CancelContext(string) bool }); ok {
			c.CancelContext(task.ContextID)
		}
	}
	_ = s.tasks.UpdateStatus(task.ID, types.TaskStateCanceled, nil)
	return map[string]any{"canceled": true}, nil
}

func extractWorkingDir(metadata map[string]any) string {
	if metadata == nil {
		return ""
	}
	for _, key := range []string{"workingDirectory", "workingDir", "cwd"} {
		if dir, ok := metadata[key].(string); ok && strings.TrimSpace(dir) != "" {
			return dir
		}
	}
	return ""
}

func (s *Server) HubCard(baseURL string) types.AgentCard {
	return types.AgentCard{
		ProtocolVersion: "1.0",
		Name:            "AI Agents Hub",
		Description:     "Local hub for task-focused LLM agents",
		URL:             baseURL,
		Version:         "1.0.0",
		Provider:        types.Provider{Name: "Local"},
		Skills:          []types.Skill{},
		Capabilities:    types.AgentCapabilities{Streaming: true, PushNotifications: false, StateTransitionHistory: false},
	}
}

func (s *Server) EnsureDataDir() error {
	if s.cfg.DataDir == "" {
		return errors.New("data dir required")
	}
	return os.MkdirAll(s.cfg.DataDir, 0o755)
}

func (s *Server) PidFile() string {
	return filepath.Join(s.cfg.DataDir, "hub.pid")
}

func (s *Server) WritePid() error {
	if err := s.EnsureDataDir(); err != nil {
		return err
	}
	return os.WriteFile(s.PidFile(), []byte(fmt.Sprintf("%d", os.Getpid())), 0o644)
}

func (s *Server) RemovePid() {
	_ = os.Remove(s.PidFile())
}

func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

func (s *Server) Tasks() *TaskManager {
	return s.tasks
}

func (s *Server) Contexts() *ContextManager {
	return s.contexts
}
