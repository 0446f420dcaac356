package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"ai-agents/internal/hub"
	"ai-agents/internal/jsonrpc"
	"ai-agents/internal/transport"
	"ai-agents/internal/types"
	"ai-agents/internal/utils"
)

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	footerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	agentStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	promptStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	activeTabStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("62")).Padding(0, 1)
	tabStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	inputBackground = lipgloss.AdaptiveColor{Light: "252", Dark: "236"}
)

const sendTimeout = 2 * time.Minute

// chatEntry is one rendered line group in the conversation log.
type chatEntry struct {
	role string // "user", "agent", "error", "info"
	text string
}

// conversation tracks the open task per agent so follow-up input continues
// the same collection instead of starting over.
type conversation struct {
	contextID string
	taskID    string
	entries   []chatEntry
}

type model struct {
	cfg    hub.Config
	logger *utils.Logger
	caller *hub.LocalCaller
	cancel context.CancelFunc

	width  int
	height int

	agentIDs   []string
	agentIndex int
	convos     map[string]*conversation

	chat     viewport.Model
	msgInput textarea.Model
	keys     keyMap
	help     help.Model
	showHelp bool
	spinner  spinner.Model
	sending  bool
	errMsg   string
}

type sendResultMsg struct {
	agentID string
	task    types.Task
	err     error
}

func Run(cfg hub.Config, logger *utils.Logger) error {
	server := hub.NewServer(cfg, logger)
	server.RegisterHandlers()
	if err := server.LoadState(); err != nil {
		logger.Warnf("failed to load state: %v", err)
	}
	baseURL := fmt.Sprintf("http://%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	if err := server.InitAgents(baseURL); err != nil {
		return err
	}
	if err := server.WritePid(); err != nil {
		logger.Warnf("failed to write pid: %v", err)
	}
	server.Registry().StartHealthChecks(30 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	if cfg.Socket.Enabled {
		unixTransport := transport.NewUnixTransport(cfg, server, logger)
		go func() {
			if err := unixTransport.Start(ctx); err != nil {
				logger.Errorf("unix transport error: %v", err)
			}
		}()
	}
	if cfg.HTTP.Enabled {
		httpTransport := transport.NewHTTPTransport(cfg, server, logger)
		go func() {
			if err := httpTransport.Start(ctx); err != nil {
				logger.Errorf("http transport error: %v", err)
			}
		}()
	}

	agentIDs := make([]string, 0)
	for _, info := range server.AgentsList() {
		agentIDs = append(agentIDs, info.Agent.ID())
	}
	sort.Strings(agentIDs)
	if len(agentIDs) == 0 {
		cancel()
		return fmt.Errorf("no agents registered")
	}
	agentIndex := 0
	if last := server.LastAgent(); last != "" {
		for i, id := range agentIDs {
			if id == last {
				agentIndex = i
				break
			}
		}
	}

	msgInput := textarea.New()
	msgInput.Placeholder = "message"
	msgInput.Focus()
	msgInput.Prompt = ""
	msgInput.ShowLineNumbers = false
	msgInput.SetHeight(3)
	msgInput.FocusedStyle.Base = msgInput.FocusedStyle.Base.Background(inputBackground)
	msgInput.BlurredStyle.Base = msgInput.BlurredStyle.Base.Background(inputBackground)

	spin := spinner.New()
	spin.Spinner = spinner.Line
	spin.Style = dimStyle

	convos := make(map[string]*conversation)
	for _, id := range agentIDs {
		convos[id] = &conversation{}
	}

	m := model{
		cfg:        cfg,
		logger:     logger,
		caller:     hub.NewLocalCaller(server.Handler()),
		cancel:     cancel,
		agentIDs:   agentIDs,
		agentIndex: agentIndex,
		convos:     convos,
		chat:       viewport.New(0, 0),
		msgInput:   msgInput,
		keys:       defaultKeyMap,
		help:       help.New(),
		spinner:    spin,
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	cancel()
	server.Registry().Stop()
	server.RemovePid()
	return err
}

func (m model) Init() tea.Cmd {
	return textarea.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.msgInput.SetWidth(msg.Width - 2)
		m.chat.Width = msg.Width
		m.chat.Height = msg.Height - m.msgInput.Height() - 5
		m.refreshChat()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.cancel()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		case key.Matches(msg, m.keys.NextAgent):
			m.agentIndex = (m.agentIndex + 1) % len(m.agentIDs)
			m.refreshChat()
			return m, nil
		case key.Matches(msg, m.keys.PrevAgent):
			m.agentIndex = (m.agentIndex - 1 + len(m.agentIDs)) % len(m.agentIDs)
			m.refreshChat()
			return m, nil
		case key.Matches(msg, m.keys.Cancel):
			return m.cancelConversation()
		case key.Matches(msg, m.keys.PageUp):
			m.chat.HalfPageUp()
			return m, nil
		case key.Matches(msg, m.keys.PageDown):
			m.chat.HalfPageDown()
			return m, nil
		case key.Matches(msg, m.keys.Send):
			return m.sendCurrent()
		}

	case sendResultMsg:
		m.sending = false
		convo := m.convos[msg.agentID]
		if msg.err != nil {
			convo.entries = append(convo.entries, chatEntry{role: "error", text: msg.err.Error()})
			m.refreshChat()
			return m, nil
		}
		convo.contextID = msg.task.ContextID
		text := taskText(msg.task)
		switch msg.task.Status.State {
		case types.TaskStateInputRequired:
			convo.taskID = msg.task.ID
			convo.entries = append(convo.entries, chatEntry{role: "prompt", text: text})
		case types.TaskStateCompleted:
			convo.taskID = ""
			convo.entries = append(convo.entries, chatEntry{role: "agent", text: text})
		case types.TaskStateCanceled:
			convo.taskID = ""
			convo.entries = append(convo.entries, chatEntry{role: "info", text: "conversation canceled"})
		default:
			convo.taskID = ""
			convo.entries = append(convo.entries, chatEntry{role: "error", text: text})
		}
		m.refreshChat()
		return m, nil

	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.msgInput, cmd = m.msgInput.Update(msg)
	return m, cmd
}

func (m model) sendCurrent() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.msgInput.Value())
	if text == "" || m.sending {
		return m, nil
	}
	agentID := m.agentIDs[m.agentIndex]
	convo := m.convos[agentID]
	convo.entries = append(convo.entries, chatEntry{role: "user", text: text})
	m.msgInput.Reset()
	m.sending = true
	m.errMsg = ""
	m.refreshChat()
	return m, tea.Batch(m.spinner.Tick, m.sendCmd(agentID, convo.contextID, convo.taskID, text))
}

func (m model) cancelConversation() (tea.Model, tea.Cmd) {
	agentID := m.agentIDs[m.agentIndex]
	convo := m.convos[agentID]
	if convo.taskID == "" {
		return m, nil
	}
	params, _ := json.Marshal(map[string]any{"id": convo.taskID})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _ = m.caller.Call(ctx, "tasks/cancel", params)
	convo.taskID = ""
	convo.entries = append(convo.entries, chatEntry{role: "info", text: "conversation canceled"})
	m.refreshChat()
	return m, nil
}

func (m model) sendCmd(agentID, contextID, taskID, text string) tea.Cmd {
	caller := m.caller
	return func() tea.Msg {
		msg := types.Message{
			Kind:      "message",
			MessageID: utils.NewID("msg"),
			Role:      "user",
			Parts:     []types.Part{{Kind: "text", Text: text}},
			ContextID: contextID,
			TaskID:    taskID,
			Metadata:  map[string]any{"targetAgent": agentID},
		}
		params, _ := json.Marshal(map[string]any{
			"message":       msg,
			"configuration": map[string]any{"historyLength": 10, "timeout": int(sendTimeout / time.Millisecond)},
		})
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		resp, err := caller.Call(ctx, "message/send", params)
		if err != nil {
			return sendResultMsg{agentID: agentID, err: err}
		}
		if resp.Error != nil {
			return sendResultMsg{agentID: agentID, err: rpcError(resp.Error)}
		}
		data, err := json.Marshal(resp.Result)
		if err != nil {
			return sendResultMsg{agentID: agentID, err: err}
		}
		var task types.Task
		if err := json.Unmarshal(data, &task); err != nil {
			return sendResultMsg{agentID: agentID, err: err}
		}
		return sendResultMsg{agentID: agentID, task: task}
	}
}

func (m *model) refreshChat() {
	convo := m.convos[m.agentIDs[m.agentIndex]]
	lines := make([]string, 0, len(convo.entries)*2)
	for _, entry := range convo.entries {
		switch entry.role {
		case "user":
			lines = append(lines, userStyle.Render("you")+" "+entry.text)
		case "agent":
			lines = append(lines, agentStyle.Render(m.agentIDs[m.agentIndex])+" "+entry.text)
		case "prompt":
			lines = append(lines, promptStyle.Render(m.agentIDs[m.agentIndex]+"?")+" "+entry.text)
		case "error":
			lines = append(lines, errStyle.Render("error")+" "+entry.text)
		default:
			lines = append(lines, dimStyle.Render(entry.text))
		}
		lines = append(lines, "")
	}
	m.chat.SetContent(strings.Join(lines, "\n"))
	m.chat.GotoBottom()
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("ai-agents") + "\n")
	b.WriteString(m.renderTabs() + "\n")
	b.WriteString(m.chat.View() + "\n")
	b.WriteString(m.msgInput.View() + "\n")

	footer := m.help.ShortHelpView(m.keys.ShortHelp())
	if m.showHelp {
		footer = m.help.FullHelpView(m.keys.FullHelp())
	}
	if m.sending {
		footer = m.spinner.View() + " waiting... " + footer
	}
	if m.errMsg != "" {
		footer = errStyle.Render(m.errMsg) + " " + footer
	}
	b.WriteString(footerStyle.Render(footer))
	return b.String()
}

func (m model) renderTabs() string {
	tabs := make([]string, 0, len(m.agentIDs))
	for i, id := range m.agentIDs {
		label := ansi.Truncate(id, 14, "…")
		if i == m.agentIndex {
			tabs = append(tabs, activeTabStyle.Render(label))
			continue
		}
		tabs = append(tabs, tabStyle.Render(label))
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if m.width > 0 {
		row = ansi.Truncate(row, m.width, "…")
	}
	return row
}

func taskText(task types.Task) string {
	if task.Status.Message == nil {
		return string(task.Status.State)
	}
	parts := make([]string, 0, len(task.Status.Message.Parts))
	for _, part := range task.Status.Message.Parts {
		if part.Kind == "text" {
			parts = append(parts, part.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func rpcError(e *jsonrpc.RPCError) error {
	return fmt.Errorf("%s (%d)", e.Message, e.Code)
}
