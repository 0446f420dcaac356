package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"ai-agents/internal/hub"
	"ai-agents/internal/jsonrpc"
	"ai-agents/internal/transport"
	"ai-agents/internal/types"
	"ai-agents/internal/utils"
)

func Run() int {
	if len(os.Args) < 2 {
		return runTUI(os.Args[1:])
	}

	cmd := os.Args[1]
	if strings.HasPrefix(cmd, "-") {
		return runTUI(os.Args[1:])
	}
	switch cmd {
	case "start":
		return runStart(os.Args[2:])
	case "stop":
		return runStop(os.Args[2:])
	case "status":
		return runStatus(os.Args[2:])
	case "agents":
		return runAgents(os.Args[2:])
	case "send":
		return runSend(os.Args[2:])
	case "tasks":
		return runTasks(os.Args[2:])
	case "report":
		return runConversation("bugreport", os.Args[2:])
	case "standup":
		return runConversation("standup", os.Args[2:])
	case "news":
		return runNews(os.Args[2:])
	case "ask":
		return runAsk(os.Args[2:])
	case "tui":
		return runTUI(os.Args[2:])
	default:
		usage()
		return 1
	}
}

func usage() {
	fmt.Println("ai-agents <command> [options]")
	fmt.Println("Commands: start, stop, status, agents, send, tasks, report, standup, news, ask, tui")
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	httpPort := fs.Int("http-port", 8080, "http port")
	noHTTP := fs.Bool("no-http", false, "disable http")
	socketPath := fs.String("socket", "/tmp/ai-agents-hub.sock", "unix socket path")
	verbose := fs.Bool("verbose", false, "debug logging")
	routerAgents := fs.String("router-agents", "", "comma-separated agent IDs the router may delegate to")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := hub.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	cfg.Socket.Path = *socketPath
	cfg.HTTP.Port = *httpPort
	cfg.HTTP.Enabled = !*noHTTP
	if agents := resolveRouterAgents(*routerAgents); agents != nil || strings.EqualFold(*routerAgents, "none") {
		cfg.Router.Agents = agents
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}

	logger := utils.NewLogger(cfg.Logging.Level)
	server := hub.NewServer(cfg, logger)
	server.RegisterHandlers()
	baseURL := fmt.Sprintf("http://%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	if err := server.InitAgents(baseURL); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	if err := server.LoadState(); err != nil {
		logger.Warnf("failed to load state: %v", err)
	}
	if err := server.WritePid(); err != nil {
		logger.Warnf("failed to write pid: %v", err)
	}

	ctx, cancel := contextWithSignals()
	defer cancel()
	server.Registry().StartHealthChecks(30 * time.Second)

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

	<-ctx.Done()
	server.Registry().Stop()
	server.RemovePid()
	return 0
}

func runStop(args []string) int {
	fs := flag.NewFlagSet("stop", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	pidFile := filepath.Join(os.Getenv("HOME"), ".ai-agents", "hub.pid")
	data, err := os.ReadFile(pidFile)
	if err != nil {
		fmt.Println("hub not running")
		return 1
	}
	pid := strings.TrimSpace(string(data))
	p, err := os.FindProcess(parsePID(pid))
	if err != nil {
		fmt.Println("failed to find process")
		return 1
	}
	_ = p.Signal(syscall.SIGTERM)
	fmt.Println("stop signal sent")
	return 0
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	format := fs.String("format", "pretty", "output format: json|pretty")
	socketPath := fs.String("socket", "/tmp/ai-agents-hub.sock", "unix socket path")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	resp, err := sendRPCUnix(*socketPath, jsonrpc.Request{JSONRPC: "2.0", Method: "hub/status", Params: nil, ID: "1"})
	if err != nil {
		fmt.Println("hub not responding")
		return 1
	}
	printResponse(resp, *format)
	return 0
}

func runAgents(args []string) int {
	fs := flag.NewFlagSet("agents", flag.ContinueOnError)
	format := fs.String("format", "pretty", "output format: json|pretty")
	socketPath := fs.String("socket", "/tmp/ai-agents-hub.sock", "unix socket path")
	withHealth := fs.Bool("health", false, "include health")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	params, _ := json.Marshal(map[string]any{"includeHealth": *withHealth})
	resp, err := sendRPCUnix(*socketPath, jsonrpc.Request{JSONRPC: "2.0", Method: "hub/agents/list", Params: params, ID: "1"})
	if err != nil {
		fmt.Println("hub not responding")
		return 1
	}
	printResponse(resp, *format)
	return 0
}

func runSend(args []string) int {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	format := fs.String("format", "pretty", "output format: json|pretty")
	socketPath := fs.String("socket", "/tmp/ai-agents-hub.sock", "unix socket path")
	contextID := fs.String("context", "", "context id")
	timeoutMs := fs.Int("timeout", 0, "timeout ms")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 2 {
		fmt.Println("usage: ai-agents send <agent-id> \"message\"")
		return 1
	}
	agentID := fs.Arg(0)
	text := fs.Arg(1)

	msg := userMessage(agentID, *contextID, text, nil)
	resp, err := sendMessage(*socketPath, msg, *timeoutMs)
	if err != nil {
		fmt.Println("hub not responding")
		return 1
	}
	printResponse(resp, *format)
	return 0
}

func runTasks(args []string) int {
	fs := flag.NewFlagSet("tasks", flag.ContinueOnError)
	format := fs.String("format", "pretty", "output format: json|pretty")
	socketPath := fs.String("socket", "/tmp/ai-agents-hub.sock", "unix socket path")
	contextID := fs.String("context", "", "context id")
	state := fs.String("state", "", "task state")
	limit := fs.Int("limit", 20, "limit")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	params, _ := json.Marshal(map[string]any{"contextId": *contextID, "state": *state, "limit": *limit, "offset": 0})
	resp, err := sendRPCUnix(*socketPath, jsonrpc.Request{JSONRPC: "2.0", Method: "hub/tasks/list", Params: params, ID: "1"})
	if err != nil {
		fmt.Println("hub not responding")
		return 1
	}
	printResponse(resp, *format)
	return 0
}

// runConversation drives a multi-turn collection against a conversational
// agent from stdin. When the hub answers input-required the returned task
// ID is sent back with the next line so the same task continues; any other
// state ends the loop.
func runConversation(agentID string, args []string) int {
	fs := flag.NewFlagSet(agentID, flag.ContinueOnError)
	socketPath := fs.String("socket", "/tmp/ai-agents-hub.sock", "unix socket path")
	timeoutMs := fs.Int("timeout", 120000, "per-turn timeout ms")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	scanner := bufio.NewScanner(os.Stdin)
	contextID := ""
	taskID := ""
	if fs.NArg() > 0 {
		// A first message on the command line skips the first prompt.
		if code := conversationTurn(*socketPath, agentID, &contextID, &taskID, strings.Join(fs.Args(), " "), *timeoutMs); code >= 0 {
			return code
		}
	}
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return 0
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if code := conversationTurn(*socketPath, agentID, &contextID, &taskID, text, *timeoutMs); code >= 0 {
			return code
		}
	}
}

// conversationTurn sends one message and prints the agent's reply. It
// returns an exit code once the conversation is over, -1 while the agent
// still needs input.
func conversationTurn(socketPath, agentID string, contextID, taskID *string, text string, timeoutMs int) int {
	msg := userMessage(agentID, *contextID, text, nil)
	msg.TaskID = *taskID
	resp, err := sendMessage(socketPath, msg, timeoutMs)
	if err != nil {
		fmt.Println("hub not responding")
		return 1
	}
	if resp.Error != nil {
		fmt.Println("error: " + resp.Error.Message)
		return 1
	}
	task, err := decodeTaskResult(resp.Result)
	if err != nil {
		fmt.Println("error: " + err.Error())
		return 1
	}
	*contextID = task.ContextID
	if task.Status.Message != nil {
		fmt.Println(taskMessageText(*task.Status.Message))
	}
	switch task.Status.State {
	case types.TaskStateInputRequired:
		*taskID = task.ID
		return -1
	case types.TaskStateCompleted:
		return 0
	default:
		return 1
	}
}

func runNews(args []string) int {
	fs := flag.NewFlagSet("news", flag.ContinueOnError)
	socketPath := fs.String("socket", "/tmp/ai-agents-hub.sock", "unix socket path")
	count := fs.Int("count", 5, "number of stories (1-10)")
	timeoutMs := fs.Int("timeout", 120000, "timeout ms")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	msg := userMessage("news", "", fmt.Sprintf("Top %d news stories", *count), nil)
	msg.Metadata["count"] = *count
	resp, err := sendMessage(*socketPath, msg, *timeoutMs)
	if err != nil {
		fmt.Println("hub not responding")
		return 1
	}
	return printTaskText(resp)
}

func runAsk(args []string) int {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	socketPath := fs.String("socket", "/tmp/ai-agents-hub.sock", "unix socket path")
	timeoutMs := fs.Int("timeout", 300000, "timeout ms")
	var files fileList
	fs.Var(&files, "f", "file to search (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 1 {
		fmt.Println("usage: ai-agents ask -f <file> [-f <file>...] \"question\"")
		return 1
	}
	question := strings.Join(fs.Args(), " ")

	parts := make([]types.Part, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read "+path+": "+err.Error())
			return 1
		}
		parts = append(parts, types.Part{Kind: "file", File: &types.File{
			Name:  filepath.Base(path),
			Bytes: base64.StdEncoding.EncodeToString(data),
		}})
	}
	msg := userMessage("filesearch", "", question, parts)
	resp, err := sendMessage(*socketPath, msg, *timeoutMs)
	if err != nil {
		fmt.Println("hub not responding")
		return 1
	}
	return printTaskText(resp)
}

type fileList []string

func (f *fileList) String() string { return strings.Join(*f, ",") }

func (f *fileList) Set(value string) error {
	*f = append(*f, value)
	return nil
}

func userMessage(agentID, contextID, text string, extraParts []types.Part) types.Message {
	parts := []types.Part{{Kind: "text", Text: text}}
	parts = append(parts, extraParts...)
	return types.Message{
		Kind:      "message",
		MessageID: utils.NewID("msg"),
		Role:      "user",
		Parts:     parts,
		ContextID: contextID,
		Metadata:  map[string]any{"targetAgent": agentID},
	}
}

func sendMessage(socketPath string, msg types.Message, timeoutMs int) (jsonrpc.Response, error) {
	params, _ := json.Marshal(map[string]any{
		"message":       msg,
		"configuration": map[string]any{"historyLength": 10, "timeout": timeoutMs},
	})
	return sendRPCUnix(socketPath, jsonrpc.Request{JSONRPC: "2.0", Method: "message/send", Params: params, ID: "1"})
}

func printTaskText(resp jsonrpc.Response) int {
	if resp.Error != nil {
		fmt.Println("error: " + resp.Error.Message)
		return 1
	}
	task, err := decodeTaskResult(resp.Result)
	if err != nil {
		fmt.Println("error: " + err.Error())
		return 1
	}
	if task.Status.Message != nil {
		fmt.Println(taskMessageText(*task.Status.Message))
	}
	if task.Status.State != types.TaskStateCompleted {
		return 1
	}
	return 0
}

func decodeTaskResult(result any) (types.Task, error) {
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

func taskMessageText(msg types.Message) string {
	parts := make([]string, 0, len(msg.Parts))
	for _, part := range msg.Parts {
		if part.Kind == "text" {
			parts = append(parts, part.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func contextWithSignals() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

func sendRPCUnix(socketPath string, req jsonrpc.Request) (jsonrpc.Response, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return jsonrpc.Response{}, err
	}
	defer conn.Close()
	data, _ := json.Marshal(req)
	_, err = conn.Write(append(data, '\n'))
	if err != nil {
		return jsonrpc.Response{}, err
	}
	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return jsonrpc.Response{}, err
	}
	var resp jsonrpc.Response
	if err := json.Unmarshal(bytes.TrimSpace(line), &resp); err != nil {
		return jsonrpc.Response{}, err
	}
	return resp, nil
}

func printResponse(resp jsonrpc.Response, format string) {
	if format == "json" {
		data, _ := json.Marshal(resp)
		fmt.Println(string(data))
		return
	}
	data, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(data))
}

func parsePID(val string) int {
	pid := 0
	_, _ = fmt.Sscanf(val, "%d", &pid)
	return pid
}

func resolveRouterAgents(flagValue string) []string {
	if flagValue == "" {
		flagValue = os.Getenv("ROUTER_AGENTS")
	}
	if flagValue == "" {
		return nil
	}
	if strings.EqualFold(flagValue, "none") {
		return nil
	}
	items := strings.Split(flagValue, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		val := strings.TrimSpace(item)
		if val == "" {
			continue
		}
		out = append(out, val)
	}
	return out
}
