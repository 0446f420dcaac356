package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"ai-agents/internal/llm"
	"ai-agents/internal/toolrunner"
	"ai-agents/internal/types"
)

// Request/response shapes for each developer tool. Arguments coming back
// from the model are decoded into these before dispatch.

type FormatLintRequest struct {
	Path string `json:"path"`
}

type FormatLintResponse struct {
	Success     bool   `json:"success"`
	GofmtOutput string `json:"gofmt_output"`
	GovetOutput string `json:"govet_output"`
}

type RunTestsRequest struct {
	TestPath string `json:"test_path"`
}

type RunTestsResponse struct {
	Success     bool     `json:"success"`
	Summary     string   `json:"summary"`
	FailedTests []string `json:"failed_tests"`
}

type GitStatusRequest struct {
	Path string `json:"path"`
}

type GitStatusResponse struct {
	UncommittedFiles []string `json:"uncommitted_files"`
	HasUncommitted   bool     `json:"has_uncommitted"`
}

const maxToolRounds = 8

// DevToolsAgent exposes formatter, test, and git-status tools to the model
// through function calling and runs the requested tools as subprocesses.
type DevToolsAgent struct {
	client *llm.Client
	card   types.AgentCard
}

func NewDevToolsAgent(client *llm.Client, baseURL string) *DevToolsAgent {
	return &DevToolsAgent{
		client: client,
		card: newCard("devtools", "Dev Tools Agent",
			"Runs formatting, tests, and git status through natural language", baseURL,
			[]types.Skill{{
				ID:          "dev-tools",
				Name:        "Developer tools",
				Description: "Formatting, vet, unit tests, git status",
				Tags:        []string{"tools", "function-calling"},
			}}),
	}
}

func (a *DevToolsAgent) ID() string            { return "devtools" }
func (a *DevToolsAgent) Name() string          { return "Dev Tools Agent" }
func (a *DevToolsAgent) Card() types.AgentCard { return a.card }

func (a *DevToolsAgent) CheckHealth() (types.AgentHealth, error) {
	start := time.Now()
	out, err := toolrunner.New().Run(context.Background(), "go", "version")
	if err != nil || out.ExitCode != 0 {
		health := healthyNow()
		health.Status = "degraded"
		health.ErrorMessage = "go toolchain not available"
		return health, nil
	}
	health := healthyNow()
	health.LatencyMs = time.Since(start).Milliseconds()
	return health, nil
}

func (a *DevToolsAgent) Execute(ctx types.ExecutionContext) (types.ExecutionResult, error) {
	prompt := messageText(ctx.UserMessage)
	if prompt == "" {
		return types.ExecutionResult{}, errors.New("empty prompt")
	}

	callCtx := context.Background()
	if ctx.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, ctx.Timeout)
		defer cancel()
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleSystem,
			Content: "You are a helpful developer assistant. " +
				"You can run code formatting, vet checks, unit tests, and check git status. " +
				"Use function calling when appropriate.",
		},
	}
	for _, msg := range ctx.PreviousHistory {
		role := openai.ChatMessageRoleUser
		if msg.Role == "agent" {
			role = openai.ChatMessageRoleAssistant
		}
		if text := messageText(msg); text != "" {
			messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: text})
		}
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	for round := 0; round < maxToolRounds; round++ {
		reply, err := a.client.ChatWithTools(callCtx, messages, toolDefinitions())
		if err != nil {
			return types.ExecutionResult{}, err
		}
		if len(reply.ToolCalls) == 0 {
			return taskResult(ctx, types.TaskStateCompleted, reply.Content, nil), nil
		}
		messages = append(messages, reply)
		for _, call := range reply.ToolCalls {
			result, err := a.CallTool(callCtx, ctx.WorkingDir, call.Function.Name, []byte(call.Function.Arguments))
			if err != nil {
				result = map[string]string{"error": err.Error()}
			}
			payload, _ := json.Marshal(result)
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    string(payload),
				ToolCallID: call.ID,
			})
		}
	}
	return types.ExecutionResult{}, errors.New("tool call limit exceeded")
}

func (a *DevToolsAgent) Cancel(taskID string) (bool, error) {
	return false, nil
}

// CallTool dispatches a tool call by name with validated arguments.
func (a *DevToolsAgent) CallTool(ctx context.Context, workingDir, name string, args []byte) (any, error) {
	switch name {
	case "run_formatter_linter":
		var req FormatLintRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}
		return a.RunFormatterLinter(ctx, workingDir, req)
	case "run_unit_tests":
		var req RunTestsRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}
		return a.RunUnitTests(ctx, workingDir, req)
	case "check_git_status":
		var req GitStatusRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}
		return a.CheckGitStatus(ctx, workingDir, req)
	}
	return nil, fmt.Errorf("unknown tool: %s", name)
}

// RunFormatterLinter runs gofmt -l and go vet on the given path.
func (a *DevToolsAgent) RunFormatterLinter(ctx context.Context, workingDir string, req FormatLintRequest) (FormatLintResponse, error) {
	path := req.Path
	if path == "" {
		path = "."
	}
	runner := toolrunner.New(toolrunner.WithDir(workingDir))

	gofmtOut, err := runner.Run(ctx, "gofmt", "-l", path)
	gofmt := gofmtOut.Combined()
	if err != nil {
		gofmt = "error running gofmt: " + err.Error()
	} else if gofmtOut.TimedOut {
		gofmt = "error: gofmt timed out"
	}

	vetOut, err := runner.Run(ctx, "go", "vet", "./...")
	vet := vetOut.Combined()
	if err != nil {
		vet = "error running go vet: " + err.Error()
	} else if vetOut.TimedOut {
		vet = "error: go vet timed out"
	}

	success := err == nil && !gofmtOut.TimedOut && !vetOut.TimedOut &&
		gofmtOut.ExitCode == 0 && vetOut.ExitCode == 0 && gofmt == ""
	return FormatLintResponse{Success: success, GofmtOutput: gofmt, GovetOutput: vet}, nil
}

// RunUnitTests runs go test on the given package path.
func (a *DevToolsAgent) RunUnitTests(ctx context.Context, workingDir string, req RunTestsRequest) (RunTestsResponse, error) {
	path := req.TestPath
	if path == "" {
		path = "./..."
	}
	// Test failures and build errors land on different streams; a pty
	// keeps them interleaved in order for the summary parser.
	runner := toolrunner.New(toolrunner.WithDir(workingDir), toolrunner.WithTimeout(30*time.Second), toolrunner.WithPTY())

	out, err := runner.Run(ctx, "go", "test", path)
	if err != nil {
		return RunTestsResponse{Success: false, Summary: "error running tests: " + err.Error()}, nil
	}
	if out.TimedOut {
		return RunTestsResponse{Success: false, Summary: "error: tests timed out after 30 seconds"}, nil
	}
	summary, failed := toolrunner.ParseTestOutput(out.Combined())
	return RunTestsResponse{Success: out.ExitCode == 0, Summary: summary, FailedTests: failed}, nil
}

// CheckGitStatus lists uncommitted files via git status --porcelain.
func (a *DevToolsAgent) CheckGitStatus(ctx context.Context, workingDir string, req GitStatusRequest) (GitStatusResponse, error) {
	path := req.Path
	if path == "" {
		path = "."
	}
	runner := toolrunner.New(toolrunner.WithDir(workingDir))

	out, err := runner.Run(ctx, "git", "-C", path, "status", "--porcelain")
	if err != nil || out.TimedOut || out.ExitCode != 0 {
		return GitStatusResponse{}, nil
	}
	files := toolrunner.ParseGitPorcelain(out.Stdout)
	return GitStatusResponse{UncommittedFiles: files, HasUncommitted: len(files) > 0}, nil
}

func decodeArgs(args []byte, into any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, into); err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}
	return nil
}

func toolDefinitions() []openai.Tool {
	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "run_formatter_linter",
				Description: "Run gofmt and go vet on a path and report their output.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"path": map[string]any{"type": "string", "description": "Path to format and vet, defaults to the current directory."},
					},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "run_unit_tests",
				Description: "Run go test and report a summary plus any failed tests.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"test_path": map[string]any{"type": "string", "description": "Package pattern to test, defaults to ./..."},
					},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "check_git_status",
				Description: "List uncommitted files in the git working tree.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"path": map[string]any{"type": "string", "description": "Repository path, defaults to the current directory."},
					},
				},
			},
		},
	}
}
