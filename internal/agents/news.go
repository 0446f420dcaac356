package agents

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ai-agents/internal/llm"
	"ai-agents/internal/types"
)

const maxNewsStories = 10

// NewsAgent fetches top news stories of the day as a Markdown table with
// headline and summary columns.
type NewsAgent struct {
	client *llm.Client
	card   types.AgentCard
}

func NewNewsAgent(client *llm.Client, baseURL string) *NewsAgent {
	return &NewsAgent{
		client: client,
		card: newCard("news", "Top News Agent",
			"Summarizes the top news stories of the day as a Markdown table", baseURL,
			[]types.Skill{{
				ID:          "top-news",
				Name:        "News summaries",
				Description: "Fetches and summarizes top news stories",
				Tags:        []string{"summarization"},
			}}),
	}
}

func (a *NewsAgent) ID() string            { return "news" }
func (a *NewsAgent) Name() string          { return "Top News Agent" }
func (a *NewsAgent) Card() types.AgentCard { return a.card }

func (a *NewsAgent) CheckHealth() (types.AgentHealth, error) {
	return healthyNow(), nil
}

func (a *NewsAgent) Execute(ctx types.ExecutionContext) (types.ExecutionResult, error) {
	count, err := storyCount(ctx.UserMessage)
	if err != nil {
		return taskResult(ctx, types.TaskStateRejected, err.Error(), nil), nil
	}

	callCtx := context.Background()
	if ctx.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, ctx.Timeout)
		defer cancel()
	}

	text, err := a.Fetch(callCtx, count)
	if err != nil {
		return types.ExecutionResult{}, err
	}
	return taskResult(ctx, types.TaskStateCompleted, text, nil), nil
}

// Fetch asks for the top count stories rendered as a Markdown table.
func (a *NewsAgent) Fetch(ctx context.Context, count int) (string, error) {
	if count <= 0 {
		return "", errors.New("no stories requested, specify a positive number")
	}
	if count > maxNewsStories {
		return "", fmt.Errorf("too many stories requested, %d or fewer", maxNewsStories)
	}
	prompt := fmt.Sprintf(
		"Find the top %d news stories from today. "+
			"Return a Markdown table with two columns: 'Headline' and 'Summary'. "+
			"Each row should be a different story.", count)
	return a.client.Complete(ctx, prompt)
}

func (a *NewsAgent) Cancel(taskID string) (bool, error) {
	return false, nil
}

// storyCount reads the requested story count from metadata or the message
// text, capped at maxNewsStories.
func storyCount(msg types.Message) (int, error) {
	if raw, ok := msg.Metadata["count"]; ok {
		if n, ok := raw.(float64); ok {
			return validateCount(int(n))
		}
	}
	text := messageText(msg)
	for _, field := range strings.Fields(text) {
		if n, err := strconv.Atoi(field); err == nil {
			return validateCount(n)
		}
	}
	return 0, errors.New("specify how many stories to fetch, e.g. \"5\"")
}

func validateCount(n int) (int, error) {
	if n <= 0 {
		return 0, errors.New("no stories requested, specify a positive number")
	}
	if n > maxNewsStories {
		return 0, fmt.Errorf("too many stories requested, %d or fewer", maxNewsStories)
	}
	return n, nil
}
