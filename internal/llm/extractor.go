package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"ai-agents/internal/convo"
	"ai-agents/internal/schema"
)

// StructuredExtractor implements convo.Extractor on top of the chat
// completions API using a JSON-schema response format. Any API or decode
// failure is returned as-is so the session counts it as a recoverable
// extraction failure.
type StructuredExtractor struct {
	client *Client
}

func NewStructuredExtractor(client *Client) *StructuredExtractor {
	return &StructuredExtractor{client: client}
}

func (e *StructuredExtractor) Extract(ctx context.Context, target schema.Schema, turns []convo.Turn) (schema.Record, error) {
	raw, err := json.Marshal(target.JSONSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal response schema: %w", err)
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: extractionPrompt(target),
	})
	for _, turn := range turns {
		role := openai.ChatMessageRoleUser
		if turn.Role == convo.RoleSystem {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Text})
	}

	content, err := e.client.ChatStructured(ctx, messages, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:        target.Name,
			Description: target.Description,
			Schema:      json.RawMessage(raw),
		},
	})
	if err != nil {
		return nil, err
	}

	var rec schema.Record
	if err := json.Unmarshal([]byte(content), &rec); err != nil {
		return nil, fmt.Errorf("decode extraction: %w", err)
	}
	return rec, nil
}

func extractionPrompt(target schema.Schema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a helpful assistant collecting structured information from a conversation. Target: %s. ", target.Description)
	b.WriteString("Read the whole conversation and fill in every field you can from what the user said. ")
	b.WriteString("Omit fields the user has not provided yet; never invent values. Fields:\n")
	for _, f := range target.Fields {
		fmt.Fprintf(&b, "- %s: %s", f.Name, f.Description)
		if f.Type == schema.FieldEnum {
			fmt.Fprintf(&b, " One of: %s.", strings.Join(f.Values, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}
