package agents

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"ai-agents/internal/llm"
	"ai-agents/internal/types"
)

const defaultChunkSize = 8000

// FileSearchAgent stores uploaded files in memory and answers natural
// language questions about them. Files larger than the chunk size are
// answered per chunk and the partial answers synthesized into one.
type FileSearchAgent struct {
	client    *llm.Client
	card      types.AgentCard
	chunkSize int

	mu    sync.RWMutex
	files map[string]storedFile
}

type storedFile struct {
	name    string
	content string
}

func NewFileSearchAgent(client *llm.Client, baseURL string) *FileSearchAgent {
	return &FileSearchAgent{
		client:    client,
		chunkSize: defaultChunkSize,
		files:     make(map[string]storedFile),
		card: newCard("filesearch", "File Search Agent",
			"Answers questions about uploaded files", baseURL,
			[]types.Skill{{
				ID:          "file-qa",
				Name:        "File question answering",
				Description: "Uploads files and answers questions about their contents",
				Tags:        []string{"files", "qa"},
				InputModes:  []string{"text/plain"},
			}}),
	}
}

func (a *FileSearchAgent) ID() string            { return "filesearch" }
func (a *FileSearchAgent) Name() string          { return "File Search Agent" }
func (a *FileSearchAgent) Card() types.AgentCard { return a.card }

func (a *FileSearchAgent) CheckHealth() (types.AgentHealth, error) {
	return healthyNow(), nil
}

// Upload stores a file and returns its ID.
func (a *FileSearchAgent) Upload(name, content string) string {
	id := uuid.NewString()
	a.mu.Lock()
	a.files[id] = storedFile{name: name, content: content}
	a.mu.Unlock()
	return id
}

// UploadPath reads a file from disk and stores it.
func (a *FileSearchAgent) UploadPath(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %q: %w", path, err)
	}
	return a.Upload(path, string(data)), nil
}

// Answer responds to a question about one uploaded file.
func (a *FileSearchAgent) Answer(ctx context.Context, fileID, question string) (string, error) {
	a.mu.RLock()
	file, ok := a.files[fileID]
	a.mu.RUnlock()
	if !ok {
		return "", errors.New("file not found")
	}

	chunks := chunkString(file.content, a.chunkSize)
	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		prompt := fmt.Sprintf(
			"You are an assistant helping a user with questions about a file.\n"+
				"File name: %s\nFile content (part %d of %d):\n%s\nQuestion: %s\nAnswer:",
			file.name, i+1, len(chunks), chunk, question)
		answer, err := a.client.Complete(ctx, prompt)
		if err != nil {
			return "", err
		}
		partials = append(partials, answer)
	}
	return a.synthesize(ctx, partials)
}

// AnswerMany answers the same question across several files and synthesizes
// one response. A missing file fails the whole call so the error is never
// silently folded into the synthesis.
func (a *FileSearchAgent) AnswerMany(ctx context.Context, fileIDs []string, question string) (string, error) {
	partials := make([]string, 0, len(fileIDs))
	for _, id := range fileIDs {
		answer, err := a.Answer(ctx, id, question)
		if err != nil {
			return "", fmt.Errorf("file %s: %w", id, err)
		}
		a.mu.RLock()
		name := a.files[id].name
		a.mu.RUnlock()
		partials = append(partials, fmt.Sprintf("File: %s\nAnswer: %s", name, answer))
	}
	if len(partials) == 0 {
		return "", errors.New("no files given")
	}
	return a.synthesize(ctx, partials)
}

func (a *FileSearchAgent) synthesize(ctx context.Context, partials []string) (string, error) {
	if len(partials) == 1 {
		return partials[0], nil
	}
	prompt := "Here are several answers to the same question from different parts of the material:\n" +
		strings.Join(partials, "\n") +
		"\nPlease synthesize a single, comprehensive answer."
	return a.client.Complete(ctx, prompt)
}

// Execute uploads any file parts on the message, then answers the text
// question against them (or against files named in metadata.fileIds).
func (a *FileSearchAgent) Execute(ctx types.ExecutionContext) (types.ExecutionResult, error) {
	callCtx := context.Background()
	if ctx.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, ctx.Timeout)
		defer cancel()
	}

	uploaded, err := a.uploadParts(ctx.UserMessage)
	if err != nil {
		return types.ExecutionResult{}, err
	}
	fileIDs := append(uploaded, metadataFileIDs(ctx.UserMessage)...)
	question := messageText(ctx.UserMessage)

	if question == "" {
		if len(uploaded) == 0 {
			return types.ExecutionResult{}, errors.New("no question or files provided")
		}
		return taskResult(ctx, types.TaskStateCompleted,
			"Uploaded "+strings.Join(uploaded, ", "), nil), nil
	}
	if len(fileIDs) == 0 {
		return taskResult(ctx, types.TaskStateInputRequired,
			"Upload a file or name uploaded file IDs to ask about.", nil), nil
	}

	answer, err := a.AnswerMany(callCtx, fileIDs, question)
	if err != nil {
		return types.ExecutionResult{}, err
	}
	return taskResult(ctx, types.TaskStateCompleted, answer, nil), nil
}

func (a *FileSearchAgent) Cancel(taskID string) (bool, error) {
	return false, nil
}

// uploadParts stores the file parts on a message. File bytes are base64 on
// the wire; malformed content is rejected rather than stored as-is.
func (a *FileSearchAgent) uploadParts(msg types.Message) ([]string, error) {
	var ids []string
	for _, part := range msg.Parts {
		if part.Kind != "file" || part.File == nil {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(part.File.Bytes)
		if err != nil {
			return nil, fmt.Errorf("file %q: content is not base64: %w", part.File.Name, err)
		}
		ids = append(ids, a.Upload(part.File.Name, string(decoded)))
	}
	return ids, nil
}

func metadataFileIDs(msg types.Message) []string {
	raw, ok := msg.Metadata["fileIds"]
	if !ok {
		return nil
	}
	var ids []string
	switch v := raw.(type) {
	case []string:
		ids = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				ids = append(ids, s)
			}
		}
	case string:
		ids = []string{v}
	}
	return ids
}

func chunkString(s string, size int) []string {
	if size <= 0 || len(s) <= size {
		return []string{s}
	}
	chunks := make([]string, 0, len(s)/size+1)
	for start := 0; start < len(s); start += size {
		end := start + size
		if end > len(s) {
			end = len(s)
		}
		chunks = append(chunks, s[start:end])
	}
	return chunks
}
