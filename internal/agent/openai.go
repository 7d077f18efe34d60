package agent

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIService implements Service on the OpenAI Assistants API.
type OpenAIService struct {
	client *openai.Client
}

// NewOpenAIService returns a service authenticated with apiKey. An empty
// baseURL uses the public API.
func NewOpenAIService(apiKey, baseURL string) *OpenAIService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIService{client: openai.NewClientWithConfig(cfg)}
}

func (s *OpenAIService) CreateThread(ctx context.Context) (string, error) {
	thread, err := s.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	return thread.ID, nil
}

func (s *OpenAIService) AddMessage(ctx context.Context, threadID, content string) error {
	_, err := s.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("failed to add message to thread %s: %w", threadID, err)
	}
	return nil
}

func (s *OpenAIService) CreateRun(ctx context.Context, threadID string, req RunRequest) (*Run, error) {
	tools := make([]openai.Tool, 0, len(req.Tools))
	for _, def := range req.Tools {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	run, err := s.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: req.AssistantID,
		Tools:       tools,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return fromOpenAIRun(run), nil
}

func (s *OpenAIService) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	run, err := s.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve run %s: %w", runID, err)
	}
	return fromOpenAIRun(run), nil
}

func (s *OpenAIService) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (*Run, error) {
	req := openai.SubmitToolOutputsRequest{ToolOutputs: make([]openai.ToolOutput, 0, len(outputs))}
	for _, o := range outputs {
		req.ToolOutputs = append(req.ToolOutputs, openai.ToolOutput{ToolCallID: o.ToolCallID, Output: o.Output})
	}
	run, err := s.client.SubmitToolOutputs(ctx, threadID, runID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to submit tool outputs for run %s: %w", runID, err)
	}
	return fromOpenAIRun(run), nil
}

func (s *OpenAIService) RunReply(ctx context.Context, threadID, runID string) (string, error) {
	limit := 20
	order := "asc"
	list, err := s.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, &runID)
	if err != nil {
		return "", fmt.Errorf("failed to list messages of run %s: %w", runID, err)
	}
	var parts []string
	for _, msg := range list.Messages {
		if msg.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		for _, c := range msg.Content {
			if c.Text != nil && strings.TrimSpace(c.Text.Value) != "" {
				parts = append(parts, c.Text.Value)
			}
		}
	}
	return strings.Join(parts, "\n"), nil
}

func fromOpenAIRun(r openai.Run) *Run {
	run := &Run{ID: r.ID, ThreadID: r.ThreadID, Status: RunStatus(string(r.Status))}
	if r.LastError != nil {
		run.LastError = r.LastError.Message
	}
	if r.RequiredAction != nil && r.RequiredAction.SubmitToolOutputs != nil {
		for _, tc := range r.RequiredAction.SubmitToolOutputs.ToolCalls {
			run.ToolCalls = append(run.ToolCalls, ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
	}
	return run
}
