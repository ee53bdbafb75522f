// File path: internal/llm/providers/openai_client.go
package providers

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v2"

	"github.com/nicodishanthj/Trawl_phase1/internal/common"
)

type OpenAICompleter struct {
	client *openai.Client
}

func NewOpenAICompleter(client *openai.Client) *OpenAICompleter {
	return &OpenAICompleter{client: client}
}

func (o *OpenAICompleter) Complete(ctx context.Context, req Request) (string, error) {
	if o.client == nil {
		return "", fmt.Errorf("nil openai client")
	}
	logger := common.Logger()
	params := openai.ChatCompletionNewParams{Model: openai.ChatModel(req.Model)}
	for _, msg := range req.Messages {
		switch strings.ToLower(msg.Role) {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	params.Temperature = openai.Float(req.Temperature)
	logger.Debug("llm: sending completion request", "model", req.Model, "messages", len(req.Messages))
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		logger.Warn("llm: completion failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	logger.Debug("llm: completion succeeded")
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAICompleter) Name() string {
	return "openai"
}
