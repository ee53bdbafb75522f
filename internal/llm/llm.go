// File path: internal/llm/llm.go
package llm

import (
	"os"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/nicodishanthj/Trawl_phase1/internal/common"
	"github.com/nicodishanthj/Trawl_phase1/internal/llm/providers"
)

type Message = providers.Message

type Request = providers.Request

type Completer = providers.Completer

// ErrUnavailable reports that no completion backend is configured.
var ErrUnavailable = providers.ErrUnavailable

// NewCompleter selects a completion backend from the environment. With
// OPENAI_API_KEY set it targets the OpenAI-compatible API at OPENAI_ENDPOINT
// (or the default endpoint); otherwise it returns the disabled provider so
// every AI call site takes its deterministic fallback.
func NewCompleter() Completer {
	logger := common.Logger()
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		logger.Warn("llm: OPENAI_API_KEY not set; completions disabled, deterministic fallbacks apply")
		return providers.NewDisabledCompleter()
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if endpoint := strings.TrimSpace(os.Getenv("OPENAI_ENDPOINT")); endpoint != "" {
		logger.Info("llm: using custom completion endpoint", "endpoint", endpoint)
		opts = append(opts, option.WithBaseURL(endpoint))
	}
	if timeoutStr := strings.TrimSpace(os.Getenv("OPENAI_HTTP_TIMEOUT")); timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			logger.Warn("llm: invalid OPENAI_HTTP_TIMEOUT, using default", "value", timeoutStr, "error", err)
		} else {
			opts = append(opts, option.WithRequestTimeout(timeout))
		}
	}
	client := openai.NewClient(opts...)
	logger.Info("llm: OpenAI completion provider selected")
	return providers.NewOpenAICompleter(&client)
}

// DefaultModel returns the chat model used when a request does not name one.
func DefaultModel() string {
	if model := strings.TrimSpace(os.Getenv("OPENAI_CHAT_MODEL")); model != "" {
		return model
	}
	return "gpt-4o-mini"
}
