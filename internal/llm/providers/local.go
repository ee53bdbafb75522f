// File path: internal/llm/providers/local.go
package providers

import (
	"context"
	"errors"
)

type Message struct {
	Role    string
	Content string
}

// Request is one completion call: a model identifier, role-tagged messages,
// an output-size cap and a sampling temperature.
type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Completer is the single-operation completion service consumed by the
// pipeline. Implementations must report failures (including timeouts) as
// errors; call sites treat every error identically and apply a
// deterministic fallback.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// ErrUnavailable is returned by the disabled completer for every request.
var ErrUnavailable = errors.New("completion backend not configured")

// DisabledCompleter stands in when no backend is configured. It fails every
// request so the pipeline's deterministic fallbacks take over instead of
// producing fabricated text.
type DisabledCompleter struct{}

func NewDisabledCompleter() *DisabledCompleter {
	return &DisabledCompleter{}
}

func (d *DisabledCompleter) Complete(ctx context.Context, req Request) (string, error) {
	return "", ErrUnavailable
}

func (d *DisabledCompleter) Name() string {
	return "disabled"
}
