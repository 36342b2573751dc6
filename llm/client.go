// Package llm provides the chat clients for the supported AI providers. One
// client serves one attempt; the orchestrator resolves which provider a given
// attempt binds to.
package llm

import (
	"context"
	"fmt"

	"github.com/SuperCmdLabs/SuperCmd-sub001/config"
	"github.com/SuperCmdLabs/SuperCmd-sub001/errors"
	"github.com/SuperCmdLabs/SuperCmd-sub001/tools"
)

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Message is one entry of the chat exchanged with a provider.
// Role is "system", "user", "assistant", or "tool".
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Client is the interface for one provider's chat completion API.
type Client interface {
	Chat(ctx context.Context, messages []Message, availableTools []tools.Tool) (*Message, error)
}

// New builds the client for the given provider from its resolved
// configuration.
func New(ctx context.Context, id config.ProviderID, cfg *config.Config) (Client, error) {
	p := cfg.ProviderConfig(id)
	switch id {
	case config.ProviderAnthropic:
		return NewAnthropicClient(ctx, p)
	case config.ProviderOpenAI:
		return NewOpenAIClient(ctx, p)
	case config.ProviderGemini:
		return NewGeminiClient(ctx, p)
	case config.ProviderBedrock:
		return NewBedrockClient(ctx, p)
	default:
		return nil, errors.New("unknown provider '%s'", id)
	}
}

// MockClient is a deterministic client for tests and offline runs. It parrots
// the last user message.
type MockClient struct{}

func (m *MockClient) Chat(ctx context.Context, messages []Message, availableTools []tools.Tool) (*Message, error) {
	last := ""
	for _, msg := range messages {
		if msg.Role == "user" {
			last = msg.Content
		}
	}
	return &Message{
		Role:    "assistant",
		Content: fmt.Sprintf("mock response to: %s", last),
	}, nil
}
