// Package runner implements the default attempt runner: one provider
// round-trip loop that calls the model, executes the tool calls it asks
// for, and feeds the results back until the model produces a final answer.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/SuperCmdLabs/SuperCmd-sub001/config"
	"github.com/SuperCmdLabs/SuperCmd-sub001/llm"
	"github.com/SuperCmdLabs/SuperCmd-sub001/orchestrator"
	"github.com/SuperCmdLabs/SuperCmd-sub001/protocol"
	"github.com/SuperCmdLabs/SuperCmd-sub001/tools"
	"github.com/google/uuid"
)

// ClientFactory builds the provider client for one attempt.
type ClientFactory func(ctx context.Context, id config.ProviderID, cfg *config.Config) (llm.Client, error)

// Runner drives the tool-calling loop for a single attempt. It emits
// non-terminal events plus done on success; on failure it returns the error
// outcome and lets the orchestrator decide whether to fail over.
type Runner struct {
	cfg   *config.Config
	tools []tools.Tool

	// ClientFactory defaults to llm.New and is replaced in tests and in
	// mock mode.
	ClientFactory ClientFactory
}

func New(cfg *config.Config, activeTools []tools.Tool) *Runner {
	return &Runner{cfg: cfg, tools: activeTools, ClientFactory: llm.New}
}

// RunAttempt implements orchestrator.Runner.
func (r *Runner) RunAttempt(ctx context.Context, req orchestrator.AttemptRequest, emit protocol.EmitFunc, waitConfirm protocol.ConfirmFunc) protocol.Outcome {
	client, err := r.ClientFactory(ctx, req.Provider, r.cfg)
	if err != nil {
		return protocol.OutcomeError(err.Error())
	}

	messages := buildMessages(req)

	maxSteps := req.Settings.MaxSteps
	if maxSteps <= 0 {
		maxSteps = config.DefaultMaxSteps
	}

	for step := 0; step < maxSteps; step++ {
		if ctx.Err() != nil {
			return protocol.OutcomeCancelled()
		}

		reply, err := client.Chat(ctx, messages, r.tools)
		if err != nil {
			if ctx.Err() != nil {
				return protocol.OutcomeCancelled()
			}
			return protocol.OutcomeError(err.Error())
		}
		messages = append(messages, *reply)

		if len(reply.ToolCalls) == 0 {
			// Final answer.
			if reply.Content != "" {
				emit(protocol.TextChunk(req.RequestID, reply.Content))
			}
			emit(protocol.Done(req.RequestID))
			return protocol.OutcomeDone()
		}

		// Content alongside tool calls is the model thinking out loud.
		if reply.Content != "" {
			emit(protocol.Thinking(req.RequestID, reply.Content))
		}

		for _, tc := range reply.ToolCalls {
			if ctx.Err() != nil {
				return protocol.OutcomeCancelled()
			}
			result, outcome := r.runToolCall(ctx, req, tc, emit, waitConfirm)
			if outcome != nil {
				return *outcome
			}
			messages = append(messages, result)
		}
	}

	return protocol.OutcomeError(fmt.Sprintf("agent loop exceeded %d steps without a final answer", maxSteps))
}

// runToolCall executes one tool call, gating it through confirmation when
// required. It returns the tool message to feed back to the model, or a
// non-nil outcome when the attempt must stop.
func (r *Runner) runToolCall(ctx context.Context, req orchestrator.AttemptRequest, tc llm.ToolCall, emit protocol.EmitFunc, waitConfirm protocol.ConfirmFunc) (llm.Message, *protocol.Outcome) {
	if tc.ID == "" {
		tc.ID = uuid.NewString()
	}

	tool := findTool(r.tools, tc.Name)
	if tool == nil {
		emit(protocol.NewToolCall(req.RequestID, protocol.ToolCall{
			ID: tc.ID, Name: tc.Name, Args: tc.Args,
		}))
		emit(protocol.NewToolResult(req.RequestID, protocol.ToolResult{
			ID: tc.ID, Name: tc.Name, Success: false, Output: "tool not found",
		}))
		return toolMessage(tc, fmt.Sprintf("Error: tool %q is not available.", tc.Name)), nil
	}

	dangerous := tool.Dangerous()
	needsConfirm := dangerous || req.Settings.Mode == config.ModePrompt

	call := protocol.ToolCall{
		ID:        tc.ID,
		Name:      tc.Name,
		Args:      tc.Args,
		Dangerous: dangerous,
	}
	if needsConfirm {
		call.ConfirmationMessage = confirmMessage(tool, tc)
	}
	emit(protocol.NewToolCall(req.RequestID, call))

	if needsConfirm {
		emit(protocol.ConfirmNeeded(req.RequestID, protocol.Confirmation{
			ToolCallID: tc.ID,
			ToolName:   tc.Name,
			Message:    call.ConfirmationMessage,
			Args:       tc.Args,
		}))
		approved := waitConfirm(tc.ID)
		if ctx.Err() != nil {
			// Cancelled while waiting: the denial is a side effect of the
			// cancellation, not a user decision.
			out := protocol.OutcomeCancelled()
			return llm.Message{}, &out
		}
		if !approved {
			emit(protocol.NewToolResult(req.RequestID, protocol.ToolResult{
				ID: tc.ID, Name: tc.Name, Success: false, Output: "denied by user",
			}))
			return toolMessage(tc, "The user denied execution of this tool call."), nil
		}
	}

	start := time.Now()
	output, err := tool.Execute(ctx, tc.Args)
	if ctx.Err() != nil {
		out := protocol.OutcomeCancelled()
		return llm.Message{}, &out
	}
	durationMS := time.Since(start).Milliseconds()

	success := err == nil
	if err != nil {
		output = err.Error()
	}
	emit(protocol.NewToolResult(req.RequestID, protocol.ToolResult{
		ID:         tc.ID,
		Name:       tc.Name,
		Success:    success,
		Output:     output,
		DurationMS: durationMS,
	}))

	if !success {
		return toolMessage(tc, fmt.Sprintf("Error: %s", output)), nil
	}
	return toolMessage(tc, output), nil
}

// buildMessages assembles the provider conversation: system prompt, prior
// history, then the current prompt.
func buildMessages(req orchestrator.AttemptRequest) []llm.Message {
	var messages []llm.Message
	if req.Settings.SystemPrompt != "" {
		messages = append(messages, llm.Message{Role: "system", Content: req.Settings.SystemPrompt})
	}
	for _, m := range req.History {
		messages = append(messages, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: req.Prompt})
	return messages
}

func toolMessage(tc llm.ToolCall, content string) llm.Message {
	return llm.Message{
		Role:      "tool",
		Content:   content,
		ToolCalls: []llm.ToolCall{tc},
	}
}

func confirmMessage(tool tools.Tool, tc llm.ToolCall) string {
	if msg := tool.ConfirmationMessage(tc.Args); msg != "" {
		return msg
	}
	return fmt.Sprintf("Run tool %q?", tc.Name)
}

func findTool(ts []tools.Tool, name string) tools.Tool {
	for _, t := range ts {
		if t.Name() == name {
			return t
		}
	}
	return nil
}
