// Package orchestrator owns provider selection and failover: it runs
// attempts against the configured providers in order until one succeeds, the
// task is cancelled, or every provider has failed.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SuperCmdLabs/SuperCmd-sub001/config"
	"github.com/SuperCmdLabs/SuperCmd-sub001/protocol"
	"github.com/SuperCmdLabs/SuperCmd-sub001/taskstore"
)

// errExcerptLimit caps the length of the error excerpt shown in failover
// status events.
const errExcerptLimit = 120

// AttemptRequest is everything one attempt of the agent loop needs.
type AttemptRequest struct {
	RequestID string
	Prompt    string
	Provider  config.ProviderID
	Settings  config.AgentSettings
	History   []protocol.Message
	// LastResort tells the runner no provider remains after this one, so it
	// may emit its own terminal error event instead of deferring to the
	// orchestrator's aggregated one.
	LastResort bool
}

// Runner executes one attempt of the tool-calling loop against one provider.
// It must emit a well-formed subsequence of the event protocol for the
// request id, check ctx at every suspension point, and return exactly one
// terminal outcome.
type Runner interface {
	RunAttempt(ctx context.Context, req AttemptRequest, emit protocol.EmitFunc, waitConfirm protocol.ConfirmFunc) protocol.Outcome
}

// Orchestrator drives the provider-failover algorithm for one task at a
// time; concurrency exists only across tasks.
type Orchestrator struct {
	cfg    *config.Config
	store  *taskstore.Store
	runner Runner
	log    *slog.Logger
}

func New(cfg *config.Config, store *taskstore.Store, runner Runner, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{cfg: cfg, store: store, runner: runner, log: log}
}

// Run executes the task to its terminal state. Every code path finishes the
// task exactly once and leaves exactly one terminal event on the stream.
func (o *Orchestrator) Run(ctx context.Context, requestID, prompt string, history []protocol.Message, emit protocol.EmitFunc, waitConfirm protocol.ConfirmFunc) protocol.OutcomeStatus {
	plan := ProviderPlan(o.cfg)
	if len(plan) == 0 {
		// Configuration error: no task or attempt is recorded.
		emit(protocol.Error(requestID, "no AI provider configured: set credentials for at least one of anthropic, openai, gemini, or bedrock"))
		return protocol.StatusError
	}

	if err := o.store.StartTask(requestID, prompt); err != nil {
		o.log.Error("start task failed", "requestId", requestID, "err", err)
		emit(protocol.Error(requestID, fmt.Sprintf("could not start task: %v", err)))
		return protocol.StatusError
	}

	lastErr := ""
	for i, provider := range plan {
		// Cancellation is never retried past; it short-circuits the plan.
		if ctx.Err() != nil {
			return o.finishTask(requestID, protocol.StatusCancelled)
		}

		number := i + 1
		if err := o.store.StartAttempt(requestID, number, string(provider)); err != nil {
			o.log.Error("start attempt failed", "requestId", requestID, "attempt", number, "err", err)
		}
		emit(protocol.Status(requestID, fmt.Sprintf("attempt %d/%d with %s", number, len(plan), provider)))

		outcome := o.runner.RunAttempt(ctx, AttemptRequest{
			RequestID:  requestID,
			Prompt:     prompt,
			Provider:   provider,
			Settings:   o.cfg.Agent,
			History:    history,
			LastResort: i == len(plan)-1,
		}, emit, waitConfirm)

		if err := o.store.FinishAttempt(requestID, number, outcome); err != nil {
			o.log.Error("finish attempt failed", "requestId", requestID, "attempt", number, "err", err)
		}

		switch outcome.Status {
		case protocol.StatusDone:
			return o.finishTask(requestID, protocol.StatusDone)
		case protocol.StatusCancelled:
			return o.finishTask(requestID, protocol.StatusCancelled)
		default:
			lastErr = outcome.Err
			o.log.Warn("attempt failed", "requestId", requestID, "attempt", number, "provider", provider, "err", lastErr)
			if ctx.Err() != nil {
				return o.finishTask(requestID, protocol.StatusCancelled)
			}
			if i < len(plan)-1 {
				emit(protocol.Status(requestID, fmt.Sprintf(
					"provider %s failed (%s), switching to %s",
					provider, truncateErr(lastErr), plan[i+1])))
			}
		}
	}

	o.finishTask(requestID, protocol.StatusError)
	emit(protocol.Error(requestID, fmt.Sprintf("all %d providers failed; last error: %s", len(plan), lastErr)))
	return protocol.StatusError
}

func (o *Orchestrator) finishTask(requestID string, status protocol.OutcomeStatus) protocol.OutcomeStatus {
	if err := o.store.FinishTask(requestID, status); err != nil {
		o.log.Error("finish task failed", "requestId", requestID, "err", err)
	}
	return status
}

func truncateErr(msg string) string {
	if len(msg) <= errExcerptLimit {
		return msg
	}
	return msg[:errExcerptLimit] + "..."
}
