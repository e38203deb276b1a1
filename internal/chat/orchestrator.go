package chat

import (
	"context"
	"fmt"

	"github.com/klayza/Fractal/internal/ai"
	"github.com/klayza/Fractal/internal/logger"
)

// ToolDispatcher resolves and executes the tool calls the model asks
// for during a turn.
type ToolDispatcher interface {
	Schemas() []ai.Tool
	Dispatch(ctx context.Context, userID int64, call ai.ToolCall) (string, error)
}

// Orchestrator runs one conversation turn: first completion round
// with the full tool registry offered, an optional tool dispatch, and
// a follow-up round with no tools so the model phrases the result in
// character.
type Orchestrator struct {
	completer ai.Completer
	tools     ToolDispatcher
	assembler Assembler
	logger    logger.Logger
}

func NewOrchestrator(completer ai.Completer, tools ToolDispatcher, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		completer: completer,
		tools:     tools,
		logger:    log,
	}
}

// RunTurn returns the cleaned in-character reply. Nothing is
// persisted here; the caller appends history only after the whole
// turn succeeded.
func (o *Orchestrator) RunTurn(ctx context.Context, userID int64, in AssembleInput) (string, error) {
	charName := in.Card.Name()
	messages := o.assembler.Assemble(in)

	directive, err := o.completer.Complete(ctx, o.completer.NewRequest(messages, o.tools.Schemas()))
	if err != nil {
		return "", err
	}

	if !directive.IsToolCall() {
		return CleanReply(directive.Text, charName), nil
	}

	call := *directive.Call
	o.logger.WithFields(logger.Fields{
		"user_id": userID,
		"tool":    call.Function.Name,
	}).Info("Tool call requested")

	result, err := o.tools.Dispatch(ctx, userID, call)
	if err != nil {
		return "", err
	}

	messages = append(messages,
		ai.AssistantToolCall(call),
		ai.ToolResult(call, result),
	)

	// The follow-up round carries no schemas, so the model must answer
	// in plain text.
	directive, err = o.completer.Complete(ctx, o.completer.NewRequest(messages, nil))
	if err != nil {
		return "", err
	}
	if directive.IsToolCall() {
		// Some backends still emit a call here; its raw form becomes
		// the reply text rather than aborting the turn.
		o.logger.WithFields(logger.Fields{
			"user_id": userID,
			"tool":    directive.Call.Function.Name,
		}).Warn("Tool call in tool-free round, rendering as text")
		raw := fmt.Sprintf("%s(%s)", directive.Call.Function.Name, directive.Call.Function.Arguments)
		return CleanReply(raw, charName), nil
	}

	return CleanReply(directive.Text, charName), nil
}
