package runtime

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/pkg/utils/json"
)

// LocalTurnRunner is the built-in model-free runner. It serves direct
// commands against the gated tools and the specialist registry:
//
//	/tool <symbol> <json-arguments>
//	/consult <specialist-name> <message>
//	/specialists
//
// Anything else is answered with a plain acknowledgment. A model-backed
// runner replaces this through the TurnRunner seam.
type LocalTurnRunner struct{}

// NewLocalTurnRunner creates a LocalTurnRunner.
func NewLocalTurnRunner() *LocalTurnRunner {
	return &LocalTurnRunner{}
}

func (r *LocalTurnRunner) Run(ctx context.Context, turn *TurnContext, emit func(*entity.StreamEvent)) (*TurnResult, error) {
	input := strings.TrimSpace(turn.Unit.Input)

	var reply string
	switch {
	case strings.HasPrefix(input, "/tool "):
		reply = r.runTool(ctx, turn, strings.TrimPrefix(input, "/tool "), emit)
	case strings.HasPrefix(input, "/consult "):
		reply = r.runConsult(ctx, turn, strings.TrimPrefix(input, "/consult "), emit)
	case input == "/specialists":
		reply = "Available specialists:\n" + turn.DecisionContext
	default:
		reply = "I received your message. No language model is configured, so I can only serve /tool, /consult, and /specialists commands."
	}

	streamText(reply, emit)

	return &TurnResult{
		Content: reply,
		Usage:   estimateUsage(input, reply),
	}, nil
}

func (r *LocalTurnRunner) runTool(ctx context.Context, turn *TurnContext, rest string, emit func(*entity.StreamEvent)) string {
	symbol, rawArgs := splitCommand(rest)
	if symbol == "" {
		return "Usage: /tool <symbol> <json-arguments>"
	}
	args := map[string]any{}
	if rawArgs != "" {
		if err := json.UnmarshalString(rawArgs, &args); err != nil {
			return "Invalid tool arguments: " + err.Error()
		}
	}

	emit(&entity.StreamEvent{Type: entity.EventToolCall, ToolSymbol: symbol})
	result := turn.Tools.Invoke(ctx, &entity.ToolCall{
		ID:        uuid.New().String(),
		Symbol:    symbol,
		Arguments: args,
	})
	if result.Error != "" {
		return "Tool " + symbol + " failed: " + result.Error
	}
	return "Tool " + symbol + " returned: " + result.Content
}

func (r *LocalTurnRunner) runConsult(ctx context.Context, turn *TurnContext, rest string, emit func(*entity.StreamEvent)) string {
	name, message := splitCommand(rest)
	if name == "" || message == "" {
		return "Usage: /consult <specialist-name> <message>"
	}

	emit(&entity.StreamEvent{Type: entity.EventConsult, Specialist: name})
	report, err := turn.Coordinator.ConsultByName(ctx, name, message)
	if err != nil {
		return "Unknown specialist: " + name + "\n\nAvailable specialists:\n" + turn.DecisionContext
	}
	return report
}

// splitCommand cuts "head rest..." at the first space.
func splitCommand(s string) (string, string) {
	s = strings.TrimSpace(s)
	head, rest, _ := strings.Cut(s, " ")
	return head, strings.TrimSpace(rest)
}

// streamText emits the reply in word chunks so subscribers observe
// incremental deltas rather than one blob.
func streamText(text string, emit func(*entity.StreamEvent)) {
	words := strings.SplitAfter(text, " ")
	const chunkWords = 8
	for i := 0; i < len(words); i += chunkWords {
		end := i + chunkWords
		if end > len(words) {
			end = len(words)
		}
		emit(&entity.StreamEvent{
			Type:  entity.EventDelta,
			Delta: strings.Join(words[i:end], ""),
		})
	}
}

// estimateUsage approximates token counts from whitespace-separated words.
func estimateUsage(input, output string) *entity.TokenUsage {
	in := int64(len(strings.Fields(input)))
	out := int64(len(strings.Fields(output)))
	return &entity.TokenUsage{
		PromptTokens:     in,
		CompletionTokens: out,
		TotalTokens:      in + out,
	}
}
