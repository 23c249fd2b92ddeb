package service

import (
	"context"
	"log/slog"

	"github.com/jackhunterking/adpilot/common/llm"
	"github.com/jackhunterking/adpilot/internal/model"
	"github.com/jackhunterking/adpilot/internal/store"
	"github.com/jackhunterking/adpilot/internal/tools"
)

// HistoryLoader turns persisted messages into the model-facing transcript for
// a turn. Loading is degradable: a malformed transcript is sanitized with
// warnings rather than failing the turn, and a load or validation failure
// yields an empty history so the turn proceeds with only the new message.
type HistoryLoader struct {
	messages store.MessageStore
	window   int32
}

func NewHistoryLoader(messages store.MessageStore, window int) *HistoryLoader {
	return &HistoryLoader{
		messages: messages,
		window:   int32(window),
	}
}

// Load returns the recent transcript in LLM wire shape, oldest first. The
// transcript is validated against the tool set in effect for this turn; a
// transcript naming a tool outside that set cannot be replayed to the model
// and degrades to an empty history.
func (h *HistoryLoader) Load(ctx context.Context, conversationID int64, gated map[string]tools.Descriptor) []llm.Message {
	stored, err := h.messages.ListRecent(ctx, conversationID, h.window)
	if err != nil {
		slog.WarnContext(ctx, "history load failed, starting turn with empty history",
			"error", err)
		return nil
	}

	history, ok := h.convert(ctx, stored, gated)
	if !ok {
		return nil
	}
	return history
}

// convert flattens persisted message parts into the role/content/tool-call
// shape the model expects. Tool results whose originating call is not in the
// window are dropped; the model cannot interpret them and some providers
// reject them outright. A tool call naming a tool outside the gated set fails
// the whole window: replaying it would teach the model a tool it must not
// call this turn.
func (h *HistoryLoader) convert(ctx context.Context, stored []model.Message, gated map[string]tools.Descriptor) ([]llm.Message, bool) {
	knownCalls := make(map[string]bool)
	var out []llm.Message
	dropped := 0

	for _, msg := range stored {
		switch msg.Role {
		case model.RoleUser:
			text := msg.TextContent()
			if text == "" {
				dropped++
				continue
			}
			out = append(out, llm.Message{Role: model.RoleUser, Content: text})

		case model.RoleAssistant:
			assistant := llm.Message{Role: model.RoleAssistant}
			var results []llm.Message

			for _, part := range msg.Parts {
				switch part.Type {
				case model.PartText:
					assistant.Content += part.Text
				case model.PartToolCall:
					if _, known := gated[part.ToolName]; !known {
						slog.WarnContext(ctx, "history references tool outside the active set, starting turn with empty history",
							"tool", part.ToolName,
							"message_id", msg.ID)
						return nil, false
					}
					knownCalls[part.ToolCallID] = true
					assistant.ToolCalls = append(assistant.ToolCalls, llm.ToolCall{
						ID:        part.ToolCallID,
						Name:      part.ToolName,
						Arguments: string(part.Input),
					})
				case model.PartToolResult:
					if !knownCalls[part.ToolCallID] {
						dropped++
						continue
					}
					results = append(results, llm.Message{
						Role:       model.RoleTool,
						ToolCallID: part.ToolCallID,
						Content:    string(part.Output),
					})
				}
			}

			if assistant.Content == "" && len(assistant.ToolCalls) == 0 {
				dropped++
			} else {
				out = append(out, assistant)
			}
			out = append(out, results...)

		default:
			dropped++
		}
	}

	if dropped > 0 {
		slog.WarnContext(ctx, "history sanitized",
			"dropped_entries", dropped,
			"kept_messages", len(out))
	}

	return out, true
}

// Window returns the configured history window size.
func (h *HistoryLoader) Window() int {
	return int(h.window)
}
