package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type anthropicStreamingClient struct {
	client anthropic.Client
	model  string
	effort ReasoningEffort
}

// newAnthropicStreamingClient creates a StreamingClient using the Anthropic API.
func newAnthropicStreamingClient(cfg Config) (StreamingClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-5-20250514"
	}

	return &anthropicStreamingClient{
		client: anthropic.NewClient(opts...),
		model:  model,
		effort: cfg.ReasoningEffort,
	}, nil
}

// thinkingBudget maps a reasoning effort level to an extended-thinking token
// budget. The budget must stay below the request's max_tokens.
func thinkingBudget(effort ReasoningEffort) int64 {
	switch effort {
	case ReasoningEffortLow:
		return 1024
	case ReasoningEffortMedium:
		return 2048
	case ReasoningEffortHigh:
		return 4096
	default:
		return 0
	}
}

func (c *anthropicStreamingClient) StreamChat(ctx context.Context, req AgentRequest) (*Stream, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	systemContent, messages := c.convertMessages(req.Messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}

	if len(systemContent) > 0 {
		params.System = systemContent
	}

	if tools := c.convertTools(req.Tools); len(tools) > 0 {
		params.Tools = tools
	}

	if budget := thinkingBudget(c.effort); budget > 0 && budget < int64(maxTokens) {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(budget)
	} else if req.Temperature != nil {
		// The API rejects an explicit temperature when thinking is enabled.
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	stream := NewStream()
	sse := c.client.Messages.NewStreaming(ctx, params)

	go func() {
		defer stream.Close()

		start := time.Now()
		message := anthropic.Message{}

		for sse.Next() {
			event := sse.Current()
			if err := message.Accumulate(event); err != nil {
				stream.Emit(StreamEvent{Type: EventError, Err: fmt.Errorf("anthropic accumulate: %w", err)})
				return
			}

			switch evt := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch delta := evt.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					stream.Emit(StreamEvent{Type: EventTextDelta, Text: delta.Text})
				case anthropic.ThinkingDelta:
					stream.Emit(StreamEvent{Type: EventReasoningDelta, Text: delta.Thinking})
				}
			}
		}

		if err := sse.Err(); err != nil {
			stream.Emit(StreamEvent{Type: EventError, Err: fmt.Errorf("anthropic stream: %w", err)})
			return
		}

		for _, block := range message.Content {
			if block.Type == "tool_use" {
				stream.Emit(StreamEvent{Type: EventToolCall, ToolCall: &ToolCall{
					ID:        block.ID,
					Name:      block.Name,
					Arguments: string(block.Input),
				}})
			}
		}

		slog.DebugContext(ctx, "chat stream completed",
			"model", c.model,
			"duration_ms", time.Since(start).Milliseconds(),
			"input_tokens", message.Usage.InputTokens,
			"output_tokens", message.Usage.OutputTokens,
			"stop_reason", message.StopReason)

		stream.Emit(StreamEvent{
			Type:             EventFinish,
			FinishReason:     c.mapStopReason(message.StopReason),
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
		})
	}()

	return stream, nil
}

func (c *anthropicStreamingClient) Model() string {
	return c.model
}

// convertMessages extracts system content and converts messages to Anthropic format.
// Anthropic requires system messages to be passed separately, not in the messages array.
func (c *anthropicStreamingClient) convertMessages(msgs []Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var systemContent []anthropic.TextBlockParam
	messages := make([]anthropic.MessageParam, 0, len(msgs))

	for _, msg := range msgs {
		switch msg.Role {
		case "system":
			systemContent = append(systemContent, anthropic.TextBlockParam{
				Type: "text",
				Text: msg.Content,
			})

		case "user":
			content := []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(msg.Content),
			}
			messages = append(messages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleUser,
				Content: content,
			})

		case "assistant":
			var content []anthropic.ContentBlockParamUnion

			if msg.Content != "" {
				content = append(content, anthropic.NewTextBlock(msg.Content))
			}

			for _, tc := range msg.ToolCalls {
				content = append(content, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						Type:  "tool_use",
						ID:    tc.ID,
						Name:  tc.Name,
						Input: []byte(tc.Arguments),
					},
				})
			}

			messages = append(messages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: content,
			})

		case "tool":
			// Tool results in Anthropic are user messages with tool_result content blocks
			content := []anthropic.ContentBlockParamUnion{
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
			}
			messages = append(messages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleUser,
				Content: content,
			})
		}
	}

	return systemContent, messages
}

func (c *anthropicStreamingClient) convertTools(tools []Tool) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, len(tools))

	for i, t := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: "object",
		}

		if t.Parameters != nil {
			inputSchema.Properties = t.Parameters
		}

		result[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: inputSchema,
			},
		}
	}

	return result
}

func (c *anthropicStreamingClient) mapStopReason(reason anthropic.StopReason) string {
	switch reason {
	case anthropic.StopReasonEndTurn:
		return "stop"
	case anthropic.StopReasonToolUse:
		return "tool_calls"
	case anthropic.StopReasonMaxTokens:
		return "length"
	case anthropic.StopReasonStopSequence:
		return "stop"
	default:
		return string(reason)
	}
}
