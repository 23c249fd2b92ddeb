package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

type openaiStreamingClient struct {
	client openai.Client
	model  string
	effort ReasoningEffort
}

// newOpenAIStreamingClient creates a StreamingClient using the OpenAI API.
func newOpenAIStreamingClient(cfg Config) (StreamingClient, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}

	return &openaiStreamingClient{
		client: openai.NewClient(opts...),
		model:  model,
		effort: cfg.ReasoningEffort,
	}, nil
}

func (c *openaiStreamingClient) StreamChat(ctx context.Context, req AgentRequest) (*Stream, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	params := openai.ChatCompletionNewParams{
		Model:               c.model,
		Messages:            c.convertMessages(req.Messages),
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	}

	if tools := c.convertTools(req.Tools); len(tools) > 0 {
		params.Tools = tools
	}

	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	if c.effort != "" {
		params.ReasoningEffort = shared.ReasoningEffort(c.effort)
	}

	stream := NewStream()
	sse := c.client.Chat.Completions.NewStreaming(ctx, params)

	go func() {
		defer stream.Close()

		start := time.Now()
		acc := openai.ChatCompletionAccumulator{}

		for sse.Next() {
			chunk := sse.Current()
			acc.AddChunk(chunk)

			if len(chunk.Choices) == 0 {
				continue
			}
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				stream.Emit(StreamEvent{Type: EventTextDelta, Text: delta})
			}
		}

		if err := sse.Err(); err != nil {
			stream.Emit(StreamEvent{Type: EventError, Err: fmt.Errorf("openai stream: %w", err)})
			return
		}

		if len(acc.Choices) == 0 {
			stream.Emit(StreamEvent{Type: EventError, Err: fmt.Errorf("no choices in response")})
			return
		}

		choice := acc.Choices[0]

		// Tool calls only become whole once the stream ends; emit them now,
		// in the order the model produced them.
		for _, tc := range choice.Message.ToolCalls {
			stream.Emit(StreamEvent{Type: EventToolCall, ToolCall: &ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			}})
		}

		slog.DebugContext(ctx, "chat stream completed",
			"model", c.model,
			"duration_ms", time.Since(start).Milliseconds(),
			"prompt_tokens", acc.Usage.PromptTokens,
			"completion_tokens", acc.Usage.CompletionTokens,
			"finish_reason", choice.FinishReason)

		stream.Emit(StreamEvent{
			Type:             EventFinish,
			FinishReason:     choice.FinishReason,
			PromptTokens:     int(acc.Usage.PromptTokens),
			CompletionTokens: int(acc.Usage.CompletionTokens),
		})
	}()

	return stream, nil
}

func (c *openaiStreamingClient) Model() string {
	return c.model
}

func (c *openaiStreamingClient) convertMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))

	for _, msg := range msgs {
		switch msg.Role {
		case "system":
			result = append(result, openai.SystemMessage(msg.Content))

		case "user":
			result = append(result, openai.UserMessage(msg.Content))

		case "assistant":
			if len(msg.ToolCalls) > 0 {
				toolCalls := make([]openai.ChatCompletionMessageToolCallParam, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					toolCalls[i] = openai.ChatCompletionMessageToolCallParam{
						ID:   tc.ID,
						Type: "function",
						Function: openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: tc.Arguments,
						},
					}
				}
				result = append(result, openai.ChatCompletionMessageParamUnion{
					OfAssistant: &openai.ChatCompletionAssistantMessageParam{
						Content:   openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(msg.Content)},
						ToolCalls: toolCalls,
					},
				})
			} else {
				result = append(result, openai.AssistantMessage(msg.Content))
			}

		case "tool":
			result = append(result, openai.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}

	return result
}

func (c *openaiStreamingClient) convertTools(tools []Tool) []openai.ChatCompletionToolParam {
	result := make([]openai.ChatCompletionToolParam, len(tools))

	for i, t := range tools {
		var params shared.FunctionParameters
		if t.Parameters != nil {
			data, _ := json.Marshal(t.Parameters)
			_ = json.Unmarshal(data, &params)
		}

		result[i] = openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  params,
			},
		}
	}

	return result
}
