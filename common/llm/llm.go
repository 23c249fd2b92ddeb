package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Provider constants for LLM provider selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ReasoningEffort controls the amount of reasoning for supported models.
type ReasoningEffort string

const (
	ReasoningEffortLow    ReasoningEffort = "low"
	ReasoningEffortMedium ReasoningEffort = "medium"
	ReasoningEffortHigh   ReasoningEffort = "high"
)

// Config holds LLM client configuration.
type Config struct {
	Provider        string          // "openai" or "anthropic"
	APIKey          string          // Required: API key for the provider
	BaseURL         string          // Optional: custom API endpoint
	Model           string          // Model name (e.g., "gpt-5.1", "claude-sonnet-4-5-20250514")
	ReasoningEffort ReasoningEffort // Optional: for models that support reasoning
}

// StreamingClient supports streamed tool-calling conversations for chat turns.
// Text and reasoning deltas are delivered as they arrive; accumulated tool
// calls and usage are delivered with the finish event.
type StreamingClient interface {
	StreamChat(ctx context.Context, req AgentRequest) (*Stream, error)
	Model() string
}

// AgentRequest contains the messages and tools for one model invocation.
type AgentRequest struct {
	Messages    []Message
	Tools       []Tool
	MaxTokens   int
	Temperature *float64
}

// Message represents a conversation message.
type Message struct {
	Role       string     // "system", "user", "assistant", "tool"
	Content    string     // Text content
	ToolCalls  []ToolCall // For assistant messages that request tool calls
	ToolCallID string     // For tool result messages (references the tool call)
}

// Tool defines a function the LLM can call.
type Tool struct {
	Name        string
	Description string
	Parameters  any // JSON Schema for parameters
}

// ToolCall represents a tool invocation requested by the LLM.
type ToolCall struct {
	ID        string // Unique ID for this call
	Name      string // Tool name
	Arguments string // JSON-encoded arguments
}

// EventType identifies a stream event kind.
type EventType string

const (
	EventTextDelta      EventType = "text-delta"
	EventReasoningDelta EventType = "reasoning-delta"
	EventToolCall       EventType = "tool-call"
	EventFinish         EventType = "finish"
	EventError          EventType = "error"
)

// StreamEvent is one unit of model output.
type StreamEvent struct {
	Type             EventType
	Text             string    // EventTextDelta / EventReasoningDelta
	ToolCall         *ToolCall // EventToolCall
	FinishReason     string    // EventFinish: "stop", "tool_calls", "length"
	PromptTokens     int       // EventFinish
	CompletionTokens int       // EventFinish
	Err              error     // EventError
}

// Stream delivers model output events. The channel is closed after the
// terminal event (EventFinish or EventError); consumers must drain it.
type Stream struct {
	events chan StreamEvent
}

// NewStream creates a stream for a StreamingClient implementation to write
// into. The producer calls Emit for each event and Close when done.
func NewStream() *Stream {
	return &Stream{events: make(chan StreamEvent, 64)}
}

// Events returns the event channel.
func (s *Stream) Events() <-chan StreamEvent {
	return s.events
}

// Emit delivers one event to the consumer. Blocks when the buffer is full.
func (s *Stream) Emit(ev StreamEvent) {
	s.events <- ev
}

// Close ends the stream. No Emit may follow.
func (s *Stream) Close() {
	close(s.events)
}

// NewStreamingClient creates a StreamingClient for the configured provider.
// Defaults to OpenAI if no provider is specified.
func NewStreamingClient(cfg Config) (StreamingClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}

	switch provider {
	case ProviderOpenAI:
		return newOpenAIStreamingClient(cfg)
	case ProviderAnthropic:
		return newAnthropicStreamingClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// ParseToolArguments unmarshals tool arguments into the target struct.
func ParseToolArguments[T any](arguments string) (T, error) {
	var result T
	if err := json.Unmarshal([]byte(arguments), &result); err != nil {
		return result, fmt.Errorf("parse tool arguments: %w", err)
	}
	return result, nil
}

// GenerateSchema generates a JSON schema for a struct type.
func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}
