package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackhunterking/adpilot/common/id"
	"github.com/jackhunterking/adpilot/common/llm"
	"github.com/jackhunterking/adpilot/common/logger"
	"github.com/jackhunterking/adpilot/core/config"
	"github.com/jackhunterking/adpilot/internal/assembler"
	"github.com/jackhunterking/adpilot/internal/model"
	"github.com/jackhunterking/adpilot/internal/prompt"
	"github.com/jackhunterking/adpilot/internal/store"
	"github.com/jackhunterking/adpilot/internal/tools"
	"github.com/jackhunterking/adpilot/internal/workflow"
)

// TurnEventType identifies a turn event kind as delivered to the client.
type TurnEventType string

const (
	TurnEventTextDelta      TurnEventType = "text-delta"
	TurnEventReasoningDelta TurnEventType = "reasoning-delta"
	TurnEventToolCall       TurnEventType = "tool-call"
	TurnEventToolResult     TurnEventType = "tool-result"
	TurnEventSource         TurnEventType = "source"
	TurnEventFinish         TurnEventType = "finish"
	TurnEventError          TurnEventType = "error"
)

// TurnEvent is one unit of turn output delivered to the client.
type TurnEvent struct {
	Type         TurnEventType   `json:"type"`
	Delta        string          `json:"delta,omitempty"`
	ToolCallID   string          `json:"tool_call_id,omitempty"`
	ToolName     string          `json:"tool_name,omitempty"`
	Input        json.RawMessage `json:"input,omitempty"`
	Output       json.RawMessage `json:"output,omitempty"`
	AutoExecute  bool            `json:"auto_execute,omitempty"`
	SourceURL    string          `json:"source_url,omitempty"`
	MessageID    string          `json:"message_id,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// TurnInput is one inbound user turn against a resolved conversation.
type TurnInput struct {
	Conversation *model.Conversation
	MessageID    string           // client-supplied, opaque; persistence dedup key
	Text         string
	Workflow     workflow.Context // parsed once by the transport layer
	Metadata     json.RawMessage  // raw metadata document, persisted with the user message
}

// TurnService runs one conversational turn end to end: context assembly,
// prompt composition, tool gating, model streaming, and handoff to the
// finisher. The caller consumes the returned event channel; the turn itself
// survives the caller going away.
type TurnService struct {
	conversations store.ConversationStore
	assembler     *assembler.Assembler
	registry      *tools.Registry
	history       *HistoryLoader
	chat          llm.StreamingClient
	finisher      *TurnFinisher
	cfg           config.TurnConfig
	maxTokens     int
}

func NewTurnService(
	conversations store.ConversationStore,
	asm *assembler.Assembler,
	registry *tools.Registry,
	history *HistoryLoader,
	chat llm.StreamingClient,
	finisher *TurnFinisher,
	cfg config.TurnConfig,
	maxTokens int,
) *TurnService {
	return &TurnService{
		conversations: conversations,
		assembler:     asm,
		registry:      registry,
		history:       history,
		chat:          chat,
		finisher:      finisher,
		cfg:           cfg,
		maxTokens:     maxTokens,
	}
}

// Run starts a turn. Errors before the model stream opens are returned
// directly; everything after is delivered as events. The channel closes after
// the terminal event. The turn keeps running to completion even if ctx is
// cancelled mid-stream; only event delivery stops.
func (s *TurnService) Run(ctx context.Context, in TurnInput) (<-chan TurnEvent, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, ErrEmptyMessage
	}
	conv := in.Conversation

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ConversationID: &conv.ID,
		CampaignID:     conv.CampaignID,
		MessageID:      &in.MessageID,
		Component:      "adpilot.turn",
	})

	wc := in.Workflow
	goal := workflow.ResolveGoal(conv.Metadata.CurrentGoal, wc)
	s.persistGoal(ctx, conv, goal)

	bundle := s.assembler.Assemble(ctx, conv, wc)
	gated := s.registry.ForContext(wc)

	systemPrompt := prompt.Compose(prompt.Input{
		Goal:           goal,
		Step:           wc.Step,
		EditMode:       wc.EditMode,
		EditLabel:      wc.EditRef.Label,
		LocationSetup:  wc.LocationSetup,
		MetricsSummary: bundle.MetricsSummary,
		OfferText:      bundle.OfferText,
		PlanText:       bundle.PlanText,
		EditRefText:    bundle.EditRefText,
		Summary:        derefOr(conv.Summary, ""),
	})

	messages := make([]llm.Message, 0, s.history.Window()+2)
	messages = append(messages, llm.Message{Role: model.RoleSystem, Content: systemPrompt})
	messages = append(messages, s.history.Load(ctx, conv.ID, gated)...)
	messages = append(messages, llm.Message{Role: model.RoleUser, Content: in.Text})

	// The turn outlives the request context. A client disconnect stops
	// delivery, never the model stream or persistence.
	turnCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)

	stream, err := s.chat.StreamChat(turnCtx, llm.AgentRequest{
		Messages:  messages,
		Tools:     tools.Definitions(gated),
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("opening model stream: %w", err)
	}

	slog.InfoContext(ctx, "turn started",
		"goal", goal,
		"step", wc.Step,
		"tools", len(gated),
		"history_messages", len(messages)-2,
		"model", s.chat.Model())

	events := make(chan TurnEvent, 32)
	go func() {
		defer cancel()
		s.consume(ctx, turnCtx, in, gated, stream, events)
	}()
	return events, nil
}

// persistGoal makes a newly inferred goal durable. Failure is diagnostic
// only; the turn proceeds with the in-memory goal.
func (s *TurnService) persistGoal(ctx context.Context, conv *model.Conversation, goal string) {
	if goal == "" || conv.Metadata.CurrentGoal == goal {
		return
	}
	if conv.Metadata.CurrentGoal != "" {
		// A durable goal never changes out from under the conversation.
		return
	}

	md := conv.Metadata
	md.CurrentGoal = goal
	if err := s.conversations.UpdateMetadata(ctx, conv.ID, md); err != nil {
		slog.WarnContext(ctx, "failed to persist campaign goal, continuing with in-memory value",
			"error", err,
			"goal", goal)
		return
	}
	conv.Metadata = md
}

// consume drains the model stream to completion, accumulating the assistant
// message and forwarding events to the client while it is still connected.
func (s *TurnService) consume(clientCtx, turnCtx context.Context, in TurnInput, gated map[string]tools.Descriptor, stream *llm.Stream, events chan<- TurnEvent) {
	defer close(events)

	clientGone := false
	deliver := func(ev TurnEvent) {
		if clientGone {
			return
		}
		select {
		case events <- ev:
		case <-clientCtx.Done():
			clientGone = true
			slog.InfoContext(turnCtx, "client disconnected, draining model stream")
		}
	}

	var (
		parts        []model.MessagePart
		textBuf      strings.Builder
		reasoningBuf strings.Builder
		finishReason string
		streamErr    error
	)

	flushText := func() {
		if textBuf.Len() > 0 {
			parts = append(parts, model.MessagePart{Type: model.PartText, Text: textBuf.String()})
			textBuf.Reset()
		}
		if reasoningBuf.Len() > 0 {
			parts = append(parts, model.MessagePart{Type: model.PartReasoning, Text: reasoningBuf.String()})
			reasoningBuf.Reset()
		}
	}

	for ev := range stream.Events() {
		switch ev.Type {
		case llm.EventTextDelta:
			textBuf.WriteString(ev.Text)
			deliver(TurnEvent{Type: TurnEventTextDelta, Delta: ev.Text})

		case llm.EventReasoningDelta:
			reasoningBuf.WriteString(ev.Text)
			deliver(TurnEvent{Type: TurnEventReasoningDelta, Delta: ev.Text})

		case llm.EventToolCall:
			flushText()
			callParts, callEvents := s.handleToolCall(turnCtx, gated, *ev.ToolCall)
			parts = append(parts, callParts...)
			for _, e := range callEvents {
				deliver(e)
			}

		case llm.EventFinish:
			finishReason = ev.FinishReason

		case llm.EventError:
			streamErr = ev.Err
		}
	}
	flushText()

	if streamErr != nil {
		slog.ErrorContext(turnCtx, "model stream failed", "error", streamErr)
		deliver(TurnEvent{Type: TurnEventError, Error: "model stream failed"})
		if len(parts) == 0 {
			return
		}
		// Partial output still gets persisted so the transcript reflects
		// what the user saw before the failure.
	}

	assistantID := "msg_" + strconv.FormatInt(id.New(), 10)
	userMetadata := in.Metadata
	if len(userMetadata) > 0 && !json.Valid(userMetadata) {
		userMetadata = nil
	}
	userMsg := &model.Message{
		ID:             in.MessageID,
		ConversationID: in.Conversation.ID,
		Role:           model.RoleUser,
		Parts:          []model.MessagePart{{Type: model.PartText, Text: in.Text}},
		Metadata:       userMetadata,
	}
	assistantMsg := &model.Message{
		ID:             assistantID,
		ConversationID: in.Conversation.ID,
		Role:           model.RoleAssistant,
		Parts:          parts,
	}

	if err := s.finisher.Finish(turnCtx, FinishInput{
		Conversation:     in.Conversation,
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	}); err != nil {
		// The turn's output was already streamed; all we can do is record
		// the loss loudly and tell the client.
		slog.ErrorContext(turnCtx, "turn persistence failed", "error", err)
		deliver(TurnEvent{Type: TurnEventError, Error: "failed to save turn"})
		return
	}

	if streamErr == nil {
		deliver(TurnEvent{
			Type:         TurnEventFinish,
			MessageID:    assistantID,
			FinishReason: finishReason,
		})
	}
}

// handleToolCall validates a model tool call against the gated set. All three
// failure shapes (unknown tool, invalid input, unrepairable input) are
// non-fatal: the model receives an error result and the turn continues.
func (s *TurnService) handleToolCall(ctx context.Context, gated map[string]tools.Descriptor, call llm.ToolCall) ([]model.MessagePart, []TurnEvent) {
	desc, ok := gated[call.Name]
	if !ok {
		slog.WarnContext(ctx, "model called tool outside gated set", "tool", call.Name)
		return toolFailure(call, "unknown tool: not available in the current workflow step")
	}

	arguments := call.Arguments
	if err := desc.ValidateInput(arguments); err != nil {
		repaired, repairErr := desc.RepairInput(arguments)
		if repairErr != nil {
			slog.WarnContext(ctx, "tool input invalid and unrepairable",
				"tool", call.Name,
				"validate_error", err,
				"repair_error", repairErr)
			return toolFailure(call, fmt.Sprintf("invalid tool input: %v", err))
		}
		slog.InfoContext(ctx, "tool input repaired", "tool", call.Name)
		arguments = repaired
	}

	part := model.MessagePart{
		Type:       model.PartToolCall,
		ToolCallID: call.ID,
		ToolName:   call.Name,
		Input:      json.RawMessage(arguments),
	}
	event := TurnEvent{
		Type:        TurnEventToolCall,
		ToolCallID:  call.ID,
		ToolName:    call.Name,
		Input:       json.RawMessage(arguments),
		AutoExecute: desc.AutoExecute,
	}
	return []model.MessagePart{part}, []TurnEvent{event}
}

func toolFailure(call llm.ToolCall, reason string) ([]model.MessagePart, []TurnEvent) {
	output, _ := json.Marshal(map[string]string{"error": reason})
	input := rawInput(call.Arguments)

	parts := []model.MessagePart{
		{
			Type:       model.PartToolCall,
			ToolCallID: call.ID,
			ToolName:   call.Name,
			Input:      input,
		},
		{
			Type:       model.PartToolResult,
			ToolCallID: call.ID,
			ToolName:   call.Name,
			Output:     output,
		},
	}
	events := []TurnEvent{
		{
			Type:       TurnEventToolCall,
			ToolCallID: call.ID,
			ToolName:   call.Name,
			Input:      input,
		},
		{
			Type:       TurnEventToolResult,
			ToolCallID: call.ID,
			ToolName:   call.Name,
			Output:     output,
		},
	}
	return parts, events
}

// rawInput guards against models emitting arguments that are not valid JSON;
// those get persisted as a JSON string instead.
func rawInput(s string) json.RawMessage {
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	quoted, _ := json.Marshal(s)
	return quoted
}

func derefOr(s *string, fallback string) string {
	if s != nil {
		return *s
	}
	return fallback
}
