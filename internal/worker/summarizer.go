package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackhunterking/adpilot/common/llm"
	"github.com/jackhunterking/adpilot/internal/model"
	"github.com/jackhunterking/adpilot/internal/queue"
	"github.com/jackhunterking/adpilot/internal/store"
)

// ErrPermanent marks failures that will not succeed on retry. The worker
// sends those straight to the DLQ instead of burning attempts.
var ErrPermanent = errors.New("permanent task failure")

const summarySystemPrompt = `You compress ad-campaign planning conversations into working summaries.
Write a dense third-person summary of the conversation so far. Preserve every
concrete decision the user has made: campaign goal, audience choices, budget and
schedule, locations, creative direction, and anything still unresolved. Fold the
previous summary into the new one. Do not include pleasantries or meta-commentary.`

type summaryResult struct {
	Summary string `json:"summary" jsonschema_description:"Dense summary of the conversation, preserving all campaign decisions"`
}

var summaryResultSchema = llm.GenerateSchema[summaryResult]()

type SummarizeConfig struct {
	// How many of the most recent messages feed the summary prompt.
	MessageWindow int32
}

type Summarizer struct {
	conversations store.ConversationStore
	messages      store.MessageStore
	llm           llm.Client
	cfg           SummarizeConfig
}

func NewSummarizer(conversations store.ConversationStore, messages store.MessageStore, client llm.Client, cfg SummarizeConfig) *Summarizer {
	if cfg.MessageWindow <= 0 {
		cfg.MessageWindow = 40
	}
	return &Summarizer{
		conversations: conversations,
		messages:      messages,
		llm:           client,
		cfg:           cfg,
	}
}

func (s *Summarizer) Process(ctx context.Context, msg queue.Message) error {
	if msg.TaskType != queue.TaskTypeSummarize {
		return fmt.Errorf("%w: unknown task type %q", ErrPermanent, msg.TaskType)
	}

	conv, err := s.conversations.GetByID(ctx, msg.ConversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Conversation deleted between enqueue and processing.
			slog.WarnContext(ctx, "conversation gone, dropping summarize task")
			return nil
		}
		return fmt.Errorf("loading conversation: %w", err)
	}

	recent, err := s.messages.ListRecent(ctx, conv.ID, s.cfg.MessageWindow)
	if err != nil {
		return fmt.Errorf("loading recent messages: %w", err)
	}
	if len(recent) == 0 {
		slog.InfoContext(ctx, "nothing to summarize, skipping")
		return nil
	}

	userPrompt := buildSummaryPrompt(conv, recent)

	var result summaryResult
	if _, err := s.llm.Chat(ctx, llm.Request{
		SystemPrompt: summarySystemPrompt,
		UserPrompt:   userPrompt,
		SchemaName:   "conversation_summary",
		Schema:       summaryResultSchema,
		MaxTokens:    800,
		Temperature:  llm.Temp(0.2),
	}, &result); err != nil {
		if !llm.IsRetryable(ctx, err) {
			return fmt.Errorf("%w: generating summary: %v", ErrPermanent, err)
		}
		return fmt.Errorf("generating summary: %w", err)
	}

	summary := strings.TrimSpace(result.Summary)
	if summary == "" {
		return fmt.Errorf("%w: model returned empty summary", ErrPermanent)
	}

	if err := s.conversations.SetSummary(ctx, conv.ID, summary); err != nil {
		return fmt.Errorf("saving summary: %w", err)
	}

	slog.InfoContext(ctx, "conversation summarized",
		"message_count", conv.MessageCount,
		"summary_len", len(summary),
		"model", s.llm.Model())
	return nil
}

func buildSummaryPrompt(conv *model.Conversation, messages []model.Message) string {
	var b strings.Builder

	if conv.Summary != nil && *conv.Summary != "" {
		b.WriteString("Previous summary:\n")
		b.WriteString(*conv.Summary)
		b.WriteString("\n\n")
	}

	b.WriteString("Conversation:\n")
	for _, msg := range messages {
		text := msg.TextContent()
		if text == "" {
			continue
		}
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(text)
		b.WriteString("\n")
	}

	return b.String()
}
