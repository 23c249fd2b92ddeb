package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/jackhunterking/adpilot/common/llm"
	"github.com/jackhunterking/adpilot/core/config"
	"github.com/jackhunterking/adpilot/internal/model"
	"github.com/jackhunterking/adpilot/internal/queue"
)

const titleSystemPrompt = `Generate a short title for an ad-campaign planning conversation
based on the user's opening message. At most six words, no quotes, no trailing punctuation.`

type titleResult struct {
	Title string `json:"title" jsonschema_description:"Short conversation title, at most six words"`
}

var titleResultSchema = llm.GenerateSchema[titleResult]()

// FinishInput carries everything persisted at the end of a turn. The messages
// arrive without a seq; the finisher assigns one under the conversation's
// row lock.
type FinishInput struct {
	Conversation     *model.Conversation
	UserMessage      *model.Message
	AssistantMessage *model.Message
}

// TurnFinisher persists a completed turn and runs its follow-ups: set-once
// auto-titling and threshold-triggered summarization. Persistence is
// idempotent; running Finish twice for the same messages writes them once.
type TurnFinisher struct {
	txRunner TxRunner
	utility  llm.Client // nil when no utility model is configured
	producer queue.Producer
	cfg      config.TurnConfig
}

func NewTurnFinisher(txRunner TxRunner, utility llm.Client, producer queue.Producer, cfg config.TurnConfig) *TurnFinisher {
	return &TurnFinisher{
		txRunner: txRunner,
		utility:  utility,
		producer: producer,
		cfg:      cfg,
	}
}

// Finish persists the turn's messages and kicks off follow-ups. Only the
// persistence itself can fail; titling and summarization are best-effort.
func (f *TurnFinisher) Finish(ctx context.Context, in FinishInput) error {
	var oldCount, newCount int32
	hadTitle := in.Conversation.Title != nil

	err := f.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		// Lock the conversation row. Seq assignment for this conversation is
		// serialized for the duration of the transaction.
		locked, err := sp.Conversations().GetForUpdate(ctx, in.Conversation.ID)
		if err != nil {
			return fmt.Errorf("locking conversation: %w", err)
		}
		oldCount = locked.MessageCount
		newCount = locked.MessageCount
		hadTitle = locked.Title != nil

		for _, msg := range []*model.Message{in.UserMessage, in.AssistantMessage} {
			if msg == nil {
				continue
			}

			exists, err := sp.Messages().Exists(ctx, msg.ID)
			if err != nil {
				return fmt.Errorf("checking message existence: %w", err)
			}
			if exists {
				// Redelivered turn. The message already has its seq; bumping
				// again would leave a gap.
				continue
			}

			seq, err := sp.Conversations().BumpMessageCount(ctx, in.Conversation.ID)
			if err != nil {
				return fmt.Errorf("assigning seq: %w", err)
			}
			msg.Seq = seq
			newCount = seq

			inserted, err := sp.Messages().Insert(ctx, msg)
			if err != nil {
				return fmt.Errorf("inserting message: %w", err)
			}
			if !inserted {
				return fmt.Errorf("message %s vanished between existence check and insert", msg.ID)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("persisting turn: %w", err)
	}

	slog.InfoContext(ctx, "turn persisted",
		"message_count", newCount,
		"messages_written", newCount-oldCount)

	if !hadTitle {
		f.maybeSetTitle(ctx, in)
	}
	f.maybeEnqueueSummarize(ctx, in.Conversation.ID, oldCount, newCount)

	return nil
}

func (f *TurnFinisher) maybeSetTitle(ctx context.Context, in FinishInput) {
	if f.utility == nil || in.UserMessage == nil {
		return
	}
	userText := in.UserMessage.TextContent()
	if userText == "" {
		return
	}

	var result titleResult
	if _, err := f.utility.Chat(ctx, llm.Request{
		SystemPrompt: titleSystemPrompt,
		UserPrompt:   userText,
		SchemaName:   "conversation_title",
		Schema:       titleResultSchema,
		MaxTokens:    60,
		Temperature:  llm.Temp(0.3),
	}, &result); err != nil {
		slog.WarnContext(ctx, "title generation failed, leaving conversation untitled",
			"error", err)
		return
	}

	title := strings.TrimSpace(result.Title)
	if title == "" {
		return
	}

	var won bool
	err := f.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		var setErr error
		won, setErr = sp.Conversations().SetTitle(ctx, in.Conversation.ID, title)
		return setErr
	})
	if err != nil {
		slog.WarnContext(ctx, "saving title failed", "error", err)
		return
	}
	if won {
		slog.InfoContext(ctx, "conversation titled", "title", title)
	}
}

// maybeEnqueueSummarize fires a summarization task when the message count
// crosses a threshold multiple. Enqueue failures are logged and swallowed;
// summaries are an optimization, not a correctness requirement.
func (f *TurnFinisher) maybeEnqueueSummarize(ctx context.Context, conversationID int64, oldCount, newCount int32) {
	threshold := int32(f.cfg.SummarizeThreshold)
	if f.producer == nil || threshold <= 0 {
		return
	}
	if oldCount/threshold == newCount/threshold {
		return
	}

	task := queue.Task{
		TaskType:       queue.TaskTypeSummarize,
		ConversationID: conversationID,
		Attempt:        1,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		traceID := sc.TraceID().String()
		task.TraceID = &traceID
	}

	if err := f.producer.Enqueue(ctx, task); err != nil {
		slog.WarnContext(ctx, "failed to enqueue summarization task", "error", err)
		return
	}

	slog.InfoContext(ctx, "summarization enqueued", "message_count", newCount)
}
