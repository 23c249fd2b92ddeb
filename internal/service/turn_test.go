package service_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jackhunterking/adpilot/common/id"
	"github.com/jackhunterking/adpilot/common/llm"
	"github.com/jackhunterking/adpilot/core/config"
	"github.com/jackhunterking/adpilot/internal/assembler"
	"github.com/jackhunterking/adpilot/internal/model"
	"github.com/jackhunterking/adpilot/internal/service"
	"github.com/jackhunterking/adpilot/internal/tools"
	"github.com/jackhunterking/adpilot/internal/workflow"
)

// stubReaders satisfies the three ad-platform read interfaces with canned text.
type stubReaders struct{}

func (stubReaders) MetricsSummary(context.Context, int64) (string, error) { return "", nil }
func (stubReaders) CreativePlan(context.Context, int64) (string, error)   { return "", nil }
func (stubReaders) Offer(context.Context, int64) (string, error)          { return "", nil }

var _ = Describe("TurnService", func() {
	var (
		convs    *mockConversationStore
		messages *mockMessageStore
		chat     *mockStreamingClient
		turns    *service.TurnService
		ctx      context.Context
		conv     *model.Conversation

		counter int32
	)

	turnCfg := config.TurnConfig{
		Timeout:            5 * time.Second,
		HistoryWindow:      30,
		SummarizeThreshold: 20,
	}

	collect := func(events <-chan service.TurnEvent) []service.TurnEvent {
		var out []service.TurnEvent
		for ev := range events {
			out = append(out, ev)
		}
		return out
	}

	ofType := func(events []service.TurnEvent, t service.TurnEventType) []service.TurnEvent {
		var out []service.TurnEvent
		for _, ev := range events {
			if ev.Type == t {
				out = append(out, ev)
			}
		}
		return out
	}

	BeforeEach(func() {
		ctx = context.Background()
		convs = &mockConversationStore{}
		messages = &mockMessageStore{}
		chat = &mockStreamingClient{}

		Expect(id.Init(1)).To(Succeed())

		counter = 0
		title := "titled"
		convs.getForUpdateFn = func(_ context.Context, cid int64) (*model.Conversation, error) {
			return &model.Conversation{ID: cid, UserID: 7, MessageCount: counter, Title: &title}, nil
		}
		convs.bumpMessageCountFn = func(_ context.Context, _ int64) (int32, error) {
			counter++
			return counter, nil
		}

		txRunner := &mockTxRunner{provider: &mockStoreProvider{conversations: convs, messages: messages}}
		finisher := service.NewTurnFinisher(txRunner, nil, &mockProducer{}, turnCfg)
		turns = service.NewTurnService(
			convs,
			assembler.New(stubReaders{}, stubReaders{}, stubReaders{}),
			tools.NewRegistry(),
			service.NewHistoryLoader(messages, turnCfg.HistoryWindow),
			chat,
			finisher,
			turnCfg,
			1024,
		)

		conv = &model.Conversation{ID: 1, UserID: 7}
	})

	It("streams text deltas and finishes with a persisted turn", func() {
		chat.streamChatFn = func(_ context.Context, req llm.AgentRequest) (*llm.Stream, error) {
			Expect(req.Messages[0].Role).To(Equal(model.RoleSystem))
			return preparedStream(
				llm.StreamEvent{Type: llm.EventTextDelta, Text: "Let's pick "},
				llm.StreamEvent{Type: llm.EventTextDelta, Text: "a goal."},
				llm.StreamEvent{Type: llm.EventFinish, FinishReason: "stop"},
			), nil
		}

		events, err := turns.Run(ctx, service.TurnInput{
			Conversation: conv,
			MessageID:    "user-msg-1",
			Text:         "help me advertise",
		})
		Expect(err).NotTo(HaveOccurred())

		all := collect(events)
		Expect(ofType(all, service.TurnEventTextDelta)).To(HaveLen(2))

		finishes := ofType(all, service.TurnEventFinish)
		Expect(finishes).To(HaveLen(1))
		Expect(finishes[0].MessageID).NotTo(BeEmpty())
		Expect(finishes[0].FinishReason).To(Equal("stop"))

		inserted := messages.inserted()
		Expect(inserted).To(HaveLen(2))
		Expect(inserted[0].Role).To(Equal(model.RoleUser))
		Expect(inserted[1].Role).To(Equal(model.RoleAssistant))
		Expect(inserted[1].TextContent()).To(Equal("Let's pick a goal."))
	})

	It("keeps persisting after the client disconnects", func() {
		release := make(chan struct{})
		chat.streamChatFn = func(_ context.Context, _ llm.AgentRequest) (*llm.Stream, error) {
			st := llm.NewStream()
			go func() {
				defer st.Close()
				st.Emit(llm.StreamEvent{Type: llm.EventTextDelta, Text: "partial "})
				<-release
				st.Emit(llm.StreamEvent{Type: llm.EventTextDelta, Text: "answer"})
				st.Emit(llm.StreamEvent{Type: llm.EventFinish, FinishReason: "stop"})
			}()
			return st, nil
		}

		clientCtx, cancel := context.WithCancel(ctx)
		_, err := turns.Run(clientCtx, service.TurnInput{
			Conversation: conv,
			MessageID:    "user-msg-1",
			Text:         "help me advertise",
		})
		Expect(err).NotTo(HaveOccurred())

		// Client goes away mid-stream; nobody reads the event channel.
		cancel()
		close(release)

		Eventually(messages.inserted).Should(HaveLen(2))
		inserted := messages.inserted()
		Expect(inserted[1].TextContent()).To(Equal("partial answer"))
	})

	It("starts with only the new message when history fails tool-set validation", func() {
		messages.listRecentFn = func(_ context.Context, _ int64, _ int32) ([]model.Message, error) {
			return []model.Message{
				{Role: model.RoleUser, Parts: []model.MessagePart{{Type: model.PartText, Text: "set my budget"}}},
				{Role: model.RoleAssistant, Parts: []model.MessagePart{
					{Type: model.PartToolCall, ToolCallID: "tc_0", ToolName: "set_budget"},
				}},
			}, nil
		}

		var seen []llm.Message
		chat.streamChatFn = func(_ context.Context, req llm.AgentRequest) (*llm.Stream, error) {
			seen = req.Messages
			return preparedStream(llm.StreamEvent{Type: llm.EventFinish, FinishReason: "stop"}), nil
		}

		events, err := turns.Run(ctx, service.TurnInput{
			Conversation: conv,
			MessageID:    "user-msg-1",
			Text:         "now the audience",
			Workflow:     workflow.Context{Step: workflow.StepAudience},
		})
		Expect(err).NotTo(HaveOccurred())
		collect(events)

		Expect(seen).To(HaveLen(2))
		Expect(seen[0].Role).To(Equal(model.RoleSystem))
		Expect(seen[1].Role).To(Equal(model.RoleUser))
		Expect(seen[1].Content).To(Equal("now the audience"))
	})

	It("reports a tool call outside the gated set without failing the turn", func() {
		chat.streamChatFn = func(_ context.Context, req llm.AgentRequest) (*llm.Stream, error) {
			// set_budget is gated to the budget step; this turn is at goal.
			return preparedStream(
				llm.StreamEvent{Type: llm.EventToolCall, ToolCall: &llm.ToolCall{
					ID: "tc_1", Name: "set_budget", Arguments: `{"daily_budget_cents":5000}`,
				}},
				llm.StreamEvent{Type: llm.EventFinish, FinishReason: "tool_calls"},
			), nil
		}

		events, err := turns.Run(ctx, service.TurnInput{
			Conversation: conv,
			MessageID:    "user-msg-1",
			Text:         "set my budget",
			Workflow:     workflow.Context{Step: workflow.StepGoal},
		})
		Expect(err).NotTo(HaveOccurred())

		all := collect(events)
		results := ofType(all, service.TurnEventToolResult)
		Expect(results).To(HaveLen(1))
		Expect(string(results[0].Output)).To(ContainSubstring("unknown tool"))
		Expect(ofType(all, service.TurnEventFinish)).To(HaveLen(1))

		inserted := messages.inserted()
		Expect(inserted).To(HaveLen(2))
		var haveResult bool
		for _, part := range inserted[1].Parts {
			if part.Type == model.PartToolResult {
				haveResult = true
				Expect(string(part.Output)).To(ContainSubstring("unknown tool"))
			}
		}
		Expect(haveResult).To(BeTrue())
	})

	It("repairs fenced tool arguments", func() {
		chat.streamChatFn = func(_ context.Context, _ llm.AgentRequest) (*llm.Stream, error) {
			return preparedStream(
				llm.StreamEvent{Type: llm.EventToolCall, ToolCall: &llm.ToolCall{
					ID: "tc_1", Name: "set_campaign_goal", Arguments: "```json\n{\"goal\":\"leads\"}\n```",
				}},
				llm.StreamEvent{Type: llm.EventFinish, FinishReason: "tool_calls"},
			), nil
		}

		events, err := turns.Run(ctx, service.TurnInput{
			Conversation: conv,
			MessageID:    "user-msg-1",
			Text:         "I want leads",
			Workflow:     workflow.Context{Step: workflow.StepGoal},
		})
		Expect(err).NotTo(HaveOccurred())

		all := collect(events)
		calls := ofType(all, service.TurnEventToolCall)
		Expect(calls).To(HaveLen(1))
		Expect(calls[0].Input).To(MatchJSON(`{"goal":"leads"}`))
		Expect(ofType(all, service.TurnEventToolResult)).To(BeEmpty())
	})

	It("reports unrepairable tool input as a tool failure", func() {
		chat.streamChatFn = func(_ context.Context, _ llm.AgentRequest) (*llm.Stream, error) {
			return preparedStream(
				llm.StreamEvent{Type: llm.EventToolCall, ToolCall: &llm.ToolCall{
					ID: "tc_1", Name: "set_campaign_goal", Arguments: `make it leads please`,
				}},
				llm.StreamEvent{Type: llm.EventFinish, FinishReason: "tool_calls"},
			), nil
		}

		events, err := turns.Run(ctx, service.TurnInput{
			Conversation: conv,
			MessageID:    "user-msg-1",
			Text:         "I want leads",
			Workflow:     workflow.Context{Step: workflow.StepGoal},
		})
		Expect(err).NotTo(HaveOccurred())

		all := collect(events)
		results := ofType(all, service.TurnEventToolResult)
		Expect(results).To(HaveLen(1))
		Expect(string(results[0].Output)).To(ContainSubstring("invalid tool input"))
	})

	It("makes a newly inferred goal durable", func() {
		chat.streamChatFn = func(_ context.Context, _ llm.AgentRequest) (*llm.Stream, error) {
			return preparedStream(llm.StreamEvent{Type: llm.EventFinish, FinishReason: "stop"}), nil
		}

		events, err := turns.Run(ctx, service.TurnInput{
			Conversation: conv,
			MessageID:    "user-msg-1",
			Text:         "I want more leads",
			Workflow:     workflow.Context{Step: workflow.StepGoal, Goal: workflow.GoalLeads},
		})
		Expect(err).NotTo(HaveOccurred())
		collect(events)

		md := convs.metadata()
		Expect(md).NotTo(BeNil())
		Expect(md.CurrentGoal).To(Equal(workflow.GoalLeads))
	})

	It("never overwrites an established durable goal", func() {
		conv.Metadata.CurrentGoal = workflow.GoalSales
		chat.streamChatFn = func(_ context.Context, _ llm.AgentRequest) (*llm.Stream, error) {
			return preparedStream(llm.StreamEvent{Type: llm.EventFinish, FinishReason: "stop"}), nil
		}

		events, err := turns.Run(ctx, service.TurnInput{
			Conversation: conv,
			MessageID:    "user-msg-1",
			Text:         "actually I want traffic",
			Workflow:     workflow.Context{Step: workflow.StepGoal, Goal: workflow.GoalTraffic},
		})
		Expect(err).NotTo(HaveOccurred())
		collect(events)

		Expect(convs.metadata()).To(BeNil())
	})

	It("delivers an error event when the model stream fails", func() {
		chat.streamChatFn = func(_ context.Context, _ llm.AgentRequest) (*llm.Stream, error) {
			return preparedStream(
				llm.StreamEvent{Type: llm.EventTextDelta, Text: "half an "},
				llm.StreamEvent{Type: llm.EventError, Err: errors.New("upstream reset")},
			), nil
		}

		events, err := turns.Run(ctx, service.TurnInput{
			Conversation: conv,
			MessageID:    "user-msg-1",
			Text:         "help",
		})
		Expect(err).NotTo(HaveOccurred())

		all := collect(events)
		Expect(ofType(all, service.TurnEventError)).To(HaveLen(1))
		Expect(ofType(all, service.TurnEventFinish)).To(BeEmpty())

		// Partial output still lands in the transcript.
		Eventually(messages.inserted).Should(HaveLen(2))
	})

	It("rejects a message with no text", func() {
		_, err := turns.Run(ctx, service.TurnInput{
			Conversation: conv,
			MessageID:    "user-msg-1",
			Text:         "   ",
		})
		Expect(err).To(MatchError(service.ErrEmptyMessage))
	})

	It("returns an error when the model stream cannot be opened", func() {
		chat.streamChatFn = func(_ context.Context, _ llm.AgentRequest) (*llm.Stream, error) {
			return nil, errors.New("auth failed")
		}

		_, err := turns.Run(ctx, service.TurnInput{
			Conversation: conv,
			MessageID:    "user-msg-1",
			Text:         "help",
		})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("opening model stream"))
	})
})
