package service_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jackhunterking/adpilot/common/llm"
	"github.com/jackhunterking/adpilot/core/config"
	"github.com/jackhunterking/adpilot/internal/model"
	"github.com/jackhunterking/adpilot/internal/queue"
	"github.com/jackhunterking/adpilot/internal/service"
)

var _ = Describe("TurnFinisher", func() {
	var (
		convs    *mockConversationStore
		messages *mockMessageStore
		txRunner *mockTxRunner
		utility  *mockLLMClient
		producer *mockProducer
		finisher *service.TurnFinisher
		ctx      context.Context

		counter int32
	)

	turnCfg := config.TurnConfig{SummarizeThreshold: 20}

	newInput := func(conv *model.Conversation) service.FinishInput {
		return service.FinishInput{
			Conversation: conv,
			UserMessage: &model.Message{
				ID:             "user-msg-1",
				ConversationID: conv.ID,
				Role:           model.RoleUser,
				Parts:          []model.MessagePart{{Type: model.PartText, Text: "set the budget to $50/day"}},
			},
			AssistantMessage: &model.Message{
				ID:             "asst-msg-1",
				ConversationID: conv.ID,
				Role:           model.RoleAssistant,
				Parts:          []model.MessagePart{{Type: model.PartText, Text: "Budget set."}},
			},
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		convs = &mockConversationStore{}
		messages = &mockMessageStore{}
		txRunner = &mockTxRunner{provider: &mockStoreProvider{conversations: convs, messages: messages}}
		utility = &mockLLMClient{}
		producer = &mockProducer{}
		finisher = service.NewTurnFinisher(txRunner, utility, producer, turnCfg)

		counter = 4
		title := "Existing title"
		convs.getForUpdateFn = func(_ context.Context, id int64) (*model.Conversation, error) {
			return &model.Conversation{ID: id, UserID: 7, MessageCount: counter, Title: &title}, nil
		}
		convs.bumpMessageCountFn = func(_ context.Context, _ int64) (int32, error) {
			counter++
			return counter, nil
		}
	})

	It("assigns strictly increasing seqs and persists both messages", func() {
		conv := &model.Conversation{ID: 1, UserID: 7}
		Expect(finisher.Finish(ctx, newInput(conv))).To(Succeed())

		inserted := messages.inserted()
		Expect(inserted).To(HaveLen(2))
		Expect(inserted[0].Role).To(Equal(model.RoleUser))
		Expect(inserted[0].Seq).To(Equal(int32(5)))
		Expect(inserted[1].Role).To(Equal(model.RoleAssistant))
		Expect(inserted[1].Seq).To(Equal(int32(6)))
	})

	It("skips already-persisted messages without burning seqs", func() {
		messages.existsFn = func(_ context.Context, id string) (bool, error) {
			return id == "user-msg-1", nil
		}

		conv := &model.Conversation{ID: 1, UserID: 7}
		Expect(finisher.Finish(ctx, newInput(conv))).To(Succeed())

		inserted := messages.inserted()
		Expect(inserted).To(HaveLen(1))
		Expect(inserted[0].ID).To(Equal("asst-msg-1"))
		Expect(inserted[0].Seq).To(Equal(int32(5)))
	})

	It("is a no-op when the whole turn was already persisted", func() {
		messages.existsFn = func(_ context.Context, _ string) (bool, error) {
			return true, nil
		}

		conv := &model.Conversation{ID: 1, UserID: 7}
		Expect(finisher.Finish(ctx, newInput(conv))).To(Succeed())
		Expect(messages.inserted()).To(BeEmpty())
		Expect(counter).To(Equal(int32(4)))
	})

	It("propagates persistence failures", func() {
		messages.insertFn = func(_ context.Context, _ *model.Message) (bool, error) {
			return false, errors.New("disk full")
		}

		conv := &model.Conversation{ID: 1, UserID: 7}
		err := finisher.Finish(ctx, newInput(conv))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("disk full"))
	})

	Describe("auto-titling", func() {
		BeforeEach(func() {
			convs.getForUpdateFn = func(_ context.Context, id int64) (*model.Conversation, error) {
				return &model.Conversation{ID: id, UserID: 7, MessageCount: counter}, nil
			}
			utility.chatFn = func(_ context.Context, _ llm.Request, result any) (*llm.Response, error) {
				Expect(json.Unmarshal([]byte(`{"title":"Daily budget setup"}`), result)).To(Succeed())
				return &llm.Response{}, nil
			}
		})

		It("titles an untitled conversation from the user message", func() {
			conv := &model.Conversation{ID: 1, UserID: 7}
			Expect(finisher.Finish(ctx, newInput(conv))).To(Succeed())
			Expect(convs.title()).To(Equal("Daily budget setup"))
		})

		It("leaves a titled conversation alone", func() {
			title := "Existing title"
			convs.getForUpdateFn = func(_ context.Context, id int64) (*model.Conversation, error) {
				return &model.Conversation{ID: id, UserID: 7, MessageCount: counter, Title: &title}, nil
			}

			conv := &model.Conversation{ID: 1, UserID: 7, Title: &title}
			Expect(finisher.Finish(ctx, newInput(conv))).To(Succeed())
			Expect(convs.title()).To(BeEmpty())
		})

		It("swallows title generation failures", func() {
			utility.chatFn = func(_ context.Context, _ llm.Request, _ any) (*llm.Response, error) {
				return nil, errors.New("model unavailable")
			}

			conv := &model.Conversation{ID: 1, UserID: 7}
			Expect(finisher.Finish(ctx, newInput(conv))).To(Succeed())
			Expect(convs.title()).To(BeEmpty())
		})
	})

	Describe("summarization trigger", func() {
		It("enqueues when the count crosses the threshold", func() {
			counter = 19

			conv := &model.Conversation{ID: 1, UserID: 7}
			Expect(finisher.Finish(ctx, newInput(conv))).To(Succeed())

			tasks := producer.enqueued()
			Expect(tasks).To(HaveLen(1))
			Expect(tasks[0].TaskType).To(Equal(queue.TaskTypeSummarize))
			Expect(tasks[0].ConversationID).To(Equal(int64(1)))
		})

		It("stays quiet between thresholds", func() {
			counter = 10

			conv := &model.Conversation{ID: 1, UserID: 7}
			Expect(finisher.Finish(ctx, newInput(conv))).To(Succeed())
			Expect(producer.enqueued()).To(BeEmpty())
		})

		It("fires again at each threshold multiple", func() {
			counter = 39

			conv := &model.Conversation{ID: 1, UserID: 7}
			Expect(finisher.Finish(ctx, newInput(conv))).To(Succeed())
			Expect(producer.enqueued()).To(HaveLen(1))
		})

		It("swallows enqueue failures", func() {
			counter = 19
			producer.enqueueFn = func(_ context.Context, _ queue.Task) error {
				return errors.New("redis down")
			}

			conv := &model.Conversation{ID: 1, UserID: 7}
			Expect(finisher.Finish(ctx, newInput(conv))).To(Succeed())
		})
	})
})
