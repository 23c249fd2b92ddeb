package worker_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jackhunterking/adpilot/common/llm"
	"github.com/jackhunterking/adpilot/internal/model"
	"github.com/jackhunterking/adpilot/internal/queue"
	"github.com/jackhunterking/adpilot/internal/worker"
)

var _ = Describe("Summarizer", func() {
	var (
		convs      *mockConversationStore
		messages   *mockMessageStore
		utility    *mockLLMClient
		summarizer *worker.Summarizer
		ctx        context.Context
	)

	task := queue.Message{
		ID:             "1700000000000-0",
		TaskType:       queue.TaskTypeSummarize,
		ConversationID: 42,
		Attempt:        1,
	}

	BeforeEach(func() {
		ctx = context.Background()
		convs = &mockConversationStore{}
		messages = &mockMessageStore{}
		utility = &mockLLMClient{}
		summarizer = worker.NewSummarizer(convs, messages, utility, worker.SummarizeConfig{})

		convs.getByIDFn = func(_ context.Context, id int64) (*model.Conversation, error) {
			return &model.Conversation{ID: id, UserID: 7, MessageCount: 20}, nil
		}
		messages.listRecentFn = func(_ context.Context, _ int64, _ int32) ([]model.Message, error) {
			return []model.Message{
				{Role: model.RoleUser, Parts: []model.MessagePart{{Type: model.PartText, Text: "I want more leads"}}},
				{Role: model.RoleAssistant, Parts: []model.MessagePart{{Type: model.PartText, Text: "Set goal to leads."}}},
			}, nil
		}
		utility.chatFn = func(_ context.Context, req llm.Request, result any) (*llm.Response, error) {
			Expect(req.UserPrompt).To(ContainSubstring("user: I want more leads"))
			Expect(json.Unmarshal([]byte(`{"summary":"User is building a leads campaign."}`), result)).To(Succeed())
			return &llm.Response{}, nil
		}
	})

	It("saves a generated summary", func() {
		Expect(summarizer.Process(ctx, task)).To(Succeed())
		Expect(convs.summary()).To(Equal("User is building a leads campaign."))
	})

	It("folds the previous summary into the prompt", func() {
		prev := "Earlier: user chose the leads goal."
		convs.getByIDFn = func(_ context.Context, id int64) (*model.Conversation, error) {
			return &model.Conversation{ID: id, UserID: 7, Summary: &prev}, nil
		}

		var prompt string
		utility.chatFn = func(_ context.Context, req llm.Request, result any) (*llm.Response, error) {
			prompt = req.UserPrompt
			Expect(json.Unmarshal([]byte(`{"summary":"updated"}`), result)).To(Succeed())
			return &llm.Response{}, nil
		}

		Expect(summarizer.Process(ctx, task)).To(Succeed())
		Expect(prompt).To(ContainSubstring("Previous summary:"))
		Expect(prompt).To(ContainSubstring(prev))
	})

	It("rejects an unknown task type permanently", func() {
		bad := task
		bad.TaskType = "reindex_everything"

		err := summarizer.Process(ctx, bad)
		Expect(err).To(MatchError(worker.ErrPermanent))
	})

	It("drops the task when the conversation is gone", func() {
		convs.getByIDFn = nil
		Expect(summarizer.Process(ctx, task)).To(Succeed())
		Expect(convs.summary()).To(BeEmpty())
	})

	It("skips an empty conversation", func() {
		messages.listRecentFn = nil
		Expect(summarizer.Process(ctx, task)).To(Succeed())
		Expect(convs.summary()).To(BeEmpty())
	})

	It("marks non-retryable model failures permanent", func() {
		utility.chatFn = func(_ context.Context, _ llm.Request, _ any) (*llm.Response, error) {
			return nil, context.Canceled
		}

		err := summarizer.Process(ctx, task)
		Expect(err).To(MatchError(worker.ErrPermanent))
	})

	It("leaves retryable model failures retryable", func() {
		utility.chatFn = func(_ context.Context, _ llm.Request, _ any) (*llm.Response, error) {
			return nil, errors.New("connection reset by peer")
		}

		err := summarizer.Process(ctx, task)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, worker.ErrPermanent)).To(BeFalse())
	})

	It("refuses an empty summary", func() {
		utility.chatFn = func(_ context.Context, _ llm.Request, result any) (*llm.Response, error) {
			Expect(json.Unmarshal([]byte(`{"summary":"   "}`), result)).To(Succeed())
			return &llm.Response{}, nil
		}

		err := summarizer.Process(ctx, task)
		Expect(err).To(MatchError(worker.ErrPermanent))
	})
})
