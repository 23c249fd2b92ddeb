package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jackhunterking/adpilot/common/id"
	"github.com/jackhunterking/adpilot/internal/model"
	"github.com/jackhunterking/adpilot/internal/service"
	"github.com/jackhunterking/adpilot/internal/store"
)

var _ = Describe("ConversationService", func() {
	var (
		svc      service.ConversationService
		convs    *mockConversationStore
		messages *mockMessageStore
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		convs = &mockConversationStore{}
		messages = &mockMessageStore{}
		svc = service.NewConversationService(convs, messages)

		Expect(id.Init(1)).To(Succeed())
	})

	Describe("Resolve", func() {
		Context("by conversation id", func() {
			It("returns the caller's conversation", func() {
				convs.getByIDFn = func(_ context.Context, cid int64) (*model.Conversation, error) {
					return &model.Conversation{ID: cid, UserID: 7}, nil
				}

				conversationID := int64(100)
				conv, err := svc.Resolve(ctx, 7, service.ResolveInput{ConversationID: &conversationID})
				Expect(err).NotTo(HaveOccurred())
				Expect(conv.ID).To(Equal(int64(100)))
			})

			It("hides another user's conversation behind not-found", func() {
				convs.getByIDFn = func(_ context.Context, cid int64) (*model.Conversation, error) {
					return &model.Conversation{ID: cid, UserID: 99}, nil
				}

				conversationID := int64(100)
				_, err := svc.Resolve(ctx, 7, service.ResolveInput{ConversationID: &conversationID})
				Expect(err).To(MatchError(service.ErrConversationNotFound))
			})

			It("maps a missing conversation to not-found", func() {
				conversationID := int64(100)
				_, err := svc.Resolve(ctx, 7, service.ResolveInput{ConversationID: &conversationID})
				Expect(err).To(MatchError(service.ErrConversationNotFound))
			})
		})

		Context("by campaign id", func() {
			It("returns the campaign's existing conversation", func() {
				convs.getByCampaignFn = func(_ context.Context, campaignID int64) (*model.Conversation, error) {
					return &model.Conversation{ID: 1, UserID: 7, CampaignID: &campaignID}, nil
				}

				campaignID := int64(42)
				conv, err := svc.Resolve(ctx, 7, service.ResolveInput{CampaignID: &campaignID})
				Expect(err).NotTo(HaveOccurred())
				Expect(conv.ID).To(Equal(int64(1)))
				Expect(convs.createCalls).To(BeZero())
			})

			It("creates a conversation when the campaign has none", func() {
				convs.createFn = func(_ context.Context, conv *model.Conversation) error {
					return nil
				}

				campaignID := int64(42)
				conv, err := svc.Resolve(ctx, 7, service.ResolveInput{CampaignID: &campaignID})
				Expect(err).NotTo(HaveOccurred())
				Expect(conv.ID).NotTo(BeZero())
				Expect(conv.UserID).To(Equal(int64(7)))
				Expect(*conv.CampaignID).To(Equal(int64(42)))
				Expect(convs.createCalls).To(Equal(1))
			})

			It("reuses the winner's conversation after losing the create race", func() {
				lookups := 0
				convs.getByCampaignFn = func(_ context.Context, campaignID int64) (*model.Conversation, error) {
					lookups++
					if lookups == 1 {
						return nil, store.ErrNotFound
					}
					return &model.Conversation{ID: 555, UserID: 7, CampaignID: &campaignID}, nil
				}
				convs.createFn = func(_ context.Context, _ *model.Conversation) error {
					return store.ErrConflict
				}

				campaignID := int64(42)
				conv, err := svc.Resolve(ctx, 7, service.ResolveInput{CampaignID: &campaignID})
				Expect(err).NotTo(HaveOccurred())
				Expect(conv.ID).To(Equal(int64(555)))
				Expect(lookups).To(Equal(2))
			})

			It("propagates unexpected create errors", func() {
				convs.createFn = func(_ context.Context, _ *model.Conversation) error {
					return errors.New("connection reset")
				}

				campaignID := int64(42)
				_, err := svc.Resolve(ctx, 7, service.ResolveInput{CampaignID: &campaignID})
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("connection reset"))
			})
		})

		It("rejects a turn with neither reference", func() {
			_, err := svc.Resolve(ctx, 7, service.ResolveInput{})
			Expect(err).To(MatchError(service.ErrMissingCampaignReference))
		})
	})

	Describe("ListMessages", func() {
		It("refuses to list another user's conversation", func() {
			convs.getByIDFn = func(_ context.Context, cid int64) (*model.Conversation, error) {
				return &model.Conversation{ID: cid, UserID: 99}, nil
			}

			_, err := svc.ListMessages(ctx, 7, 100)
			Expect(err).To(MatchError(service.ErrConversationNotFound))
		})

		It("returns messages for the owner", func() {
			convs.getByIDFn = func(_ context.Context, cid int64) (*model.Conversation, error) {
				return &model.Conversation{ID: cid, UserID: 7}, nil
			}
			messages.listFn = func(_ context.Context, _ int64) ([]model.Message, error) {
				return []model.Message{{ID: "m1", Seq: 1}, {ID: "m2", Seq: 2}}, nil
			}

			msgs, err := svc.ListMessages(ctx, 7, 100)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(HaveLen(2))
		})
	})
})
