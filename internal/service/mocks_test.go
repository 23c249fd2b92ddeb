package service_test

import (
	"context"
	"sync"

	"github.com/jackhunterking/adpilot/common/llm"
	"github.com/jackhunterking/adpilot/internal/model"
	"github.com/jackhunterking/adpilot/internal/queue"
	"github.com/jackhunterking/adpilot/internal/service"
	"github.com/jackhunterking/adpilot/internal/store"
)

type mockConversationStore struct {
	mu sync.Mutex

	getByIDFn          func(ctx context.Context, id int64) (*model.Conversation, error)
	getByCampaignFn    func(ctx context.Context, campaignID int64) (*model.Conversation, error)
	getForUpdateFn     func(ctx context.Context, id int64) (*model.Conversation, error)
	createFn           func(ctx context.Context, conv *model.Conversation) error
	setTitleFn         func(ctx context.Context, id int64, title string) (bool, error)
	updateMetadataFn   func(ctx context.Context, id int64, md model.ConversationMetadata) error
	setSummaryFn       func(ctx context.Context, id int64, summary string) error
	bumpMessageCountFn func(ctx context.Context, id int64) (int32, error)

	createCalls   int
	updatedMeta   *model.ConversationMetadata
	capturedTitle string
}

func (m *mockConversationStore) GetByID(ctx context.Context, id int64) (*model.Conversation, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockConversationStore) GetByCampaign(ctx context.Context, campaignID int64) (*model.Conversation, error) {
	if m.getByCampaignFn != nil {
		return m.getByCampaignFn(ctx, campaignID)
	}
	return nil, store.ErrNotFound
}

func (m *mockConversationStore) GetForUpdate(ctx context.Context, id int64) (*model.Conversation, error) {
	if m.getForUpdateFn != nil {
		return m.getForUpdateFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockConversationStore) Create(ctx context.Context, conv *model.Conversation) error {
	m.mu.Lock()
	m.createCalls++
	m.mu.Unlock()
	if m.createFn != nil {
		return m.createFn(ctx, conv)
	}
	return nil
}

func (m *mockConversationStore) SetTitle(ctx context.Context, id int64, title string) (bool, error) {
	m.mu.Lock()
	m.capturedTitle = title
	m.mu.Unlock()
	if m.setTitleFn != nil {
		return m.setTitleFn(ctx, id, title)
	}
	return true, nil
}

func (m *mockConversationStore) UpdateMetadata(ctx context.Context, id int64, md model.ConversationMetadata) error {
	m.mu.Lock()
	m.updatedMeta = &md
	m.mu.Unlock()
	if m.updateMetadataFn != nil {
		return m.updateMetadataFn(ctx, id, md)
	}
	return nil
}

func (m *mockConversationStore) SetSummary(ctx context.Context, id int64, summary string) error {
	if m.setSummaryFn != nil {
		return m.setSummaryFn(ctx, id, summary)
	}
	return nil
}

func (m *mockConversationStore) BumpMessageCount(ctx context.Context, id int64) (int32, error) {
	if m.bumpMessageCountFn != nil {
		return m.bumpMessageCountFn(ctx, id)
	}
	return 1, nil
}

func (m *mockConversationStore) title() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capturedTitle
}

func (m *mockConversationStore) metadata() *model.ConversationMetadata {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updatedMeta
}

type mockMessageStore struct {
	mu sync.Mutex

	insertFn     func(ctx context.Context, msg *model.Message) (bool, error)
	existsFn     func(ctx context.Context, id string) (bool, error)
	listRecentFn func(ctx context.Context, conversationID int64, limit int32) ([]model.Message, error)
	listFn       func(ctx context.Context, conversationID int64) ([]model.Message, error)

	insertedMsgs []model.Message
}

func (m *mockMessageStore) Insert(ctx context.Context, msg *model.Message) (bool, error) {
	if m.insertFn != nil {
		return m.insertFn(ctx, msg)
	}
	m.mu.Lock()
	m.insertedMsgs = append(m.insertedMsgs, *msg)
	m.mu.Unlock()
	return true, nil
}

func (m *mockMessageStore) Exists(ctx context.Context, id string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, id)
	}
	return false, nil
}

func (m *mockMessageStore) ListRecent(ctx context.Context, conversationID int64, limit int32) ([]model.Message, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, conversationID, limit)
	}
	return nil, nil
}

func (m *mockMessageStore) List(ctx context.Context, conversationID int64) ([]model.Message, error) {
	if m.listFn != nil {
		return m.listFn(ctx, conversationID)
	}
	return nil, nil
}

func (m *mockMessageStore) inserted() []model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Message, len(m.insertedMsgs))
	copy(out, m.insertedMsgs)
	return out
}

type mockSessionStore struct {
	getFn    func(ctx context.Context, id int64) (*model.Session, error)
	deleteFn func(ctx context.Context, id int64) error
}

func (m *mockSessionStore) Get(ctx context.Context, id int64) (*model.Session, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockSessionStore) Create(ctx context.Context, sess *model.Session) error {
	return nil
}

func (m *mockSessionStore) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockStoreProvider struct {
	conversations *mockConversationStore
	messages      *mockMessageStore
}

func (m *mockStoreProvider) Conversations() store.ConversationStore { return m.conversations }
func (m *mockStoreProvider) Messages() store.MessageStore           { return m.messages }

type mockTxRunner struct {
	provider *mockStoreProvider
	withTxFn func(ctx context.Context, fn func(service.StoreProvider) error) error
}

func (m *mockTxRunner) WithTx(ctx context.Context, fn func(service.StoreProvider) error) error {
	if m.withTxFn != nil {
		return m.withTxFn(ctx, fn)
	}
	return fn(m.provider)
}

type mockProducer struct {
	mu        sync.Mutex
	enqueueFn func(ctx context.Context, task queue.Task) error
	tasks     []queue.Task
}

func (m *mockProducer) Enqueue(ctx context.Context, task queue.Task) error {
	m.mu.Lock()
	m.tasks = append(m.tasks, task)
	m.mu.Unlock()
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, task)
	}
	return nil
}

func (m *mockProducer) Close() error { return nil }

func (m *mockProducer) enqueued() []queue.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]queue.Task, len(m.tasks))
	copy(out, m.tasks)
	return out
}

type mockLLMClient struct {
	chatFn func(ctx context.Context, req llm.Request, result any) (*llm.Response, error)
}

func (m *mockLLMClient) Chat(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	if m.chatFn != nil {
		return m.chatFn(ctx, req, result)
	}
	return &llm.Response{}, nil
}

func (m *mockLLMClient) Model() string { return "mock-utility" }

type mockStreamingClient struct {
	streamChatFn func(ctx context.Context, req llm.AgentRequest) (*llm.Stream, error)
}

func (m *mockStreamingClient) StreamChat(ctx context.Context, req llm.AgentRequest) (*llm.Stream, error) {
	if m.streamChatFn != nil {
		return m.streamChatFn(ctx, req)
	}
	return nil, nil
}

func (m *mockStreamingClient) Model() string { return "mock-chat" }

// preparedStream builds a closed stream that replays the given events.
func preparedStream(events ...llm.StreamEvent) *llm.Stream {
	st := llm.NewStream()
	go func() {
		defer st.Close()
		for _, ev := range events {
			st.Emit(ev)
		}
	}()
	return st
}
