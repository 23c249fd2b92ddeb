package service

import (
	"github.com/jackhunterking/adpilot/common/llm"
	"github.com/jackhunterking/adpilot/core/config"
	"github.com/jackhunterking/adpilot/internal/assembler"
	"github.com/jackhunterking/adpilot/internal/queue"
	"github.com/jackhunterking/adpilot/internal/store"
	"github.com/jackhunterking/adpilot/internal/tools"
)

type Services struct {
	stores    *store.Stores
	txRunner  TxRunner
	assembler *assembler.Assembler
	chat      llm.StreamingClient
	utility   llm.Client
	producer  queue.Producer
	cfg       config.Config
}

func NewServices(
	stores *store.Stores,
	txRunner TxRunner,
	asm *assembler.Assembler,
	chat llm.StreamingClient,
	utility llm.Client,
	producer queue.Producer,
	cfg config.Config,
) *Services {
	return &Services{
		stores:    stores,
		txRunner:  txRunner,
		assembler: asm,
		chat:      chat,
		utility:   utility,
		producer:  producer,
		cfg:       cfg,
	}
}

func (s *Services) Auth() AuthService {
	return NewAuthService(s.stores.Sessions())
}

func (s *Services) Conversations() ConversationService {
	return NewConversationService(s.stores.Conversations(), s.stores.Messages())
}

func (s *Services) Turns() *TurnService {
	finisher := NewTurnFinisher(s.txRunner, s.utility, s.producer, s.cfg.Turn)
	history := NewHistoryLoader(s.stores.Messages(), s.cfg.Turn.HistoryWindow)
	return NewTurnService(
		s.stores.Conversations(),
		s.assembler,
		tools.NewRegistry(),
		history,
		s.chat,
		finisher,
		s.cfg.Turn,
		s.cfg.ChatLLM.MaxTokens,
	)
}
