package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jackhunterking/adpilot/common/logger"
	"github.com/jackhunterking/adpilot/internal/http/dto"
	"github.com/jackhunterking/adpilot/internal/http/middleware"
	"github.com/jackhunterking/adpilot/internal/model"
	"github.com/jackhunterking/adpilot/internal/service"
	"github.com/jackhunterking/adpilot/internal/workflow"
)

type ChatHandler struct {
	conversations service.ConversationService
	turns         *service.TurnService
}

func NewChatHandler(conversations service.ConversationService, turns *service.TurnService) *ChatHandler {
	return &ChatHandler{
		conversations: conversations,
		turns:         turns,
	}
}

// Stream runs one chat turn and streams its events over SSE. The turn itself
// keeps running if the client goes away; only delivery stops.
func (h *ChatHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(ctx)

	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid chat request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Message.Role != "" && req.Message.Role != model.RoleUser {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message role must be user"})
		return
	}
	text := req.Message.Text()
	if strings.TrimSpace(text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message has no text content"})
		return
	}

	// The campaign reference travels inside the message's workflow metadata.
	// Parsed once here; the turn service receives the parsed context.
	wc := workflow.Parse(ctx, req.Message.Metadata)

	conv, err := h.conversations.Resolve(ctx, userID, service.ResolveInput{
		ConversationID: req.ConversationID,
		CampaignID:     wc.CampaignID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		case errors.Is(err, service.ErrMissingCampaignReference):
			c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId or message.metadata.campaign_id required"})
		default:
			slog.ErrorContext(ctx, "conversation resolution failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve conversation"})
		}
		return
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ConversationID: &conv.ID,
		UserID:         &userID,
	})

	events, err := h.turns.Run(ctx, service.TurnInput{
		Conversation: conv,
		MessageID:    req.Message.ID,
		Text:         text,
		Workflow:     wc,
		Metadata:     req.Message.Metadata,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "message has no text content"})
			return
		}
		slog.ErrorContext(ctx, "failed to start turn", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to start turn"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("X-Conversation-Id", dto.ToConversationResponse(conv).ID)
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent(string(ev.Type), ev)
		return true
	})
}
