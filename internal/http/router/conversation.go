package router

import (
	"github.com/gin-gonic/gin"

	"github.com/jackhunterking/adpilot/internal/http/handler"
)

func ConversationRouter(rg *gin.RouterGroup, h *handler.ConversationHandler) {
	rg.GET("/:id", h.Get)
	rg.GET("/:id/messages", h.ListMessages)
}
