package router

import (
	"github.com/gin-gonic/gin"

	"github.com/jackhunterking/adpilot/internal/http/handler"
	"github.com/jackhunterking/adpilot/internal/http/middleware"
	"github.com/jackhunterking/adpilot/internal/service"
)

func ChatRouter(rg *gin.RouterGroup, h *handler.ChatHandler, limiter service.RateLimiter) {
	rg.POST("/chat", middleware.RateLimit(limiter, "chat"), h.Stream)
}
