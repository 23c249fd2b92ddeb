package router

import (
	"github.com/gin-gonic/gin"

	"github.com/jackhunterking/adpilot/internal/http/handler"
	"github.com/jackhunterking/adpilot/internal/http/middleware"
	"github.com/jackhunterking/adpilot/internal/service"
)

func SetupRoutes(router *gin.Engine, services *service.Services, limiter service.RateLimiter) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RequireAuth(services.Auth()))
	{
		chatHandler := handler.NewChatHandler(services.Conversations(), services.Turns())
		ChatRouter(v1, chatHandler, limiter)

		convHandler := handler.NewConversationHandler(services.Conversations())
		ConversationRouter(v1.Group("/conversations"), convHandler)
	}
}
