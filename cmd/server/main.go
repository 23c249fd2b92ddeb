package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jackhunterking/adpilot/common/id"
	"github.com/jackhunterking/adpilot/common/llm"
	"github.com/jackhunterking/adpilot/common/logger"
	"github.com/jackhunterking/adpilot/common/otel"
	"github.com/jackhunterking/adpilot/core/config"
	"github.com/jackhunterking/adpilot/core/db"
	"github.com/jackhunterking/adpilot/internal/adplatform"
	"github.com/jackhunterking/adpilot/internal/assembler"
	"github.com/jackhunterking/adpilot/internal/http/middleware"
	httprouter "github.com/jackhunterking/adpilot/internal/http/router"
	"github.com/jackhunterking/adpilot/internal/queue"
	"github.com/jackhunterking/adpilot/internal/service"
	"github.com/jackhunterking/adpilot/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet, OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "adpilot starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Queue.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Queue.RedisStream)

	producer := queue.NewRedisProducer(redisClient, cfg.Queue.RedisStream)
	defer producer.Close()

	chatClient, err := llm.NewStreamingClient(llm.Config{
		Provider:        cfg.ChatLLM.Provider,
		APIKey:          cfg.ChatLLM.APIKey,
		BaseURL:         cfg.ChatLLM.BaseURL,
		Model:           cfg.ChatLLM.Model,
		ReasoningEffort: llm.ReasoningEffort(cfg.ChatLLM.ReasoningEffort),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create chat llm client", "error", err)
		os.Exit(1)
	}

	var utilityClient llm.Client
	if cfg.UtilityLLM.Enabled() {
		utilityClient, err = llm.New(llm.Config{
			Provider: cfg.UtilityLLM.Provider,
			APIKey:   cfg.UtilityLLM.APIKey,
			BaseURL:  cfg.UtilityLLM.BaseURL,
			Model:    cfg.UtilityLLM.Model,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to create utility llm client", "error", err)
			os.Exit(1)
		}
	} else {
		slog.WarnContext(ctx, "utility llm disabled, conversations will not be auto-titled")
	}

	platform := adplatform.NewClient(adplatform.Config{
		BaseURL: cfg.AdPlatform.BaseURL,
		APIKey:  cfg.AdPlatform.APIKey,
		Timeout: cfg.AdPlatform.Timeout,
	})
	asm := assembler.New(platform, platform, platform)

	stores := store.NewStores(database.Queries())
	services := service.NewServices(
		stores,
		service.NewTxRunner(database),
		asm,
		chatClient,
		utilityClient,
		producer,
		cfg,
	)
	limiter := service.NewRateLimiter(redisClient, cfg.RateLimit)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, limiter)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Streamed turns run up to the turn timeout; leave headroom.
		WriteTimeout: cfg.Turn.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services, limiter service.RateLimiter) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, limiter)

	return router
}

const banner = `
 █████╗ ██████╗ ██████╗ ██╗██╗      ██████╗ ████████╗
██╔══██╗██╔══██╗██╔══██╗██║██║     ██╔═══██╗╚══██╔══╝
███████║██║  ██║██████╔╝██║██║     ██║   ██║   ██║
██╔══██║██║  ██║██╔═══╝ ██║██║     ██║   ██║   ██║
██║  ██║██████╔╝██║     ██║███████╗╚██████╔╝   ██║
╚═╝  ╚═╝╚═════╝ ╚═╝     ╚═╝╚══════╝ ╚═════╝    ╚═╝
`
