package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"lifi-chat-service/internal/auth"
	"lifi-chat-service/internal/db"
	"lifi-chat-service/internal/handlers"
	"lifi-chat-service/internal/live"
	"lifi-chat-service/internal/middleware"
	"lifi-chat-service/internal/observability"
	"lifi-chat-service/internal/rabbitmq"
	"lifi-chat-service/internal/repositories"
	"lifi-chat-service/internal/telemetry"
	"lifi-chat-service/internal/watch"
	"lifi-chat-service/internal/ws"
)

func main() {
	_ = godotenv.Load()

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing, err := telemetry.InitTracing(context.Background(), "lifi-chat-service", getEnv("OTLP_ENDPOINT", ""))
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		_ = shutdownTracing(context.Background())
	}()

	amqpURL := getEnv("AMQP_URL", "")
	exchange := getEnv("AMQP_EXCHANGE", "lifi.events")

	auditPublisher := rabbitmq.NewPublisher(amqpURL, exchange)
	defer auditPublisher.Close()
	emitter := telemetry.NewAuditEmitter(auditPublisher, "audit.chat", "lifi-chat-service", getEnv("ENVIRONMENT", "dev"))

	if eventPublisher, err := observability.NewAMQPEventPublisher(amqpURL, exchange); err == nil {
		observability.SetPublisher(eventPublisher)
		defer eventPublisher.Close()
	} else {
		log.Printf("ws event publishing disabled: %v", err)
	}

	jwtManager := auth.NewJWTManager(getEnv("JWT_SECRET", "dev-secret"), 24*time.Hour)

	hub := watch.NewHub()
	sessionRepo := repositories.NewSessionRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	profileRepo := repositories.NewProfileRepo(database)
	store := live.NewStore(sessionRepo, messageRepo, profileRepo, hub)

	chatHandler := handlers.NewChatHandler(store, emitter)
	directoryWS := ws.NewDirectoryWebSocketHandler(store, jwtManager)
	conversationWS := ws.NewConversationWebSocketHandler(store, jwtManager)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("lifi-chat-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(jwtManager)

	router.GET("/chats", authMiddleware, chatHandler.ListChats)
	router.POST("/chats/start", authMiddleware, chatHandler.StartChat)
	router.GET("/chats/:chat_id/messages", authMiddleware, chatHandler.GetChatMessages)
	router.POST("/chats/:chat_id/messages", authMiddleware, chatHandler.PostChatMessage)
	router.PUT("/users/me", authMiddleware, chatHandler.UpsertProfile)

	router.GET("/ws/chats", directoryWS.Handle)
	router.GET("/ws/chats/with/:user_id", conversationWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, emitter, getEnv("DEBUG_ROUTES", "") == "true")

	port := getEnv("PORT", "8083")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
