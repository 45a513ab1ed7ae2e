package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messaging-service/internal/auditor"
	"messaging-service/internal/config"
	"messaging-service/internal/db"
	"messaging-service/internal/handlers"
	"messaging-service/internal/middleware"
	"messaging-service/internal/notify"
	"messaging-service/internal/observability"
	"messaging-service/internal/presence"
	"messaging-service/internal/rabbitmq"
	"messaging-service/internal/repositories"
	"messaging-service/internal/service"
	"messaging-service/internal/storage"
	"messaging-service/internal/telemetry"
	"messaging-service/internal/ws"
)

const serviceName = "messaging-service"

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("tracing shutdown failed: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s reason=%q", rabbitmq.PublisherMode(publisher), rabbitmq.PublisherNoopReason(publisher))
	auditEmitter := telemetry.NewAuditEmitter(publisher, "audit_logs.messaging", serviceName, cfg.Environment)
	if rabbitmq.PublisherMode(publisher) == "amqp" {
		observability.SetPublisher(publisher)
	}

	registry := presence.NewRegistry(cfg.RedisAddr, cfg.RedisPassword)
	defer registry.Close()

	hub := ws.NewHub()
	dispatcher := notify.NewChannelDispatcher(hub, registry)

	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	identityRepo := repositories.NewIdentityRepo(database)

	svc := service.NewConversationService(conversationRepo, messageRepo, identityRepo, dispatcher, cfg.StoreTimeout)

	attachmentStore, err := storage.OpenBlobStore(ctx, cfg.AttachmentBucketURL, cfg.AttachmentPublicURL)
	if err != nil {
		log.Fatalf("failed to open attachment store: %v", err)
	}
	defer attachmentStore.Close()

	aud := auditor.New(conversationRepo, cfg.AuditBatch)
	if cfg.RedisAddr != "" {
		go func() {
			if err := auditor.RunAsynq(ctx, aud, cfg.RedisAddr, cfg.RedisPassword, cfg.AuditInterval); err != nil {
				log.Printf("asynq auditor stopped: %v", err)
			}
		}()
	} else {
		go aud.Run(ctx, cfg.AuditInterval)
	}

	conversationHandler := handlers.NewConversationHandler(svc, auditEmitter)
	messageHandler := handlers.NewMessageHandler(svc, auditEmitter)
	attachmentHandler := handlers.NewAttachmentHandler(svc, attachmentStore)
	userWS := ws.NewUserSocketHandler(hub, registry, cfg.JWTSecret)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)

	router.GET("/conversations", authMiddleware, conversationHandler.ListConversations)
	router.POST("/conversations", authMiddleware, conversationHandler.StartConversation)
	router.GET("/conversations/:conversation_id/messages", authMiddleware, messageHandler.ListMessages)
	router.POST("/conversations/:conversation_id/messages", authMiddleware, messageHandler.PostMessage)
	router.POST("/conversations/:conversation_id/read", authMiddleware, conversationHandler.MarkRead)
	router.POST("/conversations/:conversation_id/attachments", authMiddleware, attachmentHandler.Upload)
	router.DELETE("/conversations/:conversation_id/me", authMiddleware, conversationHandler.DeleteConversationForMe)
	router.DELETE("/messages/:message_id", authMiddleware, messageHandler.DeleteMessage)

	router.GET("/ws", userWS.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.InternalEventsEnabled {
		internalEvents := handlers.NewInternalEventsHandler(dispatcher, cfg.InternalEventsToken)
		router.POST("/internal/events", internalEvents.Publish)
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		log.Printf("messaging service listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown failed: %v", err)
	}
}
