package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wououoo/weddingalba-chat/internal/config"
	"github.com/wououoo/weddingalba-chat/internal/consumer"
	"github.com/wououoo/weddingalba-chat/internal/domain"
	"github.com/wououoo/weddingalba-chat/internal/fanout"
	"github.com/wououoo/weddingalba-chat/internal/gateway"
	"github.com/wououoo/weddingalba-chat/internal/handler"
	"github.com/wououoo/weddingalba-chat/internal/hub"
	"github.com/wououoo/weddingalba-chat/internal/kafka"
	"github.com/wououoo/weddingalba-chat/internal/repository"
	"github.com/wououoo/weddingalba-chat/internal/service"
	"github.com/wououoo/weddingalba-chat/internal/store"
	"github.com/wououoo/weddingalba-chat/pkg/database"
	"github.com/wououoo/weddingalba-chat/pkg/log"
	"github.com/wououoo/weddingalba-chat/pkg/pubsub"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	log.Init(cfg.Log)
	stdlog.Printf("Starting chat service on %s:%d", cfg.Server.Host, cfg.Server.Port)

	instanceID := cfg.Chat.InstanceID
	if instanceID == "" {
		instanceID = uuid.New().String()
	}

	// Database
	db, err := database.New(&cfg.Database)
	if err != nil {
		stdlog.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&domain.MessageModel{}, &domain.RoomModel{}, &domain.ParticipantModel{}); err != nil {
		stdlog.Fatalf("Failed to migrate database: %v", err)
	}

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		stdlog.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	stdlog.Printf("Connected to Redis at %s", cfg.Redis.Address)

	presenceStore := store.NewRedisPresenceStore(redisClient, store.PresenceConfig{
		TypingTTL:   cfg.Chat.TypingTTL,
		PresenceTTL: cfg.Chat.PresenceTTL,
		SessionTTL:  cfg.Chat.SessionTTL,
	})
	unreadStore := store.NewRedisUnreadStore(redisClient)

	// Event bus
	bus, err := pubsub.NewRedisPubSub(pubsub.RedisConfig{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		stdlog.Fatalf("Failed to connect event bus: %v", err)
	}
	defer bus.Close()

	// Repositories
	messageRepo := repository.NewGormMessageRepository(db)
	roomRepo := repository.NewGormRoomRepository(db)
	participantRepo := repository.NewGormParticipantRepository(db)

	// Kafka producer
	producer, err := kafka.NewConfluentProducer(cfg.Kafka, func(messageID, roomID string, err error) {
		stdlog.Printf("Delivery failed (message=%s room=%s): %v", messageID, roomID, err)
	})
	if err != nil {
		stdlog.Fatalf("Failed to initialize Kafka producer: %v", err)
	}
	stdlog.Printf("Connected to Kafka at %s (topic: %s)", cfg.Kafka.Brokers, cfg.Kafka.Topic)

	gw := gateway.NewGateway(producer)

	// Hub and fanout
	wsHub := hub.NewHub(cfg.WebSocket)
	go wsHub.Run()

	fan := fanout.NewFanout(wsHub, bus, instanceID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	busSubscriber := fanout.NewSubscriber(wsHub, bus, instanceID)
	go func() {
		if err := busSubscriber.Run(ctx); err != nil && ctx.Err() == nil {
			stdlog.Printf("Event bus subscriber stopped: %v", err)
		}
	}()

	// Consumer pipeline
	pipeline := consumer.NewPipeline(messageRepo, roomRepo, participantRepo, unreadStore, fan, cfg.Kafka.Workers)
	pipeline.Start(ctx)

	kafkaConsumer, err := kafka.NewConsumer(cfg.Kafka, pipeline.Handle)
	if err != nil {
		stdlog.Fatalf("Failed to initialize Kafka consumer: %v", err)
	}
	go func() {
		if err := kafkaConsumer.Run(ctx); err != nil && ctx.Err() == nil {
			stdlog.Fatalf("Kafka consumer error: %v", err)
		}
	}()

	// Services
	roomService := service.NewRoomService(roomRepo, participantRepo)
	historyService := service.NewHistoryService(messageRepo, roomRepo, participantRepo, unreadStore, fan, cfg.Chat.FastInitLimit)

	// HTTP server
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(log.GinMiddleware(log.L()))

	wsHandler := handler.NewWSHandler(wsHub, gw, presenceStore)
	httpHandler := handler.NewHTTPHandler(gw, roomService, historyService, presenceStore, unreadStore, cfg.Chat.HistoryLimit)
	httpHandler.RegisterRoutes(engine, wsHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		stdlog.Printf("Chat service listening on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			stdlog.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stdlog.Println("Shutting down chat service...")

	// Drain HTTP first so no new messages enter, then stop the consumer,
	// flush the producer and release the stores.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		stdlog.Printf("Server shutdown error: %v", err)
	}

	cancel()
	kafkaConsumer.Close()
	pipeline.Stop()
	if err := producer.Close(); err != nil {
		stdlog.Printf("Producer close error: %v", err)
	}
	if err := presenceStore.Close(); err != nil {
		stdlog.Printf("Presence store close error: %v", err)
	}
	if err := unreadStore.Close(); err != nil {
		stdlog.Printf("Unread store close error: %v", err)
	}

	stdlog.Println("Chat service stopped")
}
