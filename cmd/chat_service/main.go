package main

import (
	_ "club_chat_service/cmd/chat_service/docs" // swagger docs

	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"club_chat_service/internal/chat/app"
	"club_chat_service/internal/chat/domain"
	"club_chat_service/internal/chat/repository"
	"club_chat_service/internal/chat/router"
	"club_chat_service/pkg/config"
	"club_chat_service/pkg/database"
	"club_chat_service/pkg/logger"
	testtool "club_chat_service/pkg/test_tool"
	"club_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

type stores struct {
	channels repository.ChannelRepository
	messages repository.MessageRepository
	pubSub   repository.PubSub
	closers  []func(context.Context) error
}

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	defer logger.Log.Sync()

	cfg, err := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)
	if err != nil {
		logger.Log.Fatal("load config failed", zap.Error(err))
	}
	if cfg.JWTSecret != "" {
		token.SetSecret([]byte(cfg.JWTSecret))
	}

	ctx := context.Background()

	// 1. stores
	s, err := openStores(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("open stores failed", zap.String("store", cfg.Store), zap.Error(err))
	}
	defer func() {
		for _, closeFn := range s.closers {
			if err := closeFn(ctx); err != nil {
				logger.Log.Warn("close store failed", zap.Error(err))
			}
		}
	}()
	seedChannels(ctx, s.channels, cfg.Channels)

	// 2. optional kafka event sink
	var events repository.MessageEventRepository
	if len(cfg.Kafka.Brokers) > 0 {
		writer, err := database.NewKafkaWriterWithRetry(ctx, database.KafkaConnection{
			Brokers:       cfg.Kafka.Brokers,
			Topic:         cfg.Kafka.Topic,
			RetryCount:    cfg.Kafka.RetryCount,
			RetryInterval: time.Duration(cfg.Kafka.RetryInterval) * time.Second,
		})
		if err != nil {
			logger.Log.Fatal("connect kafka failed", zap.Strings("brokers", cfg.Kafka.Brokers), zap.Error(err))
		}
		events = repository.NewKafkaMessageEventRepository(writer)
		defer events.Close()
	}

	// 3. use cases and handlers
	historyUC := app.NewHistoryUseCase(s.channels, s.messages, cfg.History.PageSizeOrDefault())
	sendMessageUC := app.NewSendMessageUseCase(s.channels, s.messages, s.pubSub, events)
	wsHandler := app.NewChatWebsocketHandler(historyUC, sendMessageUC, s.pubSub, cfg.WebSocket.PingIntervalOrDefault())

	// 4. fiber
	testtool.StartPprof(":6062")

	r := fiber.New(fiber.Config{DisableStartupMessage: config.IsProduction()})
	if dir := config.EnvConfig.ChatServiceLogPath; dir != "" {
		file, err := os.OpenFile(fmt.Sprintf("%s/access.log", dir), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer file.Close()
		r.Use(fiber_log.New(fiber_log.Config{Output: file}))
	} else {
		r.Use(fiber_log.New())
	}
	router.RegisterRoutes(r, wsHandler, app.NewHistoryHandler(historyUC))

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Log.Info("shutting down chat service")
		if err := r.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Log.Error("shutdown failed", zap.Error(err))
		}
	}()

	port := cfg.Port
	if config.EnvConfig.ChatServicePort != "" {
		port = config.EnvConfig.ChatServicePort
	}
	logger.Log.Info("chat service listening", zap.String("port", port), zap.String("store", cfg.Store))
	if err := r.Listen(":" + port); err != nil {
		logger.Log.Fatal("failed to start fiber", zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg config.Chat) (*stores, error) {
	if cfg.Store == config.StoreMemory {
		return &stores{
			channels: repository.NewMemoryChannelRepository(),
			messages: repository.NewMemoryMessageRepository(),
			pubSub:   repository.NewMemoryPubSub(),
		}, nil
	}

	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	if cfg.MongoSQL.User == "" {
		uri = fmt.Sprintf("mongodb://%s:%d", cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	}
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval) * time.Second,
		},
		cfg.MongoSQL.Database)
	if err != nil {
		return nil, fmt.Errorf("mongo %s:%d: %w", cfg.MongoSQL.Host, cfg.MongoSQL.Port, err)
	}

	redisClient, err := database.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.RedisDB)
	if err != nil {
		mongo.Close(ctx)
		return nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
	}

	messages := repository.NewMongoChatMessageRepository(mongo.Database)
	if err := messages.EnsureIndexes(ctx); err != nil {
		logger.Log.Warn("ensure message indexes failed", zap.Error(err))
	}

	ttl := cfg.Redis.ChannelCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	channels := repository.NewCachedChannelRepository(
		repository.NewMongoChannelRepository(mongo.Database),
		database.NewRedisRepository[domain.Channel](redisClient),
		ttl,
	)

	return &stores{
		channels: channels,
		messages: messages,
		pubSub:   repository.NewRedisPubSub(redisClient),
		closers: []func(context.Context) error{
			func(context.Context) error { return redisClient.Close() },
			mongo.Close,
		},
	}, nil
}

func seedChannels(ctx context.Context, repo repository.ChannelRepository, seeds []config.ChannelSeed) {
	for _, seed := range seeds {
		existing, err := repo.FindByID(ctx, seed.ID)
		if err != nil {
			logger.Log.Warn("seed channel lookup failed", zap.String("channel_id", seed.ID), zap.Error(err))
			continue
		}
		if existing != nil {
			continue
		}
		err = repo.CreateChannel(ctx, &domain.Channel{
			ID:        seed.ID,
			TeamID:    seed.TeamID,
			Name:      seed.Name,
			Members:   seed.Members,
			CreatedAt: time.Now().Unix(),
		})
		if err != nil {
			logger.Log.Warn("seed channel failed", zap.String("channel_id", seed.ID), zap.Error(err))
			continue
		}
		logger.Log.Info("channel seeded", zap.String("channel_id", seed.ID))
	}
}
