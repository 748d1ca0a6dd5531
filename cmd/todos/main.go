package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/Aidin1998/todos/api"
	"github.com/Aidin1998/todos/internal/cache"
	"github.com/Aidin1998/todos/internal/config"
	"github.com/Aidin1998/todos/internal/database"
	"github.com/Aidin1998/todos/internal/messaging"
	"github.com/Aidin1998/todos/internal/todos"
	"github.com/Aidin1998/todos/pkg/logger"
	"github.com/Aidin1998/todos/pkg/telemetry"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create logger
	zapLogger, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: "todos",
		Tracing:     cfg.Tracing.Enabled,
		Metrics:     cfg.Tracing.Enabled,
	})
	if err != nil {
		zapLogger.Fatal("Failed to set up telemetry", zap.Error(err))
	}

	// Connect to the todo store
	store, err := database.Open(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to open todo store",
			zap.String("driver", cfg.Storage.Driver),
			zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		store = cache.NewStore(store, redisClient, cfg.Redis.TTL, zapLogger)
		zapLogger.Info("Redis cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))
	}

	publisher := todos.NopPublisher()
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaCfg := messaging.DefaultKafkaConfig()
		kafkaCfg.Brokers = cfg.Kafka.Brokers
		kafkaCfg.Topic = cfg.Kafka.Topic
		kafkaCfg.WriteTimeout = cfg.Kafka.WriteTimeout
		kafkaCfg.BatchSize = cfg.Kafka.BatchSize
		kafkaCfg.BatchTimeout = cfg.Kafka.BatchTimeout
		publisher, err = messaging.NewKafkaPublisher(kafkaCfg, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to create Kafka publisher", zap.Error(err))
		}
		zapLogger.Info("Publishing todo events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	svc := todos.NewService(zapLogger, store, todos.WithPublisher(publisher))
	apiServer := api.NewServer(zapLogger, svc, api.WithAllowedOrigins(cfg.CORS.AllowedOrigins))

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("Server started", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	// Stop accepting requests before releasing the store and its collaborators
	wait := gfshutdown.GracefulShutdown(ctx, cfg.Server.ShutdownTimeout, map[string]gfshutdown.Operation{
		"todos": func(ctx context.Context) error {
			zapLogger.Info("Shutting down server...")
			err := httpServer.Shutdown(ctx)
			err = errors.Join(err, publisher.Close())
			err = errors.Join(err, store.Close(ctx))
			if redisClient != nil {
				err = errors.Join(err, redisClient.Close())
			}
			err = errors.Join(err, shutdownTelemetry(ctx))
			if err != nil {
				zapLogger.Error("Shutdown finished with errors", zap.Error(err))
			}
			return err
		},
	})

	exitCode := <-wait
	zapLogger.Info("Server exited", zap.Int("code", exitCode))
	_ = zapLogger.Sync()
	os.Exit(exitCode)
}
