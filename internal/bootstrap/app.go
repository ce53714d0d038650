package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"learnhub/internal/ai"
	"learnhub/internal/app"
	"learnhub/internal/config"
	"learnhub/internal/model"
	mysqlClient "learnhub/internal/platform/mysql"
	rabbitmqClient "learnhub/internal/platform/rabbitmq"
	redisClient "learnhub/internal/platform/redis"
	"learnhub/internal/repository"
	"learnhub/internal/worker"
)

type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	MySQL       *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	Gateway     ai.Gateway
	EventWorker *worker.EventPersistWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	logger, err := newLogger(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.User{},
		&model.ChatSession{},
		&model.ChatMessage{},
		&model.QuizSession{},
		&model.QuizQuestion{},
		&model.UsageEvent{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.UsageEventQueue)
	if err != nil {
		return nil, err
	}

	eventRepo := repository.NewUsageEventRepository(mysqlDB)
	eventWorker := worker.NewEventPersistWorker(mqConn, eventRepo, cfg.RabbitMQ.UsageEventQueue, logger)
	if err := eventWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start usage event worker failed: %w", err)
	}

	if cfg.Auth.AdminUsername != "" {
		authService := app.NewAuthService(
			repository.NewUserRepository(mysqlDB),
			cfg.Auth.JWTSecret,
			time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
		)
		if err := authService.EnsureAdmin(cfg.Auth.AdminUsername, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			return nil, fmt.Errorf("seed admin account failed: %w", err)
		}
	}

	return &App{
		Config:      cfg,
		Logger:      logger,
		MySQL:       mysqlDB,
		Redis:       redisCli,
		MQConn:      mqConn,
		Gateway:     newGateway(cfg, logger),
		EventWorker: eventWorker,
		StartedAt:   time.Now(),
	}, nil
}

// newGateway falls back to the canned gateway when no API key is configured,
// so the server stays usable in local development without an upstream model.
func newGateway(cfg *config.Config, logger *zap.Logger) ai.Gateway {
	if cfg.AI.APIKey == "" {
		logger.Warn("no AI api key configured, using static gateway")
		return ai.StaticGateway{}
	}
	return ai.NewClient(ai.Config{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		Timeout: time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
		Retries: cfg.AI.Retries,
	})
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "prod" || env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.EventWorker != nil {
		a.EventWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
