package container

import (
	"context"
	"crewflow/internal/cache"
	"crewflow/internal/config"
	"crewflow/internal/database"
	"crewflow/internal/logger"
	"crewflow/internal/repository"
	"crewflow/internal/services"
	"crewflow/internal/workflow"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Container struct {
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Logger *logrus.Logger

	Users    repository.UserRepository
	Requests repository.RequestRepository
	Videos   repository.VideoRepository

	Engine              *workflow.Engine
	UserService         *services.UserService
	RequestService      *services.RequestService
	VideoService        *services.VideoService
	NotificationService *services.NotificationService
}

func New(ctx context.Context) (*Container, error) {
	c := &Container{Logger: logger.Get()}

	var queue services.NotificationQueue
	switch config.StorageBackend() {
	case config.StorageMemory:
		store := repository.NewMemory()
		c.Users, c.Requests, c.Videos = store.Users(), store.Requests(), store.Videos()
		queue = cache.NewMemoryQueue(0)
		c.Logger.Warn("Using in-memory storage, nothing survives a restart")

	default:
		db, err := database.Connect(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		c.DB = db

		if err := database.Migrate(ctx, db); err != nil {
			c.Close()
			return nil, err
		}

		redisClient, err := cache.Connect(ctx)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		c.Redis = redisClient

		c.Users = repository.NewUserRepository(db)
		c.Requests = repository.NewRequestRepository(db)
		c.Videos = repository.NewVideoRepository(db)
		queue = cache.NewPublishedQueue(redisClient)
	}

	perMinute, pollTimeout, from := config.NotificationConfig()
	maxAttempts, retryDelay := config.NotificationRetry()
	c.NotificationService = services.NewNotificationService(
		queue,
		c.Videos,
		c.Requests,
		c.Users,
		services.LogMailer{Logger: c.Logger},
		services.NotificationConfig{
			From:          from,
			RatePerMinute: perMinute,
			PollTimeout:   pollTimeout,
			MaxAttempts:   maxAttempts,
			RetryDelay:    retryDelay,
		},
		c.Logger,
	)

	c.Engine = workflow.NewEngine(c.Requests, c.Videos, c.NotificationService, c.Logger)
	c.UserService = services.NewUserService(c.Users, c.Logger)
	c.RequestService = services.NewRequestService(c.Requests, c.UserService, c.Engine, c.Logger)
	c.VideoService = services.NewVideoService(c.Videos, c.Requests, c.UserService, c.Engine, c.Logger)

	return c, nil
}

func (c *Container) Close() {
	if c.Redis != nil {
		c.Redis.Close()
		c.Logger.Info("Redis connection closed")
	}
	if c.DB != nil {
		c.DB.Close()
		c.Logger.Info("Database connection closed")
	}
}
