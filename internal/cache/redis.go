package cache

import (
	"context"
	"crewflow/internal/config"
	"crewflow/internal/logger"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Connect opens a client from the environment and checks it with a ping.
func Connect(ctx context.Context) (*redis.Client, error) {
	host, port, password := config.RedisConfig()

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Get().Info("Redis connection successful")
	return client, nil
}
