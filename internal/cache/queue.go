package cache

import (
	"context"
	"crewflow/internal/models"
	"errors"
	"fmt"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const (
	publishedQueueKey     = "notify:video_published"
	publishedPendingKey   = "notify:video_published:pending:"
	publishedPendingTTL   = 30 * time.Minute
	minimumBlockingPopTTL = time.Second
)

// PublishedQueue is a Redis list of "video published" jobs. A per-video
// marker keeps one job per video in flight.
type PublishedQueue struct {
	redis *redis.Client
}

func NewPublishedQueue(client *redis.Client) *PublishedQueue {
	return &PublishedQueue{redis: client}
}

func (q *PublishedQueue) Push(ctx context.Context, job models.PublishedJob) (bool, error) {
	marker := publishedPendingKey + strconv.FormatInt(job.VideoID, 10)
	fresh, err := q.redis.SetNX(ctx, marker, job.EnqueuedAt.Unix(), publishedPendingTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set pending marker: %w", err)
	}
	if !fresh {
		return false, nil
	}

	payload, err := json.Marshal(job)
	if err != nil {
		q.redis.Del(ctx, marker)
		return false, fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.redis.LPush(ctx, publishedQueueKey, payload).Err(); err != nil {
		q.redis.Del(ctx, marker)
		return false, fmt.Errorf("failed to push job: %w", err)
	}
	return true, nil
}

func (q *PublishedQueue) Pop(ctx context.Context, timeout time.Duration) (*models.PublishedJob, error) {
	if timeout < minimumBlockingPopTTL {
		timeout = minimumBlockingPopTTL
	}

	result, err := q.redis.BRPop(ctx, timeout, publishedQueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// BRPOP answers with [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of %d elements", len(result))
	}

	var job models.PublishedJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

func (q *PublishedQueue) Release(ctx context.Context, videoID int64) error {
	return q.redis.Del(ctx, publishedPendingKey+strconv.FormatInt(videoID, 10)).Err()
}
