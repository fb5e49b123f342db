package services

import (
	"context"
	"crewflow/internal/additionaldata"
	"crewflow/internal/cache"
	"crewflow/internal/logger"
	"crewflow/internal/models"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// publishedVideo walks a request and one video up to published and returns
// the video id. One job is left on the queue.
func (f *fixture) publishedVideo(t *testing.T) (*models.Request, int64) {
	t.Helper()
	ctx := context.Background()

	request := f.createRequest(t, map[string]any{
		models.KeyAccepted: true,
		"recording":        map[string]any{"path": "/mnt/raw/concert"},
	})
	video, err := f.videos.Create(ctx, f.staff, request.ID, CreateVideoInput{
		Title:    "Highlights",
		EditorID: &f.staff.ID,
		AdditionalData: map[string]any{
			"editing_done":       true,
			"coding":             map[string]any{"website": true},
			models.KeyPublishing: map[string]any{"website": "https://example.com/v/7"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, models.VideoStatusPublished, video.Status)
	return request, video.ID
}

func TestNotificationService_SendsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	request, videoID := f.publishedVideo(t)

	require.Equal(t, 1, f.queue.Len())

	processed, err := f.notifications.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)

	require.Equal(t, 1, f.mailer.count())
	message := f.mailer.sent[0]
	assert.Equal(t, "crew@example.com", message.From)

	requester, err := f.store.Users().GetByID(ctx, request.RequesterID)
	require.NoError(t, err)
	assert.Equal(t, requester.Email, message.To)
	assert.Contains(t, message.Subject, "Highlights")
	assert.Contains(t, message.Body, "https://example.com/v/7")

	video, err := f.videos.Get(ctx, videoID)
	require.NoError(t, err)
	data, err := additionaldata.DecodeVideoData(video.AdditionalData)
	require.NoError(t, err)
	assert.True(t, data.EmailSent())

	// later writes keep the video published without another mail
	_, err = f.videos.Update(ctx, f.staff, videoID, UpdateVideoInput{
		AdditionalData: map[string]any{"length": 312.5},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, f.queue.Len())

	stats := f.notifications.Stats()
	assert.Equal(t, 1, stats.JobsProcessed)
	assert.Equal(t, 1, stats.MailsSent)
	assert.Equal(t, 0, stats.Errors)
}

func TestNotificationService_RepublishAfterSendDoesNotMailAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, videoID := f.publishedVideo(t)

	_, err := f.notifications.ProcessNext(ctx)
	require.NoError(t, err)

	// drop back to coded, then publish again
	_, err = f.videos.Update(ctx, f.staff, videoID, UpdateVideoInput{
		AdditionalData: map[string]any{models.KeyPublishing: map[string]any{"website": nil}},
	})
	require.NoError(t, err)
	video, err := f.videos.Update(ctx, f.staff, videoID, UpdateVideoInput{
		AdditionalData: map[string]any{models.KeyPublishing: map[string]any{"website": "https://example.com/v/8"}},
	})
	require.NoError(t, err)

	assert.Equal(t, models.VideoStatusPublished, video.Status)
	assert.Equal(t, 0, f.queue.Len())
	assert.Equal(t, 1, f.mailer.count())
}

func TestNotificationService_PendingJobIsNotDuplicated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, videoID := f.publishedVideo(t)

	require.NoError(t, f.notifications.VideoPublished(ctx, videoID))
	assert.Equal(t, 1, f.queue.Len())
}

func TestNotificationService_SkipsDeletedVideo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	request, _ := f.publishedVideo(t)

	require.NoError(t, f.requests.Delete(ctx, f.admin, request.ID))

	processed, err := f.notifications.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, 0, f.mailer.count())
}

func TestNotificationService_MailerFailureIsRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, videoID := f.publishedVideo(t)

	f.mailer.fail(errors.New("smtp down"))

	processed, err := f.notifications.ProcessNext(ctx)
	assert.True(t, processed)
	assert.Error(t, err)

	video, err := f.videos.Get(ctx, videoID)
	require.NoError(t, err)
	data, err := additionaldata.DecodeVideoData(video.AdditionalData)
	require.NoError(t, err)
	assert.False(t, data.EmailSent())
	assert.Equal(t, 1, f.notifications.Stats().Errors)
	assert.Equal(t, 1, f.queue.Len())

	f.mailer.fail(nil)

	processed, err = f.notifications.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, 1, f.mailer.count())
	assert.Equal(t, 0, f.queue.Len())
}

func TestNotificationService_GivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, videoID := f.publishedVideo(t)

	f.mailer.fail(errors.New("smtp down"))

	for i := 0; i < 3; i++ {
		processed, err := f.notifications.ProcessNext(ctx)
		assert.True(t, processed)
		assert.Error(t, err)
	}

	processed, err := f.notifications.ProcessNext(ctx)
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Equal(t, 3, f.notifications.Stats().Errors)

	// a later publish schedules the mail from scratch
	require.NoError(t, f.notifications.VideoPublished(ctx, videoID))
	assert.Equal(t, 1, f.queue.Len())
}

func TestNotificationService_FullQueueDoesNotBlockPublish(t *testing.T) {
	f := newFixtureWithQueue(t, cache.NewMemoryQueue(1))
	request, _ := f.publishedVideo(t)
	require.Equal(t, 1, f.queue.Len())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	second, err := f.videos.Create(ctx, f.staff, request.ID, CreateVideoInput{
		Title:    "Interviews",
		EditorID: &f.staff.ID,
		AdditionalData: map[string]any{
			"editing_done":       true,
			"coding":             map[string]any{"website": true},
			models.KeyPublishing: map[string]any{"website": "https://example.com/v/9"},
		},
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
	assert.Equal(t, models.VideoStatusPublished, second.Status)
	assert.Equal(t, 1, f.notifications.Stats().Deferred)

	for i := 0; i < 2; i++ {
		processed, err := f.notifications.ProcessNext(context.Background())
		require.NoError(t, err)
		assert.True(t, processed)
	}
	assert.Equal(t, 2, f.mailer.count())
	assert.Equal(t, 0, f.notifications.Stats().Deferred)
}

func TestNotificationService_EmptyQueue(t *testing.T) {
	f := newFixture(t)

	processed, err := f.notifications.ProcessNext(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestNotificationService_WorkerStopsWithContext(t *testing.T) {
	f := newFixture(t)
	_, videoID := f.publishedVideo(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.notifications.StartWorker(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return f.mailer.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.False(t, f.notifications.Stats().IsRunning)

	video, err := f.videos.Get(context.Background(), videoID)
	require.NoError(t, err)
	data, err := additionaldata.DecodeVideoData(video.AdditionalData)
	require.NoError(t, err)
	assert.True(t, data.EmailSent())
}

type brokenQueue struct {
	pops atomic.Int32
}

func (q *brokenQueue) Push(context.Context, models.PublishedJob) (bool, error) {
	return false, errors.New("connection refused")
}

func (q *brokenQueue) Pop(context.Context, time.Duration) (*models.PublishedJob, error) {
	q.pops.Add(1)
	return nil, errors.New("connection refused")
}

func (q *brokenQueue) Release(context.Context, int64) error { return nil }

func TestNotificationService_WorkerWaitsAfterQueueError(t *testing.T) {
	f := newFixture(t)
	queue := &brokenQueue{}
	notifications := NewNotificationService(
		queue,
		f.store.Videos(),
		f.store.Requests(),
		f.store.Users(),
		f.mailer,
		NotificationConfig{PollTimeout: 10 * time.Millisecond, RetryDelay: 50 * time.Millisecond},
		logger.Discard(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	notifications.StartWorker(ctx)

	pops := queue.pops.Load()
	assert.GreaterOrEqual(t, pops, int32(2))
	assert.LessOrEqual(t, pops, int32(4))
}
