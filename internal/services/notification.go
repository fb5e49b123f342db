package services

import (
	"context"
	"crewflow/internal/additionaldata"
	"crewflow/internal/models"
	"crewflow/internal/repository"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type NotificationQueue interface {
	// Push enqueues job unless an identical one is already pending and
	// reports whether it was enqueued.
	Push(ctx context.Context, job models.PublishedJob) (bool, error)
	// Pop waits up to timeout for a job; nil without error on timeout.
	Pop(ctx context.Context, timeout time.Duration) (*models.PublishedJob, error)
	// Release forgets the pending marker of a video so it can be enqueued
	// again.
	Release(ctx context.Context, videoID int64) error
}

type MailMessage struct {
	From    string
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, message MailMessage) error
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	Logger *logrus.Logger
}

func (m LogMailer) Send(_ context.Context, message MailMessage) error {
	m.Logger.WithFields(logrus.Fields{
		"from":    message.From,
		"to":      message.To,
		"subject": message.Subject,
	}).Info("Mail sent")
	return nil
}

type NotificationStats struct {
	LastRun       time.Time `json:"last_run"`
	JobsProcessed int       `json:"jobs_processed"`
	MailsSent     int       `json:"mails_sent"`
	Errors        int       `json:"errors"`
	Deferred      int       `json:"deferred"`
	IsRunning     bool      `json:"is_running"`
}

type NotificationConfig struct {
	From          string
	RatePerMinute int
	PollTimeout   time.Duration
	// MaxAttempts bounds how often one job is handled, failures included.
	MaxAttempts int
	// RetryDelay is the pause of the worker after a failed job or pop.
	RetryDelay time.Duration
}

type NotificationService struct {
	queue    NotificationQueue
	videos   repository.VideoRepository
	requests repository.RequestRepository
	users    repository.UserRepository
	mailer   Mailer
	limiter  *rate.Limiter
	config   NotificationConfig
	logger   *logrus.Logger

	mu    sync.Mutex
	stats NotificationStats
	// jobs the queue refused, pushed again before the next pop
	deferred map[int64]models.PublishedJob
}

func NewNotificationService(
	queue NotificationQueue,
	videos repository.VideoRepository,
	requests repository.RequestRepository,
	users repository.UserRepository,
	mailer Mailer,
	config NotificationConfig,
	logger *logrus.Logger,
) *NotificationService {
	if config.RatePerMinute <= 0 {
		config.RatePerMinute = 30
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = 5 * time.Second
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 5 * time.Second
	}
	return &NotificationService{
		queue:    queue,
		videos:   videos,
		requests: requests,
		users:    users,
		mailer:   mailer,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RatePerMinute)), 1),
		config:   config,
		logger:   logger,
		deferred: make(map[int64]models.PublishedJob),
	}
}

// VideoPublished enqueues the mail and returns without waiting for it. A job
// the queue refuses is kept in process and pushed again by the worker.
func (s *NotificationService) VideoPublished(ctx context.Context, videoID int64) error {
	job := models.PublishedJob{VideoID: videoID, EnqueuedAt: time.Now()}
	log := s.logger.WithField("video_id", videoID)

	enqueued, err := s.queue.Push(ctx, job)
	if err != nil {
		s.deferJob(job)
		log.WithError(err).Warn("Published notification deferred")
		return nil
	}

	if enqueued {
		log.Info("Published notification scheduled")
	} else {
		log.Debug("Published notification already pending")
	}
	return nil
}

// StartWorker processes jobs until ctx is canceled.
func (s *NotificationService) StartWorker(ctx context.Context) {
	s.logger.Info("Starting notification worker...")
	s.setRunning(true)
	defer s.setRunning(false)

	for ctx.Err() == nil {
		_, err := s.ProcessNext(ctx)
		if err == nil || ctx.Err() != nil {
			continue
		}
		s.logger.WithError(err).Error("Error processing published notification")

		timer := time.NewTimer(s.config.RetryDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	s.logger.Info("Notification worker stopped")
}

// ProcessNext handles at most one job and reports whether there was one. A
// failed job is queued again until it has used MaxAttempts.
func (s *NotificationService) ProcessNext(ctx context.Context) (bool, error) {
	s.flushDeferred(ctx)

	job, err := s.queue.Pop(ctx, s.config.PollTimeout)
	if err != nil {
		return false, fmt.Errorf("failed to pop notification job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	err = s.handle(ctx, *job)

	s.mu.Lock()
	s.stats.LastRun = time.Now()
	s.stats.JobsProcessed++
	if err != nil {
		s.stats.Errors++
	}
	s.mu.Unlock()

	if releaseErr := s.queue.Release(ctx, job.VideoID); releaseErr != nil {
		s.logger.WithError(releaseErr).WithField("video_id", job.VideoID).Warn("Failed to release notification marker")
	}
	if err != nil {
		s.retry(ctx, *job)
	}
	return true, err
}

func (s *NotificationService) Stats() NotificationStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := s.stats
	stats.Deferred = len(s.deferred)
	return stats
}

func (s *NotificationService) retry(ctx context.Context, job models.PublishedJob) {
	job.Attempts++
	log := s.logger.WithFields(logrus.Fields{"video_id": job.VideoID, "attempts": job.Attempts})
	if job.Attempts >= s.config.MaxAttempts {
		log.Error("Giving up on published notification")
		return
	}

	if _, err := s.queue.Push(context.WithoutCancel(ctx), job); err != nil {
		s.deferJob(job)
		log.WithError(err).Warn("Published notification retry deferred")
		return
	}
	log.Info("Published notification scheduled for retry")
}

func (s *NotificationService) deferJob(job models.PublishedJob) {
	s.mu.Lock()
	s.deferred[job.VideoID] = job
	s.mu.Unlock()
}

func (s *NotificationService) flushDeferred(ctx context.Context) {
	s.mu.Lock()
	if len(s.deferred) == 0 {
		s.mu.Unlock()
		return
	}
	jobs := make([]models.PublishedJob, 0, len(s.deferred))
	for _, job := range s.deferred {
		jobs = append(jobs, job)
	}
	s.mu.Unlock()

	for _, job := range jobs {
		if _, err := s.queue.Push(ctx, job); err != nil {
			return
		}
		s.mu.Lock()
		if s.deferred[job.VideoID] == job {
			delete(s.deferred, job.VideoID)
		}
		s.mu.Unlock()
	}
}

func (s *NotificationService) handle(ctx context.Context, job models.PublishedJob) error {
	video, err := s.videos.GetByID(ctx, job.VideoID)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.WithField("video_id", job.VideoID).Warn("Video of notification job no longer exists")
		return nil
	}
	if err != nil {
		return err
	}

	data, err := additionaldata.DecodeVideoData(video.AdditionalData)
	if err != nil {
		return err
	}
	if data.EmailSent() {
		return nil
	}

	request, err := s.requests.GetByID(ctx, video.RequestID)
	if err != nil {
		return fmt.Errorf("failed to load request %d: %w", video.RequestID, err)
	}
	requester, err := s.users.GetByID(ctx, request.RequesterID)
	if err != nil {
		return fmt.Errorf("failed to load requester %d: %w", request.RequesterID, err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	message := publishedMessage(s.config.From, requester, request, video, data.PublishedURL())
	if err := s.mailer.Send(ctx, message); err != nil {
		return fmt.Errorf("failed to send published mail for video %d: %w", video.ID, err)
	}

	patch := map[string]any{
		models.KeyPublishing: map[string]any{models.KeyEmailSentToUser: true},
	}
	if err := s.videos.MergeAdditionalData(ctx, video.ID, patch); err != nil {
		return fmt.Errorf("failed to mark published mail as sent: %w", err)
	}

	s.mu.Lock()
	s.stats.MailsSent++
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"video_id":     video.ID,
		"request_id":   request.ID,
		"requester_id": requester.ID,
	}).Info("Published notification sent")
	return nil
}

func (s *NotificationService) setRunning(running bool) {
	s.mu.Lock()
	s.stats.IsRunning = running
	s.mu.Unlock()
}

func publishedMessage(from string, requester *models.User, request *models.Request, video *models.Video, url string) MailMessage {
	name := requester.FirstName
	if name == "" {
		name = requester.Username
	}

	body := fmt.Sprintf(`Dear %s,

A video made from your request "%s" (%s, %s) has been published.

%s
%s

Request #%d`,
		name, request.Title, request.Place, request.StartDatetime.Format("January 2, 2006"),
		video.Title, url, request.ID)

	return MailMessage{
		From:    from,
		To:      requester.Email,
		Subject: fmt.Sprintf("Your video is ready: %s", video.Title),
		Body:    body,
	}
}
