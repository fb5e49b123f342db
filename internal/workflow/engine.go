package workflow

import (
	"context"
	"crewflow/internal/additionaldata"
	"crewflow/internal/models"
	"crewflow/internal/repository"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Notifier schedules the "your video is published" mail. Implementations
// must return without waiting for delivery.
type Notifier interface {
	VideoPublished(ctx context.Context, videoID int64) error
}

type taskKind int

const (
	// re-derive a request; its videos follow if it reaches uploaded
	taskRequest taskKind = iota
	// re-derive one video, then its request once
	taskVideo
	// persist a derived video status
	taskApplyVideo
)

type task struct {
	kind    taskKind
	id      int64
	outcome VideoOutcome
}

// Engine recomputes stored statuses after a write. Work is queued and
// drained by a single loop: a video change queues its request once, a
// request change queues status writes for its videos, and status writes
// queue nothing, so every run terminates.
type Engine struct {
	requests repository.RequestRepository
	videos   repository.VideoRepository
	notifier Notifier
	logger   *logrus.Logger
	now      func() time.Time
}

func NewEngine(requests repository.RequestRepository, videos repository.VideoRepository, notifier Notifier, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		requests: requests,
		videos:   videos,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the time source used for the end-of-shoot check.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// RequestChanged re-derives a request and, when it has been uploaded, its
// videos.
func (e *Engine) RequestChanged(ctx context.Context, requestID int64) error {
	return e.drain(ctx, task{kind: taskRequest, id: requestID})
}

// VideoChanged re-derives a video and then its request.
func (e *Engine) VideoChanged(ctx context.Context, videoID int64) error {
	return e.drain(ctx, task{kind: taskVideo, id: videoID})
}

// drain runs first and every task it fans out to. Cancellation is only
// honored before the first task, after that the cascade runs to the end.
func (e *Engine) drain(ctx context.Context, first task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)

	queue := []task{first}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		next, err := e.run(ctx, current)
		if err != nil {
			return err
		}
		queue = append(queue, next...)
	}
	return nil
}

func (e *Engine) run(ctx context.Context, t task) ([]task, error) {
	switch t.kind {
	case taskRequest:
		return e.recomputeRequest(ctx, t.id)
	case taskVideo:
		return e.recomputeVideo(ctx, t.id)
	case taskApplyVideo:
		return nil, e.applyVideo(ctx, t.outcome)
	default:
		return nil, fmt.Errorf("unknown workflow task %d", t.kind)
	}
}

func (e *Engine) recomputeRequest(ctx context.Context, requestID int64) ([]task, error) {
	request, err := e.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request %d: %w", requestID, err)
	}
	data, err := additionaldata.DecodeRequestData(request.AdditionalData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode request %d additional_data: %w", requestID, err)
	}

	videos, err := e.videos.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load videos of request %d: %w", requestID, err)
	}
	inputs := make([]VideoInput, 0, len(videos))
	for _, video := range videos {
		input, err := videoInput(video)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}

	outcome := DeriveRequest(RequestInput{
		Data:        data,
		EndDatetime: request.EndDatetime,
		Videos:      inputs,
	}, e.now())

	fields := logrus.Fields{
		"request_id": requestID,
		"from":       request.Status.String(),
		"to":         outcome.Status.String(),
		"steps":      outcome.Steps,
	}
	if outcome.Status != request.Status {
		if err := e.requests.UpdateStatus(ctx, requestID, outcome.Status); err != nil {
			return nil, fmt.Errorf("failed to save request %d status: %w", requestID, err)
		}
		e.logger.WithFields(fields).Info("Request status changed")
	} else {
		e.logger.WithFields(fields).Debug("Request status unchanged")
	}

	next := make([]task, 0, len(outcome.Videos))
	for _, video := range outcome.Videos {
		next = append(next, task{kind: taskApplyVideo, id: video.ID, outcome: video})
	}
	return next, nil
}

func (e *Engine) recomputeVideo(ctx context.Context, videoID int64) ([]task, error) {
	video, err := e.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to load video %d: %w", videoID, err)
	}
	request, err := e.requests.GetByID(ctx, video.RequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request %d of video %d: %w", video.RequestID, videoID, err)
	}

	input, err := videoInput(*video)
	if err != nil {
		return nil, err
	}
	outcome := DeriveVideo(input, request.Status)

	return []task{
		{kind: taskApplyVideo, id: videoID, outcome: outcome},
		{kind: taskRequest, id: video.RequestID},
	}, nil
}

// applyVideo re-reads the video before writing so a publish mail that was
// sent in the meantime is not scheduled again. Only the status column is
// written.
func (e *Engine) applyVideo(ctx context.Context, outcome VideoOutcome) error {
	stored, err := e.videos.GetByID(ctx, outcome.ID)
	if err != nil {
		return fmt.Errorf("failed to reload video %d: %w", outcome.ID, err)
	}

	if outcome.Status != stored.Status {
		if err := e.videos.UpdateStatus(ctx, outcome.ID, outcome.Status); err != nil {
			return fmt.Errorf("failed to save video %d status: %w", outcome.ID, err)
		}
		e.logger.WithFields(logrus.Fields{
			"video_id":   outcome.ID,
			"request_id": stored.RequestID,
			"from":       stored.Status.String(),
			"to":         outcome.Status.String(),
			"steps":      outcome.Steps,
		}).Info("Video status changed")
	}

	if !outcome.Notify || e.notifier == nil {
		return nil
	}

	data, err := additionaldata.DecodeVideoData(stored.AdditionalData)
	if err != nil {
		return fmt.Errorf("failed to decode video %d additional_data: %w", outcome.ID, err)
	}
	if data.EmailSent() {
		return nil
	}

	if err := e.notifier.VideoPublished(ctx, outcome.ID); err != nil {
		e.logger.WithError(err).WithField("video_id", outcome.ID).Error("Failed to schedule published notification")
	}
	return nil
}

func videoInput(video models.Video) (VideoInput, error) {
	data, err := additionaldata.DecodeVideoData(video.AdditionalData)
	if err != nil {
		return VideoInput{}, fmt.Errorf("failed to decode video %d additional_data: %w", video.ID, err)
	}
	return VideoInput{
		ID:        video.ID,
		Stored:    video.Status,
		Data:      data,
		HasEditor: video.EditorID != nil,
	}, nil
}
