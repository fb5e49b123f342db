package services

import (
	"context"
	"crewflow/internal/additionaldata"
	"crewflow/internal/models"
	"crewflow/internal/repository"
	"crewflow/internal/workflow"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

type CreateVideoInput struct {
	Title          string `validate:"required,max=200"`
	EditorID       *int64
	AdditionalData map[string]any
}

type UpdateVideoInput struct {
	Title          *string `validate:"omitempty,min=1,max=200"`
	EditorID       *int64
	ClearEditor    bool
	AdditionalData map[string]any
}

type VideoService struct {
	videos   repository.VideoRepository
	requests repository.RequestRepository
	users    *UserService
	engine   *workflow.Engine
	logger   *logrus.Logger
}

func NewVideoService(videos repository.VideoRepository, requests repository.RequestRepository, users *UserService, engine *workflow.Engine, logger *logrus.Logger) *VideoService {
	return &VideoService{
		videos:   videos,
		requests: requests,
		users:    users,
		engine:   engine,
		logger:   logger,
	}
}

func (s *VideoService) Get(ctx context.Context, id int64) (*models.Video, error) {
	return s.videos.GetByID(ctx, id)
}

func (s *VideoService) ListByRequest(ctx context.Context, requestID int64) ([]models.Video, error) {
	if _, err := s.requests.GetByID(ctx, requestID); err != nil {
		return nil, err
	}
	return s.videos.ListByRequest(ctx, requestID)
}

func (s *VideoService) Create(ctx context.Context, caller *models.Caller, requestID int64, input CreateVideoInput) (*models.Video, error) {
	if caller == nil || !caller.CanManage() {
		return nil, ErrForbidden
	}
	if err := checkInput(input); err != nil {
		return nil, err
	}
	if _, err := s.requests.GetByID(ctx, requestID); err != nil {
		return nil, err
	}
	if err := s.checkEditor(ctx, input.EditorID); err != nil {
		return nil, err
	}
	if err := additionaldata.ValidateVideoData(input.AdditionalData); err != nil {
		return nil, err
	}

	doc := additionaldata.DeepMerge(nil, additionaldata.Sanitize(input.AdditionalData, *caller, nil))
	if err := additionaldata.ValidateVideoData(doc); err != nil {
		return nil, err
	}

	video := &models.Video{
		RequestID:      requestID,
		Title:          input.Title,
		Status:         models.VideoStatusPending,
		EditorID:       input.EditorID,
		AdditionalData: doc,
	}
	if err := s.videos.Create(ctx, video); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"video_id":   video.ID,
		"request_id": requestID,
	}).Info("Video created")

	return s.recompute(ctx, video.ID)
}

func (s *VideoService) Update(ctx context.Context, caller *models.Caller, id int64, input UpdateVideoInput) (*models.Video, error) {
	if caller == nil || !caller.CanManage() {
		return nil, ErrForbidden
	}
	if err := checkInput(input); err != nil {
		return nil, err
	}

	video, err := s.videos.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		video.Title = *input.Title
	}
	if input.ClearEditor {
		video.EditorID = nil
	} else if input.EditorID != nil {
		if err := s.checkEditor(ctx, input.EditorID); err != nil {
			return nil, err
		}
		video.EditorID = input.EditorID
	}

	if input.AdditionalData != nil {
		if err := additionaldata.ValidateVideoData(input.AdditionalData); err != nil {
			return nil, err
		}
		patch := additionaldata.Sanitize(input.AdditionalData, *caller, video.AdditionalData)
		merged := additionaldata.DeepMerge(additionaldata.Clone(video.AdditionalData), patch)
		if err := additionaldata.ValidateVideoData(merged); err != nil {
			return nil, err
		}
		video.AdditionalData = merged
	}

	if err := s.videos.Update(ctx, video); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"video_id":  id,
		"caller_id": caller.ID,
	}).Info("Video updated")

	return s.recompute(ctx, id)
}

func (s *VideoService) checkEditor(ctx context.Context, editorID *int64) error {
	if editorID == nil {
		return nil
	}
	_, err := s.users.GetByID(ctx, *editorID)
	if errors.Is(err, repository.ErrNotFound) {
		return invalid("editor %d does not exist", *editorID)
	}
	return err
}

func (s *VideoService) recompute(ctx context.Context, id int64) (*models.Video, error) {
	if err := s.engine.VideoChanged(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to recompute video %d status: %w", id, err)
	}
	return s.videos.GetByID(ctx, id)
}
