package services

import (
	"context"
	"crewflow/internal/additionaldata"
	"crewflow/internal/models"
	"crewflow/internal/repository"
	"crewflow/internal/workflow"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type CreateRequestInput struct {
	Title          string    `validate:"required,max=200"`
	StartDatetime  time.Time `validate:"required"`
	EndDatetime    time.Time `validate:"required"`
	Deadline       *time.Time
	Place          string `validate:"required,max=150"`
	Type           string `validate:"required,max=50"`
	Requester      *RequesterContact
	AdditionalData map[string]any
}

// UpdateRequestInput is a partial update; nil fields are left alone.
type UpdateRequestInput struct {
	Title          *string `validate:"omitempty,min=1,max=200"`
	StartDatetime  *time.Time
	EndDatetime    *time.Time
	Deadline       *time.Time
	ClearDeadline  bool
	Place          *string `validate:"omitempty,min=1,max=150"`
	Type           *string `validate:"omitempty,min=1,max=50"`
	ResponsibleID  *int64
	AdditionalData map[string]any
}

type RequestService struct {
	requests repository.RequestRepository
	users    *UserService
	engine   *workflow.Engine
	logger   *logrus.Logger
}

func NewRequestService(requests repository.RequestRepository, users *UserService, engine *workflow.Engine, logger *logrus.Logger) *RequestService {
	return &RequestService{
		requests: requests,
		users:    users,
		engine:   engine,
		logger:   logger,
	}
}

func (s *RequestService) Get(ctx context.Context, id int64) (*models.Request, error) {
	return s.requests.GetByID(ctx, id)
}

// Create stores a new request. caller is nil for anonymous submissions,
// which must name a requester. When contact details are given they decide
// who the requester is and the caller is recorded as the submitter.
func (s *RequestService) Create(ctx context.Context, caller *models.Caller, input CreateRequestInput) (*models.Request, error) {
	if err := checkInput(input); err != nil {
		return nil, err
	}
	if caller == nil && input.Requester == nil {
		return nil, invalid("requester contact details are required")
	}

	request := &models.Request{
		Title:         input.Title,
		StartDatetime: input.StartDatetime,
		EndDatetime:   input.EndDatetime,
		Deadline:      input.Deadline,
		Place:         input.Place,
		Type:          input.Type,
		Status:        models.RequestStatusRequested,
	}
	if err := request.CheckSchedule(); err != nil {
		return nil, invalid("%v", err)
	}
	if err := additionaldata.ValidateRequestData(input.AdditionalData); err != nil {
		return nil, err
	}

	var leftover map[string]any
	if input.Requester != nil {
		requester, data, err := s.users.GetOrCreateRequester(ctx, *input.Requester)
		if err != nil {
			return nil, err
		}
		request.RequesterID = requester.ID
		leftover = data
	} else {
		request.RequesterID = caller.ID
	}

	var sanitizeAs models.Caller
	if caller != nil {
		sanitizeAs = *caller
		submitter := caller.ID
		request.RequestedByID = &submitter
	}

	// requester details go in first so the submitted patch wins
	doc := additionaldata.DeepMerge(leftover, additionaldata.Sanitize(input.AdditionalData, sanitizeAs, nil))
	if err := additionaldata.ValidateRequestData(doc); err != nil {
		return nil, err
	}
	request.AdditionalData = doc

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"request_id":   request.ID,
		"requester_id": request.RequesterID,
		"anonymous":    caller == nil,
	}).Info("Request created")

	return s.recompute(ctx, request.ID)
}

func (s *RequestService) Update(ctx context.Context, caller *models.Caller, id int64, input UpdateRequestInput) (*models.Request, error) {
	if caller == nil || !caller.CanManage() {
		return nil, ErrForbidden
	}
	if err := checkInput(input); err != nil {
		return nil, err
	}

	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		request.Title = *input.Title
	}
	if input.StartDatetime != nil {
		request.StartDatetime = *input.StartDatetime
	}
	if input.EndDatetime != nil {
		request.EndDatetime = *input.EndDatetime
	}
	if input.ClearDeadline {
		request.Deadline = nil
	} else if input.Deadline != nil {
		request.Deadline = input.Deadline
	}
	if input.Place != nil {
		request.Place = *input.Place
	}
	if input.Type != nil {
		request.Type = *input.Type
	}
	if input.ResponsibleID != nil {
		if _, err := s.users.GetByID(ctx, *input.ResponsibleID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, invalid("responsible user %d does not exist", *input.ResponsibleID)
			}
			return nil, err
		}
		request.ResponsibleID = input.ResponsibleID
	}
	if err := request.CheckSchedule(); err != nil {
		return nil, invalid("%v", err)
	}

	if input.AdditionalData != nil {
		if err := additionaldata.ValidateRequestData(input.AdditionalData); err != nil {
			return nil, err
		}
		patch := additionaldata.Sanitize(input.AdditionalData, *caller, request.AdditionalData)
		merged := additionaldata.DeepMerge(additionaldata.Clone(request.AdditionalData), patch)
		if err := additionaldata.ValidateRequestData(merged); err != nil {
			return nil, err
		}
		request.AdditionalData = merged
	}

	if err := s.requests.Update(ctx, request); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"request_id": id,
		"caller_id":  caller.ID,
	}).Info("Request updated")

	return s.recompute(ctx, id)
}

// Delete removes a request with everything it owns. Administrators only.
func (s *RequestService) Delete(ctx context.Context, caller *models.Caller, id int64) error {
	if caller == nil || !caller.IsAdmin {
		return ErrForbidden
	}
	if err := s.requests.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"request_id": id,
		"caller_id":  caller.ID,
	}).Info("Request deleted")
	return nil
}

func (s *RequestService) recompute(ctx context.Context, id int64) (*models.Request, error) {
	if err := s.engine.RequestChanged(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to recompute request %d status: %w", id, err)
	}
	return s.requests.GetByID(ctx, id)
}
