package services

import (
	"context"
	"crewflow/internal/models"
	"crewflow/internal/repository"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequesterContact is what a submitter tells us about the person the
// request is for.
type RequesterContact struct {
	Email     string `json:"requester_email" validate:"required,email,max=254"`
	FirstName string `json:"requester_first_name" validate:"required,max=150"`
	LastName  string `json:"requester_last_name" validate:"required,max=150"`
	Mobile    string `json:"requester_mobile" validate:"required,max=30"`
}

type UserService struct {
	users  repository.UserRepository
	logger *logrus.Logger
}

func NewUserService(users repository.UserRepository, logger *logrus.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// GetOrCreateRequester resolves contact details to a user account.
//
// An existing account (matched by e-mail, ignoring case) is returned
// unchanged together with a requester document holding what was submitted,
// so staff can compare it with what is on file. Otherwise a new inactive
// account without a usable password is created from the submitted details
// and no document is returned.
func (s *UserService) GetOrCreateRequester(ctx context.Context, contact RequesterContact) (*models.User, map[string]any, error) {
	if err := checkInput(contact); err != nil {
		return nil, nil, err
	}

	log := s.logger.WithField("email", contact.Email)
	log.Info("Resolving requester...")

	user, err := s.users.GetByEmail(ctx, contact.Email)
	if err == nil {
		leftover := map[string]any{
			models.KeyRequester: map[string]any{
				"first_name":   contact.FirstName,
				"last_name":    contact.LastName,
				"phone_number": contact.Mobile,
			},
		}
		log.WithField("user_id", user.ID).Info("Requester matched an existing user")
		return user, leftover, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("failed to look up requester: %w", err)
	}

	user = &models.User{
		Username:  strings.ToLower(contact.Email),
		Email:     contact.Email,
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
		IsActive:  false,
		Password:  models.UnusablePasswordPrefix + uuid.NewString(),
		Profile:   models.Profile{PhoneNumber: contact.Mobile},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to create requester: %w", err)
	}

	log.WithField("user_id", user.ID).Info("A requester has been created...")
	return user, nil, nil
}
