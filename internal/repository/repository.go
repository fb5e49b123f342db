package repository

import (
	"context"
	"crewflow/internal/models"
	"errors"
)

var ErrNotFound = errors.New("record not found")

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type RequestRepository interface {
	Create(ctx context.Context, request *models.Request) error
	GetByID(ctx context.Context, id int64) (*models.Request, error)
	Update(ctx context.Context, request *models.Request) error
	UpdateStatus(ctx context.Context, id int64, status models.RequestStatus) error
	// Delete removes the request together with its videos, crew and comments.
	Delete(ctx context.Context, id int64) error
}

type VideoRepository interface {
	Create(ctx context.Context, video *models.Video) error
	GetByID(ctx context.Context, id int64) (*models.Video, error)
	ListByRequest(ctx context.Context, requestID int64) ([]models.Video, error)
	Update(ctx context.Context, video *models.Video) error
	UpdateStatus(ctx context.Context, id int64, status models.VideoStatus) error
	// MergeAdditionalData deep-merges patch into the stored document without
	// touching any other column.
	MergeAdditionalData(ctx context.Context, id int64, patch map[string]any) error
}
