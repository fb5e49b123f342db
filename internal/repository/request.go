package repository

import (
	"context"
	"crewflow/internal/models"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type requestRepository struct {
	db *pgxpool.Pool
}

func NewRequestRepository(db *pgxpool.Pool) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, request *models.Request) error {
	query := `
	INSERT INTO requests (title, created, start_datetime, end_datetime, deadline, place, type,
	                      status, responsible_id, requester_id, requested_by_id, additional_data)
	VALUES ($1, now(), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING id, created
	`
	err := r.db.QueryRow(ctx, query,
		request.Title, request.StartDatetime, request.EndDatetime, request.Deadline,
		request.Place, request.Type, request.Status, request.ResponsibleID,
		request.RequesterID, request.RequestedByID, documentOrEmpty(request.AdditionalData),
	).Scan(&request.ID, &request.Created)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id int64) (*models.Request, error) {
	query := `
	SELECT id, title, created, start_datetime, end_datetime, deadline, place, type,
	       status, responsible_id, requester_id, requested_by_id, additional_data
	FROM requests
	WHERE id = $1
	`
	var request models.Request
	err := r.db.QueryRow(ctx, query, id).Scan(
		&request.ID, &request.Title, &request.Created, &request.StartDatetime,
		&request.EndDatetime, &request.Deadline, &request.Place, &request.Type,
		&request.Status, &request.ResponsibleID, &request.RequesterID,
		&request.RequestedByID, &request.AdditionalData,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request %d: %w", id, err)
	}
	return &request, nil
}

func (r *requestRepository) Update(ctx context.Context, request *models.Request) error {
	query := `
	UPDATE requests
	SET title = $2, start_datetime = $3, end_datetime = $4, deadline = $5, place = $6,
	    type = $7, responsible_id = $8, additional_data = $9
	WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		request.ID, request.Title, request.StartDatetime, request.EndDatetime,
		request.Deadline, request.Place, request.Type, request.ResponsibleID,
		documentOrEmpty(request.AdditionalData),
	)
	if err != nil {
		return fmt.Errorf("failed to update request %d: %w", request.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *requestRepository) UpdateStatus(ctx context.Context, id int64, status models.RequestStatus) error {
	tag, err := r.db.Exec(ctx, "UPDATE requests SET status = $2 WHERE id = $1", id, status)
	if err != nil {
		return fmt.Errorf("failed to update request %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete relies on ON DELETE CASCADE for videos, ratings, crew and comments.
func (r *requestRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM requests WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete request %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func documentOrEmpty(doc map[string]any) map[string]any {
	if doc == nil {
		return map[string]any{}
	}
	return doc
}
