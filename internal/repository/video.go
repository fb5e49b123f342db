package repository

import (
	"context"
	"crewflow/internal/additionaldata"
	"crewflow/internal/models"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type videoRepository struct {
	db *pgxpool.Pool
}

func NewVideoRepository(db *pgxpool.Pool) VideoRepository {
	return &videoRepository{db: db}
}

const selectVideo = `
	SELECT id, request_id, title, status, editor_id, additional_data
	FROM videos
`

func (r *videoRepository) Create(ctx context.Context, video *models.Video) error {
	query := `
	INSERT INTO videos (request_id, title, status, editor_id, additional_data)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		video.RequestID, video.Title, video.Status, video.EditorID,
		documentOrEmpty(video.AdditionalData),
	).Scan(&video.ID)
	if err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}
	return nil
}

func (r *videoRepository) GetByID(ctx context.Context, id int64) (*models.Video, error) {
	video, err := scanVideo(r.db.QueryRow(ctx, selectVideo+" WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video %d: %w", id, err)
	}
	return video, nil
}

func (r *videoRepository) ListByRequest(ctx context.Context, requestID int64) ([]models.Video, error) {
	rows, err := r.db.Query(ctx, selectVideo+" WHERE request_id = $1 ORDER BY id", requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos of request %d: %w", requestID, err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video row: %w", err)
		}
		videos = append(videos, *video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating video rows: %w", err)
	}
	return videos, nil
}

func (r *videoRepository) Update(ctx context.Context, video *models.Video) error {
	query := `
	UPDATE videos
	SET title = $2, editor_id = $3, additional_data = $4
	WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, video.ID, video.Title, video.EditorID, documentOrEmpty(video.AdditionalData))
	if err != nil {
		return fmt.Errorf("failed to update video %d: %w", video.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *videoRepository) UpdateStatus(ctx context.Context, id int64, status models.VideoStatus) error {
	tag, err := r.db.Exec(ctx, "UPDATE videos SET status = $2 WHERE id = $1", id, status)
	if err != nil {
		return fmt.Errorf("failed to update video %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *videoRepository) MergeAdditionalData(ctx context.Context, id int64, patch map[string]any) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var doc map[string]any
		err := tx.QueryRow(ctx, "SELECT additional_data FROM videos WHERE id = $1 FOR UPDATE", id).Scan(&doc)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock video %d: %w", id, err)
		}

		doc = additionaldata.DeepMerge(doc, patch)
		if _, err := tx.Exec(ctx, "UPDATE videos SET additional_data = $2 WHERE id = $1", id, doc); err != nil {
			return fmt.Errorf("failed to merge video %d additional_data: %w", id, err)
		}
		return nil
	})
}

func scanVideo(row pgx.Row) (*models.Video, error) {
	var video models.Video
	err := row.Scan(&video.ID, &video.RequestID, &video.Title, &video.Status, &video.EditorID, &video.AdditionalData)
	if err != nil {
		return nil, err
	}
	return &video, nil
}
