package database

import (
	"context"
	"crewflow/internal/logger"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          BIGSERIAL PRIMARY KEY,
		username    VARCHAR(150) NOT NULL UNIQUE,
		email       VARCHAR(254) NOT NULL,
		first_name  VARCHAR(150) NOT NULL DEFAULT '',
		last_name   VARCHAR(150) NOT NULL DEFAULT '',
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		is_staff    BOOLEAN NOT NULL DEFAULT FALSE,
		is_admin    BOOLEAN NOT NULL DEFAULT FALSE,
		password    VARCHAR(128) NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS users_email_lower_idx ON users (lower(email))`,
	`CREATE TABLE IF NOT EXISTS user_profiles (
		user_id       BIGINT PRIMARY KEY REFERENCES users (id) ON DELETE CASCADE,
		phone_number  VARCHAR(30) NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS requests (
		id               BIGSERIAL PRIMARY KEY,
		title            VARCHAR(200) NOT NULL,
		created          TIMESTAMPTZ NOT NULL DEFAULT now(),
		start_datetime   TIMESTAMPTZ NOT NULL,
		end_datetime     TIMESTAMPTZ NOT NULL,
		deadline         DATE,
		place            VARCHAR(150) NOT NULL,
		type             VARCHAR(50) NOT NULL,
		status           SMALLINT NOT NULL DEFAULT 1,
		responsible_id   BIGINT REFERENCES users (id) ON DELETE SET NULL,
		requester_id     BIGINT NOT NULL REFERENCES users (id) ON DELETE RESTRICT,
		requested_by_id  BIGINT REFERENCES users (id) ON DELETE SET NULL,
		additional_data  JSONB NOT NULL DEFAULT '{}'::jsonb,
		CHECK (start_datetime <= end_datetime),
		CHECK (deadline IS NULL OR deadline > end_datetime::date)
	)`,
	`CREATE TABLE IF NOT EXISTS videos (
		id               BIGSERIAL PRIMARY KEY,
		request_id       BIGINT NOT NULL REFERENCES requests (id) ON DELETE CASCADE,
		title            VARCHAR(200) NOT NULL,
		status           SMALLINT NOT NULL DEFAULT 1,
		editor_id        BIGINT REFERENCES users (id) ON DELETE SET NULL,
		additional_data  JSONB NOT NULL DEFAULT '{}'::jsonb
	)`,
	`CREATE INDEX IF NOT EXISTS videos_request_id_idx ON videos (request_id)`,
	`CREATE TABLE IF NOT EXISTS crew_members (
		id          BIGSERIAL PRIMARY KEY,
		request_id  BIGINT NOT NULL REFERENCES requests (id) ON DELETE CASCADE,
		member_id   BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		position    VARCHAR(20) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id          BIGSERIAL PRIMARY KEY,
		request_id  BIGINT NOT NULL REFERENCES requests (id) ON DELETE CASCADE,
		author_id   BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		created     TIMESTAMPTZ NOT NULL DEFAULT now(),
		text        TEXT NOT NULL,
		internal    BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS ratings (
		id        BIGSERIAL PRIMARY KEY,
		video_id  BIGINT NOT NULL REFERENCES videos (id) ON DELETE CASCADE,
		author_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		rating    SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 5),
		review    TEXT NOT NULL DEFAULT ''
	)`,
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for _, statement := range schema {
			if _, err := tx.Exec(ctx, statement); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Get().Info("Database schema is up to date")
	return nil
}
