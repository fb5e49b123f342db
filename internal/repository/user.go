package repository

import (
	"context"
	"crewflow/internal/models"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type userRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &userRepository{db: db}
}

const selectUser = `
	SELECT u.id, u.username, u.email, u.first_name, u.last_name, u.is_active,
	       u.is_staff, u.is_admin, u.password, u.created_at, p.phone_number
	FROM users u
	LEFT JOIN user_profiles p ON p.user_id = u.id
`

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		insertUser := `
		INSERT INTO users (username, email, first_name, last_name, is_active, is_staff, is_admin, password, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING id, created_at
		`
		err := tx.QueryRow(ctx, insertUser,
			user.Username, user.Email, user.FirstName, user.LastName,
			user.IsActive, user.IsStaff, user.IsAdmin, user.Password,
		).Scan(&user.ID, &user.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		insertProfile := `
		INSERT INTO user_profiles (user_id, phone_number)
		VALUES ($1, $2)
		`
		if _, err := tx.Exec(ctx, insertProfile, user.ID, user.Profile.PhoneNumber); err != nil {
			return fmt.Errorf("failed to create user profile: %w", err)
		}
		return nil
	})
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectUser+" WHERE u.id = $1", id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectUser+" WHERE lower(u.email) = lower($1) ORDER BY u.id LIMIT 1", email))
}

func (r *userRepository) scanOne(row pgx.Row) (*models.User, error) {
	var user models.User
	var phone pgtype.Text

	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.FirstName, &user.LastName,
		&user.IsActive, &user.IsStaff, &user.IsAdmin, &user.Password, &user.CreatedAt, &phone,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user row: %w", err)
	}

	if phone.Valid {
		user.Profile.PhoneNumber = phone.String
	}
	return &user, nil
}
