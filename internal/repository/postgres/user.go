package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const (
	userColumns = `id, email, password_hash, name, phone, created_at, updated_at`

	// usersEmailConstraint is the unique constraint on users.email.
	usersEmailConstraint = "users_email_key"
)

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db      database.DBTX
	timeout time.Duration
}

// NewUserRepository creates a new PostgreSQL-backed user repository. Every
// call is bounded by queryTimeout (0 disables the bound).
func NewUserRepository(db database.DBTX, queryTimeout time.Duration) *UserRepository {
	return &UserRepository{db: db, timeout: queryTimeout}
}

// CreateWithAddress inserts a user and its first, default address in one
// transaction.
func (r *UserRepository) CreateWithAddress(ctx context.Context, u *domain.User, a *domain.Address) (err error) {
	query := `
		INSERT INTO users (email, password_hash, name, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()
	ctx, end := database.TraceQuery(ctx, "CreateUserWithAddress", query)
	defer func() { end(err) }()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, query, u.Email, u.PasswordHash, u.Name, u.Phone).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, usersEmailConstraint) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	a.UserID = u.ID
	a.IsDefault = true
	if err = insertAddress(ctx, tx, a); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (_ *domain.User, err error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()
	ctx, end := database.TraceQuery(ctx, "GetUserByID", query)
	defer func() { end(err) }()

	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", id)
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// GetByEmail retrieves a user by exact email match.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (_ *domain.User, err error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()
	ctx, end := database.TraceQuery(ctx, "GetUserByEmail", query)
	defer func() { end(err) }()

	u, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// UpdateProfile changes a user's name and phone and returns the stored row.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, name, phone string) (_ *domain.User, err error) {
	query := `
		UPDATE users
		SET name = $1, phone = $2, updated_at = now()
		WHERE id = $3
		RETURNING ` + userColumns

	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()
	ctx, end := database.TraceQuery(ctx, "UpdateUserProfile", query)
	defer func() { end(err) }()

	u, err := scanUser(r.db.QueryRow(ctx, query, name, phone, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", id)
		}
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return u, nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.Phone,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}
