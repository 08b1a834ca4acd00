package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const (
	addressColumns = `id, user_id, address_line1, address_line2, city, postal_code, is_default, created_at, updated_at`

	// oneDefaultIndex is the partial unique index allowing a single default
	// address per user.
	oneDefaultIndex = "addresses_one_default_per_user"
)

// errDefaultRace is returned when the partial unique index rejects a second
// default. The user row lock makes this unreachable for writers going
// through this repository.
func errDefaultRace(err error) error {
	return apperrors.Conflict("DEFAULT_CONFLICT", "the default address changed concurrently, please retry", err)
}

// AddressRepository implements repository.AddressRepository using PostgreSQL.
type AddressRepository struct {
	db      database.DBTX
	timeout time.Duration
}

// NewAddressRepository creates a new PostgreSQL-backed address repository.
func NewAddressRepository(db database.DBTX, queryTimeout time.Duration) *AddressRepository {
	return &AddressRepository{db: db, timeout: queryTimeout}
}

// ListByUser returns all addresses of the user, default first, then newest.
func (r *AddressRepository) ListByUser(ctx context.Context, userID int64) (_ []domain.Address, err error) {
	query := `
		SELECT ` + addressColumns + `
		FROM addresses
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC, id DESC`

	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()
	ctx, end := database.TraceQuery(ctx, "ListAddresses", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	addresses := []domain.Address{}
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan address row: %w", err)
		}
		addresses = append(addresses, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate address rows: %w", err)
	}

	return addresses, nil
}

// WithinUserTx runs fn inside a transaction that first locks the owner's
// users row with SELECT ... FOR UPDATE.
func (r *AddressRepository) WithinUserTx(ctx context.Context, userID int64, fn func(tx repository.AddressTx) error) (err error) {
	lockQuery := `SELECT id FROM users WHERE id = $1 FOR UPDATE`

	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()
	ctx, end := database.TraceQuery(ctx, "AddressUnitOfWork", lockQuery)
	defer func() { end(err) }()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var lockedID int64
	if err = tx.QueryRow(ctx, lockQuery, userID).Scan(&lockedID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("user", userID)
		}
		return fmt.Errorf("lock user row: %w", err)
	}

	if err = fn(&addressTx{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// addressTx implements repository.AddressTx on an open pgx transaction.
type addressTx struct {
	tx pgx.Tx
}

func (t *addressTx) Get(ctx context.Context, userID, addressID int64) (*domain.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1 AND user_id = $2`

	a, err := scanAddress(t.tx.QueryRow(ctx, query, addressID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("address", addressID)
		}
		return nil, fmt.Errorf("get address %d: %w", addressID, err)
	}
	return a, nil
}

func (t *addressTx) Count(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM addresses WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count addresses: %w", err)
	}
	return n, nil
}

func (t *addressTx) ClearDefault(ctx context.Context, userID, exceptID int64) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE addresses SET is_default = false, updated_at = now() WHERE user_id = $1 AND is_default AND id <> $2`,
		userID, exceptID,
	)
	if err != nil {
		return fmt.Errorf("clear default address: %w", err)
	}
	return nil
}

func (t *addressTx) Insert(ctx context.Context, a *domain.Address) error {
	return insertAddress(ctx, t.tx, a)
}

func (t *addressTx) Update(ctx context.Context, a *domain.Address) error {
	query := `
		UPDATE addresses
		SET address_line1 = $1, address_line2 = $2, city = $3, postal_code = $4,
		    is_default = $5, updated_at = now()
		WHERE id = $6 AND user_id = $7
		RETURNING updated_at`

	err := t.tx.QueryRow(ctx, query,
		a.AddressLine1,
		a.AddressLine2,
		a.City,
		a.PostalCode,
		a.IsDefault,
		a.ID,
		a.UserID,
	).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("address", a.ID)
		}
		if database.IsUniqueViolation(err, oneDefaultIndex) {
			return errDefaultRace(err)
		}
		return fmt.Errorf("update address %d: %w", a.ID, err)
	}
	return nil
}

func (t *addressTx) MarkDefault(ctx context.Context, userID, addressID int64) (*domain.Address, error) {
	query := `
		UPDATE addresses
		SET is_default = true, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + addressColumns

	a, err := scanAddress(t.tx.QueryRow(ctx, query, addressID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("address", addressID)
		}
		if database.IsUniqueViolation(err, oneDefaultIndex) {
			return nil, errDefaultRace(err)
		}
		return nil, fmt.Errorf("mark default address %d: %w", addressID, err)
	}
	return a, nil
}

func (t *addressTx) Delete(ctx context.Context, userID, addressID int64) error {
	ct, err := t.tx.Exec(ctx, `DELETE FROM addresses WHERE id = $1 AND user_id = $2`, addressID, userID)
	if err != nil {
		return fmt.Errorf("delete address %d: %w", addressID, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("address", addressID)
	}
	return nil
}

func insertAddress(ctx context.Context, tx pgx.Tx, a *domain.Address) error {
	query := `
		INSERT INTO addresses (user_id, address_line1, address_line2, city, postal_code, is_default)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := tx.QueryRow(ctx, query,
		a.UserID,
		a.AddressLine1,
		a.AddressLine2,
		a.City,
		a.PostalCode,
		a.IsDefault,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, oneDefaultIndex) {
			return errDefaultRace(err)
		}
		return fmt.Errorf("insert address: %w", err)
	}
	return nil
}

func scanAddress(row rowScanner) (*domain.Address, error) {
	var a domain.Address
	if err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.AddressLine1,
		&a.AddressLine2,
		&a.City,
		&a.PostalCode,
		&a.IsDefault,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}
