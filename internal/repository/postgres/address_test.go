package postgres

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func newAddressTestFixture(t *testing.T) (*AddressRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewAddressRepository(mock, time.Second), mock
}

func addressColumnNames() []string {
	return []string{
		"id", "user_id", "address_line1", "address_line2", "city",
		"postal_code", "is_default", "created_at", "updated_at",
	}
}

func sampleAddress() *domain.Address {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Address{
		ID:           21,
		UserID:       11,
		AddressLine1: "서울시 강남구 테헤란로 1",
		AddressLine2: "3층",
		City:         "서울",
		PostalCode:   "06236",
		IsDefault:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func addressRow(rows *pgxmock.Rows, a *domain.Address) *pgxmock.Rows {
	return rows.AddRow(
		a.ID, a.UserID, a.AddressLine1, a.AddressLine2, a.City,
		a.PostalCode, a.IsDefault, a.CreatedAt, a.UpdatedAt,
	)
}

func expectUserLock(mock pgxmock.PgxPoolIface, userID int64) {
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM users WHERE id = .+ FOR UPDATE").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(userID))
}

// ---------------------------------------------------------------------------
// ListByUser
// ---------------------------------------------------------------------------

func TestAddressRepository_ListByUser_DefaultFirst(t *testing.T) {
	repo, mock := newAddressTestFixture(t)
	defer mock.Close()

	def := sampleAddress()
	other := sampleAddress()
	other.ID = 22
	other.IsDefault = false

	rows := pgxmock.NewRows(addressColumnNames())
	addressRow(rows, def)
	addressRow(rows, other)
	mock.ExpectQuery("SELECT .+ FROM addresses WHERE user_id = .+ ORDER BY is_default DESC, created_at DESC").
		WithArgs(int64(11)).
		WillReturnRows(rows)

	got, err := repo.ListByUser(context.Background(), 11)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(21), got[0].ID)
	assert.True(t, got[0].IsDefault)
	assert.Equal(t, int64(22), got[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_ListByUser_Empty(t *testing.T) {
	repo, mock := newAddressTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM addresses WHERE user_id =").
		WithArgs(int64(11)).
		WillReturnRows(pgxmock.NewRows(addressColumnNames()))

	got, err := repo.ListByUser(context.Background(), 11)

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_ListByUser_QueryError(t *testing.T) {
	repo, mock := newAddressTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM addresses WHERE user_id =").
		WithArgs(int64(11)).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.ListByUser(context.Background(), 11)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "list addresses")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// WithinUserTx
// ---------------------------------------------------------------------------

func TestAddressRepository_WithinUserTx_LocksUserThenCommits(t *testing.T) {
	repo, mock := newAddressTestFixture(t)
	defer mock.Close()

	now := time.Now().UTC()
	expectUserLock(mock, 11)
	mock.ExpectExec("UPDATE addresses SET is_default = false").
		WithArgs(int64(11), int64(0)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("INSERT INTO addresses").
		WithArgs(int64(11), "line1", "", "Seoul", "06236", true).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(30), now, now))
	mock.ExpectCommit()

	a := &domain.Address{UserID: 11, AddressLine1: "line1", City: "Seoul", PostalCode: "06236", IsDefault: true}
	err := repo.WithinUserTx(context.Background(), 11, func(tx repository.AddressTx) error {
		if err := tx.ClearDefault(context.Background(), 11, 0); err != nil {
			return err
		}
		return tx.Insert(context.Background(), a)
	})

	require.NoError(t, err)
	assert.Equal(t, int64(30), a.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_WithinUserTx_RollsBackOnError(t *testing.T) {
	repo, mock := newAddressTestFixture(t)
	defer mock.Close()

	expectUserLock(mock, 11)
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := repo.WithinUserTx(context.Background(), 11, func(repository.AddressTx) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_WithinUserTx_MissingUser(t *testing.T) {
	repo, mock := newAddressTestFixture(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM users WHERE id = .+ FOR UPDATE").
		WithArgs(int64(404)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	called := false
	err := repo.WithinUserTx(context.Background(), 404, func(repository.AddressTx) error {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_WithinUserTx_BeginFails(t *testing.T) {
	repo, mock := newAddressTestFixture(t)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	err := repo.WithinUserTx(context.Background(), 11, func(repository.AddressTx) error { return nil })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// AddressTx operations
// ---------------------------------------------------------------------------

func TestAddressTx_Get_ScopedByOwner(t *testing.T) {
	repo, mock := newAddressTestFixture(t)
	defer mock.Close()

	expectUserLock(mock, 99)
	mock.ExpectQuery("SELECT .+ FROM addresses WHERE id = .+ AND user_id =").
		WithArgs(int64(21), int64(99)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err := repo.WithinUserTx(context.Background(), 99, func(tx repository.AddressTx) error {
		_, err := tx.Get(context.Background(), 99, 21)
		return err
	})

	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressTx_CountAndUpdate(t *testing.T) {
	repo, mock := newAddressTestFixture(t)
	defer mock.Close()

	a := sampleAddress()
	later := a.UpdatedAt.Add(time.Minute)

	expectUserLock(mock, a.UserID)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(a.UserID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("UPDATE addresses SET address_line1 =").
		WithArgs(a.AddressLine1, a.AddressLine2, a.City, a.PostalCode, a.IsDefault, a.ID, a.UserID).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(later))
	mock.ExpectCommit()

	var count int
	err := repo.WithinUserTx(context.Background(), a.UserID, func(tx repository.AddressTx) error {
		var err error
		if count, err = tx.Count(context.Background(), a.UserID); err != nil {
			return err
		}
		return tx.Update(context.Background(), a)
	})

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, later, a.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressTx_Update_DefaultIndexViolation(t *testing.T) {
	repo, mock := newAddressTestFixture(t)
	defer mock.Close()

	a := sampleAddress()
	expectUserLock(mock, a.UserID)
	mock.ExpectQuery("UPDATE addresses SET address_line1 =").
		WithArgs(a.AddressLine1, a.AddressLine2, a.City, a.PostalCode, a.IsDefault, a.ID, a.UserID).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "addresses_one_default_per_user"})
	mock.ExpectRollback()

	err := repo.WithinUserTx(context.Background(), a.UserID, func(tx repository.AddressTx) error {
		return tx.Update(context.Background(), a)
	})

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "DEFAULT_CONFLICT", appErr.Code)
	assert.Equal(t, http.StatusConflict, apperrors.HTTPStatus(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressTx_MarkDefault(t *testing.T) {
	repo, mock := newAddressTestFixture(t)
	defer mock.Close()

	a := sampleAddress()
	expectUserLock(mock, a.UserID)
	mock.ExpectExec("UPDATE addresses SET is_default = false").
		WithArgs(a.UserID, a.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("UPDATE addresses SET is_default = true").
		WithArgs(a.ID, a.UserID).
		WillReturnRows(addressRow(pgxmock.NewRows(addressColumnNames()), a))
	mock.ExpectCommit()

	var got *domain.Address
	err := repo.WithinUserTx(context.Background(), a.UserID, func(tx repository.AddressTx) error {
		if err := tx.ClearDefault(context.Background(), a.UserID, a.ID); err != nil {
			return err
		}
		var err error
		got, err = tx.MarkDefault(context.Background(), a.UserID, a.ID)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.True(t, got.IsDefault)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressTx_Delete(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{"deleted", 1, nil},
		{"not owned", 0, apperrors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newAddressTestFixture(t)
			defer mock.Close()

			expectUserLock(mock, 11)
			mock.ExpectExec("DELETE FROM addresses WHERE id = .+ AND user_id =").
				WithArgs(int64(21), int64(11)).
				WillReturnResult(pgxmock.NewResult("DELETE", tt.affected))
			if tt.wantErr == nil {
				mock.ExpectCommit()
			} else {
				mock.ExpectRollback()
			}

			err := repo.WithinUserTx(context.Background(), 11, func(tx repository.AddressTx) error {
				return tx.Delete(context.Background(), 11, 21)
			})

			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
