package repository

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// CreateWithAddress inserts a user together with its first address in one
	// transaction. IDs and timestamps are written back onto both values.
	CreateWithAddress(ctx context.Context, user *domain.User, address *domain.Address) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByEmail retrieves a user by exact email match.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// UpdateProfile changes the name and phone of a user.
	UpdateProfile(ctx context.Context, id int64, name, phone string) (*domain.User, error)
}

// AddressRepository defines the interface for address persistence operations.
// Every method is scoped by the owning user id.
type AddressRepository interface {
	// ListByUser returns the user's addresses, default first, then newest first.
	ListByUser(ctx context.Context, userID int64) ([]domain.Address, error)

	// WithinUserTx runs fn in one transaction that holds the owner's user row
	// lock, so default-flag changes for the same user serialize. The
	// transaction commits only when fn returns nil.
	WithinUserTx(ctx context.Context, userID int64, fn func(tx AddressTx) error) error
}

// AddressTx is the set of address operations available inside WithinUserTx.
type AddressTx interface {
	// Get returns the address only when it belongs to userID.
	Get(ctx context.Context, userID, addressID int64) (*domain.Address, error)

	// Count returns how many addresses the user has.
	Count(ctx context.Context, userID int64) (int, error)

	// ClearDefault unsets the default flag on every address of the user
	// except exceptID (0 clears all).
	ClearDefault(ctx context.Context, userID, exceptID int64) error

	// Insert stores a new address and fills in its ID and timestamps.
	Insert(ctx context.Context, address *domain.Address) error

	// Update writes the editable fields and default flag of an owned address.
	Update(ctx context.Context, address *domain.Address) error

	// MarkDefault sets only the default flag on an owned address.
	MarkDefault(ctx context.Context, userID, addressID int64) (*domain.Address, error)

	// Delete removes an owned address.
	Delete(ctx context.Context, userID, addressID int64) error
}
