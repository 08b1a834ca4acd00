package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
)

// AddressBook manages a user's shipping addresses. Every default-flag change
// runs inside one user-locked transaction, so a user never ends up with two
// default addresses.
type AddressBook struct {
	repo   repository.AddressRepository
	events EventPublisher
	logger *slog.Logger
}

// NewAddressBook creates a new address book.
func NewAddressBook(repo repository.AddressRepository, events EventPublisher, logger *slog.Logger) *AddressBook {
	return &AddressBook{
		repo:   repo,
		events: events,
		logger: logger,
	}
}

// List returns the user's addresses, default first, then newest first.
func (b *AddressBook) List(ctx context.Context, userID int64) ([]domain.Address, error) {
	addresses, err := b.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return addresses, nil
}

// Add creates an address. The user's first address is always the default.
func (b *AddressBook) Add(ctx context.Context, userID int64, fields domain.AddressFields, isDefault bool) (*domain.Address, error) {
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	address := &domain.Address{UserID: userID}
	fields.Apply(address)

	err := b.repo.WithinUserTx(ctx, userID, func(tx repository.AddressTx) error {
		count, err := tx.Count(ctx, userID)
		if err != nil {
			return err
		}

		address.IsDefault = isDefault || count == 0
		if address.IsDefault {
			if err := tx.ClearDefault(ctx, userID, 0); err != nil {
				return err
			}
		}
		return tx.Insert(ctx, address)
	})
	if err != nil {
		return nil, fmt.Errorf("add address: %w", err)
	}

	if address.IsDefault {
		b.publishDefaultChanged(ctx, address)
	}

	b.logger.InfoContext(ctx, "address added",
		slog.Int64("user_id", userID),
		slog.Int64("address_id", address.ID),
		slog.Bool("is_default", address.IsDefault),
	)

	return address, nil
}

// Update rewrites the fields of an owned address. isDefault true promotes it
// and demotes the previous default. isDefault false never demotes the current
// default; the default moves only when another address is promoted.
func (b *AddressBook) Update(ctx context.Context, userID, addressID int64, fields domain.AddressFields, isDefault bool) (*domain.Address, error) {
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	var (
		address  *domain.Address
		promoted bool
	)
	err := b.repo.WithinUserTx(ctx, userID, func(tx repository.AddressTx) error {
		existing, err := tx.Get(ctx, userID, addressID)
		if err != nil {
			return err
		}

		fields.Apply(existing)
		if isDefault && !existing.IsDefault {
			if err := tx.ClearDefault(ctx, userID, addressID); err != nil {
				return err
			}
			existing.IsDefault = true
			promoted = true
		}

		if err := tx.Update(ctx, existing); err != nil {
			return err
		}
		address = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update address: %w", err)
	}

	if promoted {
		b.publishDefaultChanged(ctx, address)
	}

	b.logger.InfoContext(ctx, "address updated",
		slog.Int64("user_id", userID),
		slog.Int64("address_id", addressID),
		slog.Bool("is_default", address.IsDefault),
	)

	return address, nil
}

// Delete removes an owned address. The current default cannot be deleted.
func (b *AddressBook) Delete(ctx context.Context, userID, addressID int64) error {
	err := b.repo.WithinUserTx(ctx, userID, func(tx repository.AddressTx) error {
		existing, err := tx.Get(ctx, userID, addressID)
		if err != nil {
			return err
		}
		if existing.IsDefault {
			return domain.NewDefaultAddressError(addressID)
		}
		return tx.Delete(ctx, userID, addressID)
	})
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}

	b.logger.InfoContext(ctx, "address deleted",
		slog.Int64("user_id", userID),
		slog.Int64("address_id", addressID),
	)

	return nil
}

// SetDefault makes an owned address the default without touching its other
// columns. Promoting the current default is a no-op.
func (b *AddressBook) SetDefault(ctx context.Context, userID, addressID int64) (*domain.Address, error) {
	var (
		address *domain.Address
		changed bool
	)
	err := b.repo.WithinUserTx(ctx, userID, func(tx repository.AddressTx) error {
		existing, err := tx.Get(ctx, userID, addressID)
		if err != nil {
			return err
		}
		if existing.IsDefault {
			address = existing
			return nil
		}

		if err := tx.ClearDefault(ctx, userID, addressID); err != nil {
			return err
		}
		address, err = tx.MarkDefault(ctx, userID, addressID)
		if err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("set default address: %w", err)
	}

	if changed {
		b.publishDefaultChanged(ctx, address)
		b.logger.InfoContext(ctx, "default address changed",
			slog.Int64("user_id", userID),
			slog.Int64("address_id", addressID),
		)
	}

	return address, nil
}

func (b *AddressBook) publishDefaultChanged(ctx context.Context, address *domain.Address) {
	if err := b.events.PublishDefaultAddressChanged(ctx, address); err != nil {
		b.logger.ErrorContext(ctx, "failed to publish address.default_changed event",
			slog.Int64("user_id", address.UserID),
			slog.Int64("address_id", address.ID),
			slog.String("error", err.Error()),
		)
	}
}
