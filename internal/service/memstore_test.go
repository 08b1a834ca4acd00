package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// memAddressStore is an in-memory AddressRepository. WithinUserTx holds a
// per-user lock, works on a private copy of the user's rows and publishes
// the copy only when fn succeeds. Like the partial unique index in the
// schema, writes that would leave two defaults fail.
type memAddressStore struct {
	mu     sync.Mutex
	users  map[int64]*sync.Mutex
	rows   map[int64]domain.Address
	nextID int64
	epoch  time.Time

	// failTx makes WithinUserTx fail before fn runs.
	failTx error
}

func newMemAddressStore(userIDs ...int64) *memAddressStore {
	s := &memAddressStore{
		users: make(map[int64]*sync.Mutex),
		rows:  make(map[int64]domain.Address),
		epoch: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, id := range userIDs {
		s.users[id] = &sync.Mutex{}
	}
	return s
}

func (s *memAddressStore) ListByUser(_ context.Context, userID int64) ([]domain.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Address, 0)
	for _, a := range s.rows {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sortAddresses(out)
	return out, nil
}

func (s *memAddressStore) WithinUserTx(ctx context.Context, userID int64, fn func(tx repository.AddressTx) error) error {
	if s.failTx != nil {
		return s.failTx
	}

	s.mu.Lock()
	lock, ok := s.users[userID]
	s.mu.Unlock()
	if !ok {
		return apperrors.NotFound("user", userID)
	}

	lock.Lock()
	defer lock.Unlock()

	tx := &memAddressTx{store: s, userID: userID, rows: s.snapshot(userID)}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.rows {
		if a.UserID == userID {
			delete(s.rows, id)
		}
	}
	for id, a := range tx.rows {
		s.rows[id] = a
	}
	return nil
}

func (s *memAddressStore) snapshot(userID int64) map[int64]domain.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make(map[int64]domain.Address)
	for id, a := range s.rows {
		if a.UserID == userID {
			rows[id] = a
		}
	}
	return rows
}

func (s *memAddressStore) newID() (int64, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID, s.epoch.Add(time.Duration(s.nextID) * time.Minute)
}

func (s *memAddressStore) get(id int64) (domain.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[id]
	return a, ok
}

func (s *memAddressStore) defaults(userID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id, a := range s.rows {
		if a.UserID == userID && a.IsDefault {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type memAddressTx struct {
	store  *memAddressStore
	userID int64
	rows   map[int64]domain.Address
}

func (tx *memAddressTx) Get(_ context.Context, userID, addressID int64) (*domain.Address, error) {
	a, ok := tx.rows[addressID]
	if !ok || a.UserID != userID {
		return nil, apperrors.NotFound("address", addressID)
	}
	return &a, nil
}

func (tx *memAddressTx) Count(_ context.Context, userID int64) (int, error) {
	n := 0
	for _, a := range tx.rows {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (tx *memAddressTx) ClearDefault(_ context.Context, userID, exceptID int64) error {
	for id, a := range tx.rows {
		if a.UserID == userID && a.IsDefault && id != exceptID {
			a.IsDefault = false
			tx.rows[id] = a
		}
	}
	return nil
}

func (tx *memAddressTx) Insert(_ context.Context, address *domain.Address) error {
	if address.IsDefault && tx.hasOtherDefault(0) {
		return errDefaultIndex()
	}
	address.ID, address.CreatedAt = tx.store.newID()
	address.UpdatedAt = address.CreatedAt
	tx.rows[address.ID] = *address
	return nil
}

func (tx *memAddressTx) Update(_ context.Context, address *domain.Address) error {
	current, ok := tx.rows[address.ID]
	if !ok || current.UserID != address.UserID {
		return apperrors.NotFound("address", address.ID)
	}
	if address.IsDefault && tx.hasOtherDefault(address.ID) {
		return errDefaultIndex()
	}
	address.UpdatedAt = current.UpdatedAt.Add(time.Second)
	tx.rows[address.ID] = *address
	return nil
}

func (tx *memAddressTx) MarkDefault(_ context.Context, userID, addressID int64) (*domain.Address, error) {
	a, ok := tx.rows[addressID]
	if !ok || a.UserID != userID {
		return nil, apperrors.NotFound("address", addressID)
	}
	if tx.hasOtherDefault(addressID) {
		return nil, errDefaultIndex()
	}
	a.IsDefault = true
	tx.rows[addressID] = a
	return &a, nil
}

func (tx *memAddressTx) Delete(_ context.Context, userID, addressID int64) error {
	a, ok := tx.rows[addressID]
	if !ok || a.UserID != userID {
		return apperrors.NotFound("address", addressID)
	}
	delete(tx.rows, addressID)
	return nil
}

func (tx *memAddressTx) hasOtherDefault(exceptID int64) bool {
	for id, a := range tx.rows {
		if a.IsDefault && id != exceptID {
			return true
		}
	}
	return false
}

func errDefaultIndex() error {
	return apperrors.Conflict("DEFAULT_CONFLICT", "another default address was set concurrently", nil)
}

func sortAddresses(addrs []domain.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		if addrs[i].IsDefault != addrs[j].IsDefault {
			return addrs[i].IsDefault
		}
		if !addrs[i].CreatedAt.Equal(addrs[j].CreatedAt) {
			return addrs[i].CreatedAt.After(addrs[j].CreatedAt)
		}
		return addrs[i].ID > addrs[j].ID
	})
}
