package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/pkg/validator"
)

// PasswordHasher turns a plaintext password into a storable hash.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

// EventPublisher is the set of domain events the services emit. Publishing
// is best effort: failures are logged and never fail the request.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishUserUpdated(ctx context.Context, user *domain.User) error
	PublishDefaultAddressChanged(ctx context.Context, address *domain.Address) error
}

// SignupInput holds the fields of the signup form.
type SignupInput struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	Name            string `json:"name" validate:"required,letters,max=50"`
	Password        string `json:"password" validate:"required,min=6,maxbytes=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Phone           string `json:"phone" validate:"required,phone"`
	Address         string `json:"address" validate:"notblank,max=200"`
}

func (in SignupInput) normalize() SignupInput {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	return in
}

// ProfileInput holds the editable profile fields.
type ProfileInput struct {
	Name  string `json:"name" validate:"required,letters,max=50"`
	Phone string `json:"phone" validate:"required,phone"`
}

// AccountService implements signup and profile management.
type AccountService struct {
	users  repository.UserRepository
	hasher PasswordHasher
	events EventPublisher
	logger *slog.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(
	users repository.UserRepository,
	hasher PasswordHasher,
	events EventPublisher,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:  users,
		hasher: hasher,
		events: events,
		logger: logger,
	}
}

// Signup registers a user together with their first address, which becomes
// the default. A duplicate email is reported as ALREADY_EXISTS.
func (s *AccountService) Signup(ctx context.Context, input SignupInput) (*domain.User, error) {
	input = input.normalize()
	if err := validator.Validate(input); err != nil {
		return nil, err
	}

	hash, err := s.hasher.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        input.Email,
		PasswordHash: hash,
		Name:         input.Name,
		Phone:        input.Phone,
	}
	address := &domain.Address{
		AddressLine1: input.Address,
		IsDefault:    true,
	}

	if err := s.users.CreateWithAddress(ctx, user, address); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.events.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user signed up",
		slog.Int64("user_id", user.ID),
		slog.Int64("address_id", address.ID),
	)

	return user, nil
}

// Profile returns the user's profile.
func (s *AccountService) Profile(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return user, nil
}

// UpdateProfile changes the user's name and phone.
func (s *AccountService) UpdateProfile(ctx context.Context, userID int64, input ProfileInput) (*domain.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Phone = strings.TrimSpace(input.Phone)
	if err := validator.Validate(input); err != nil {
		return nil, err
	}

	user, err := s.users.UpdateProfile(ctx, userID, input.Name, input.Phone)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	if err := s.events.PublishUserUpdated(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.updated event",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "profile updated", slog.Int64("user_id", user.ID))

	return user, nil
}
