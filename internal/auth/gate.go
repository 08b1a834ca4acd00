package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown email and
// for a wrong password alike.
var ErrInvalidCredentials = apperrors.Unauthorized("email or password is incorrect")

// Gate resolves session tokens to users and checks login credentials.
type Gate struct {
	users     repository.UserRepository
	codec     *TokenCodec
	cost      int
	dummyHash []byte
	logger    *slog.Logger
}

// NewGate creates a Gate. bcryptCost is used both for new password hashes and
// for the dummy hash compared against when an email is unknown.
func NewGate(users repository.UserRepository, codec *TokenCodec, bcryptCost int, logger *slog.Logger) (*Gate, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("storefront-dummy-password"), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}
	return &Gate{
		users:     users,
		codec:     codec,
		cost:      bcryptCost,
		dummyHash: dummy,
		logger:    logger,
	}, nil
}

// ResolveUser maps a session token to its user. An invalid or expired token,
// or a token for a user that no longer exists, yields (nil, nil). Only store
// failures are returned as errors.
func (g *Gate) ResolveUser(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, nil
	}

	userID, err := g.codec.Verify(token)
	if err != nil {
		g.logger.DebugContext(ctx, "session token rejected", slog.String("reason", err.Error()))
		return nil, nil
	}

	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			g.logger.InfoContext(ctx, "session token for missing user",
				slog.Int64("user_id", userID),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("resolve session user: %w", err)
	}

	return user, nil
}

// Authenticate checks an email and password pair. The email must match the
// stored one exactly; callers trim surrounding whitespace first.
func (g *Gate) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := g.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("look up user by email: %w", err)
		}
		// Spend the same bcrypt work as a real comparison.
		_ = bcrypt.CompareHashAndPassword(g.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// IssueSession mints a session token for an authenticated user.
func (g *Gate) IssueSession(user *domain.User) (*domain.Session, error) {
	token, expiresAt, err := g.codec.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &domain.Session{Token: token, UserID: user.ID, ExpiresAt: expiresAt}, nil
}

// HashPassword hashes a new password with the configured bcrypt cost.
func (g *Gate) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), g.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
