package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pez-pay/pez_pay/internal/wallet"
)

// Service manages user onboarding. Every user owns exactly one wallet,
// provisioned together with the account on first login.
type Service struct {
	repo    Repository
	wallets *wallet.Service
}

// NewService creates a new identity service.
func NewService(repo Repository, wallets *wallet.Service) *Service {
	return &Service{repo: repo, wallets: wallets}
}

// FindOrCreate resolves the user for a verified login. Unknown emails get a
// fresh account and wallet; concurrent first logins converge on one account.
func (s *Service) FindOrCreate(ctx context.Context, email, googleID, name string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return User{}, fmt.Errorf("email is required")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, ErrUserNotFound):
		user = User{
			ID:        uuid.NewString(),
			Email:     email,
			GoogleID:  googleID,
			Name:      name,
			CreatedAt: time.Now().UTC(),
		}
		if createErr := s.repo.Create(ctx, user); createErr != nil {
			if !errors.Is(createErr, ErrUserExists) {
				return User{}, createErr
			}
			// Lost the race against a simultaneous first login.
			if user, err = s.repo.FindByEmail(ctx, email); err != nil {
				return User{}, err
			}
		}
	default:
		return User{}, err
	}

	if _, err := s.wallets.Create(ctx, user.ID); err != nil {
		return User{}, err
	}
	return user, nil
}

// Find fetches a user by id.
func (s *Service) Find(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}
