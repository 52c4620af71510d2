package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paysync/paysync/internal/security"
	"github.com/paysync/paysync/internal/validation"
)

const minPasswordLength = 8

var (
	// ErrInvalidCredentials hides whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRegistration wraps field-level registration problems.
	ErrInvalidRegistration = errors.New("invalid registration")
)

// Service manages identity lifecycle.
type Service struct {
	repo   Repository
	hasher security.Hasher
	now    func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository, hasher security.Hasher) *Service {
	return &Service{repo: repo, hasher: hasher, now: time.Now}
}

// Register creates a user with a hashed password.
func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	email := validation.NormalizeEmail(reg.Email)
	name := strings.TrimSpace(reg.Name)
	if email == "" || reg.Password == "" || name == "" {
		return User{}, fmt.Errorf("%w: missing fields", ErrInvalidRegistration)
	}
	if !validation.Email(email) {
		return User{}, fmt.Errorf("%w: email must be a valid email address", ErrInvalidRegistration)
	}
	if len(reg.Password) < minPasswordLength {
		return User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidRegistration, minPasswordLength)
	}

	hash, err := s.hasher.Hash(ctx, reg.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	return user, nil
}

// Authenticate verifies an email and password pair and records the login.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByEmail(ctx, validation.NormalizeEmail(creds.Email))
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}

	if err := s.hasher.Compare(ctx, user.PasswordHash, creds.Password); err != nil {
		if errors.Is(err, security.ErrMismatchedPassword) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	now := s.now().UTC()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		return User{}, err
	}
	user.LastLogin = &now

	return user, nil
}

// Get returns the user with the given id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}
