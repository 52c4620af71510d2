package auth

import (
	"context"
	"errors"
	"time"

	"github.com/paysync/paysync/internal/config"
	"github.com/paysync/paysync/internal/identity"
)

// ErrTokenRevoked means the token was valid but the user has since logged out
// or reset their password.
var ErrTokenRevoked = errors.New("token version invalidated")

type Service struct {
	cfg    config.Config
	idRepo identity.Repository
	now    func() time.Time
}

func NewService(cfg config.Config, idRepo identity.Repository) *Service {
	return &Service{cfg: cfg, idRepo: idRepo, now: time.Now}
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Login issues a token pair for an already authenticated user.
func (s *Service) Login(user identity.User) (TokenPair, error) {
	now := s.now()
	access, _, err := signHS256(user.ID, user.TokenVersion, []byte(s.cfg.JWTSecret), now, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, _, err := signHS256(user.ID, user.TokenVersion, []byte(s.cfg.RefreshSecret), now, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(s.cfg.AccessTokenTTL.Seconds())}, nil
}

// Refresh verifies the refresh token and returns a new access token if valid.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	claims, err := ParseHS256(refreshToken, []byte(s.cfg.RefreshSecret))
	if err != nil {
		return "", 0, err
	}
	if _, err := s.current(ctx, claims); err != nil {
		return "", 0, err
	}
	signed, _, err := signHS256(claims.Subject, claims.Version, []byte(s.cfg.JWTSecret), s.now(), s.cfg.AccessTokenTTL)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

// Authorize validates an access token against the user's current token version.
func (s *Service) Authorize(ctx context.Context, accessToken string) (identity.User, error) {
	claims, err := ParseHS256(accessToken, []byte(s.cfg.JWTSecret))
	if err != nil {
		return identity.User{}, err
	}
	return s.current(ctx, claims)
}

// Logout increments token version so older tokens become invalid.
func (s *Service) Logout(ctx context.Context, userID string) error {
	_, err := s.idRepo.BumpTokenVersion(ctx, userID)
	return err
}

func (s *Service) current(ctx context.Context, claims *Claims) (identity.User, error) {
	user, err := s.idRepo.FindByID(ctx, claims.Subject)
	if errors.Is(err, identity.ErrUserNotFound) {
		return identity.User{}, ErrInvalidToken
	}
	if err != nil {
		return identity.User{}, err
	}
	if user.TokenVersion != claims.Version {
		return identity.User{}, ErrTokenRevoked
	}
	return user, nil
}
