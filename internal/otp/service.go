package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paysync/paysync/internal/identity"
	"github.com/paysync/paysync/internal/logging"
	"github.com/paysync/paysync/internal/security"
	"github.com/paysync/paysync/internal/validation"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72
)

// Sender delivers a verification code out-of-band.
type Sender interface {
	Send(ctx context.Context, identity, code string) error
}

// CredentialStore is the slice of the user store the reset flow needs.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (identity.User, error)
	SetPassword(ctx context.Context, id, passwordHash string) (identity.User, error)
}

// Service runs the password reset flow: issuing codes, verifying them and
// finalizing the new password.
type Service struct {
	store   Store
	users   CredentialStore
	hasher  security.Hasher
	sender  Sender
	policy  Policy
	logger  *slog.Logger
	now     Clock
	newCode func() (string, error)
}

// NewService wires the reset flow. Zero policy fields fall back to DefaultPolicy.
func NewService(store Store, users CredentialStore, hasher security.Hasher, sender Sender, policy Policy, logger *slog.Logger) *Service {
	def := DefaultPolicy()
	if policy.CodeTTL <= 0 {
		policy.CodeTTL = def.CodeTTL
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = def.MaxAttempts
	}
	if policy.ResendCooldown < 0 {
		policy.ResendCooldown = def.ResendCooldown
	}
	if policy.AuthorizationTTL <= 0 {
		policy.AuthorizationTTL = def.AuthorizationTTL
	}
	if policy.CallTimeout <= 0 {
		policy.CallTimeout = def.CallTimeout
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		store:   store,
		users:   users,
		hasher:  hasher,
		sender:  sender,
		policy:  policy,
		logger:  logger,
		now:     time.Now,
		newCode: func() (string, error) { return security.RandomDigits(CodeLength) },
	}
}

// Policy returns the effective limits.
func (s *Service) Policy() Policy {
	return s.policy
}

// RequestOTP issues a fresh code for identity, replacing any previous one,
// and hands it to the Sender. Unknown identities get the same answer as
// known ones, cooldown included: a placeholder challenge with no code is
// stored and nothing is sent.
func (s *Service) RequestOTP(ctx context.Context, rawIdentity string) (Issued, error) {
	id := validation.NormalizeEmail(rawIdentity)
	if !validation.Email(id) {
		return Issued{}, invalidInput("identity must be a valid email address")
	}

	now := s.now().UTC()
	issued := Issued{
		Identity:          id,
		ExpiresAt:         now.Add(s.policy.CodeTTL),
		ResendAvailableAt: now.Add(s.policy.ResendCooldown),
	}

	user, err := s.findUser(ctx, id)
	known := err == nil
	if err != nil && !errors.Is(err, identity.ErrUserNotFound) {
		return Issued{}, internal("look up user", err)
	}

	challenge := Challenge{
		Identity:          id,
		CreatedAt:         now,
		ExpiresAt:         issued.ExpiresAt,
		ResendAvailableAt: issued.ResendAvailableAt,
		AttemptsRemaining: s.policy.MaxAttempts,
	}
	var code string
	if known {
		if code, err = s.newCode(); err != nil {
			return Issued{}, internal("generate code", err)
		}
		challenge.UserID = user.ID
		challenge.CodeHash = security.HashSecret(code)
	}

	err = s.withTimeout(ctx, func(ctx context.Context) error {
		return s.store.UpdateChallenge(ctx, id, func(current *Challenge) (*Challenge, error) {
			if current != nil && !current.Consumed && now.Before(current.ResendAvailableAt) && !now.After(current.ExpiresAt) {
				wait := current.ResendAvailableAt.Sub(now)
				return current, &Error{
					Kind:       KindCooldownActive,
					Message:    fmt.Sprintf("a code was sent recently, retry in %ds", retrySeconds(wait)),
					RetryAfter: wait,
				}
			}
			next := challenge
			return &next, nil
		})
	})
	if err != nil {
		return Issued{}, asError(err, "store challenge")
	}

	if !known {
		s.logger.Info("otp.request for unknown identity", slog.String("identity", logging.MaskEmail(id)))
		return issued, nil
	}

	if err := s.withTimeout(ctx, func(ctx context.Context) error { return s.sender.Send(ctx, id, code) }); err != nil {
		s.logger.Warn("otp.request delivery failed", slog.String("identity", logging.MaskEmail(id)), slog.Any("error", err))
		s.disarmCooldown(ctx, id, challenge.CodeHash)
		return Issued{}, &Error{Kind: KindDeliveryFailure, Message: "the code could not be delivered, request a new one", Err: err}
	}

	s.logger.Info("otp.request issued",
		slog.String("identity", logging.MaskEmail(id)),
		slog.Time("expires_at", issued.ExpiresAt),
	)
	return issued, nil
}

// VerifyOTP checks submitted against the stored challenge and, on success,
// consumes the challenge and returns a single-use reset authorization.
func (s *Service) VerifyOTP(ctx context.Context, rawIdentity, submitted string) (Grant, error) {
	id := validation.NormalizeEmail(rawIdentity)
	if !validation.Email(id) {
		return Grant{}, invalidInput("identity must be a valid email address")
	}
	if !isCode(submitted) {
		return Grant{}, invalidInput(fmt.Sprintf("code must be exactly %d digits", CodeLength))
	}

	now := s.now().UTC()
	var userID string
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.store.UpdateChallenge(ctx, id, func(current *Challenge) (*Challenge, error) {
			switch {
			case current == nil:
				return nil, ErrNotFound
			case now.After(current.ExpiresAt):
				return current, ErrExpired
			case current.Consumed:
				return current, ErrAlreadyConsumed
			case current.AttemptsRemaining <= 0:
				return current, ErrTooManyAttempts
			}

			next := *current
			if current.CodeHash == "" || !security.SecretMatches(submitted, current.CodeHash) {
				next.AttemptsRemaining--
				return &next, &Error{
					Kind:    KindInvalidCode,
					Message: fmt.Sprintf("the code is incorrect, %d attempts left", next.AttemptsRemaining),
				}
			}
			next.Consumed = true
			next.ConsumedAt = &now
			userID = next.UserID
			return &next, nil
		})
	})
	if err != nil {
		if KindOf(err) == KindInvalidCode || KindOf(err) == KindTooManyAttempts {
			s.logger.Warn("otp.verify rejected", slog.String("identity", logging.MaskEmail(id)), slog.String("kind", string(KindOf(err))))
		}
		return Grant{}, asError(err, "verify challenge")
	}

	token, err := security.NewOpaqueToken()
	if err != nil {
		return Grant{}, internal("generate reset token", err)
	}
	auth := Authorization{
		TokenHash: security.HashSecret(token),
		Identity:  id,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.policy.AuthorizationTTL),
	}
	err = s.withTimeout(ctx, func(ctx context.Context) error {
		if err := s.store.SaveAuthorization(ctx, auth); err != nil {
			return err
		}
		return s.store.RevokeOthers(ctx, id, auth.TokenHash)
	})
	if err != nil {
		return Grant{}, internal("store reset authorization", err)
	}

	s.logger.Info("otp.verify succeeded", slog.String("identity", logging.MaskEmail(id)))
	return Grant{Token: token, ExpiresAt: auth.ExpiresAt}, nil
}

// ResetPassword finalizes the flow: the authorization is claimed exactly once,
// the password hash replaced and every existing session of the user revoked.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return invalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if len(newPassword) > maxPasswordLength {
		return invalidInput(fmt.Sprintf("password must be at most %d bytes", maxPasswordLength))
	}
	if token == "" {
		return ErrInvalidToken
	}

	tokenHash := security.HashSecret(token)
	now := s.now().UTC()

	var auth *Authorization
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		auth, err = s.store.GetAuthorization(ctx, tokenHash)
		return err
	})
	if err != nil {
		return internal("load reset authorization", err)
	}
	if err := checkAuthorization(auth, now); err != nil {
		return err
	}

	var hash string
	err = s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		hash, err = s.hasher.Hash(ctx, newPassword)
		return err
	})
	if err != nil {
		return internal("hash password", err)
	}

	var claimed Authorization
	err = s.withTimeout(ctx, func(ctx context.Context) error {
		return s.store.UpdateAuthorization(ctx, tokenHash, func(current *Authorization) (*Authorization, error) {
			if err := checkAuthorization(current, now); err != nil {
				return current, err
			}
			next := *current
			next.Used = true
			claimed = next
			return &next, nil
		})
	})
	if err != nil {
		return asError(err, "claim reset authorization")
	}

	if err := s.commitPassword(ctx, claimed, hash); err != nil {
		s.releaseClaim(ctx, tokenHash)
		return err
	}

	err = s.withTimeout(ctx, func(ctx context.Context) error {
		if err := s.store.DeleteChallenge(ctx, claimed.Identity); err != nil {
			return err
		}
		return s.store.RevokeOthers(ctx, claimed.Identity, tokenHash)
	})
	if err != nil {
		// The password is already changed; stale records expire on their own.
		s.logger.Warn("password.reset cleanup failed", slog.String("identity", logging.MaskEmail(claimed.Identity)), slog.Any("error", err))
	}

	s.logger.Info("password.reset completed", slog.String("identity", logging.MaskEmail(claimed.Identity)))
	return nil
}

func (s *Service) commitPassword(ctx context.Context, auth Authorization, hash string) error {
	return s.withTimeout(ctx, func(ctx context.Context) error {
		user, err := s.users.FindByEmail(ctx, auth.Identity)
		if errors.Is(err, identity.ErrUserNotFound) || (err == nil && user.ID != auth.UserID) {
			return ErrInvalidToken
		}
		if err != nil {
			return internal("look up user", err)
		}
		if _, err := s.users.SetPassword(ctx, user.ID, hash); err != nil {
			if errors.Is(err, identity.ErrUserNotFound) {
				return ErrInvalidToken
			}
			return internal("store password", err)
		}
		return nil
	})
}

// releaseClaim makes the authorization usable again after a failed commit so
// the client can retry with the same token.
func (s *Service) releaseClaim(ctx context.Context, tokenHash string) {
	err := s.withTimeout(context.WithoutCancel(ctx), func(ctx context.Context) error {
		return s.store.UpdateAuthorization(ctx, tokenHash, func(current *Authorization) (*Authorization, error) {
			if current == nil {
				return nil, nil
			}
			next := *current
			next.Used = false
			return &next, nil
		})
	})
	if err != nil {
		s.logger.Error("password.reset release claim failed", slog.Any("error", err))
	}
}

func (s *Service) disarmCooldown(ctx context.Context, id, codeHash string) {
	err := s.withTimeout(context.WithoutCancel(ctx), func(ctx context.Context) error {
		return s.store.UpdateChallenge(ctx, id, func(current *Challenge) (*Challenge, error) {
			if current == nil || current.CodeHash != codeHash {
				return current, nil
			}
			next := *current
			next.ResendAvailableAt = next.CreatedAt
			return &next, nil
		})
	})
	if err != nil {
		s.logger.Error("otp.request disarm cooldown failed", slog.Any("error", err))
	}
}

func (s *Service) findUser(ctx context.Context, email string) (identity.User, error) {
	var user identity.User
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.users.FindByEmail(ctx, email)
		return err
	})
	return user, err
}

// withTimeout bounds every collaborator call by the policy's CallTimeout.
func (s *Service) withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.policy.CallTimeout)
	defer cancel()
	return fn(ctx)
}

func checkAuthorization(auth *Authorization, now time.Time) error {
	switch {
	case auth == nil:
		return ErrInvalidToken
	case now.After(auth.ExpiresAt):
		return ErrTokenExpired
	case auth.Used:
		return ErrAlreadyUsed
	}
	return nil
}

// asError passes *Error values through and wraps anything else as Internal.
func asError(err error, msg string) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return internal(msg, err)
}

func isCode(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func retrySeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
