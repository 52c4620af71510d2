package otp

import (
	"context"
	"time"
)

// ChallengeFunc receives the current challenge (nil when none exists) and
// returns the value to persist (nil deletes) along with the result of the
// operation. It may be called more than once and must not perform I/O.
type ChallengeFunc func(current *Challenge) (*Challenge, error)

// AuthorizationFunc is the Authorization counterpart of ChallengeFunc.
type AuthorizationFunc func(current *Authorization) (*Authorization, error)

// ChallengeStore holds one challenge per identity.
type ChallengeStore interface {
	// UpdateChallenge runs fn and persists its result atomically with respect
	// to every other UpdateChallenge for the same identity. The error returned
	// by fn is returned after its value has been written.
	UpdateChallenge(ctx context.Context, identity string, fn ChallengeFunc) error
	GetChallenge(ctx context.Context, identity string) (*Challenge, error)
	DeleteChallenge(ctx context.Context, identity string) error
}

// AuthorizationStore holds reset authorizations keyed by token hash.
type AuthorizationStore interface {
	SaveAuthorization(ctx context.Context, auth Authorization) error
	GetAuthorization(ctx context.Context, tokenHash string) (*Authorization, error)
	UpdateAuthorization(ctx context.Context, tokenHash string, fn AuthorizationFunc) error
	// RevokeOthers deletes every authorization of identity except keepTokenHash.
	RevokeOthers(ctx context.Context, identity, keepTokenHash string) error
}

// Store is the persistence required by Service.
type Store interface {
	ChallengeStore
	AuthorizationStore
}

// Clock returns the current time. Stores and the service take one so expiry
// can be tested without sleeping.
type Clock func() time.Time
