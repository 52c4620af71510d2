package otp

import "time"

// CodeLength is the number of digits in a verification code.
const CodeLength = 4

// Challenge is the stored one-time code for an identity. Only one exists per
// identity; issuing a new code replaces it. Unregistered identities get a
// placeholder with an empty CodeHash that never verifies.
type Challenge struct {
	Identity          string     `json:"identity"`
	UserID            string     `json:"user_id"`
	CodeHash          string     `json:"code_hash"`
	CreatedAt         time.Time  `json:"created_at"`
	ExpiresAt         time.Time  `json:"expires_at"`
	ResendAvailableAt time.Time  `json:"resend_available_at"`
	AttemptsRemaining int        `json:"attempts_remaining"`
	Consumed          bool       `json:"consumed"`
	ConsumedAt        *time.Time `json:"consumed_at,omitempty"`
}

// RetainUntil is when the challenge can be dropped from the store: the end of
// the grace window after consumption, or after expiry.
func (c Challenge) RetainUntil(grace time.Duration) time.Time {
	if c.Consumed && c.ConsumedAt != nil {
		return c.ConsumedAt.Add(grace)
	}
	return c.ExpiresAt.Add(grace)
}

// Authorization is proof that a code was verified. It is keyed by the SHA-256
// of the token handed to the client.
type Authorization struct {
	TokenHash string    `json:"token_hash"`
	Identity  string    `json:"identity"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
}

// RetainUntil is when the authorization can be dropped from the store.
func (a Authorization) RetainUntil(grace time.Duration) time.Time {
	return a.ExpiresAt.Add(grace)
}

// Issued is what RequestOTP reports back. It never carries the code.
type Issued struct {
	Identity          string
	ExpiresAt         time.Time
	ResendAvailableAt time.Time
}

// Grant is the reset authorization handed to the client after verification.
type Grant struct {
	Token     string
	ExpiresAt time.Time
}

// Policy holds the tunable limits of the reset flow.
type Policy struct {
	CodeTTL          time.Duration
	MaxAttempts      int
	ResendCooldown   time.Duration
	AuthorizationTTL time.Duration
	CallTimeout      time.Duration
}

// DefaultPolicy returns a 5 minute code TTL, 5 attempts, a 30 second resend
// cooldown and 10 minute reset authorizations.
func DefaultPolicy() Policy {
	return Policy{
		CodeTTL:          5 * time.Minute,
		MaxAttempts:      5,
		ResendCooldown:   30 * time.Second,
		AuthorizationTTL: 10 * time.Minute,
		CallTimeout:      5 * time.Second,
	}
}
