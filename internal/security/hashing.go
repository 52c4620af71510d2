package security

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// ErrMismatchedPassword is returned by Compare when the password does not match the hash.
var ErrMismatchedPassword = errors.New("password does not match")

// Hasher hashes and verifies passwords with an adaptive, salted KDF.
// Callers must not log or persist plaintext passwords.
type Hasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Compare(ctx context.Context, hash, password string) error
}

// BcryptHasher hashes passwords with bcrypt at a fixed cost.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a BcryptHasher with cost clamped to bcrypt's valid range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(ctx context.Context, password string) (string, error) {
	return bounded(ctx, func() (string, error) {
		b, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
		if err != nil {
			return "", err
		}
		return string(b), nil
	})
}

func (h *BcryptHasher) Compare(ctx context.Context, hash, password string) error {
	_, err := bounded(ctx, func() (string, error) {
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", ErrMismatchedPassword
		}
		return "", err
	})
	return err
}

// Argon2idHasher hashes passwords with argon2id and a random 32 byte salt per hash.
type Argon2idHasher struct {
	Params *argon2id.Params
}

// NewArgon2idHasher returns a hasher using 64 MiB memory, 3 iterations and 2 lanes.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{Params: &argon2id.Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  32,
		KeyLength:   32,
	}}
}

func (h *Argon2idHasher) Hash(ctx context.Context, password string) (string, error) {
	return bounded(ctx, func() (string, error) {
		return argon2id.CreateHash(password, h.Params)
	})
}

func (h *Argon2idHasher) Compare(ctx context.Context, hash, password string) error {
	_, err := bounded(ctx, func() (string, error) {
		match, err := argon2id.ComparePasswordAndHash(password, hash)
		if err != nil {
			return "", err
		}
		if !match {
			return "", ErrMismatchedPassword
		}
		return "", nil
	})
	return err
}

// NewHasher builds the hasher named by algorithm ("bcrypt" or "argon2id").
func NewHasher(algorithm string, bcryptCost int) (Hasher, error) {
	switch algorithm {
	case "", "bcrypt":
		return NewBcryptHasher(bcryptCost), nil
	case "argon2id":
		return NewArgon2idHasher(), nil
	default:
		return nil, fmt.Errorf("unknown password hasher %q", algorithm)
	}
}

// bounded runs fn on its own goroutine so a caller's deadline is honoured even
// though the KDFs themselves are not cancellable. The goroutine finishes its
// work in the background when ctx ends first.
func bounded(ctx context.Context, fn func() (string, error)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := fn()
		done <- result{out: out, err: err}
	}()
	select {
	case r := <-done:
		return r.out, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
