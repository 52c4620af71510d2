package security

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestHashers(t *testing.T) {
	hashers := map[string]Hasher{
		"bcrypt":   NewBcryptHasher(bcrypt.MinCost),
		"argon2id": &Argon2idHasher{Params: &testArgonParams},
	}
	ctx := context.Background()

	for name, h := range hashers {
		t.Run(name, func(t *testing.T) {
			hash, err := h.Hash(ctx, "newpass123")
			if err != nil {
				t.Fatalf("hash: %v", err)
			}
			if strings.Contains(hash, "newpass123") {
				t.Fatalf("hash leaks plaintext")
			}
			if err := h.Compare(ctx, hash, "newpass123"); err != nil {
				t.Fatalf("compare correct password: %v", err)
			}
			if err := h.Compare(ctx, hash, "wrongpass1"); !errors.Is(err, ErrMismatchedPassword) {
				t.Fatalf("expected mismatch, got %v", err)
			}

			again, err := h.Hash(ctx, "newpass123")
			if err != nil {
				t.Fatalf("hash again: %v", err)
			}
			if again == hash {
				t.Fatalf("expected per-hash salt to produce distinct hashes")
			}
		})
	}
}

func TestNewBcryptHasherClampsCost(t *testing.T) {
	if h := NewBcryptHasher(0); h.Cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", h.Cost)
	}
	if h := NewBcryptHasher(1); h.Cost != bcrypt.MinCost {
		t.Fatalf("expected min cost, got %d", h.Cost)
	}
	if h := NewBcryptHasher(99); h.Cost != bcrypt.MaxCost {
		t.Fatalf("expected max cost, got %d", h.Cost)
	}
}

func TestNewHasher(t *testing.T) {
	if _, err := NewHasher("argon2id", 0); err != nil {
		t.Fatalf("argon2id: %v", err)
	}
	if _, err := NewHasher("bcrypt", 10); err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	if _, err := NewHasher("sha1", 0); err == nil {
		t.Fatalf("expected error for unknown algorithm")
	}
}

func TestHashHonoursDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	if _, err := NewBcryptHasher(bcrypt.MinCost).Hash(ctx, "newpass123"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
