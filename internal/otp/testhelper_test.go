package otp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/paysync/paysync/internal/identity"
	"github.com/paysync/paysync/internal/logging"
	"github.com/paysync/paysync/internal/security"
)

const testEmail = "test@user.com"

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingSender struct {
	mu    sync.Mutex
	codes map[string][]string
	fail  error
}

func newRecordingSender() *recordingSender {
	return &recordingSender{codes: make(map[string][]string)}
}

func (s *recordingSender) Send(_ context.Context, identity, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.codes[identity] = append(s.codes[identity], code)
	return nil
}

func (s *recordingSender) setFail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *recordingSender) last(identity string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes := s.codes[identity]
	if len(codes) == 0 {
		return ""
	}
	return codes[len(codes)-1]
}

func (s *recordingSender) count(identity string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes[identity])
}

// flakyUsers fails SetPassword while failSet is true.
type flakyUsers struct {
	identity.Repository
	mu      sync.Mutex
	failSet bool
}

func (u *flakyUsers) SetPassword(ctx context.Context, id, hash string) (identity.User, error) {
	u.mu.Lock()
	fail := u.failSet
	u.mu.Unlock()
	if fail {
		return identity.User{}, errors.New("connection reset")
	}
	return u.Repository.SetPassword(ctx, id, hash)
}

type fixture struct {
	svc    *Service
	store  Store
	users  identity.Repository
	hasher security.Hasher
	sender *recordingSender
	clock  *fakeClock
	userID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := newFakeClock()
	store := NewMemoryStore(time.Minute)
	store.now = clock.Now
	return newFixtureWithStore(t, store, clock)
}

func newFixtureWithStore(t *testing.T, store Store, clock *fakeClock) *fixture {
	t.Helper()
	users := identity.NewMemoryRepository()
	hasher := security.NewBcryptHasher(4)
	hash, err := hasher.Hash(context.Background(), "oldpass123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := identity.User{ID: "user-1", Email: testEmail, Name: "Test User", PasswordHash: hash, CreatedAt: clock.Now()}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	sender := newRecordingSender()
	svc := NewService(store, users, hasher, sender, DefaultPolicy(), logging.Discard())
	svc.now = clock.Now
	return &fixture{svc: svc, store: store, users: users, hasher: hasher, sender: sender, clock: clock, userID: user.ID}
}

func (f *fixture) fixedCode(code string) {
	f.svc.newCode = func() (string, error) { return code, nil }
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("kind = %s, want %s (err: %v)", got, kind, err)
	}
}
