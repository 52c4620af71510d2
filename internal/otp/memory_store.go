package otp

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-wide Store. A single mutex serialises every
// mutation, which also serialises issuance and verification per identity.
type MemoryStore struct {
	mu         sync.Mutex
	challenges map[string]Challenge
	auths      map[string]Authorization
	grace      time.Duration
	now        Clock
}

// NewMemoryStore returns an empty store that keeps consumed or expired
// records for grace before Sweep drops them.
func NewMemoryStore(grace time.Duration) *MemoryStore {
	return &MemoryStore{
		challenges: make(map[string]Challenge),
		auths:      make(map[string]Authorization),
		grace:      grace,
		now:        time.Now,
	}
}

func (s *MemoryStore) UpdateChallenge(_ context.Context, identity string, fn ChallengeFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *Challenge
	if c, ok := s.challenges[identity]; ok {
		current = &c
	}
	next, err := fn(current)
	if next == nil {
		delete(s.challenges, identity)
	} else {
		s.challenges[identity] = *next
	}
	return err
}

func (s *MemoryStore) GetChallenge(_ context.Context, identity string) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[identity]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *MemoryStore) DeleteChallenge(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, identity)
	return nil
}

func (s *MemoryStore) SaveAuthorization(_ context.Context, auth Authorization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auths[auth.TokenHash] = auth
	return nil
}

func (s *MemoryStore) GetAuthorization(_ context.Context, tokenHash string) (*Authorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auths[tokenHash]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *MemoryStore) UpdateAuthorization(_ context.Context, tokenHash string, fn AuthorizationFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *Authorization
	if a, ok := s.auths[tokenHash]; ok {
		current = &a
	}
	next, err := fn(current)
	if next == nil {
		delete(s.auths, tokenHash)
	} else {
		s.auths[tokenHash] = *next
	}
	return err
}

func (s *MemoryStore) RevokeOthers(_ context.Context, identity, keepTokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, a := range s.auths {
		if a.Identity == identity && hash != keepTokenHash {
			delete(s.auths, hash)
		}
	}
	return nil
}

// Sweep drops records past their retention and returns how many were removed.
func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, c := range s.challenges {
		if now.After(c.RetainUntil(s.grace)) {
			delete(s.challenges, id)
			removed++
		}
	}
	for hash, a := range s.auths {
		if now.After(a.RetainUntil(s.grace)) {
			delete(s.auths, hash)
			removed++
		}
	}
	return removed, nil
}
