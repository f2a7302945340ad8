package account

import (
	"context"
	"sync"
	"time"

	"matchbook.org/internal/ids"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store used for local runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*Profile
	byEmail map[string]string
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*Profile),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, p *Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	email := NormalizeEmail(p.ContactInfo.Email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return ErrAlreadyExists
	}
	if p.ID == "" {
		p.ID = ids.New()
	}
	now := s.now().UTC()
	p.ContactInfo.Email = email
	p.CreatedAt, p.UpdatedAt = now, now

	s.byID[p.ID] = p.clone()
	s.byEmail[email] = p.ID
	return nil
}

func (s *MemoryStore) Find(ctx context.Context, id string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.clone(), nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return s.byID[id].clone(), nil
}

// Len reports the number of stored profiles.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
