package course

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu      sync.RWMutex
	courses map[string]Course
}

// NewMemoryStore creates a Store that keeps courses in process memory
func NewMemoryStore() Store {
	return &memoryStore{courses: make(map[string]Course)}
}

func (s *memoryStore) FindByRegistryID(_ context.Context, registryID string) (*Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[registryID]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *memoryStore) Save(_ context.Context, c *Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.courses[c.RegistryID]; ok {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	} else {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	s.courses[c.RegistryID] = *c
	return nil
}

func (s *memoryStore) MarkRemoved(_ context.Context, registryID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[registryID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	c.Removed = true
	c.RemovedReason = reason
	c.RemovedAt = &now
	c.UpdatedAt = now
	s.courses[registryID] = c
	return nil
}

func (s *memoryStore) MarkImportStatus(_ context.Context, registryID string, status ImportStatus, moodleID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[registryID]
	if !ok {
		return ErrNotFound
	}
	c.ImportStatus = status
	if status == ImportCompleted {
		c.Removed = false
		c.RemovedReason = ""
		c.RemovedAt = nil
	}
	if moodleID != nil {
		id := *moodleID
		c.MoodleID = &id
	}
	c.UpdatedAt = time.Now()
	s.courses[registryID] = c
	return nil
}

func (s *memoryStore) List(_ context.Context, opts ListOptions) ([]*Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Course, 0, len(s.courses))
	for _, c := range s.courses {
		if c.Removed && !opts.IncludeRemoved {
			continue
		}
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *Course) int { return strings.Compare(a.RegistryID, b.RegistryID) })
	return out, nil
}
