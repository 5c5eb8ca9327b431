package lock

import (
	"context"
	"slices"
	"sync"
	"time"
)

type memoryService struct {
	mu    sync.RWMutex
	locks map[string]SyncLock
}

// NewMemoryService creates a lock Service that keeps locks in process memory
func NewMemoryService() Service {
	return &memoryService{locks: make(map[string]SyncLock)}
}

func (s *memoryService) SetLock(_ context.Context, registryID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks[registryID] = SyncLock{RegistryID: registryID, Locked: true, Reason: reason, UpdatedAt: time.Now()}
	return nil
}

func (s *memoryService) IsLocked(_ context.Context, registryID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locks[registryID].Locked, nil
}

func (s *memoryService) Unlock(_ context.Context, registryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locks[registryID]; ok {
		s.locks[registryID] = SyncLock{RegistryID: registryID, UpdatedAt: time.Now()}
	}
	return nil
}

func (s *memoryService) Get(_ context.Context, registryID string) (*SyncLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.locks[registryID]
	if !ok {
		return &SyncLock{RegistryID: registryID}, nil
	}
	return &l, nil
}

func (s *memoryService) ListLocked(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.locks))
	for id, l := range s.locks {
		if l.Locked {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}
