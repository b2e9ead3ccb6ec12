package readmodel

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var errReadModelOffline = errors.New("read model store offline")

type rowKey struct {
	userID  string
	entryID string
}

// MemoryStore is an in-memory Repository and WatermarkStore for tests and
// single-process use.
type MemoryStore struct {
	mu         sync.RWMutex
	rows       map[rowKey]Row
	watermarks map[string]Watermark

	repoOffline      bool
	watermarkOffline bool
}

// NewMemoryStore creates an empty in-memory read model store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:       make(map[rowKey]Row),
		watermarks: make(map[string]Watermark),
	}
}

// SetRepositoryOffline toggles failure injection on row operations.
func (s *MemoryStore) SetRepositoryOffline(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repoOffline = on
}

// SetWatermarkOffline toggles failure injection on watermark operations.
func (s *MemoryStore) SetWatermarkOffline(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watermarkOffline = on
}

func (s *MemoryStore) Upsert(ctx context.Context, row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repoOffline {
		return errReadModelOffline
	}
	s.rows[rowKey{userID: row.UserID, entryID: row.EntryID}] = row
	return nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string, offset, limit int, desc bool) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.repoOffline {
		return nil, errReadModelOffline
	}

	var items []Row
	for key, row := range s.rows {
		if key.userID == userID {
			items = append(items, row)
		}
	}

	sort.Slice(items, func(i, j int) bool {
		if desc {
			return items[i].StartTime > items[j].StartTime
		}
		return items[i].StartTime < items[j].StartTime
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end], nil
}

func (s *MemoryStore) Save(ctx context.Context, wm *Watermark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watermarkOffline {
		return errReadModelOffline
	}
	s.watermarks[wm.ProjectorName] = *wm
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, projectorName string) (*Watermark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.watermarkOffline {
		return nil, errReadModelOffline
	}
	wm, ok := s.watermarks[projectorName]
	if !ok {
		return nil, ErrWatermarkNotFound
	}
	return &wm, nil
}

func (s *MemoryStore) Delete(ctx context.Context, projectorName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watermarkOffline {
		return errReadModelOffline
	}
	delete(s.watermarks, projectorName)
	return nil
}
