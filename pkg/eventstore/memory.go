package eventstore

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests and single-process use.
// Each stream has its own critical section, so appends to different
// streams do not contend; the store-wide lock is held only to resolve a
// stream and to publish committed records to the global feed.
type MemoryStore struct {
	mu      sync.RWMutex
	streams map[string]*memStream
	feed    []Record
}

type memStream struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryStore creates an empty in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{streams: make(map[string]*memStream)}
}

func (s *MemoryStore) stream(streamID string) *memStream {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.streams[streamID]
	if !ok {
		st = &memStream{}
		s.streams[streamID] = st
	}
	return st
}

// Load returns a copy of the stream's history. Unknown streams load as an
// empty history at version 0.
func (s *MemoryStore) Load(ctx context.Context, streamID string) (Stream, error) {
	st := s.stream(streamID)

	st.mu.Lock()
	defer st.mu.Unlock()

	records := make([]Record, len(st.records))
	copy(records, st.records)

	return Stream{Records: records, Version: int64(len(st.records))}, nil
}

// Append commits records after re-checking the stream version inside the
// stream's critical section. Readers of the stream or the feed observe
// either none or all of the new records.
func (s *MemoryStore) Append(ctx context.Context, streamID string, expectedVersion int64, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	st := s.stream(streamID)

	st.mu.Lock()
	defer st.mu.Unlock()

	actual := int64(len(st.records))
	if actual != expectedVersion {
		return &VersionMismatchError{StreamID: streamID, Expected: expectedVersion, Actual: actual}
	}

	committed := make([]Record, len(records))
	for i, rec := range records {
		rec.StreamID = streamID
		rec.StreamVersion = expectedVersion + int64(i) + 1
		committed[i] = rec
	}

	// Publish to the global feed under the store lock so LoadAll never
	// observes a partial append.
	s.mu.Lock()
	for i := range committed {
		committed[i].Position = int64(len(s.feed)) + 1
		s.feed = append(s.feed, committed[i])
	}
	s.mu.Unlock()

	st.records = append(st.records, committed...)
	return nil
}

// LoadAll returns up to limit records with Position > fromPosition in
// append order.
func (s *MemoryStore) LoadAll(ctx context.Context, fromPosition int64, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if fromPosition < 0 {
		fromPosition = 0
	}
	if fromPosition >= int64(len(s.feed)) {
		return nil, nil
	}

	rest := s.feed[fromPosition:]
	if limit > 0 && limit < len(rest) {
		rest = rest[:limit]
	}

	out := make([]Record, len(rest))
	copy(out, rest)
	return out, nil
}
