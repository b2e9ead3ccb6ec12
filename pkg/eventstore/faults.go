package eventstore

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errStoreOffline = errors.New("event store offline")

// FaultStore decorates a Store with injectable backend failures and
// latency. It exists so tests can exercise failure paths without the
// production types carrying failure-mode fields.
type FaultStore struct {
	inner Store

	mu          sync.Mutex
	failLoads   bool
	failAppends bool
	appendDelay time.Duration
}

// NewFaultStore wraps a store with fault injection disabled.
func NewFaultStore(inner Store) *FaultStore {
	return &FaultStore{inner: inner}
}

// FailLoads makes subsequent Load and LoadAll calls fail as backend errors.
func (f *FaultStore) FailLoads(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failLoads = on
}

// FailAppends makes subsequent Append calls fail as backend errors.
func (f *FaultStore) FailAppends(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAppends = on
}

// DelayAppends adds latency before each Append, widening race windows.
func (f *FaultStore) DelayAppends(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendDelay = d
}

func (f *FaultStore) Load(ctx context.Context, streamID string) (Stream, error) {
	f.mu.Lock()
	fail := f.failLoads
	f.mu.Unlock()

	if fail {
		return Stream{}, &BackendError{Op: "load", Err: errStoreOffline}
	}
	return f.inner.Load(ctx, streamID)
}

func (f *FaultStore) Append(ctx context.Context, streamID string, expectedVersion int64, records []Record) error {
	f.mu.Lock()
	fail := f.failAppends
	delay := f.appendDelay
	f.mu.Unlock()

	if fail {
		return &BackendError{Op: "append", Err: errStoreOffline}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return &BackendError{Op: "append", Err: ctx.Err()}
		}
	}
	return f.inner.Append(ctx, streamID, expectedVersion, records)
}

func (f *FaultStore) LoadAll(ctx context.Context, fromPosition int64, limit int) ([]Record, error) {
	f.mu.Lock()
	fail := f.failLoads
	f.mu.Unlock()

	if fail {
		return nil, &BackendError{Op: "load all", Err: errStoreOffline}
	}
	return f.inner.LoadAll(ctx, fromPosition, limit)
}
