package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jvhellemondt/api-time-registration/pkg/eventstore"
	"github.com/jvhellemondt/api-time-registration/pkg/sqlite"
)

func openTestDB(t *testing.T) *sqlite.DB {
	t.Helper()

	db, err := sqlite.Open(
		sqlite.WithMemoryDatabase(),
		sqlite.WithWALMode(false),
	)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// openFileDB opens a WAL-mode file database, the deployment shape where
// appends actually contend over the connection pool.
func openFileDB(t *testing.T) *sqlite.DB {
	t.Helper()

	db, err := sqlite.Open(sqlite.WithDSN(filepath.Join(t.TempDir(), "events.db")))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRecord(eventType string) eventstore.Record {
	return eventstore.Record{
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   5000,
		Payload:      []byte(`{"k":"v"}`),
	}
}

func TestSQLiteEventStore(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownStreamLoadsEmpty", func(t *testing.T) {
		store := sqlite.NewEventStore(openTestDB(t))

		stream, err := store.Load(ctx, "missing")
		if err != nil {
			t.Fatalf("loading an unknown stream must not fail: %v", err)
		}
		if stream.Version != 0 || len(stream.Records) != 0 {
			t.Errorf("expected empty history at version 0, got version %d with %d records",
				stream.Version, len(stream.Records))
		}
	})

	t.Run("AppendThenLoadRoundTrips", func(t *testing.T) {
		store := sqlite.NewEventStore(openTestDB(t))

		records := []eventstore.Record{testRecord("Created"), testRecord("Renamed")}
		if err := store.Append(ctx, "s1", 0, records); err != nil {
			t.Fatalf("append failed: %v", err)
		}

		stream, err := store.Load(ctx, "s1")
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if stream.Version != 2 {
			t.Errorf("expected version 2, got %d", stream.Version)
		}
		for i, rec := range stream.Records {
			if rec.StreamVersion != int64(i)+1 {
				t.Errorf("expected version %d at index %d, got %d", i+1, i, rec.StreamVersion)
			}
			if rec.Position == 0 {
				t.Errorf("persisted record must carry its feed position")
			}
			if string(rec.Payload) != `{"k":"v"}` {
				t.Errorf("payload did not round-trip: %s", rec.Payload)
			}
		}
	})

	t.Run("VersionMismatchIsTyped", func(t *testing.T) {
		store := sqlite.NewEventStore(openTestDB(t))

		if err := store.Append(ctx, "s1", 0, []eventstore.Record{testRecord("Created")}); err != nil {
			t.Fatalf("append failed: %v", err)
		}

		err := store.Append(ctx, "s1", 0, []eventstore.Record{testRecord("Created")})
		if !errors.Is(err, eventstore.ErrVersionMismatch) {
			t.Fatalf("expected ErrVersionMismatch, got %v", err)
		}

		var vm *eventstore.VersionMismatchError
		if !errors.As(err, &vm) {
			t.Fatalf("expected *VersionMismatchError, got %T", err)
		}
		if vm.Expected != 0 || vm.Actual != 1 {
			t.Errorf("expected conflict 0/1, got %d/%d", vm.Expected, vm.Actual)
		}
	})

	t.Run("FailedAppendLeavesNoRecords", func(t *testing.T) {
		store := sqlite.NewEventStore(openTestDB(t))

		if err := store.Append(ctx, "s1", 0, []eventstore.Record{testRecord("Created")}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
		if err := store.Append(ctx, "s1", 0, []eventstore.Record{testRecord("A"), testRecord("B")}); err == nil {
			t.Fatalf("conflicting append must fail")
		}

		stream, err := store.Load(ctx, "s1")
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if stream.Version != 1 {
			t.Errorf("failed append must be all-or-nothing, version is %d", stream.Version)
		}
	})

	t.Run("ConcurrentAppendsExactlyOneWins", func(t *testing.T) {
		store := sqlite.NewEventStore(openFileDB(t))

		const writers = 8
		const rounds = 10

		for round := 0; round < rounds; round++ {
			streamID := fmt.Sprintf("race-%d", round)
			var wg sync.WaitGroup
			errs := make([]error, writers)

			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs[i] = store.Append(ctx, streamID, 0, []eventstore.Record{testRecord("Created")})
				}(i)
			}
			wg.Wait()

			wins := 0
			for _, err := range errs {
				if err == nil {
					wins++
				} else if !errors.Is(err, eventstore.ErrVersionMismatch) {
					t.Errorf("stream %s: loser must fail with version mismatch, got %v", streamID, err)
				}
			}
			if wins != 1 {
				t.Fatalf("stream %s: expected exactly one winner, got %d", streamID, wins)
			}

			stream, err := store.Load(ctx, streamID)
			if err != nil {
				t.Fatalf("load failed: %v", err)
			}
			if stream.Version != 1 {
				t.Errorf("stream %s: expected version 1 after the race, got %d", streamID, stream.Version)
			}
		}
	})

	t.Run("LoadAllWalksTheFeed", func(t *testing.T) {
		store := sqlite.NewEventStore(openTestDB(t))

		for i := 0; i < 5; i++ {
			streamID := fmt.Sprintf("s%d", i)
			if err := store.Append(ctx, streamID, 0, []eventstore.Record{testRecord("Created")}); err != nil {
				t.Fatalf("append failed: %v", err)
			}
		}

		first, err := store.LoadAll(ctx, 0, 3)
		if err != nil {
			t.Fatalf("load all failed: %v", err)
		}
		if len(first) != 3 {
			t.Fatalf("expected 3 records, got %d", len(first))
		}

		rest, err := store.LoadAll(ctx, first[len(first)-1].Position, 100)
		if err != nil {
			t.Fatalf("load all failed: %v", err)
		}
		if len(rest) != 2 {
			t.Fatalf("expected 2 remaining records, got %d", len(rest))
		}

		last := int64(0)
		for _, rec := range append(first, rest...) {
			if rec.Position <= last {
				t.Errorf("positions must be strictly increasing, got %d after %d", rec.Position, last)
			}
			last = rec.Position
		}
	})
}
