package runner_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jvhellemondt/api-time-registration/pkg/runner"
)

type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *journal) snapshot() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.entries))
	copy(out, j.entries)
	return out
}

type fakeService struct {
	name     string
	startErr error
	journal  *journal
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(ctx context.Context) error {
	s.journal.add("start " + s.name)
	return s.startErr
}

func (s *fakeService) Stop(ctx context.Context) error {
	s.journal.add("stop " + s.name)
	return nil
}

func assertJournal(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected journal %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("journal[%d]: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestRunner(t *testing.T) {
	t.Run("StartsInOrderStopsInReverse", func(t *testing.T) {
		j := &journal{}
		a := &fakeService{name: "a", journal: j}
		b := &fakeService{name: "b", journal: j}

		ctx, cancel := context.WithCancel(context.Background())
		r := runner.New([]runner.Service{a, b})

		done := make(chan error, 1)
		go func() { done <- r.Run(ctx) }()

		// Let both services start, then shut down.
		for len(j.snapshot()) < 2 {
			time.Sleep(time.Millisecond)
		}
		cancel()

		if err := <-done; err != nil {
			t.Fatalf("run failed: %v", err)
		}

		assertJournal(t, j.snapshot(), []string{"start a", "start b", "stop b", "stop a"})
	})

	t.Run("FailedStartStopsAlreadyStarted", func(t *testing.T) {
		j := &journal{}
		a := &fakeService{name: "a", journal: j}
		b := &fakeService{name: "b", journal: j, startErr: errors.New("boom")}

		r := runner.New([]runner.Service{a, b})
		if err := r.Run(context.Background()); err == nil {
			t.Fatalf("expected run to fail")
		}

		assertJournal(t, j.snapshot(), []string{"start a", "start b", "stop a"})
	})
}
