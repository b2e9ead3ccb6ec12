package idgen_test

import (
	"sync"
	"testing"

	"github.com/jvhellemondt/api-time-registration/pkg/idgen"
)

func TestNewSortableID(t *testing.T) {
	a := idgen.NewSortableID()
	b := idgen.NewSortableID()

	if len(a) != 26 {
		t.Errorf("expected 26-character ULID, got %q", a)
	}
	if a == b {
		t.Errorf("consecutive IDs must differ")
	}
}

func TestSortableIDsMintedTogetherAreUnique(t *testing.T) {
	const goroutines = 8
	const perGoroutine = 1000

	ids := make([][]string, goroutines)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			batch := make([]string, perGoroutine)
			for i := range batch {
				batch[i] = idgen.NewSortableID()
			}
			ids[g] = batch
		}(g)
	}
	wg.Wait()

	seen := make(map[string]bool, goroutines*perGoroutine)
	for _, batch := range ids {
		for _, id := range batch {
			if seen[id] {
				t.Fatalf("duplicate ID %s", id)
			}
			seen[id] = true
		}
	}
}

func TestNewCommandID(t *testing.T) {
	a := idgen.NewCommandID()
	b := idgen.NewCommandID()

	if len(a) != 36 {
		t.Errorf("expected 36-character UUID, got %q", a)
	}
	if a == b {
		t.Errorf("consecutive IDs must differ")
	}
}
