package stats

import (
	"sync"
	"testing"
)

func TestSnapshotReflectsIncrements(t *testing.T) {
	c := New()
	c.IncPostField()
	c.IncPostField()
	c.IncSync()
	c.IncNewMatch()
	c.IncErr(ErrBadFragment)
	c.IncErr(99) // out of range, ignored
	s := c.Snapshot()
	if s.PostField != 2 || s.Sync != 1 || s.NewMatches != 1 {
		t.Fatalf("snapshot mismatch: %+v", s)
	}
	if s.Errs[ErrBadFragment] != 1 {
		t.Fatalf("err class not counted: %v", s.Errs)
	}
	if s.Version != Version {
		t.Fatalf("version=%d", s.Version)
	}
}

func TestConcurrentIncrements(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.IncRequest()
			}
		}()
	}
	wg.Wait()
	if got := c.Snapshot().Requests; got != 1600 {
		t.Fatalf("requests=%d want 1600", got)
	}
}
