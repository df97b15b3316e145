package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
)

func TestMemoryStore_WholeValueReplace(t *testing.T) {
	s := NewMemoryStore()
	id := domain.NodeID("!a")

	if _, ok := s.Get(id); ok {
		t.Fatal("Get on empty store reported ok")
	}

	s.Set(id, State{Command: TagMail, Step: 7, Subject: "Re: hi", Content: "line\n"})
	s.Set(id, At(TagMail, 8))

	got, ok := s.Get(id)
	if !ok {
		t.Fatal("Get after Set reported !ok")
	}
	if got.Step != 8 || got.Subject != "" || got.Content != "" {
		t.Errorf("state was merged instead of replaced: %+v", got)
	}

	s.Clear(id)
	if _, ok := s.Get(id); ok {
		t.Error("Get after Clear reported ok")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestMemoryStore_CopiesSlices(t *testing.T) {
	s := NewMemoryStore()
	id := domain.NodeID("!a")

	st := State{Command: TagCheckMail, Step: 1, Listing: []int64{1, 2, 3}}
	s.Set(id, st)
	st.Listing[0] = 99

	got, _ := s.Get(id)
	if got.Listing[0] != 1 {
		t.Errorf("store shares slice with caller: %v", got.Listing)
	}

	got.Listing[1] = 42
	again, _ := s.Get(id)
	if again.Listing[1] != 2 {
		t.Errorf("Get result shares slice with store: %v", again.Listing)
	}
}

func TestState_WithStep(t *testing.T) {
	st := State{Command: TagMail, Step: 3, Candidates: []domain.NodeInfo{{ID: "!1"}}}
	next := st.WithStep(6)

	if next.Step != 6 || st.Step != 3 {
		t.Errorf("WithStep mutated receiver or failed: %d/%d", st.Step, next.Step)
	}
	next.Candidates[0].ID = "!2"
	if st.Candidates[0].ID != "!1" {
		t.Error("WithStep shares candidates slice")
	}
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex[string]()
	var inside atomic.Int32
	var maxInside atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("k")
			n := inside.Add(1)
			if n > maxInside.Load() {
				maxInside.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	if maxInside.Load() != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxInside.Load())
	}
	if km.Len() != 0 {
		t.Errorf("Len() after all unlocks = %d, want 0", km.Len())
	}
}

func TestKeyedMutex_DifferentKeysDoNotBlock(t *testing.T) {
	km := NewKeyedMutex[string]()
	unlockA := km.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := km.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
}
