package scheduler

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestFIFO_PushPopOrder(t *testing.T) {
	q := NewFIFO[int](0, true)

	for i := range 5 {
		if err := q.Push(i); err != nil {
			t.Fatalf("failed to push %d: %v", i, err)
		}
	}
	if q.Len() != 5 {
		t.Errorf("expected len 5, got %d", q.Len())
	}

	for i := range 5 {
		v, ok := q.Pop()
		if !ok {
			t.Fatal("pop reported closed queue")
		}
		if v != i {
			t.Errorf("expected %d, got %d", i, v)
		}
	}
}

func TestFIFO_BoundedRejects(t *testing.T) {
	q := NewFIFO[int](2, false)

	for i := range 2 {
		if err := q.Push(i); err != nil {
			t.Fatalf("failed to push %d: %v", i, err)
		}
	}

	if err := q.Push(99); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}

	// A pop frees exactly one slot
	q.Pop()
	if err := q.Push(3); err != nil {
		t.Errorf("push after pop should succeed, got %v", err)
	}
}

func TestFIFO_BoundedBlocks(t *testing.T) {
	q := NewFIFO[int](1, true)
	if err := q.Push(1); err != nil {
		t.Fatalf("failed to push: %v", err)
	}

	pushed := make(chan error, 1)
	go func() {
		pushed <- q.Push(2)
	}()

	select {
	case err := <-pushed:
		t.Fatalf("push into full queue returned early: %v", err)
	case <-time.After(30 * time.Millisecond):
	}

	if v, _ := q.Pop(); v != 1 {
		t.Errorf("expected 1, got %d", v)
	}

	select {
	case err := <-pushed:
		if err != nil {
			t.Errorf("blocked push failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked push was never released")
	}

	if v, _ := q.Pop(); v != 2 {
		t.Errorf("expected 2, got %d", v)
	}
}

func TestFIFO_CloseDrains(t *testing.T) {
	q := NewFIFO[string](0, true)
	_ = q.Push("a")
	_ = q.Push("b")
	q.Close()
	q.Close()

	if err := q.Push("c"); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed, got %v", err)
	}

	for _, want := range []string{"a", "b"} {
		v, ok := q.Pop()
		if !ok || v != want {
			t.Errorf("expected %q, got %q (ok=%v)", want, v, ok)
		}
	}

	if _, ok := q.Pop(); ok {
		t.Error("pop on closed, drained queue should report false")
	}
}

func TestFIFO_CloseWakesWaiters(t *testing.T) {
	t.Run("idle consumers", func(t *testing.T) {
		q := NewFIFO[int](0, true)

		var wg sync.WaitGroup
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok := q.Pop(); ok {
					t.Error("expected pop to observe close")
				}
			}()
		}

		time.Sleep(10 * time.Millisecond)
		q.Close()
		waitOrFail(t, &wg)
	})

	t.Run("blocked producer", func(t *testing.T) {
		q := NewFIFO[int](1, true)
		_ = q.Push(1)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := q.Push(2); !errors.Is(err, ErrQueueClosed) {
				t.Errorf("expected ErrQueueClosed, got %v", err)
			}
		}()

		time.Sleep(10 * time.Millisecond)
		q.Close()
		waitOrFail(t, &wg)
	})
}

func TestFIFO_ConcurrentProducersConsumers(t *testing.T) {
	q := NewFIFO[int](8, true)
	const producers, perProducer = 4, 250

	var prodWG sync.WaitGroup
	for p := range producers {
		prodWG.Add(1)
		go func() {
			defer prodWG.Done()
			for i := range perProducer {
				if err := q.Push(p*perProducer + i); err != nil {
					t.Errorf("push failed: %v", err)
					return
				}
			}
		}()
	}

	var mu sync.Mutex
	seen := make(map[int]bool)
	var consWG sync.WaitGroup
	for range 3 {
		consWG.Add(1)
		go func() {
			defer consWG.Done()
			for {
				v, ok := q.Pop()
				if !ok {
					return
				}
				mu.Lock()
				if seen[v] {
					t.Errorf("value %d popped twice", v)
				}
				seen[v] = true
				mu.Unlock()
			}
		}()
	}

	prodWG.Wait()
	q.Close()
	consWG.Wait()

	if len(seen) != producers*perProducer {
		t.Errorf("expected %d values, got %d", producers*perProducer, len(seen))
	}
}

func waitOrFail(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiters were not released")
	}
}
