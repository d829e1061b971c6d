package capture

import (
	"errors"
	"sync"
	"testing"
)

func TestQueueOrder(t *testing.T) {
	q := NewQueue[int]()
	if got := q.Drain(); got != nil {
		t.Fatalf("Drain on empty queue = %v, want nil", got)
	}
	for i := 0; i < 5; i++ {
		if err := q.Send(i); err != nil {
			t.Fatal(err)
		}
	}
	if q.Len() != 5 {
		t.Fatalf("Len = %d, want 5", q.Len())
	}
	got := q.Drain()
	for i, v := range got {
		if v != i {
			t.Fatalf("item %d = %d, want %d", i, v, i)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len after Drain = %d, want 0", q.Len())
	}
}

func TestQueueClose(t *testing.T) {
	q := NewQueue[string]()
	_ = q.Send("pending")
	q.Close()

	if !q.Closed() {
		t.Error("Closed() = false")
	}
	if err := q.Send("late"); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Send after Close = %v, want ErrQueueClosed", err)
	}
	if got := q.Drain(); got != nil {
		t.Errorf("Drain after Close = %v, want nil", got)
	}
}

func TestQueueConcurrentSendDrain(t *testing.T) {
	q := NewQueue[int]()
	const n = 1000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			_ = q.Send(i)
		}
	}()

	var got []int
	for len(got) < n {
		got = append(got, q.Drain()...)
	}
	wg.Wait()

	for i, v := range got {
		if v != i {
			t.Fatalf("item %d = %d, want %d", i, v, i)
		}
	}
}
