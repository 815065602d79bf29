package mailbox

import (
	"sync"
	"testing"
)

func TestPushPopFIFO(t *testing.T) {
	m := New(Options{Capacity: 4, MaxSegments: 2})
	for i := 0; i < 3; i++ {
		if err := m.Push(i); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	for i := 0; i < 3; i++ {
		v, ok := m.Pop()
		if !ok || v.(int) != i {
			t.Fatalf("pop %d: got %#v ok=%v", i, v, ok)
		}
	}
	if _, ok := m.Pop(); ok {
		t.Fatalf("expected empty")
	}
}

func TestPushFrontPrecedesQueued(t *testing.T) {
	m := New(Options{Capacity: 4, MaxSegments: 2})
	if err := m.Push("later"); err != nil {
		t.Fatalf("push: %v", err)
	}
	m.PushFront("first")
	v, ok := m.Pop()
	if !ok || v.(string) != "first" {
		t.Fatalf("expected first, got %#v ok=%v", v, ok)
	}
	v, ok = m.Pop()
	if !ok || v.(string) != "later" {
		t.Fatalf("expected later, got %#v ok=%v", v, ok)
	}
}

func TestCloseStopsWait(t *testing.T) {
	m := New(Options{})
	done := make(chan bool, 1)
	go func() { done <- m.Wait() }()
	m.Close()
	if ok := <-done; ok {
		t.Fatalf("expected Wait to return false after Close")
	}
	if err := m.Push(1); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	m.Close()
}

func TestWaitWakesOnPush(t *testing.T) {
	m := New(Options{})
	done := make(chan bool, 1)
	go func() { done <- m.Wait() }()
	if err := m.Push(42); err != nil {
		t.Fatalf("push: %v", err)
	}
	if ok := <-done; !ok {
		t.Fatalf("expected Wait to return true")
	}
	v, ok := m.Pop()
	if !ok || v.(int) != 42 {
		t.Fatalf("pop: %#v %v", v, ok)
	}
}

func TestLen(t *testing.T) {
	m := New(Options{})
	if m.Len() != 0 {
		t.Fatalf("expected 0")
	}
	_ = m.Push(1)
	_ = m.Push(2)
	if m.Len() != 2 {
		t.Fatalf("expected 2, got %d", m.Len())
	}
	m.Pop()
	if m.Len() != 1 {
		t.Fatalf("expected 1, got %d", m.Len())
	}
}

func TestFullWhenSegmentsExhausted(t *testing.T) {
	m := New(Options{Capacity: 2, MaxSegments: 1})
	if err := m.Push(1); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := m.Push(2); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := m.Push(3); err != ErrFull {
		t.Fatalf("expected ErrFull, got %v", err)
	}
}

func TestGrowsAcrossSegments(t *testing.T) {
	m := New(Options{Capacity: 2, MaxSegments: 8})
	for i := 0; i < 10; i++ {
		if err := m.Push(i); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	for i := 0; i < 10; i++ {
		v, ok := m.Pop()
		if !ok || v.(int) != i {
			t.Fatalf("pop %d: got %#v ok=%v", i, v, ok)
		}
	}
}

// 多个生产者并发入队时，每个生产者自己的消息之间必须保持先后顺序。
func TestPerProducerFIFO(t *testing.T) {
	const producers = 4
	const perProducer = 500

	m := New(Options{Capacity: 16})
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := m.Push([2]int{p, i}); err != nil {
					t.Errorf("push: %v", err)
					return
				}
			}
		}(p)
	}
	wg.Wait()

	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}
	count := 0
	for {
		v, ok := m.Pop()
		if !ok {
			break
		}
		pair := v.([2]int)
		if pair[1] <= last[pair[0]] {
			t.Fatalf("producer %d out of order: %d after %d", pair[0], pair[1], last[pair[0]])
		}
		last[pair[0]] = pair[1]
		count++
	}
	if count != producers*perProducer {
		t.Fatalf("expected %d messages, got %d", producers*perProducer, count)
	}
}
