package queue

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestQueue_FIFO(t *testing.T) {
	q := New()
	for i := 0; i < 5; i++ {
		q.Push(fmt.Sprintf("R:%d=1", i))
	}
	for i := 0; i < 5; i++ {
		line, ok := q.Pop()
		if !ok || line != fmt.Sprintf("R:%d=1", i) {
			t.Fatalf("pop %d: got %q, %v", i, line, ok)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatalf("expected empty queue")
	}
}

func TestQueue_PushWakesWaiter(t *testing.T) {
	q := New()
	got := make(chan string, 1)
	go func() {
		<-q.Ready()
		line, _ := q.Pop()
		got <- line
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push("P:0=50.00")

	select {
	case line := <-got:
		if line != "P:0=50.00" {
			t.Fatalf("got %q", line)
		}
	case <-time.After(time.Second):
		t.Fatalf("waiter not woken by push")
	}
}

func TestQueue_ReadyOncePerItem(t *testing.T) {
	q := New()
	q.Push("a")
	q.Push("b")
	q.Push("c")

	var popped []string
	for i := 0; i < 3; i++ {
		select {
		case <-q.Ready():
			line, ok := q.Pop()
			if !ok {
				t.Fatalf("ready without item")
			}
			popped = append(popped, line)
		case <-time.After(time.Second):
			t.Fatalf("no ready token for item %d", i)
		}
	}
	if fmt.Sprint(popped) != "[a b c]" {
		t.Fatalf("popped %v", popped)
	}

	select {
	case <-q.Ready():
		t.Fatalf("stale ready token after draining")
	default:
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := New()
	const producers, perProducer = 8, 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(fmt.Sprintf("%d:%d", p, i))
			}
		}(p)
	}
	wg.Wait()

	if q.Len() != producers*perProducer {
		t.Fatalf("len=%d", q.Len())
	}

	// per-producer order must survive interleaving
	last := make(map[int]int)
	for {
		line, ok := q.Pop()
		if !ok {
			break
		}
		var p, i int
		if _, err := fmt.Sscanf(line, "%d:%d", &p, &i); err != nil {
			t.Fatalf("scan %q: %v", line, err)
		}
		if prev, seen := last[p]; seen && i != prev+1 {
			t.Fatalf("producer %d out of order: %d after %d", p, i, prev)
		}
		last[p] = i
	}
}
