package queue

import "sync"

// Queue is an unbounded FIFO of outbound protocol lines.
//
// Push is safe from any goroutine and never blocks. Pop is meant for a single
// consumer that waits on Ready. The ready channel holds at most one token and
// is re-armed after each Pop while lines remain, so a consumer selecting on it
// wakes once per queued line.
type Queue struct {
	mu    sync.Mutex
	items []string
	ready chan struct{}
}

func New() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Push appends line and wakes the consumer.
func (q *Queue) Push(line string) {
	q.mu.Lock()
	q.items = append(q.items, line)
	q.mu.Unlock()
	q.signal()
}

// Pop removes the oldest line. ok is false when the queue is empty.
func (q *Queue) Pop() (line string, ok bool) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return "", false
	}
	line = q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	remaining := len(q.items)
	q.mu.Unlock()

	if remaining > 0 {
		q.signal()
	}
	return line, true
}

// Ready receives a token whenever at least one line may be waiting.
func (q *Queue) Ready() <-chan struct{} { return q.ready }

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
