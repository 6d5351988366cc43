package style

import "sync"

// Queue collects styles whose look changed until the owner drains it.
// Styles are shared across chunks, so pushes may come from any goroutine.
type Queue struct {
	mu      sync.Mutex
	pending map[*Style]struct{}
	order   []*Style
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{pending: make(map[*Style]struct{})}
}

func (q *Queue) push(s *Style) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.pending[s]; ok {
		return
	}
	q.pending[s] = struct{}{}
	q.order = append(q.order, s)
}

// Drain returns the queued styles in notification order and empties the queue.
func (q *Queue) Drain() []*Style {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.order) == 0 {
		return nil
	}
	out := q.order
	q.order = nil
	clear(q.pending)
	return out
}

// Len returns the number of queued styles.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}
