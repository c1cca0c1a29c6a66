package domain

import "sync"

// PostQueue buffers post-creation events between the firehose intake path
// and the drain worker. It is an unbounded in-process FIFO; contents are
// lost on restart, which is acceptable because the upstream redelivers on
// reconnect.
type PostQueue struct {
	mu    sync.Mutex
	items []IncomingPost
}

// NewPostQueue creates an empty queue.
func NewPostQueue() *PostQueue {
	return &PostQueue{}
}

// Push appends an event. O(1) and free of I/O so the stream callback never
// blocks on it.
func (q *PostQueue) Push(post IncomingPost) {
	q.mu.Lock()
	q.items = append(q.items, post)
	q.mu.Unlock()
}

// PopBatch removes and returns up to max events in arrival order. Returns
// nil when the queue is empty.
func (q *PostQueue) PopBatch(max int) []IncomingPost {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := min(max, len(q.items))
	if n <= 0 {
		return nil
	}

	batch := make([]IncomingPost, n)
	copy(batch, q.items[:n])
	// Shift the remainder down in place so the backing array gets reused
	// instead of growing a dead prefix.
	q.items = append(q.items[:0], q.items[n:]...)
	return batch
}

// Len returns the number of queued events.
func (q *PostQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
