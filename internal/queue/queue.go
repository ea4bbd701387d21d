// Package queue holds the FIFO processing queue of handler ids and the tick
// processor that advances one handler per tick.
package queue

import "sync"

// Queue is a FIFO of handler ids. An id is present at most once.
type Queue struct {
	mu      sync.Mutex
	ids     []string
	present map[string]bool
}

// New creates an empty queue
func New() *Queue {
	return &Queue{present: make(map[string]bool)}
}

// Enqueue appends id to the tail. Returns false if id is already queued.
func (q *Queue) Enqueue(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.present[id] {
		return false
	}
	q.ids = append(q.ids, id)
	q.present[id] = true
	return true
}

// Pop removes and returns the head. ok is false when the queue is empty.
func (q *Queue) Pop() (id string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ids) == 0 {
		return "", false
	}
	id = q.ids[0]
	q.ids[0] = ""
	q.ids = q.ids[1:]
	delete(q.present, id)
	return id, true
}

// Size returns the number of queued ids
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ids)
}

// Position returns the 1-based position of id, or 0 when it is not queued
func (q *Queue) Position(id string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.present[id] {
		return 0
	}
	for i, queued := range q.ids {
		if queued == id {
			return i + 1
		}
	}
	return 0
}

// Snapshot returns the queued ids in order
func (q *Queue) Snapshot() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.ids...)
}
