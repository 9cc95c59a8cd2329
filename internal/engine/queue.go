package engine

import (
	"sync"

	"github.com/roach88/ao20/internal/ir"
	"github.com/roach88/ao20/internal/ledger"
)

// request is one unit of work for the Run loop: either a message to apply
// or a read-only inspection of the ledger.
type request struct {
	msg     ir.Message
	inspect func(*ledger.Ledger)
	done    chan response // buffered, size 1
}

type response struct {
	result ir.Result
	err    error
}

func newMessageRequest(msg ir.Message) *request {
	return &request{msg: msg, done: make(chan response, 1)}
}

func newInspectRequest(fn func(*ledger.Ledger)) *request {
	return &request{inspect: fn, done: make(chan response, 1)}
}

// respond never blocks: done has room for exactly one response and each
// request is answered once.
func (r *request) respond(res ir.Result, err error) {
	r.done <- response{result: res, err: err}
}

// requestQueue is a thread-safe unbounded FIFO.
//
// Submitters enqueue from any goroutine while the Run loop dequeues. The
// signal channel (buffered, size 1) lets Run wait with select so context
// cancellation is never missed.
type requestQueue struct {
	mu       sync.Mutex
	requests []*request
	closed   bool
	signal   chan struct{}
}

func newRequestQueue() *requestQueue {
	return &requestQueue{
		requests: make([]*request, 0, 64),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue adds a request to the back of the queue.
// Returns false if the queue is closed.
func (q *requestQueue) Enqueue(r *request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.requests = append(q.requests, r)

	// Non-blocking: the size-1 buffer coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front request without blocking.
// Returns (nil, false) if the queue is empty.
func (q *requestQueue) TryDequeue() (*request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.requests) == 0 {
		return nil, false
	}

	r := q.requests[0]
	// Clear the slot so the backing array does not pin the request.
	q.requests[0] = nil

	if len(q.requests) == 1 {
		q.requests = q.requests[:0]
	} else {
		q.requests = q.requests[1:]
	}

	return r, true
}

// Wait returns a channel that signals when requests may be available.
// It is closed once the queue is closed.
func (q *requestQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *requestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// Close stops further enqueues and wakes any waiter.
func (q *requestQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// Closed reports whether Close has been called.
func (q *requestQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
