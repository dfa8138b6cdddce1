package audit

import "sync"

// ring is a fixed capacity FIFO. Push on a full ring overwrites the oldest
// element.
type ring struct {
	mu    sync.Mutex
	buf   []Envelope
	head  int
	size  int
	ready chan struct{}
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{
		buf:   make([]Envelope, capacity),
		ready: make(chan struct{}, 1),
	}
}

// push reports whether an older envelope was dropped to make room.
func (r *ring) push(e Envelope) (dropped bool) {
	r.mu.Lock()
	if r.size == len(r.buf) {
		r.buf[r.head] = e
		r.head = (r.head + 1) % len(r.buf)
		dropped = true
	} else {
		r.buf[(r.head+r.size)%len(r.buf)] = e
		r.size++
	}
	r.mu.Unlock()

	select {
	case r.ready <- struct{}{}:
	default:
	}
	return dropped
}

// pop removes up to max envelopes from the front.
func (r *ring) pop(max int) []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.size
	if max > 0 && n > max {
		n = max
	}
	if n == 0 {
		return nil
	}

	out := make([]Envelope, n)
	for i := 0; i < n; i++ {
		idx := (r.head + i) % len(r.buf)
		out[i] = r.buf[idx]
		r.buf[idx] = Envelope{}
	}
	r.head = (r.head + n) % len(r.buf)
	r.size -= n
	return out
}

func (r *ring) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}
