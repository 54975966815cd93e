package tenantdb

import "sync"

// Refs counts the sessions holding a pooled backend. A retired backend is
// closed as soon as no session holds it. The zero value is not usable; use
// NewRefs.
type Refs struct {
	mu      sync.Mutex
	n       int
	retired bool
	closed  bool
	close   func()
}

// NewRefs returns a counter that calls close once, after Retire, when the
// last holder releases.
func NewRefs(close func()) *Refs {
	return &Refs{close: close}
}

// Acquire registers a holder. It reports false once the backend is closed,
// in which case the caller must open a new one.
func (r *Refs) Acquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.n++
	return true
}

// Release drops a holder and closes a retired backend left without holders.
func (r *Refs) Release() {
	r.mu.Lock()
	if r.n > 0 {
		r.n--
	}
	closing := r.shouldClose()
	r.mu.Unlock()

	if closing {
		r.close()
	}
}

// Retire marks the backend as no longer handed out. It is closed now when
// unused, otherwise on the last Release.
func (r *Refs) Retire() {
	r.mu.Lock()
	r.retired = true
	closing := r.shouldClose()
	r.mu.Unlock()

	if closing {
		r.close()
	}
}

// Holders returns the current number of holders.
func (r *Refs) Holders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// Closed reports whether close has been called.
func (r *Refs) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Refs) shouldClose() bool {
	if !r.retired || r.n > 0 || r.closed {
		return false
	}
	r.closed = true
	return true
}
