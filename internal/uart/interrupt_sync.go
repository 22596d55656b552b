package uart

import "sync"

// ServiceRoutine runs with the interrupt sync held when the interrupt line
// fires. It reports whether it handled the interrupt.
type ServiceRoutine func() bool

// InterruptSync serializes interrupt service routines with every other
// piece of code that touches the device registers or the capture buffer.
// It plays the part of the platform's interrupt spinlock.
type InterruptSync struct {
	mu       sync.Mutex
	routines []ServiceRoutine
}

// RegisterServiceRoutine adds r to the interrupt chain. first puts it ahead
// of the routines already registered.
func (s *InterruptSync) RegisterServiceRoutine(r ServiceRoutine, first bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if first {
		s.routines = append([]ServiceRoutine{r}, s.routines...)
		return
	}
	s.routines = append(s.routines, r)
}

// CallSynchronized runs fn mutually exclusive with the service routines.
func (s *InterruptSync) CallSynchronized(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// Interrupt delivers one interrupt: routines run in order until one claims
// it. A shared line can have several claimants.
func (s *InterruptSync) Interrupt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.routines {
		if r() {
			return true
		}
	}
	return false
}
