// Package eventpool is a bounded free list of TimedEvents.
package eventpool

import (
	"sync"

	"github.com/leandrodaf/mpuart/sdk/contracts"
)

// DefaultSize is the number of events a pool hands out when no size is given.
const DefaultSize = 256

// Pool hands out at most size events at a time. Once every event is out,
// Acquire fails with contracts.ErrOutOfMemory until some are released.
type Pool struct {
	mu          sync.Mutex
	free        []*contracts.TimedEvent
	size        int
	outstanding int
}

// New creates a pool of size events. The events are created lazily.
func New(size int) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	return &Pool{size: size, free: make([]*contracts.TimedEvent, 0, size)}
}

// Acquire implements contracts.Allocator.
func (p *Pool) Acquire() (*contracts.TimedEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.outstanding >= p.size {
		return nil, contracts.ErrOutOfMemory
	}
	p.outstanding++

	if n := len(p.free); n > 0 {
		evt := p.free[n-1]
		p.free = p.free[:n-1]
		return evt, nil
	}
	evt := &contracts.TimedEvent{}
	evt.Reset()
	return evt, nil
}

// Release implements contracts.Allocator. It returns every event of the
// chain, and the sub-chains of packages, to the pool.
func (p *Pool) Release(evt *contracts.TimedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseLocked(evt)
}

func (p *Pool) releaseLocked(evt *contracts.TimedEvent) {
	for evt != nil {
		next := evt.Next
		if sub := evt.DetachPackage(); sub != nil {
			p.releaseLocked(sub)
		}
		evt.Reset()
		if p.outstanding > 0 {
			p.outstanding--
		}
		if len(p.free) < p.size {
			p.free = append(p.free, evt)
		}
		evt = next
	}
}

// Deliver implements contracts.Sink by recycling the chain. A capture stream
// with no connected output delivers here.
func (p *Pool) Deliver(evt *contracts.TimedEvent) error {
	p.Release(evt)
	return nil
}

// Outstanding returns the number of events currently handed out.
func (p *Pool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outstanding
}

// Size returns the pool capacity.
func (p *Pool) Size() int {
	return p.size
}
