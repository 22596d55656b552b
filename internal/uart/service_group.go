package uart

import "sync"

// Servicer is deferred work run by a ServiceGroup.
type Servicer interface {
	Service()
}

// ServiceGroup runs its members on a worker goroutine each time it is
// notified. Notifications arriving while the worker is busy coalesce into a
// single pass.
type ServiceGroup struct {
	mu      sync.Mutex
	members []Servicer

	signal chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewServiceGroup starts the worker.
func NewServiceGroup() *ServiceGroup {
	g := &ServiceGroup{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	g.wg.Add(1)
	go g.worker()
	return g
}

// Add registers m.
func (g *ServiceGroup) Add(m Servicer) {
	g.mu.Lock()
	g.members = append(g.members, m)
	g.mu.Unlock()
}

// Remove unregisters m.
func (g *ServiceGroup) Remove(m Servicer) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, member := range g.members {
		if member == m {
			g.members = append(g.members[:i], g.members[i+1:]...)
			return
		}
	}
}

// Notify schedules a service pass. It never blocks.
func (g *ServiceGroup) Notify() {
	select {
	case g.signal <- struct{}{}:
	default:
	}
}

// Close stops the worker and waits for a running pass to finish.
func (g *ServiceGroup) Close() {
	g.once.Do(func() {
		close(g.done)
		g.wg.Wait()
	})
}

func (g *ServiceGroup) worker() {
	defer g.wg.Done()

	for {
		select {
		case <-g.done:
			return
		case <-g.signal:
			g.mu.Lock()
			members := append([]Servicer(nil), g.members...)
			g.mu.Unlock()

			for _, m := range members {
				m.Service()
			}
		}
	}
}
