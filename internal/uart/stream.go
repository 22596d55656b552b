package uart

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leandrodaf/mpuart/sdk/contracts"
)

// Stream is one direction bound to the shared hardware. Render streams
// queue events and drain them into the output FIFO; capture streams turn
// the capture ring into events for their sink.
type Stream struct {
	id         string
	dir        contracts.Direction
	hw         hardwareLink
	log        contracts.Logger
	alloc      contracts.Allocator
	allocSink  contracts.Sink
	retryDelay time.Duration

	assembly sync.Mutex // one inbound assembly pass at a time, so batches reach the sink in order

	mu          sync.Mutex // the stream's deferred-work lock
	state       contracts.State
	sink        contracts.Sink
	head, tail  *contracts.TimedEvent
	offset      int // bytes of head already sent
	retries     int // consecutive drain passes cut short by a busy FIFO
	timer       *time.Timer
	timerQueued bool
	closed      bool
}

func newStream(hw hardwareLink, dir contracts.Direction, alloc contracts.Allocator, log contracts.Logger, retryDelay time.Duration) *Stream {
	s := &Stream{
		id:         uuid.NewString(),
		dir:        dir,
		hw:         hw,
		log:        log,
		alloc:      alloc,
		retryDelay: retryDelay,
	}
	// Until an output is connected, captured events go straight back to the allocator.
	if sink, ok := alloc.(contracts.Sink); ok {
		s.allocSink = sink
	} else {
		s.allocSink = releaseSink{alloc}
	}
	s.sink = s.allocSink
	return s
}

// ID returns the stream's unique identifier.
func (s *Stream) ID() string {
	return s.id
}

// Direction returns whether the stream renders or captures.
func (s *Stream) Direction() contracts.Direction {
	return s.dir
}

// PutMessage appends evt to a render stream and drains the queue unless a
// retry is already scheduled. Events are never re-sorted; callers supply
// them in timestamp order. On a capture stream evt must be nil and the call
// forwards buffered input to the sink.
func (s *Stream) PutMessage(evt *contracts.TimedEvent) error {
	if s.dir == contracts.Capture {
		if evt != nil {
			return fmt.Errorf("%w: capture streams do not accept events", contracts.ErrInvalidState)
		}
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return contracts.ErrStreamClosed
		}
		s.sourceEvtsToPort(!s.hw.usesIRQ())
		return nil
	}

	if !s.hw.ready() {
		return fmt.Errorf("%w: hardware not initialized", contracts.ErrInvalidState)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return contracts.ErrStreamClosed
	}
	if evt != nil {
		s.enqueueLocked(evt)
	}
	if !s.timerQueued {
		s.drainLocked()
	}
	return nil
}

func (s *Stream) enqueueLocked(evt *contracts.TimedEvent) {
	head, tail := s.flatten(evt)
	if head == nil {
		return
	}
	if s.head == nil {
		s.head = head
		if s.offset != 0 {
			s.log.Error("empty queue with a non-zero offset",
				s.log.Field().String("stream", s.id),
				s.log.Field().Int("offset", s.offset))
			s.offset = 0
		}
	} else {
		s.tail.Next = head
	}
	s.tail = tail
}

// flatten replaces every package in chain with its sub-chain, nested
// packages included, and releases the package shells. The result holds
// only byte events, in the order they must be sent.
func (s *Stream) flatten(chain *contracts.TimedEvent) (head, tail *contracts.TimedEvent) {
	link := func(h, t *contracts.TimedEvent) {
		if head == nil {
			head = h
		} else {
			tail.Next = h
		}
		tail = t
	}

	for evt := chain; evt != nil; {
		next := evt.Next
		evt.Next = nil

		if evt.IsPackage() {
			sub := evt.DetachPackage()
			s.alloc.Release(evt)
			if h, t := s.flatten(sub); h != nil {
				link(h, t)
			}
		} else {
			link(evt, evt)
		}
		evt = next
	}
	return head, tail
}

// SetState moves the stream between Stop, Pause and Run. Running a render
// stream drains anything already queued; stopping capture discards unread
// input.
func (s *Stream) SetState(state contracts.State) error {
	if state == contracts.Run && !s.hw.ready() {
		s.log.Error("run requested on uninitialized hardware", s.log.Field().String("stream", s.id))
		return fmt.Errorf("%w: hardware not initialized", contracts.ErrInvalidState)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return contracts.ErrStreamClosed
	}
	s.state = state
	if state == contracts.Run && s.dir == contracts.Render {
		s.armTimerLocked(0)
	}
	s.mu.Unlock()

	if s.dir == contracts.Capture {
		s.hw.setCaptureState(state)
	}
	s.log.Debug("stream state",
		s.log.Field().String("stream", s.id),
		s.log.Field().String("state", state.String()))
	return nil
}

// State returns the last state set.
func (s *Stream) State() contracts.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ConnectOutput binds a capture stream to sink.
func (s *Stream) ConnectOutput(sink contracts.Sink) error {
	if s.dir != contracts.Capture {
		return fmt.Errorf("%w: render streams have no output", contracts.ErrInvalidState)
	}
	if sink == nil {
		return fmt.Errorf("%w: nil sink", contracts.ErrInvalidState)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return contracts.ErrStreamClosed
	}
	if s.sink != s.allocSink {
		return contracts.ErrAlreadyConnected
	}
	s.sink = sink
	s.log.Debug("output connected", s.log.Field().String("stream", s.id))
	return nil
}

// DisconnectOutput unbinds sink. A nil sink disconnects whatever is bound.
func (s *Stream) DisconnectOutput(sink contracts.Sink) error {
	if s.dir != contracts.Capture {
		return fmt.Errorf("%w: render streams have no output", contracts.ErrInvalidState)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return contracts.ErrStreamClosed
	}
	if sink != nil && sink != s.sink {
		return contracts.ErrNotConnected
	}
	s.sink = s.allocSink
	s.log.Debug("output disconnected", s.log.Field().String("stream", s.id))
	return nil
}

// Close cancels the retry timer, returns queued events to the allocator and
// releases the stream's slot on the hardware. Closing a capture stream stops
// capture on the hardware. The hardware keeps running.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerQueued = false
	queue := s.head
	s.head, s.tail, s.offset = nil, nil, 0
	s.sink = s.allocSink
	s.mu.Unlock()

	if queue != nil {
		s.alloc.Release(queue)
	}
	if s.dir == contracts.Capture {
		// The next capture stream starts stopped with an empty ring.
		s.hw.setCaptureState(contracts.Stop)
	}
	s.hw.streamClosed(s)
	return nil
}

// Service is the capture stream's deferred work: assemble whatever the ISR
// stored.
func (s *Stream) Service() {
	s.sourceEvtsToPort(false)
}

// releaseSink recycles delivered chains into an allocator.
type releaseSink struct {
	alloc contracts.Allocator
}

func (r releaseSink) Deliver(evt *contracts.TimedEvent) error {
	r.alloc.Release(evt)
	return nil
}
