package uart

import (
	"errors"

	"github.com/leandrodaf/mpuart/sdk/contracts"
)

// sourceEvtsToPort turns the bytes buffered by the ISR into a chain of
// events and hands it to the sink in one call. Every event of a batch
// carries the single timestamp latched by the ISR. poll runs the ISR first
// when the buffer is empty, for devices without an interrupt line.
func (s *Stream) sourceEvtsToPort(poll bool) {
	s.assembly.Lock()
	defer s.assembly.Unlock()

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	var (
		head, tail *contracts.TimedEvent
		stamp      uint64
		allocErr   error
		dropped    int
	)

	s.hw.withCaptureBuffer(poll, func(buf *captureBuffer, latched *uint64) {
		var chunk [contracts.InlineCapacity]byte
		for !buf.empty() {
			evt, err := s.alloc.Acquire()
			if err != nil {
				allocErr = err
				dropped = buf.len()
				buf.reset()
				break
			}

			n := 0
			for n < len(chunk) {
				b, ok := buf.get()
				if !ok {
					break
				}
				chunk[n] = b
				n++
			}
			evt.SetData(chunk[:n])

			if head == nil {
				head = evt
			} else {
				tail.Next = evt
			}
			tail = evt
		}

		stamp = *latched
		if buf.empty() {
			*latched = 0
		}
	})

	if allocErr != nil {
		s.hw.noteInputDropped(dropped)
		level := s.log.Warn
		if !errors.Is(allocErr, contracts.ErrOutOfMemory) {
			level = s.log.Error
		}
		level("capture bytes dropped, no event available",
			s.log.Field().String("stream", s.id),
			s.log.Field().Int("dropped", dropped),
			s.log.Field().Error("error", allocErr))
	}
	if head == nil {
		return
	}

	for evt := head; evt != nil; evt = evt.Next {
		evt.PresTime = stamp
		evt.ChannelGroup = captureChannelGroup
		evt.Flags |= contracts.FlagIncomplete
	}

	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()

	if err := sink.Deliver(head); err != nil {
		s.log.Error("sink rejected captured events",
			s.log.Field().String("stream", s.id),
			s.log.Field().Error("error", err))
	}
}
