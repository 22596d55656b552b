package uart

import (
	"time"

	"gitlab.com/gomidi/midi/v2"
)

// armTimerLocked schedules consumeEvents after d. The caller holds s.mu.
func (s *Stream) armTimerLocked(d time.Duration) {
	s.timerQueued = true
	if s.timer == nil {
		s.timer = time.AfterFunc(d, s.consumeEvents)
		return
	}
	s.timer.Reset(d)
}

// consumeEvents is the retry timer callback.
func (s *Stream) consumeEvents() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.timerQueued = false
	s.drainLocked()
}

// drainLocked writes queued events to the output FIFO in order until the
// queue is empty or the FIFO fills. A partial write keeps the event at the
// head with its offset and arms the retry timer. The caller holds s.mu.
func (s *Stream) drainLocked() {
	for s.head != nil {
		data := s.head.Bytes()
		if s.offset >= len(data) {
			s.popLocked()
			continue
		}

		n, err := s.hw.write(data[s.offset:])
		if err != nil {
			s.hw.noteAbandoned()
			s.log.Error("event abandoned after transport error",
				s.log.Field().String("stream", s.id),
				s.log.Field().Hex("bytes", data),
				s.log.Field().Int("offset", s.offset),
				s.log.Field().Error("error", err))
			s.popLocked()
			continue
		}

		if s.offset+n < len(data) {
			s.offset += n
			s.retries++
			s.hw.noteRetry(s.id, s.retries)
			s.armTimerLocked(s.retryDelay)
			return
		}

		s.log.Debug("event sent",
			s.log.Field().String("stream", s.id),
			s.log.Field().String("message", midi.Message(data).String()),
			s.log.Field().Uint32("retries", uint32(s.retries)))
		s.popLocked()
		s.hw.noteProgress()
	}
}

// popLocked removes and releases the head event and resets the per-event
// progress.
func (s *Stream) popLocked() {
	evt := s.head
	s.head = evt.Next
	if s.head == nil {
		s.tail = nil
	}
	evt.Next = nil
	s.offset = 0
	s.retries = 0
	s.alloc.Release(evt)
}
