package uart

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leandrodaf/mpuart/internal/eventpool"
	"github.com/leandrodaf/mpuart/internal/logger"
	"github.com/leandrodaf/mpuart/internal/port"
	"github.com/leandrodaf/mpuart/sdk/contracts"
)

// stepClock advances by one on every reading.
type stepClock struct {
	now atomic.Uint64
}

func (c *stepClock) Now() uint64 {
	return c.now.Add(1)
}

// captured is what a sink saw of one event.
type captured struct {
	data  []byte
	time  uint64
	group uint16
	flags contracts.EventFlags
}

// recordingSink keeps a copy of every delivered chain and returns the
// events to the pool.
type recordingSink struct {
	mu     sync.Mutex
	pool   *eventpool.Pool
	chains [][]captured
}

func (r *recordingSink) Deliver(evt *contracts.TimedEvent) error {
	var chain []captured
	for e := evt; e != nil; e = e.Next {
		chain = append(chain, captured{
			data:  append([]byte(nil), e.Bytes()...),
			time:  e.PresTime,
			group: e.ChannelGroup,
			flags: e.Flags,
		})
	}
	r.mu.Lock()
	r.chains = append(r.chains, chain)
	r.mu.Unlock()
	r.pool.Release(evt)
	return nil
}

func (r *recordingSink) Chains() [][]captured {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]captured(nil), r.chains...)
}

func (r *recordingSink) Bytes() []byte {
	var out []byte
	for _, chain := range r.Chains() {
		for _, c := range chain {
			out = append(out, c.data...)
		}
	}
	return out
}

func testConfig() Config {
	return Config{
		BaseAddress: 0x330,
		PollTimeout: 5 * time.Millisecond,
		RetryDelay:  time.Millisecond,
	}
}

func newTestHardware(t *testing.T, regs port.Registers, cfg Config) *Hardware {
	t.Helper()

	h, err := NewHardware(regs, &stepClock{}, logger.NewNopLogger(), cfg)
	if err != nil {
		t.Fatalf("NewHardware failed: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func newTestStream(t *testing.T, h *Hardware, dir contracts.Direction, pool *eventpool.Pool) *Stream {
	t.Helper()

	s, err := h.NewStream(dir, pool)
	if err != nil {
		t.Fatalf("NewStream(%s) failed: %v", dir, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// newCaptureStream opens a running capture stream whose assembly is driven
// only by the test, never by the service worker.
func newCaptureStream(t *testing.T, h *Hardware, pool *eventpool.Pool) (*Stream, *recordingSink) {
	t.Helper()

	s := newTestStream(t, h, contracts.Capture, pool)
	h.service.Remove(s)

	sink := &recordingSink{pool: pool}
	if err := s.ConnectOutput(sink); err != nil {
		t.Fatalf("ConnectOutput failed: %v", err)
	}
	if err := s.SetState(contracts.Run); err != nil {
		t.Fatalf("SetState(Run) failed: %v", err)
	}
	return s, sink
}

func newEvent(t *testing.T, pool *eventpool.Pool, data ...byte) *contracts.TimedEvent {
	t.Helper()

	evt, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	evt.SetData(data)
	return evt
}

// permitGate lets the sim accept bytes until permits are used up.
type permitGate struct {
	permits atomic.Int64
}

func (g *permitGate) full(transmitted int) bool {
	return int64(transmitted) >= g.permits.Load()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func timerIdle(s *Stream) func() bool {
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return !s.timerQueued
	}
}
