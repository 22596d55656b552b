package hostmidi

import (
	"bytes"
	"errors"
	"testing"

	"github.com/leandrodaf/mpuart/internal/eventpool"
	"github.com/leandrodaf/mpuart/internal/logger"
	"github.com/leandrodaf/mpuart/sdk/contracts"
	"gitlab.com/gomidi/midi/v2"
)

type fixedClock uint64

func (c fixedClock) Now() uint64 { return uint64(c) }

// fakeStream records what it is given and hands the events back to the pool.
type fakeStream struct {
	dir  contracts.Direction
	pool *eventpool.Pool
	err  error
	got  [][]byte
	at   []uint64
}

func (s *fakeStream) ID() string                            { return "fake" }
func (s *fakeStream) Direction() contracts.Direction        { return s.dir }
func (s *fakeStream) SetState(contracts.State) error        { return nil }
func (s *fakeStream) ConnectOutput(contracts.Sink) error    { return nil }
func (s *fakeStream) DisconnectOutput(contracts.Sink) error { return nil }
func (s *fakeStream) Close() error                          { return nil }

func (s *fakeStream) PutMessage(evt *contracts.TimedEvent) error {
	if s.err != nil {
		return s.err
	}
	s.got = append(s.got, append([]byte(nil), evt.Bytes()...))
	s.at = append(s.at, evt.PresTime)
	s.pool.Release(evt)
	return nil
}

func newTestForwarder(t *testing.T, pool *eventpool.Pool, filter *contracts.MIDIEventFilter) *Forwarder {
	t.Helper()

	f, err := NewForwarder(&contracts.ClientOptions{
		Logger:          logger.NewNopLogger(),
		Allocator:       pool,
		Clock:           fixedClock(42),
		MIDIEventFilter: filter,
	})
	if err != nil {
		t.Fatalf("NewForwarder failed: %v", err)
	}
	return f
}

func TestForwarder_Forward(t *testing.T) {
	pool := eventpool.New(4)
	f := newTestForwarder(t, pool, nil)
	stream := &fakeStream{dir: contracts.Render, pool: pool}

	if err := f.Forward(midi.NoteOn(0, 60, 100)); !errors.Is(err, ErrNotForwarding) {
		t.Errorf("Forward before attach: got %v, want ErrNotForwarding", err)
	}
	if err := f.Attach(stream); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	note := midi.NoteOn(1, 60, 100)
	if err := f.Forward(note); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if len(stream.got) != 1 || !bytes.Equal(stream.got[0], note) {
		t.Fatalf("stream got %v, want [% X]", stream.got, []byte(note))
	}
	if stream.at[0] != 42 {
		t.Errorf("PresTime = %d, want 42", stream.at[0])
	}
	if got := pool.Outstanding(); got != 0 {
		t.Errorf("outstanding = %d, want 0", got)
	}

	f.Detach()
	if f.Forwarding() {
		t.Error("still forwarding after Detach")
	}
}

func TestForwarder_Filter(t *testing.T) {
	pool := eventpool.New(4)
	f := newTestForwarder(t, pool, &contracts.MIDIEventFilter{
		Commands: []contracts.MIDICommand{contracts.NoteOn, contracts.NoteOff},
	})
	stream := &fakeStream{dir: contracts.Render, pool: pool}
	f.Attach(stream)

	f.Forward(midi.NoteOn(3, 64, 90))
	f.Forward(midi.ControlChange(3, 7, 100))
	f.Forward(midi.NoteOff(3, 64))

	if len(stream.got) != 2 {
		t.Fatalf("forwarded %d messages, want 2", len(stream.got))
	}
	if stream.got[0][0]&0xF0 != 0x90 || stream.got[1][0]&0xF0 != 0x80 {
		t.Errorf("forwarded % X and % X, want a note-on then a note-off", stream.got[0], stream.got[1])
	}
}

func TestForwarder_StreamErrorReleasesEvent(t *testing.T) {
	pool := eventpool.New(1)
	f := newTestForwarder(t, pool, nil)
	f.Attach(&fakeStream{dir: contracts.Render, pool: pool, err: contracts.ErrInvalidState})

	if err := f.Forward([]byte{0xF8}); !errors.Is(err, contracts.ErrInvalidState) {
		t.Errorf("Forward: got %v, want ErrInvalidState", err)
	}
	if got := pool.Outstanding(); got != 0 {
		t.Errorf("outstanding = %d, want 0", got)
	}
}

func TestForwarder_Rejects(t *testing.T) {
	pool := eventpool.New(1)
	f := newTestForwarder(t, pool, nil)

	if err := f.Attach(&fakeStream{dir: contracts.Capture}); !errors.Is(err, ErrNotRenderStream) {
		t.Errorf("Attach(capture): got %v, want ErrNotRenderStream", err)
	}
	if err := f.Forward(nil); !errors.Is(err, ErrEmptyMIDIPacket) {
		t.Errorf("Forward(nil): got %v, want ErrEmptyMIDIPacket", err)
	}
	if _, err := NewForwarder(&contracts.ClientOptions{Logger: logger.NewNopLogger()}); !errors.Is(err, ErrNoAllocatorClock) {
		t.Errorf("NewForwarder without allocator: got %v, want ErrNoAllocatorClock", err)
	}
}

func TestShortMessageLength(t *testing.T) {
	tests := []struct {
		status byte
		want   int
	}{
		{0x80, 3}, {0x9F, 3}, {0xB0, 3}, {0xC5, 2}, {0xD0, 2}, {0xE0, 3},
		{0xF0, 1}, {0xF1, 2}, {0xF2, 3}, {0xF3, 2}, {0xF6, 1}, {0xF8, 1}, {0x40, 1},
	}
	for _, tt := range tests {
		if got := ShortMessageLength(tt.status); got != tt.want {
			t.Errorf("ShortMessageLength(0x%02X) = %d, want %d", tt.status, got, tt.want)
		}
	}
}
