// Package hostmidi holds what the OS-specific bridges share: turning host
// MIDI input into engine events on a render stream.
package hostmidi

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/leandrodaf/mpuart/sdk/contracts"
	"gitlab.com/gomidi/midi/v2"
)

// Error definitions for forwarding host MIDI input.
var (
	ErrNotForwarding    = errors.New("no render stream to forward to")
	ErrEmptyMIDIPacket  = errors.New("empty MIDI packet")
	ErrNotRenderStream  = errors.New("host input can only be forwarded to a render stream")
	ErrNoAllocatorClock = errors.New("bridge needs an allocator and a clock")
)

type streamHolder struct {
	stream contracts.Stream
}

// Forwarder copies host MIDI messages into allocator events stamped with
// the engine clock and queues them on a render stream.
type Forwarder struct {
	logger contracts.Logger
	alloc  contracts.Allocator
	clock  contracts.Clock
	filter *contracts.MIDIEventFilter
	stream atomic.Value // streamHolder
}

// NewForwarder builds a Forwarder from the bridge options.
func NewForwarder(options *contracts.ClientOptions) (*Forwarder, error) {
	if options.Allocator == nil || options.Clock == nil {
		return nil, ErrNoAllocatorClock
	}
	f := &Forwarder{
		logger: options.Logger,
		alloc:  options.Allocator,
		clock:  options.Clock,
		filter: options.MIDIEventFilter,
	}
	f.stream.Store(streamHolder{})
	return f, nil
}

// Attach makes stream the forwarding target.
func (f *Forwarder) Attach(stream contracts.Stream) error {
	if stream == nil {
		return ErrNotForwarding
	}
	if stream.Direction() != contracts.Render {
		return ErrNotRenderStream
	}
	f.stream.Store(streamHolder{stream: stream})
	f.logger.Info("forwarding host MIDI input", f.logger.Field().String("stream", stream.ID()))
	return nil
}

// Detach stops forwarding. Messages arriving afterwards are dropped.
func (f *Forwarder) Detach() {
	f.stream.Store(streamHolder{})
}

// Forwarding reports whether a stream is attached.
func (f *Forwarder) Forwarding() bool {
	return f.stream.Load().(streamHolder).stream != nil
}

// Forward queues one host message. data is copied, so the caller may reuse it.
func (f *Forwarder) Forward(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyMIDIPacket
	}
	stream := f.stream.Load().(streamHolder).stream
	if stream == nil {
		return ErrNotForwarding
	}

	if f.filter != nil && !IsCommandAllowed(data[0]&0xF0, f.filter.Commands) {
		f.logger.Debug("MIDI command filtered out", f.logger.Field().Uint8("command", data[0]&0xF0))
		return nil
	}

	evt, err := f.alloc.Acquire()
	if err != nil {
		f.logger.Warn("host MIDI message dropped", f.logger.Field().Error("error", err))
		return err
	}
	evt.SetData(append([]byte(nil), data...))
	evt.PresTime = f.clock.Now()

	f.logger.Debug("host MIDI message", f.logger.Field().String("message", midi.Message(data).String()))

	if err := stream.PutMessage(evt); err != nil {
		f.alloc.Release(evt)
		return fmt.Errorf("forwarding to stream %s: %w", stream.ID(), err)
	}
	return nil
}

// IsCommandAllowed verifies if a MIDI command is allowed based on the event filter configuration.
func IsCommandAllowed(command byte, allowedCommands []contracts.MIDICommand) bool {
	for _, allowedCommand := range allowedCommands {
		if command == byte(allowedCommand) {
			return true
		}
	}
	return false
}

// ShortMessageLength returns the byte length of the short message starting
// with status. Unknown or SysEx status bytes count as 1.
func ShortMessageLength(status byte) int {
	switch {
	case status < 0x80:
		return 1
	case status < 0xC0, status >= 0xE0 && status < 0xF0:
		return 3
	case status < 0xE0:
		return 2
	case status == 0xF1, status == 0xF3:
		return 2
	case status == 0xF2:
		return 3
	}
	return 1
}
