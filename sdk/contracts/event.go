package contracts

// InlineCapacity is the largest payload stored inside a TimedEvent without an external buffer.
const InlineCapacity = 8

// NoPosition marks a TimedEvent that carries no byte-position information.
const NoPosition = ^uint64(0)

// EventFlags describe how a TimedEvent is to be interpreted.
type EventFlags uint16

const (
	// FlagIncomplete marks an event whose bytes do not form a complete MIDI message.
	FlagIncomplete EventFlags = 1 << iota
	// FlagPackage marks an event that carries a sub-chain of events instead of bytes.
	FlagPackage
)

// TimedEvent is a time-stamped unit of MIDI bytes travelling through the engine.
//
// The payload is either inline (Length <= InlineCapacity), an external slice,
// or, when FlagPackage is set, a sub-chain of events. Events are linked through
// Next into singly linked, nil-terminated chains.
type TimedEvent struct {
	Length       int        // Number of payload bytes (zero for packages).
	Flags        EventFlags // FlagIncomplete, FlagPackage.
	PresTime     uint64     // Presentation time in 100ns clock units.
	ChannelGroup uint16     // Channel group the bytes belong to.
	BytePosition uint64     // Byte position marker, NoPosition when not applicable.
	Next         *TimedEvent

	inline   [InlineCapacity]byte
	external []byte
	pkg      *TimedEvent
}

// SetData stores b as the event payload. Short payloads are copied inline;
// longer ones are kept by reference.
func (e *TimedEvent) SetData(b []byte) {
	e.Flags &^= FlagPackage
	e.pkg = nil
	e.Length = len(b)
	if len(b) <= InlineCapacity {
		e.external = nil
		copy(e.inline[:], b)
		return
	}
	e.external = b
}

// Bytes returns the payload. It returns nil for package events.
func (e *TimedEvent) Bytes() []byte {
	if e.IsPackage() {
		return nil
	}
	if e.Length <= InlineCapacity {
		return e.inline[:e.Length]
	}
	return e.external[:e.Length]
}

// SetPackage turns the event into a package carrying chain.
func (e *TimedEvent) SetPackage(chain *TimedEvent) {
	e.Flags |= FlagPackage
	e.Length = 0
	e.external = nil
	e.pkg = chain
}

// IsPackage reports whether the event carries a sub-chain.
func (e *TimedEvent) IsPackage() bool {
	return e.Flags&FlagPackage != 0
}

// Package returns the sub-chain of a package event.
func (e *TimedEvent) Package() *TimedEvent {
	if !e.IsPackage() {
		return nil
	}
	return e.pkg
}

// DetachPackage returns the sub-chain and leaves the event an empty shell.
func (e *TimedEvent) DetachPackage() *TimedEvent {
	chain := e.Package()
	e.pkg = nil
	e.Flags &^= FlagPackage
	return chain
}

// Reset clears the event for reuse by an allocator.
func (e *TimedEvent) Reset() {
	*e = TimedEvent{BytePosition: NoPosition}
}

// Tail returns the last event of the chain starting at e.
func (e *TimedEvent) Tail() *TimedEvent {
	t := e
	for t.Next != nil {
		t = t.Next
	}
	return t
}

// Allocator supplies and recycles events. Release takes a whole chain,
// package sub-chains included.
type Allocator interface {
	Acquire() (*TimedEvent, error)
	Release(evt *TimedEvent)
}

// Clock is the monotonic clock shared by the engine, in 100ns units.
type Clock interface {
	Now() uint64
}

// Sink receives completed chains of events.
type Sink interface {
	Deliver(evt *TimedEvent) error
}
