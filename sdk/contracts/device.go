package contracts

// Direction selects the data flow of a stream.
type Direction int

const (
	// Render streams carry events from the caller to the hardware.
	Render Direction = iota
	// Capture streams carry bytes from the hardware to a sink.
	Capture
)

// String returns the direction name used in logs.
func (d Direction) String() string {
	if d == Capture {
		return "capture"
	}
	return "render"
}

// State is the run state of a stream.
type State int

const (
	// Stop halts the stream. Stopping capture discards unread bytes.
	Stop State = iota
	// Pause keeps the stream open without running it.
	Pause
	// Run starts the stream.
	Run
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case Pause:
		return "pause"
	case Run:
		return "run"
	}
	return "stop"
}

// PowerState is the device power state reported by the platform.
type PowerState int

const (
	PowerUnspecified PowerState = iota // No power message received yet.
	PowerD0                            // Fully on.
	PowerD1
	PowerD2
	PowerD3 // Off.
)

// Stats are the counters kept by the hardware state object.
type Stats struct {
	InputOverflows   uint64 // Bytes dropped because the capture buffer was full.
	InputDropped     uint64 // Bytes dropped because no event could be allocated.
	AbandonedEvents  uint64 // Render events dropped after a transport error.
	Retries          uint64 // Drain retries caused by a busy output FIFO.
	InterruptsServed uint64 // ISR invocations that found input.
	Unresponsive     bool   // Output FIFO stayed busy past the unresponsive threshold.
}

// Stream is one logical direction bound to the shared hardware.
type Stream interface {
	ID() string
	Direction() Direction

	// PutMessage queues a chain on a render stream. On a capture stream it
	// must be called with nil and forwards any buffered input to the sink.
	PutMessage(evt *TimedEvent) error
	SetState(state State) error
	ConnectOutput(sink Sink) error
	DisconnectOutput(sink Sink) error
	Close() error
}

// Device is an MPU-401 interface driven in UART mode.
type Device interface {
	NewStream(direction Direction) (Stream, error)
	PowerChangeNotify(state PowerState)
	// Interrupt runs the interrupt handler once and reports whether it found input.
	Interrupt() bool
	Ready() bool
	Stats() Stats
	Allocator() Allocator
	Clock() Clock
	Close() error
}
