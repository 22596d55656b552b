package contracts

import "errors"

// Error definitions shared by the engine, the SDK and the host bridges.
var (
	// ErrDeviceBusy is returned by the transport when the output FIFO is full.
	// The drain loop treats it as a retry signal and never surfaces it to PutMessage callers.
	ErrDeviceBusy = errors.New("device busy")
	// ErrNoData is returned by the transport when the input FIFO is empty.
	ErrNoData = errors.New("no data available")
	// ErrDeviceError is returned when the hardware does not respond within its timeout.
	ErrDeviceError = errors.New("device error")
	// ErrOutOfMemory is returned by an allocator that has no free events left.
	ErrOutOfMemory = errors.New("event pool exhausted")
	// ErrTooManyStreams is returned when the per-direction stream capacity is exhausted.
	ErrTooManyStreams = errors.New("too many streams")
	// ErrInvalidState is returned when an operation is not valid for the device or stream state.
	ErrInvalidState = errors.New("invalid state")
	// ErrAlreadyConnected is returned when a capture stream already has a downstream sink.
	ErrAlreadyConnected = errors.New("output already connected")
	// ErrNotConnected is returned when disconnecting a sink that is not the connected one.
	ErrNotConnected = errors.New("output not connected")
	// ErrNoAllocator is returned when a stream is created without an event allocator.
	ErrNoAllocator = errors.New("no event allocator")
	// ErrStreamClosed is returned by operations on a closed stream.
	ErrStreamClosed = errors.New("stream closed")
	// ErrStreamsOpen is returned when the hardware is closed while streams are still open.
	ErrStreamsOpen = errors.New("streams still open")
	// ErrUnsupportedBackend is returned for an unknown register backend name.
	ErrUnsupportedBackend = errors.New("unsupported register backend")
	// ErrUnsupportedOS is returned when no host MIDI bridge exists for the running OS.
	ErrUnsupportedOS = errors.New("unsupported operating system")
)
