// Package uart drives an MPU-401 in UART mode: the reset handshake, the
// interrupt handler filling the capture ring, render queues draining into
// the output FIFO, and capture streams assembling inbound bytes into events.
package uart

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leandrodaf/mpuart/internal/port"
	"github.com/leandrodaf/mpuart/sdk/contracts"
	"go.uber.org/multierr"
)

// Defaults applied to zero Config fields.
const (
	MaxCaptureStreams        = 1
	DefaultRenderStreams     = 2 // one legacy MIDI pin, one DirectMusic pin
	DefaultCaptureBufferSize = 128
	DefaultRetryDelay        = time.Millisecond
	DefaultPollTimeout       = 50 * time.Millisecond
	DefaultISRBudget         = 50 * time.Millisecond
	DefaultUnresponsiveAfter = 1000
)

// captureChannelGroup is stamped on every captured event.
const captureChannelGroup = 1

// Config tunes the hardware object.
type Config struct {
	BaseAddress       uint16
	UseIRQ            bool
	RenderStreams     int
	CaptureBufferSize int
	RetryDelay        time.Duration
	PollTimeout       time.Duration
	ISRBudget         time.Duration
	UnresponsiveAfter int
}

func (c *Config) setDefaults() {
	if c.RenderStreams <= 0 {
		c.RenderStreams = DefaultRenderStreams
	}
	if c.CaptureBufferSize < 2 {
		c.CaptureBufferSize = DefaultCaptureBufferSize
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = DefaultPollTimeout
	}
	if c.ISRBudget <= 0 {
		c.ISRBudget = DefaultISRBudget
	}
	if c.UnresponsiveAfter <= 0 {
		c.UnresponsiveAfter = DefaultUnresponsiveAfter
	}
}

// hardwareLink is what a stream may touch on the shared hardware.
type hardwareLink interface {
	ready() bool
	usesIRQ() bool
	write(p []byte) (int, error)
	setCaptureState(state contracts.State)
	withCaptureBuffer(poll bool, fn func(buf *captureBuffer, latched *uint64))
	noteRetry(stream string, retries int)
	noteProgress()
	noteAbandoned()
	noteInputDropped(n int)
	streamClosed(s *Stream)
}

// Hardware is the per-device state shared by every stream.
type Hardware struct {
	log     contracts.Logger
	cfg     Config
	regs    port.Registers
	xport   transport
	sync    *InterruptSync
	service *ServiceGroup
	clock   contracts.Clock

	mu    sync.Mutex // stream creation and power transitions
	power contracts.PowerState

	numRender   atomic.Int32
	numCapture  atomic.Int32
	initialized atomic.Bool

	// Guarded by sync.
	input          captureBuffer
	inputTimeStamp uint64
	captureState   contracts.State

	overflows    atomic.Uint64
	inputDropped atomic.Uint64
	abandoned    atomic.Uint64
	retries      atomic.Uint64
	interrupts   atomic.Uint64
	unresponsive atomic.Bool
}

// NewHardware attaches to the device behind regs and runs the reset
// sequence. A device that fails to acknowledge is returned not ready rather
// than as an error, so a later power-up can retry.
func NewHardware(regs port.Registers, clock contracts.Clock, log contracts.Logger, cfg Config) (*Hardware, error) {
	if regs == nil {
		return nil, fmt.Errorf("%w: no register backend", contracts.ErrDeviceError)
	}
	if clock == nil {
		return nil, fmt.Errorf("%w: no clock", contracts.ErrInvalidState)
	}
	cfg.setDefaults()

	h := &Hardware{
		log:     log,
		cfg:     cfg,
		regs:    regs,
		xport:   transport{regs: regs, pollTimeout: cfg.PollTimeout},
		sync:    &InterruptSync{},
		service: NewServiceGroup(),
		clock:   clock,
		input:   newCaptureBuffer(cfg.CaptureBufferSize),
	}
	h.sync.RegisterServiceRoutine(h.serviceInterrupt, true)
	h.service.Add(h)

	if err := h.InitializeHardware(); err != nil {
		h.log.Error("hardware initialization failed",
			h.log.Field().String("device", h.String()),
			h.log.Field().Error("error", err))
	} else {
		h.log.Info("hardware ready", h.log.Field().String("device", h.String()))
	}
	return h, nil
}

// String names the device by its base address.
func (h *Hardware) String() string {
	return fmt.Sprintf("MPU-401 [%03X]", h.cfg.BaseAddress)
}

// Ready reports whether the reset handshake last succeeded.
func (h *Hardware) Ready() bool {
	return h.initialized.Load()
}

// Interrupt delivers one interrupt to the device's service routines.
func (h *Hardware) Interrupt() bool {
	return h.sync.Interrupt()
}

// InterruptSync returns the device's interrupt sync so other claimants of
// a shared line can register on it.
func (h *Hardware) InterruptSync() *InterruptSync {
	return h.sync
}

// Stats returns a snapshot of the counters.
func (h *Hardware) Stats() contracts.Stats {
	return contracts.Stats{
		InputOverflows:   h.overflows.Load(),
		InputDropped:     h.inputDropped.Load(),
		AbandonedEvents:  h.abandoned.Load(),
		Retries:          h.retries.Load(),
		InterruptsServed: h.interrupts.Load(),
		Unresponsive:     h.unresponsive.Load(),
	}
}

// StreamCount returns the number of open streams in direction dir.
func (h *Hardware) StreamCount(dir contracts.Direction) int {
	if dir == contracts.Capture {
		return int(h.numCapture.Load())
	}
	return int(h.numRender.Load())
}

// NewStream opens a stream in direction dir. Events come from and go back
// to alloc.
func (h *Hardware) NewStream(dir contracts.Direction, alloc contracts.Allocator) (*Stream, error) {
	if alloc == nil {
		return nil, contracts.ErrNoAllocator
	}
	if !h.Ready() {
		return nil, fmt.Errorf("%w: %s is not initialized", contracts.ErrInvalidState, h)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.numRender.Load() == 0 && h.numCapture.Load() == 0 {
		if err := h.resetHardware(); err != nil {
			h.log.Error("reset before first stream failed", h.log.Field().Error("error", err))
			return nil, err
		}
	}

	switch dir {
	case contracts.Capture:
		if h.numCapture.Load() >= MaxCaptureStreams {
			h.log.Warn("too many capture streams")
			return nil, fmt.Errorf("%w: capture capacity is %d", contracts.ErrTooManyStreams, MaxCaptureStreams)
		}
	case contracts.Render:
		if int(h.numRender.Load()) >= h.cfg.RenderStreams {
			h.log.Warn("too many render streams")
			return nil, fmt.Errorf("%w: render capacity is %d", contracts.ErrTooManyStreams, h.cfg.RenderStreams)
		}
	default:
		return nil, fmt.Errorf("%w: unknown direction %d", contracts.ErrInvalidState, dir)
	}

	s := newStream(h, dir, alloc, h.log, h.cfg.RetryDelay)
	if dir == contracts.Capture {
		h.numCapture.Add(1)
		h.service.Add(s)
	} else {
		h.numRender.Add(1)
	}

	h.log.Info("stream created",
		h.log.Field().String("stream", s.ID()),
		h.log.Field().String("direction", dir.String()))
	return s, nil
}

// PowerChangeNotify re-runs the reset sequence when the device returns to
// D0 from any other state.
func (h *Hardware) PowerChangeNotify(state contracts.PowerState) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.log.Debug("power state change", h.log.Field().Int("state", int(state)))
	if state == contracts.PowerD0 && h.power != contracts.PowerD0 {
		if err := h.InitializeHardware(); err != nil {
			h.log.Error("hardware initialization failed on resume", h.log.Field().Error("error", err))
		}
	}
	h.power = state
}

// Service runs in deferred context after the ISR stored input. Input with
// no capture stream to consume it is garbage and is dropped.
func (h *Hardware) Service() {
	h.sync.CallSynchronized(func() error {
		if h.numCapture.Load() == 0 {
			h.input.reset()
		}
		return nil
	})
}

// Close resets the device so it stops raising input and stops the deferred
// worker. Streams should be closed first.
func (h *Hardware) Close() error {
	var err error
	if n := h.numRender.Load() + h.numCapture.Load(); n != 0 {
		err = multierr.Append(err, fmt.Errorf("%w: %d", contracts.ErrStreamsOpen, n))
	}

	err = multierr.Append(err, h.sync.CallSynchronized(h.initMPU))
	h.initialized.Store(false)
	h.service.Close()

	if c, ok := h.regs.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}
	return err
}

func (h *Hardware) ready() bool {
	return h.Ready()
}

func (h *Hardware) usesIRQ() bool {
	return h.cfg.UseIRQ
}

// write sends p through the transport inside the interrupt sync. Without
// an interrupt line, pending input is pulled in first so it is not lost
// while output is flooding.
func (h *Hardware) write(p []byte) (int, error) {
	var n int
	err := h.sync.CallSynchronized(func() error {
		if !h.cfg.UseIRQ {
			h.serviceInterrupt()
		}
		var err error
		n, err = h.xport.write(p)
		return err
	})
	return n, err
}

func (h *Hardware) setCaptureState(state contracts.State) {
	h.sync.CallSynchronized(func() error {
		h.captureState = state
		if state == contracts.Stop {
			// Bytes read before the stop are stale after a restart.
			h.input.reset()
			h.inputTimeStamp = 0
		}
		return nil
	})
}

func (h *Hardware) withCaptureBuffer(poll bool, fn func(buf *captureBuffer, latched *uint64)) {
	h.sync.CallSynchronized(func() error {
		if poll && h.input.empty() {
			h.serviceInterrupt()
		}
		fn(&h.input, &h.inputTimeStamp)
		return nil
	})
}

func (h *Hardware) noteRetry(stream string, retries int) {
	h.retries.Add(1)
	if retries == h.cfg.UnresponsiveAfter && !h.unresponsive.Swap(true) {
		h.log.Warn("hardware unresponsive, output FIFO stays full",
			h.log.Field().String("device", h.String()),
			h.log.Field().String("stream", stream),
			h.log.Field().Int("retries", retries))
	}
}

func (h *Hardware) noteProgress() {
	if h.unresponsive.Swap(false) {
		h.log.Info("hardware output recovered", h.log.Field().String("device", h.String()))
	}
}

func (h *Hardware) noteAbandoned() {
	h.abandoned.Add(1)
}

func (h *Hardware) noteInputDropped(n int) {
	h.inputDropped.Add(uint64(n))
}

func (h *Hardware) streamClosed(s *Stream) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s.Direction() == contracts.Capture {
		h.numCapture.Add(-1)
		h.service.Remove(s)
	} else {
		h.numRender.Add(-1)
	}
	h.log.Info("stream closed",
		h.log.Field().String("stream", s.ID()),
		h.log.Field().String("direction", s.Direction().String()))
}
