// Package mpu is the entry point for driving an MPU-401 in UART mode.
package mpu

import (
	"fmt"
	"sync"
	"time"

	"github.com/leandrodaf/mpuart/internal/port"
	"github.com/leandrodaf/mpuart/internal/uart"
	"github.com/leandrodaf/mpuart/sdk/contracts"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3"
)

// Register backends selectable through Config.Backend.
const (
	BackendSim      = "sim"      // in-memory device
	BackendLoopback = "loopback" // in-memory device with MIDI out cabled to MIDI in
	BackendDevPort  = "devport"  // ISA ports through /dev/port (Linux, root)
)

type device struct {
	hw        *uart.Hardware
	alloc     contracts.Allocator
	clock     contracts.Clock
	logger    contracts.Logger
	syncLog   bool
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// NewDevice opens the configured register backend and brings the MPU-401
// into UART mode. A device that does not acknowledge the reset is still
// returned; Ready reports false until a PowerChangeNotify to D0 succeeds.
//
// opts ...contracts.Option: A variadic list of option functions to customize the device.
func NewDevice(opts ...contracts.Option) (contracts.Device, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}

	regs, err := openRegisters(&options)
	if err != nil {
		options.Logger.Error("Failed to open register backend", options.Logger.Field().Error("error", err))
		return nil, err
	}

	cfg := options.Config
	hw, err := uart.NewHardware(regs, options.Clock, options.Logger, uart.Config{
		BaseAddress:       cfg.BaseAddress,
		UseIRQ:            cfg.UseIRQ,
		RenderStreams:     cfg.RenderStreams,
		CaptureBufferSize: cfg.CaptureBufferSize,
		RetryDelay:        cfg.RetryDelay,
		PollTimeout:       cfg.PollTimeout,
		ISRBudget:         cfg.ISRBudget,
		UnresponsiveAfter: cfg.UnresponsiveAfter,
	})
	if err != nil {
		return nil, err
	}

	d := &device{
		hw:      hw,
		alloc:   options.Allocator,
		clock:   options.Clock,
		logger:  options.Logger,
		syncLog: options.LogFilePath != "",
		done:    make(chan struct{}),
	}
	if cfg.PollInterval > 0 {
		d.wg.Add(1)
		go d.pollInterrupts(cfg.PollInterval)
	}
	return d, nil
}

// openRegisters resolves the register backend: an explicit WithRegisters
// value first, then Config.Backend.
func openRegisters(options *contracts.ClientOptions) (port.Registers, error) {
	switch r := options.Registers.(type) {
	case nil:
	case port.Registers:
		return r, nil
	case conn.Conn:
		return port.NewConnRegisters(r), nil
	default:
		return nil, fmt.Errorf("%w: %T", contracts.ErrUnsupportedBackend, r)
	}

	switch options.Config.Backend {
	case BackendSim:
		return port.NewSimDevice(), nil
	case BackendLoopback:
		return port.NewSimDevice().Loopback(), nil
	case BackendDevPort:
		p, err := port.OpenDevPort(options.Config.BaseAddress)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", contracts.ErrUnsupportedBackend, options.Config.Backend)
}

// pollInterrupts raises the interrupt line every interval, for hosts that
// cannot deliver the card's IRQ.
func (d *device) pollInterrupts(interval time.Duration) {
	defer d.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.done:
			return
		case <-ticker.C:
			d.hw.Interrupt()
		}
	}
}

func (d *device) NewStream(direction contracts.Direction) (contracts.Stream, error) {
	s, err := d.hw.NewStream(direction, d.alloc)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (d *device) PowerChangeNotify(state contracts.PowerState) {
	d.hw.PowerChangeNotify(state)
}

func (d *device) Interrupt() bool {
	return d.hw.Interrupt()
}

func (d *device) Ready() bool {
	return d.hw.Ready()
}

func (d *device) Stats() contracts.Stats {
	return d.hw.Stats()
}

func (d *device) Allocator() contracts.Allocator {
	return d.alloc
}

func (d *device) Clock() contracts.Clock {
	return d.clock
}

// Close stops interrupt polling, resets the hardware and closes the
// backend. It is safe to call more than once.
func (d *device) Close() error {
	d.closeOnce.Do(func() {
		close(d.done)
		d.wg.Wait()

		d.closeErr = d.hw.Close()
		if d.syncLog {
			d.closeErr = multierr.Append(d.closeErr, d.logger.Sync())
		}
		d.logger.Info("device closed")
	})
	return d.closeErr
}
