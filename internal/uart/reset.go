package uart

import (
	"fmt"

	"github.com/leandrodaf/mpuart/internal/port"
	"github.com/leandrodaf/mpuart/sdk/contracts"
)

// InitializeHardware runs the reset handshake and switches the device to
// UART mode. The outcome decides Ready.
func (h *Hardware) InitializeHardware() error {
	err := h.sync.CallSynchronized(h.initMPU)
	if err == nil {
		err = h.resetHardware()
	}
	h.initialized.Store(err == nil)
	return err
}

// initMPU resets the device twice. It runs inside the interrupt sync so the
// ACK is read here and never reaches the ISR.
func (h *Hardware) initMPU() error {
	if err := h.xport.writeWithTimeout(port.CmdReset, true); err != nil {
		return err
	}

	// A card already in UART mode resets without acknowledging, so a miss
	// here is expected.
	if _, ok, err := h.xport.waitForByte(); err != nil {
		return err
	} else if !ok {
		h.log.Debug("first reset not acknowledged", h.log.Field().String("device", h.String()))
	}

	if err := h.xport.writeWithTimeout(port.CmdReset, true); err != nil {
		return fmt.Errorf("%w: second reset: %w", contracts.ErrDeviceError, err)
	}

	ack, ok, err := h.xport.waitForByte()
	if err != nil {
		return err
	}
	if !ok || ack != port.Ack {
		return fmt.Errorf("%w: second reset not acknowledged (ack 0x%02X)", contracts.ErrDeviceError, ack)
	}
	return nil
}

// resetHardware puts the device into UART mode and discards the ACK a card
// in intelligent mode sends back.
func (h *Hardware) resetHardware() error {
	return h.sync.CallSynchronized(func() error {
		if err := h.xport.writeWithTimeout(port.CmdUART, true); err != nil {
			return err
		}
		h.xport.flushInput(h.cfg.CaptureBufferSize)
		return nil
	})
}
