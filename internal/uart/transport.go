package uart

import (
	"errors"
	"fmt"
	"time"

	"github.com/leandrodaf/mpuart/internal/port"
	"github.com/leandrodaf/mpuart/sdk/contracts"
)

// ackPollInterval is the pause between status reads while waiting for an ACK.
const ackPollInterval = 25 * time.Microsecond

// transport moves single bytes through the data and command registers.
// Every method must be called with the interrupt sync held.
type transport struct {
	regs        port.Registers
	pollTimeout time.Duration
}

func (t *transport) status() (byte, error) {
	return t.regs.ReadRegister(port.Status)
}

func (t *transport) tryRead() (byte, error) {
	status, err := t.status()
	if err != nil {
		return 0, err
	}
	if !port.InputAvailable(status) {
		return 0, contracts.ErrNoData
	}
	return t.regs.ReadRegister(port.Data)
}

func (t *transport) tryWrite(b byte, isCommand bool) error {
	status, err := t.status()
	if err != nil {
		return err
	}
	if !port.OutputReady(status) {
		return contracts.ErrDeviceBusy
	}
	reg := port.Data
	if isCommand {
		reg = port.Command
	}
	return t.regs.WriteRegister(reg, b)
}

// writeWithTimeout spins until the device takes b or the poll timeout ends.
func (t *transport) writeWithTimeout(b byte, isCommand bool) error {
	deadline := time.Now().Add(t.pollTimeout)
	for {
		err := t.tryWrite(b, isCommand)
		if err == nil {
			return nil
		}
		if !errors.Is(err, contracts.ErrDeviceBusy) {
			return err
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: output full for %s writing 0x%02X", contracts.ErrDeviceError, t.pollTimeout, b)
		}
	}
}

// write pushes as much of p as the device accepts right now. A full output
// FIFO ends the burst early without an error.
func (t *transport) write(p []byte) (int, error) {
	for n, b := range p {
		err := t.tryWrite(b, false)
		if errors.Is(err, contracts.ErrDeviceBusy) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
	return len(p), nil
}

// waitForByte polls for one inbound byte for up to the poll timeout.
func (t *transport) waitForByte() (byte, bool, error) {
	deadline := time.Now().Add(t.pollTimeout)
	for {
		b, err := t.tryRead()
		if err == nil {
			return b, true, nil
		}
		if !errors.Is(err, contracts.ErrNoData) {
			return 0, false, err
		}
		if time.Now().After(deadline) {
			return 0, false, nil
		}
		time.Sleep(ackPollInterval)
	}
}

// flushInput discards bytes already waiting in the input FIFO, reading at
// most limit of them.
func (t *transport) flushInput(limit int) int {
	n := 0
	for ; n < limit; n++ {
		if _, err := t.tryRead(); err != nil {
			break
		}
	}
	return n
}
