package port

import (
	"errors"
	"sync"
)

// ErrSimFault is returned by a simulated device with an injected register fault.
var ErrSimFault = errors.New("simulated register fault")

// OutputGate decides whether the simulated output FIFO reports full.
// transmitted is the number of data bytes accepted so far.
type OutputGate func(transmitted int) bool

// Mode is the operating mode of the simulated MPU-401.
type Mode int

const (
	Intelligent Mode = iota // Power-on mode, answers commands with Ack.
	UART                    // Pass-through mode, only Reset is honoured.
)

// SimDevice is an in-memory MPU-401. It honours the reset/ACK handshake,
// keeps a host-readable input FIFO and records transmitted data bytes.
type SimDevice struct {
	mu sync.Mutex

	mode      Mode
	input     []byte // device to host
	output    []byte // bytes sent on the MIDI wire
	commands  []byte
	gate      OutputGate
	mute      bool // no ACKs at all
	dataFault bool
}

// NewSimDevice returns a simulated device in intelligent mode.
func NewSimDevice() *SimDevice {
	return &SimDevice{}
}

// ReadRegister implements Registers.
func (d *SimDevice) ReadRegister(reg Register) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if reg == Status {
		var status byte
		if len(d.input) == 0 {
			status |= StatusInputEmpty
		}
		if d.gate != nil && d.gate(len(d.output)) {
			status |= StatusOutputFull
		}
		return status, nil
	}

	if len(d.input) == 0 {
		return 0xFF, nil
	}
	b := d.input[0]
	d.input = d.input[1:]
	return b, nil
}

// WriteRegister implements Registers.
func (d *SimDevice) WriteRegister(reg Register, v byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if reg == Data {
		if d.dataFault {
			return ErrSimFault
		}
		d.output = append(d.output, v)
		return nil
	}

	d.commands = append(d.commands, v)
	switch {
	case v == CmdReset && d.mode == UART:
		// A card in UART mode resets without acknowledging.
		d.mode = Intelligent
	case d.mode == Intelligent:
		if !d.mute {
			d.input = append(d.input, Ack)
		}
		if v == CmdUART {
			d.mode = UART
		}
	}
	return nil
}

// Inject queues bytes as if they arrived on the MIDI input.
func (d *SimDevice) Inject(b ...byte) {
	d.mu.Lock()
	d.input = append(d.input, b...)
	d.mu.Unlock()
}

// Output returns a copy of the transmitted data bytes.
func (d *SimDevice) Output() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.output...)
}

// Commands returns a copy of the command bytes written.
func (d *SimDevice) Commands() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.commands...)
}

// Pending returns the number of input bytes not yet read by the host.
func (d *SimDevice) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.input)
}

// Mode returns the current operating mode.
func (d *SimDevice) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// SetMode forces the operating mode.
func (d *SimDevice) SetMode(m Mode) {
	d.mu.Lock()
	d.mode = m
	d.mu.Unlock()
}

// SetOutputGate installs the output-full predicate. nil means never full.
func (d *SimDevice) SetOutputGate(g OutputGate) {
	d.mu.Lock()
	d.gate = g
	d.mu.Unlock()
}

// SetMute makes the device stop acknowledging commands.
func (d *SimDevice) SetMute(mute bool) {
	d.mu.Lock()
	d.mute = mute
	d.mu.Unlock()
}

// SetDataFault makes data register writes fail.
func (d *SimDevice) SetDataFault(fault bool) {
	d.mu.Lock()
	d.dataFault = fault
	d.mu.Unlock()
}

// Loopback wraps d so every byte transmitted in UART mode comes back on the input.
func (d *SimDevice) Loopback() *LoopbackDevice {
	return &LoopbackDevice{SimDevice: d}
}

// LoopbackDevice is a SimDevice whose MIDI out is cabled to its MIDI in.
type LoopbackDevice struct {
	*SimDevice
}

// WriteRegister implements Registers, echoing data bytes in UART mode.
func (l *LoopbackDevice) WriteRegister(reg Register, v byte) error {
	if err := l.SimDevice.WriteRegister(reg, v); err != nil {
		return err
	}
	if reg == Data && l.Mode() == UART {
		l.Inject(v)
	}
	return nil
}
