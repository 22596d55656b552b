// Package port provides access to the two MPU-401 registers.
//
// An MPU-401 occupies two consecutive I/O addresses: the data register at
// the base and the status/command register at base+1. Reading base+1 returns
// the status byte; writing it issues a command.
package port

// Register is an offset from the device base address.
type Register uint8

const (
	Data    Register = 0 // Data register, read and write.
	Status  Register = 1 // Status register, read.
	Command Register = 1 // Command register, write.
)

// Status register bits.
const (
	StatusInputEmpty = 0x80 // DSR: no byte waiting to be read.
	StatusOutputFull = 0x40 // DRR: the device cannot accept a byte.
)

// Commands and replies.
const (
	CmdReset = 0xFF // Return to intelligent mode.
	CmdUART  = 0x3F // Enter UART mode.
	Ack      = 0xFE // Acknowledge sent after a command in intelligent mode.
)

// Registers reads and writes the device registers.
type Registers interface {
	ReadRegister(reg Register) (byte, error)
	WriteRegister(reg Register, v byte) error
}

// InputAvailable reports whether status says a byte can be read.
func InputAvailable(status byte) bool {
	return status&StatusInputEmpty == 0
}

// OutputReady reports whether status says a byte can be written.
func OutputReady(status byte) bool {
	return status&StatusOutputFull == 0
}
