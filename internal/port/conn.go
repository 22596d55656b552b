package port

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/mmr"
)

// ConnRegisters reaches the registers through a periph.io connection, for
// MPU-401 cores sitting behind a bus bridge (an FPGA soft UART on SPI or
// I2C). Each access is one register-addressed transaction.
type ConnRegisters struct {
	dev mmr.Dev8
}

// NewConnRegisters wraps c.
func NewConnRegisters(c conn.Conn) *ConnRegisters {
	return &ConnRegisters{dev: mmr.Dev8{Conn: c, Order: binary.LittleEndian}}
}

// ReadRegister implements Registers.
func (r *ConnRegisters) ReadRegister(reg Register) (byte, error) {
	v, err := r.dev.ReadUint8(uint8(reg))
	if err != nil {
		return 0, fmt.Errorf("read register %d on %s: %w", reg, r.dev.Conn, err)
	}
	return v, nil
}

// WriteRegister implements Registers.
func (r *ConnRegisters) WriteRegister(reg Register, v byte) error {
	if err := r.dev.WriteUint8(uint8(reg), v); err != nil {
		return fmt.Errorf("write register %d on %s: %w", reg, r.dev.Conn, err)
	}
	return nil
}

// String returns the underlying connection name.
func (r *ConnRegisters) String() string {
	return r.dev.Conn.String()
}
