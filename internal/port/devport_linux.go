//go:build linux
// +build linux

package port

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DevPort reaches an ISA-style MPU-401 through /dev/port, where the byte at
// file offset N is I/O port N. It needs CAP_SYS_RAWIO.
type DevPort struct {
	fd   int
	base uint16
}

// OpenDevPort opens /dev/port for the device at base.
func OpenDevPort(base uint16) (*DevPort, error) {
	fd, err := unix.Open("/dev/port", unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/port: %w", err)
	}
	return &DevPort{fd: fd, base: base}, nil
}

// ReadRegister implements Registers.
func (p *DevPort) ReadRegister(reg Register) (byte, error) {
	var b [1]byte
	n, err := unix.Pread(p.fd, b[:], int64(p.base)+int64(reg))
	if err != nil {
		return 0, fmt.Errorf("inb 0x%X: %w", int(p.base)+int(reg), err)
	}
	if n != 1 {
		return 0, fmt.Errorf("inb 0x%X: short read", int(p.base)+int(reg))
	}
	return b[0], nil
}

// WriteRegister implements Registers.
func (p *DevPort) WriteRegister(reg Register, v byte) error {
	n, err := unix.Pwrite(p.fd, []byte{v}, int64(p.base)+int64(reg))
	if err != nil {
		return fmt.Errorf("outb 0x%X: %w", int(p.base)+int(reg), err)
	}
	if n != 1 {
		return fmt.Errorf("outb 0x%X: short write", int(p.base)+int(reg))
	}
	return nil
}

// Close releases /dev/port.
func (p *DevPort) Close() error {
	return unix.Close(p.fd)
}
