//go:build !linux
// +build !linux

package port

import "errors"

// DevPort is only available on Linux.
type DevPort struct{}

// OpenDevPort reports that raw port access is unavailable on this platform.
func OpenDevPort(base uint16) (*DevPort, error) {
	return nil, errors.New("/dev/port is not available on this platform")
}

// ReadRegister implements Registers.
func (p *DevPort) ReadRegister(reg Register) (byte, error) {
	return 0, errors.New("/dev/port is not available on this platform")
}

// WriteRegister implements Registers.
func (p *DevPort) WriteRegister(reg Register, v byte) error {
	return errors.New("/dev/port is not available on this platform")
}

// Close is a no-op.
func (p *DevPort) Close() error {
	return nil
}
