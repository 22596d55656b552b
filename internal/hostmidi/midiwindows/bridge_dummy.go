//go:build !windows
// +build !windows

package midiwindows

import (
	"fmt"

	"github.com/leandrodaf/mpuart/sdk/contracts"
)

type dummyBridge struct {
	logger contracts.Logger
}

// NewHostBridge initializes a dummy bridge for non-Windows systems.
func NewHostBridge(options *contracts.ClientOptions) (contracts.HostBridge, error) {
	options.Logger.Info("Using dummy MIDI bridge for non-Windows system")
	return &dummyBridge{
		logger: options.Logger,
	}, nil
}

// ListDevices logs a warning and returns an error indicating that winmm is unavailable on this platform.
func (m *dummyBridge) ListDevices() ([]contracts.DeviceInfo, error) {
	m.logger.Warn("ListDevices called on dummy MIDI bridge")
	return nil, fmt.Errorf("winmm MIDI input is not available on this platform")
}

// SelectDevice logs a warning and returns an error indicating that winmm is unavailable on this platform.
func (m *dummyBridge) SelectDevice(deviceID int) error {
	m.logger.Warn("SelectDevice called on dummy MIDI bridge")
	return fmt.Errorf("winmm MIDI input is not available on this platform")
}

// StartForwarding logs a warning and returns an error indicating that winmm is unavailable on this platform.
func (m *dummyBridge) StartForwarding(stream contracts.Stream) error {
	m.logger.Warn("StartForwarding called on dummy MIDI bridge")
	return fmt.Errorf("winmm MIDI input is not available on this platform")
}

// Stop logs a warning indicating that Stop was called on the dummy MIDI bridge.
func (m *dummyBridge) Stop() error {
	m.logger.Warn("Stop called on dummy MIDI bridge")
	return nil
}
