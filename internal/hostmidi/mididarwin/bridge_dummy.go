//go:build !darwin
// +build !darwin

package mididarwin

import (
	"fmt"

	"github.com/leandrodaf/mpuart/sdk/contracts"
)

type DummyBridge struct {
	logger contracts.Logger
}

func NewHostBridge(options *contracts.ClientOptions) (contracts.HostBridge, error) {
	options.Logger.Info("Using dummy MIDI bridge for non-macOS system")
	return &DummyBridge{
		logger: options.Logger,
	}, nil
}

func (m *DummyBridge) ListDevices() ([]contracts.DeviceInfo, error) {
	m.logger.Warn("ListDevices called on dummy MIDI bridge")
	return nil, fmt.Errorf("CoreMIDI is not available on this platform")
}

func (m *DummyBridge) SelectDevice(deviceID int) error {
	m.logger.Warn("SelectDevice called on dummy MIDI bridge")
	return fmt.Errorf("CoreMIDI is not available on this platform")
}

func (m *DummyBridge) StartForwarding(stream contracts.Stream) error {
	m.logger.Warn("StartForwarding called on dummy MIDI bridge")
	return fmt.Errorf("CoreMIDI is not available on this platform")
}

func (m *DummyBridge) Stop() error {
	m.logger.Warn("Stop called on dummy MIDI bridge")
	return nil
}
