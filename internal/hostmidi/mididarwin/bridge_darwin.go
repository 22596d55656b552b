//go:build darwin
// +build darwin

package mididarwin

import (
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/mpuart/internal/hostmidi"
	"github.com/leandrodaf/mpuart/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

// Error definitions for MIDI connection and handling issues.
var (
	ErrNoMIDIDevices       = errors.New("no MIDI devices found")
	ErrInvalidMIDIDevice   = errors.New("invalid MIDI device")
	ErrMIDIConnectionError = errors.New("error connecting to MIDI device")
	ErrCreateInputPort     = errors.New("error creating input port")
)

// internalPortConnection is an interface for handling disconnection from a MIDI port.
type internalPortConnection interface {
	Disconnect()
}

// Bridge forwards a CoreMIDI source into a render stream on macOS.
type Bridge struct {
	logger    contracts.Logger
	forwarder *hostmidi.Forwarder
	client    coremidi.Client        // CoreMIDI client instance.
	inputPort coremidi.InputPort     // Input port for receiving MIDI packets.
	portConn  internalPortConnection // Connection to the selected source.
	mu        sync.Mutex
	wg        sync.WaitGroup // In-flight packet callbacks.
	stopOnce  sync.Once
}

// NewHostBridge creates the CoreMIDI client named by the host configuration.
func NewHostBridge(options *contracts.ClientOptions) (contracts.HostBridge, error) {
	forwarder, err := hostmidi.NewForwarder(options)
	if err != nil {
		return nil, err
	}

	client, err := coremidi.NewClient(options.HostConfig.ClientName)
	if err != nil {
		return nil, err
	}
	options.Logger.Info("MIDI client successfully created")

	return &Bridge{
		logger:    options.Logger,
		forwarder: forwarder,
		client:    client,
	}, nil
}

// ListDevices retrieves and returns available MIDI sources.
func (m *Bridge) ListDevices() ([]contracts.DeviceInfo, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI sources: %w", err)
	}
	if len(sources) == 0 {
		m.logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, len(sources))
	for i, source := range sources {
		sourceEntity := source.Entity()
		devices[i] = contracts.DeviceInfo{
			Name:         source.Name(),
			EntityName:   sourceEntity.Name(),
			Manufacturer: sourceEntity.Manufacturer(),
		}
	}
	return devices, nil
}

// SelectDevice connects to the source at deviceID, dropping any previous one.
func (m *Bridge) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sources, err := coremidi.AllSources()
	if err != nil {
		return fmt.Errorf("error retrieving MIDI sources: %w", err)
	}
	if deviceID < 0 || deviceID >= len(sources) {
		m.logger.Error(ErrInvalidMIDIDevice.Error(), m.logger.Field().Int("deviceID", deviceID))
		return ErrInvalidMIDIDevice
	}

	if m.portConn != nil {
		m.portConn.Disconnect()
		m.portConn = nil
	}

	source := sources[deviceID]
	m.logger.Info("MIDI device selected",
		m.logger.Field().Int("deviceID", deviceID),
		m.logger.Field().String("deviceName", source.Name()))

	m.inputPort, err = coremidi.NewInputPort(m.client, "MPU-401 bridge", m.handleMIDIPacket)
	if err != nil {
		m.logger.Error(ErrCreateInputPort.Error())
		return fmt.Errorf("%w: %v", ErrCreateInputPort, err)
	}

	m.portConn, err = m.inputPort.Connect(source)
	if err != nil {
		m.logger.Error(ErrMIDIConnectionError.Error())
		return fmt.Errorf("%w: %v", ErrMIDIConnectionError, err)
	}

	m.logger.Info("MIDI device successfully connected")
	return nil
}

// handleMIDIPacket runs on the CoreMIDI thread for every received packet.
func (m *Bridge) handleMIDIPacket(source coremidi.Source, packet coremidi.Packet) {
	m.wg.Add(1)
	defer m.wg.Done()

	if !m.forwarder.Forwarding() {
		return
	}
	if err := m.forwarder.Forward(packet.Data); err != nil {
		m.logger.Warn("MIDI packet not forwarded",
			m.logger.Field().String("source", source.Name()),
			m.logger.Field().Error("error", err))
	}
}

// StartForwarding sends every packet from the selected source to stream.
func (m *Bridge) StartForwarding(stream contracts.Stream) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.portConn == nil {
		return fmt.Errorf("%w: no MIDI device selected", contracts.ErrInvalidState)
	}
	return m.forwarder.Attach(stream)
}

// Stop disconnects the source and waits for in-flight packets. It runs once.
func (m *Bridge) Stop() error {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		m.forwarder.Detach()
		if m.portConn != nil {
			m.portConn.Disconnect()
			m.portConn = nil
		}
		m.wg.Wait()
		m.logger.Info("MIDI forwarding stopped")
	})
	return nil
}
