//go:build windows
// +build windows

package midiwindows

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/leandrodaf/mpuart/internal/hostmidi"
	"github.com/leandrodaf/mpuart/sdk/contracts"
	"golang.org/x/sys/windows"
)

// Type definitions for MIDI handles
type HMIDIIN windows.Handle

// Constants for callback flags
const (
	CALLBACK_FUNCTION = 0x00030000 // Indicates that the callback is a function
	MIDI_IO_STATUS    = 0x00000020 // MIDI input/output status
)

// Constants for MIDI message types
const (
	MIM_OPEN      = 0x3C1 // MIDI device opened
	MIM_CLOSE     = 0x3C2 // MIDI device closed
	MIM_DATA      = 0x3C3 // MIDI data received
	MIM_ERROR     = 0x3C5 // MIDI error
	MIM_LONGERROR = 0x3C6 // Long MIDI error
	MIM_MOREDATA  = 0x3CC // More MIDI data available
)

var errNoMIDIDevices = errors.New("no MIDI devices found")

// Struct representing MIDI device capabilities
type midiInCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	dwSupport      uint32
}

// Bridge forwards a winmm MIDI input into a render stream on Windows.
type Bridge struct {
	logger    contracts.Logger
	forwarder *hostmidi.Forwarder
	handle    HMIDIIN
	portConn  bool
	started   bool
	mu        sync.Mutex
	callback  uintptr
}

// Load the winmm.dll library and required functions
var (
	winmm                = windows.NewLazySystemDLL("winmm.dll")
	procMidiInGetNumDevs = winmm.NewProc("midiInGetNumDevs")
	procMidiInGetDevCaps = winmm.NewProc("midiInGetDevCapsW")
	procMidiInOpen       = winmm.NewProc("midiInOpen")
	procMidiInStart      = winmm.NewProc("midiInStart")
	procMidiInStop       = winmm.NewProc("midiInStop")
	procMidiInClose      = winmm.NewProc("midiInClose")
)

// NewHostBridge creates a host bridge for Windows
func NewHostBridge(options *contracts.ClientOptions) (contracts.HostBridge, error) {
	forwarder, err := hostmidi.NewForwarder(options)
	if err != nil {
		return nil, err
	}
	options.Logger.Info("MIDI bridge created for Windows")

	return &Bridge{
		logger:    options.Logger,
		forwarder: forwarder,
	}, nil
}

// ListDevices lists the available MIDI inputs
func (m *Bridge) ListDevices() ([]contracts.DeviceInfo, error) {
	r0, _, _ := procMidiInGetNumDevs.Call()
	numDevices := uint32(r0)
	if numDevices == 0 {
		m.logger.Warn(errNoMIDIDevices.Error())
		return nil, errNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiInCaps
		r1, _, _ := procMidiInGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			m.logger.Warn("Failed to get MIDI device capabilities", m.logger.Field().Int("deviceID", int(i)))
			continue
		}
		deviceName := windows.UTF16ToString(caps.szPname[:])
		devices[i] = contracts.DeviceInfo{
			Name:         deviceName,
			EntityName:   deviceName,
			Manufacturer: fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid),
		}
	}
	return devices, nil
}

// SelectDevice opens a MIDI input
func (m *Bridge) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.portConn {
		if err := m.closeInput(); err != nil {
			return fmt.Errorf("failed to close previous MIDI input: %w", err)
		}
	}

	m.callback = windows.NewCallback(midiInCallback)
	fdwOpen := CALLBACK_FUNCTION | MIDI_IO_STATUS

	r1, _, err := procMidiInOpen.Call(
		uintptr(unsafe.Pointer(&m.handle)),
		uintptr(deviceID),
		m.callback,
		uintptr(unsafe.Pointer(m)),
		uintptr(fdwOpen),
	)
	if r1 != 0 {
		m.logger.Error("Failed to open MIDI device",
			m.logger.Field().Int("deviceID", deviceID),
			m.logger.Field().Error("error", err))
		return fmt.Errorf("failed to open MIDI device %d: %v", deviceID, err)
	}

	m.portConn = true
	m.logger.Info("MIDI device connected", m.logger.Field().Int("deviceID", deviceID))
	return nil
}

// StartForwarding attaches stream and starts the MIDI input
func (m *Bridge) StartForwarding(stream contracts.Stream) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.portConn || m.handle == 0 {
		return fmt.Errorf("%w: no MIDI device selected", contracts.ErrInvalidState)
	}
	if err := m.forwarder.Attach(stream); err != nil {
		return err
	}
	if m.started {
		return nil
	}

	r1, _, err := procMidiInStart.Call(uintptr(m.handle))
	if r1 != 0 {
		m.forwarder.Detach()
		m.logger.Error("Failed to start MIDI input", m.logger.Field().Error("error", err))
		return fmt.Errorf("failed to start MIDI input: %v", err)
	}
	m.started = true
	return nil
}

// midiInCallback processes incoming MIDI messages
func midiInCallback(hMidiIn uintptr, wMsg uint32, dwInstance uintptr, dwParam1 uintptr, dwParam2 uintptr) uintptr {
	m := (*Bridge)(unsafe.Pointer(dwInstance))

	switch wMsg {
	case MIM_OPEN:
		m.logger.Info("MIDI device opened")
	case MIM_CLOSE:
		m.logger.Info("MIDI device closed")
	case MIM_DATA:
		msg := []byte{
			byte(dwParam1 & 0xFF),
			byte((dwParam1 >> 8) & 0xFF),
			byte((dwParam1 >> 16) & 0xFF),
		}
		msg = msg[:hostmidi.ShortMessageLength(msg[0])]

		if err := m.forwarder.Forward(msg); err != nil && !errors.Is(err, hostmidi.ErrNotForwarding) {
			m.logger.Warn("MIDI message not forwarded", m.logger.Field().Error("error", err))
		}
	case MIM_ERROR, MIM_LONGERROR:
		m.logger.Error("MIDI input error", m.logger.Field().Uint32("msg", wMsg))
	case MIM_MOREDATA:
		m.logger.Debug("Received MIM_MOREDATA message; ignored")
	default:
		m.logger.Warn("Unknown MIDI message", m.logger.Field().Uint32("msg", wMsg))
	}

	return 0
}

// Stop terminates forwarding and closes the device
func (m *Bridge) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.forwarder.Detach()
	if !m.portConn {
		m.logger.Warn("No MIDI device is connected")
		return nil
	}

	if err := m.closeInput(); err != nil {
		return fmt.Errorf("failed to stop MIDI input: %w", err)
	}
	m.logger.Info("MIDI forwarding stopped and device closed")
	return nil
}

// closeInput stops the input and releases the handle
func (m *Bridge) closeInput() error {
	if m.handle == 0 {
		return fmt.Errorf("invalid MIDI device handle")
	}

	r1, _, err := procMidiInStop.Call(uintptr(m.handle))
	if r1 != 0 {
		m.logger.Error("Failed to stop MIDI input", m.logger.Field().Error("error", err))
		return err
	}

	r1, _, err = procMidiInClose.Call(uintptr(m.handle))
	if r1 != 0 {
		m.logger.Error("Failed to close MIDI device", m.logger.Field().Error("error", err))
		return err
	}

	m.portConn = false
	m.started = false
	m.handle = 0
	return nil
}
