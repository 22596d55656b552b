package mpu

import (
	"fmt"
	"runtime"

	"github.com/leandrodaf/mpuart/internal/hostmidi/mididarwin"
	"github.com/leandrodaf/mpuart/internal/hostmidi/midiwindows"
	"github.com/leandrodaf/mpuart/sdk/contracts"
)

// bridgeInitializers maps OS names to corresponding host bridge initializers.
var bridgeInitializers = map[string]func(*contracts.ClientOptions) (contracts.HostBridge, error){
	"darwin":  mididarwin.NewHostBridge,  // macOS (CoreMIDI) bridge initializer.
	"windows": midiwindows.NewHostBridge, // Windows (winmm) bridge initializer.
}

// NewHostBridge creates the bridge that forwards host MIDI input into a
// render stream. Pass the device's allocator and clock with WithAllocator
// and WithClock so forwarded events share them.
//
// Returns:
//   - contracts.HostBridge: the bridge for the running operating system.
//   - error: contracts.ErrUnsupportedOS when there is none, or an initialization error.
func NewHostBridge(opts ...contracts.Option) (contracts.HostBridge, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}

	if initializer, exists := bridgeInitializers[runtime.GOOS]; exists {
		return initializer(&options)
	}
	return nil, fmt.Errorf("%w: %s", contracts.ErrUnsupportedOS, runtime.GOOS)
}
