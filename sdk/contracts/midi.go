package contracts

// HostBridge forwards MIDI input received by the host operating system into
// a render stream, so the MPU-401 output echoes a host MIDI port.
type HostBridge interface {
	Stop() error                         // Stops forwarding and releases the host port.
	ListDevices() ([]DeviceInfo, error)  // Lists host MIDI inputs.
	SelectDevice(deviceID int) error     // Opens a host MIDI input by index.
	StartForwarding(stream Stream) error // Starts forwarding input to a render stream.
}
