package contracts

// DeviceInfo describes a host MIDI input that a bridge can forward from.
type DeviceInfo struct {
	Name         string // Port name.
	Manufacturer string // Port manufacturer, or the driver's MID/PID pair.
	EntityName   string // Name of the entity the port belongs to.
}
