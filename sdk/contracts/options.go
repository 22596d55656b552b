package contracts

import "time"

// MIDICommand represents the types of MIDI commands for event filtering.
type MIDICommand byte

const (
	// NoteOn is the MIDI command for a Note On event (0x90).
	NoteOn MIDICommand = 0x90
	// NoteOff is the MIDI command for a Note Off event (0x80).
	NoteOff MIDICommand = 0x80
)

// MIDIEventFilter allows users to specify which MIDI commands a host bridge forwards.
type MIDIEventFilter struct {
	Commands []MIDICommand // List of MIDI commands to forward.
}

// Config is the device configuration. It can be loaded from YAML.
type Config struct {
	Backend           string        `yaml:"backend"`             // sim, devport
	BaseAddress       uint16        `yaml:"base_address"`        // I/O base, 0x330 on most cards
	UseIRQ            bool          `yaml:"use_irq"`             // an interrupt line is wired
	PollInterval      time.Duration `yaml:"poll_interval"`       // interrupt emulation period, 0 disables it
	RenderStreams     int           `yaml:"render_streams"`      // render stream capacity
	CaptureBufferSize int           `yaml:"capture_buffer_size"` // capture ring size in bytes
	RetryDelay        time.Duration `yaml:"retry_delay"`         // drain retry timer
	PollTimeout       time.Duration `yaml:"poll_timeout"`        // command write / ACK wait limit
	ISRBudget         time.Duration `yaml:"isr_budget"`          // max time one ISR spends draining input
	UnresponsiveAfter int           `yaml:"unresponsive_after"`  // consecutive retries before flagging the FIFO
	PoolSize          int           `yaml:"pool_size"`           // events in the default allocator
	LogLevel          string        `yaml:"log_level"`           // info, debug, warn, error
	LogFile           string        `yaml:"log_file"`            // empty logs to the console
}

// HostConfig holds configuration for the host MIDI bridges.
type HostConfig struct {
	ClientName string // Name of the host MIDI client.
}

// ClientOptions defines the configuration options for a device and its bridges.
type ClientOptions struct {
	Logger          Logger           // Logger for logging events and errors.
	LogLevel        LogLevel         // Level of logging to use.
	LogFilePath     string           // File path for logging if file logging is enabled.
	Config          *Config          // Device configuration.
	Registers       any              // Register backend override (port.Registers or periph conn.Conn).
	Allocator       Allocator        // Event allocator, a bounded pool by default.
	Clock           Clock            // Engine clock, monotonic by default.
	MIDIEventFilter *MIDIEventFilter // Optional filter for forwarded host MIDI events.
	HostConfig      *HostConfig      // Configuration specific to the host bridges.
}

// Option is a function that modifies ClientOptions.
type Option func(*ClientOptions)

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(opts *ClientOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level.
func WithLogLevel(level LogLevel) Option {
	return func(opts *ClientOptions) {
		opts.LogLevel = level
	}
}

// WithLogFile directs logging to a file.
func WithLogFile(path string) Option {
	return func(opts *ClientOptions) {
		opts.LogFilePath = path
	}
}

// WithConfig sets the device configuration. Zero fields take defaults.
func WithConfig(cfg Config) Option {
	return func(opts *ClientOptions) {
		opts.Config = &cfg
	}
}

// WithRegisters supplies the register backend directly, bypassing Config.Backend.
// r must be a port.Registers or a periph.io conn.Conn.
func WithRegisters(r any) Option {
	return func(opts *ClientOptions) {
		opts.Registers = r
	}
}

// WithAllocator sets the event allocator.
func WithAllocator(a Allocator) Option {
	return func(opts *ClientOptions) {
		opts.Allocator = a
	}
}

// WithClock sets the engine clock.
func WithClock(c Clock) Option {
	return func(opts *ClientOptions) {
		opts.Clock = c
	}
}

// WithMIDIEventFilter sets the MIDI event filter for host bridges.
func WithMIDIEventFilter(filter MIDIEventFilter) Option {
	return func(opts *ClientOptions) {
		opts.MIDIEventFilter = &filter
	}
}

// WithHostConfig sets the host bridge configuration.
func WithHostConfig(config HostConfig) Option {
	return func(opts *ClientOptions) {
		opts.HostConfig = &config
	}
}
