package mpu

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/leandrodaf/mpuart/internal/logger"
	"github.com/leandrodaf/mpuart/internal/port"
	"github.com/leandrodaf/mpuart/sdk/contracts"
	"gitlab.com/gomidi/midi/v2"
)

type bufferSink struct {
	mu    sync.Mutex
	alloc contracts.Allocator
	data  []byte
}

func (s *bufferSink) Deliver(evt *contracts.TimedEvent) error {
	s.mu.Lock()
	for e := evt; e != nil; e = e.Next {
		s.data = append(s.data, e.Bytes()...)
	}
	s.mu.Unlock()
	s.alloc.Release(evt)
	return nil
}

func (s *bufferSink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...)
}

func testOptions(cfg contracts.Config, opts ...contracts.Option) []contracts.Option {
	if cfg.PollTimeout == 0 {
		cfg.PollTimeout = 5 * time.Millisecond
	}
	return append([]contracts.Option{
		contracts.WithLogger(logger.NewNopLogger()),
		contracts.WithConfig(cfg),
	}, opts...)
}

func newEvent(t *testing.T, dev contracts.Device, data []byte) *contracts.TimedEvent {
	t.Helper()

	evt, err := dev.Allocator().Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	evt.SetData(data)
	evt.PresTime = dev.Clock().Now()
	return evt
}

func TestNewDevice_RendersToRegisters(t *testing.T) {
	sim := port.NewSimDevice()
	dev, err := NewDevice(testOptions(contracts.Config{}, contracts.WithRegisters(sim))...)
	if err != nil {
		t.Fatalf("NewDevice failed: %v", err)
	}
	defer dev.Close()

	if !dev.Ready() {
		t.Fatal("device not ready")
	}

	s, err := dev.NewStream(contracts.Render)
	if err != nil {
		t.Fatalf("NewStream failed: %v", err)
	}
	defer s.Close()

	if err := s.SetState(contracts.Run); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}
	note := midi.NoteOn(0, 64, 127)
	if err := s.PutMessage(newEvent(t, dev, note)); err != nil {
		t.Fatalf("PutMessage failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !bytes.Equal(sim.Output(), note) {
		if time.Now().After(deadline) {
			t.Fatalf("output = % X, want % X", sim.Output(), []byte(note))
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNewDevice_LoopbackWithPolling(t *testing.T) {
	dev, err := NewDevice(testOptions(contracts.Config{
		Backend:      BackendLoopback,
		PollInterval: time.Millisecond,
	})...)
	if err != nil {
		t.Fatalf("NewDevice failed: %v", err)
	}
	defer dev.Close()

	capture, err := dev.NewStream(contracts.Capture)
	if err != nil {
		t.Fatalf("NewStream(capture) failed: %v", err)
	}
	defer capture.Close()

	sink := &bufferSink{alloc: dev.Allocator()}
	if err := capture.ConnectOutput(sink); err != nil {
		t.Fatalf("ConnectOutput failed: %v", err)
	}
	if err := capture.SetState(contracts.Run); err != nil {
		t.Fatalf("SetState(capture) failed: %v", err)
	}

	render, err := dev.NewStream(contracts.Render)
	if err != nil {
		t.Fatalf("NewStream(render) failed: %v", err)
	}
	defer render.Close()

	var want []byte
	for _, msg := range []midi.Message{midi.NoteOn(2, 60, 90), midi.NoteOff(2, 60)} {
		want = append(want, msg...)
		if err := render.PutMessage(newEvent(t, dev, msg)); err != nil {
			t.Fatalf("PutMessage failed: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for !bytes.Equal(sink.Bytes(), want) {
		if time.Now().After(deadline) {
			t.Fatalf("captured = % X, want % X", sink.Bytes(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNewDevice_UnsupportedBackend(t *testing.T) {
	tests := []struct {
		name string
		opts []contracts.Option
	}{
		{"unknown name", testOptions(contracts.Config{Backend: "gameport"})},
		{"unknown register type", testOptions(contracts.Config{}, contracts.WithRegisters(42))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDevice(tt.opts...); !errors.Is(err, contracts.ErrUnsupportedBackend) {
				t.Errorf("NewDevice: got %v, want ErrUnsupportedBackend", err)
			}
		})
	}
}

func TestNewDevice_NotReadyUntilPowerUp(t *testing.T) {
	sim := port.NewSimDevice()
	sim.SetMute(true)

	dev, err := NewDevice(testOptions(contracts.Config{}, contracts.WithRegisters(sim))...)
	if err != nil {
		t.Fatalf("NewDevice failed: %v", err)
	}
	defer dev.Close()

	if dev.Ready() {
		t.Fatal("muted device reported ready")
	}
	if _, err := dev.NewStream(contracts.Render); !errors.Is(err, contracts.ErrInvalidState) {
		t.Errorf("NewStream: got %v, want ErrInvalidState", err)
	}

	sim.SetMute(false)
	dev.PowerChangeNotify(contracts.PowerD0)
	if !dev.Ready() {
		t.Error("device not ready after power-up")
	}
}

func TestDevice_CloseTwice(t *testing.T) {
	dev, err := NewDevice(testOptions(contracts.Config{PollInterval: time.Millisecond})...)
	if err != nil {
		t.Fatalf("NewDevice failed: %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mpu.yaml")
	yaml := `backend: loopback
base_address: 0x330
use_irq: false
poll_interval: 2ms
render_streams: 3
retry_delay: 1ms
unresponsive_after: 500
pool_size: 64
log_level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	want := contracts.Config{
		Backend:           BackendLoopback,
		BaseAddress:       0x330,
		PollInterval:      2 * time.Millisecond,
		RenderStreams:     3,
		RetryDelay:        time.Millisecond,
		UnresponsiveAfter: 500,
		PoolSize:          64,
		LogLevel:          "debug",
	}
	if cfg != want {
		t.Errorf("LoadConfig = %+v, want %+v", cfg, want)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig of a missing file succeeded")
	}
}

func TestNewHostBridge_UnsupportedOS(t *testing.T) {
	if _, ok := bridgeInitializers[runtime.GOOS]; ok {
		t.Skipf("host bridge available on %s", runtime.GOOS)
	}
	if _, err := NewHostBridge(contracts.WithLogger(logger.NewNopLogger())); !errors.Is(err, contracts.ErrUnsupportedOS) {
		t.Errorf("NewHostBridge: got %v, want ErrUnsupportedOS", err)
	}
}
