package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leandrodaf/mpuart/sdk/contracts"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_FieldsReachCore(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core)

	log.Warn("capture overflow",
		log.Field().String("stream", "abc"),
		log.Field().Uint64("dropped", 3),
		log.Field().Hex("bytes", []byte{0x90, 0x40}),
		log.Field().Error("error", errors.New("boom")),
	)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["stream"] != "abc" {
		t.Errorf("stream = %v, want abc", ctx["stream"])
	}
	if ctx["dropped"] != uint64(3) {
		t.Errorf("dropped = %v, want 3", ctx["dropped"])
	}
	if ctx["bytes"] != "9040" {
		t.Errorf("bytes = %v, want 9040", ctx["bytes"])
	}
	if ctx["error"] != "boom" {
		t.Errorf("error = %v, want boom", ctx["error"])
	}
}

func TestZapLogger_SetLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core)

	log.SetLevel(contracts.WarnLevel)
	log.Debug("dropped")
	log.Info("dropped")
	log.Warn("kept")
	log.Error("kept")

	if got := logs.Len(); got != 2 {
		t.Fatalf("got %d entries, want 2", got)
	}

	log.SetLevel(contracts.DebugLevel)
	log.Debug("kept")
	if got := logs.Len(); got != 3 {
		t.Errorf("got %d entries after lowering level, want 3", got)
	}
}

func TestZapLogger_FileDestination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mpu.log")

	log := NewZapLogger()
	log.SetDestination(contracts.FileLog, path)
	log.Info("hardware ready", log.Field().String("port", "330"))
	if err := log.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "hardware ready") {
		t.Errorf("log file does not contain message: %q", data)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want contracts.LogLevel
	}{
		{"debug", contracts.DebugLevel},
		{"warn", contracts.WarnLevel},
		{"error", contracts.ErrorLevel},
		{"", contracts.InfoLevel},
		{"bogus", contracts.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
