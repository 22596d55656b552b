package main

import (
	"fmt"
	"os"
	"time"

	"github.com/leandrodaf/mpuart/internal/logger"
	"github.com/leandrodaf/mpuart/sdk/contracts"
	"github.com/leandrodaf/mpuart/sdk/mpu"
	"gitlab.com/gomidi/midi/v2"
)

// printSink logs every captured chain and hands the events back.
type printSink struct {
	log   contracts.Logger
	alloc contracts.Allocator
}

func (p *printSink) Deliver(evt *contracts.TimedEvent) error {
	for e := evt; e != nil; e = e.Next {
		p.log.Info("MIDI in",
			p.log.Field().Uint64("Timestamp", e.PresTime),
			p.log.Field().String("Message", midi.Message(e.Bytes()).String()))
	}
	p.alloc.Release(evt)
	return nil
}

func main() {
	log := logger.NewZapLogger()

	cfg := contracts.Config{Backend: mpu.BackendLoopback, PollInterval: time.Millisecond}
	if len(os.Args) > 1 {
		loaded, err := mpu.LoadConfig(os.Args[1])
		if err != nil {
			log.Error("Failed to load config", log.Field().Error("error", err))
			return
		}
		cfg = loaded
	}

	device, err := mpu.NewDevice(
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.InfoLevel),
		contracts.WithConfig(cfg),
	)
	if err != nil {
		log.Error("Failed to open MPU-401", log.Field().Error("error", err))
		return
	}
	defer device.Close()

	if !device.Ready() {
		log.Error("MPU-401 did not acknowledge reset")
		return
	}

	capture, err := device.NewStream(contracts.Capture)
	if err != nil {
		log.Error("Failed to open capture stream", log.Field().Error("error", err))
		return
	}
	defer capture.Close()

	capture.ConnectOutput(&printSink{log: log, alloc: device.Allocator()})
	capture.SetState(contracts.Run)

	render, err := device.NewStream(contracts.Render)
	if err != nil {
		log.Error("Failed to open render stream", log.Field().Error("error", err))
		return
	}
	defer render.Close()
	render.SetState(contracts.Run)

	for _, msg := range []midi.Message{midi.NoteOn(0, 60, 100), midi.NoteOff(0, 60)} {
		evt, err := device.Allocator().Acquire()
		if err != nil {
			log.Error("No event available", log.Field().Error("error", err))
			return
		}
		evt.SetData(msg)
		evt.PresTime = device.Clock().Now()
		if err := render.PutMessage(evt); err != nil {
			log.Error("PutMessage failed", log.Field().Error("error", err))
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	fmt.Printf("Stats: %+v\n", device.Stats())
}
