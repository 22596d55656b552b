package uart

import (
	"time"

	"github.com/leandrodaf/mpuart/internal/port"
	"github.com/leandrodaf/mpuart/sdk/contracts"
)

// serviceInterrupt is the interrupt service routine. It runs with the
// interrupt sync held, drains the input FIFO into the capture ring for at
// most the ISR budget and schedules inbound assembly when it stored bytes.
// Bytes read while no capture stream runs are discarded so the line clears.
func (h *Hardware) serviceInterrupt() bool {
	status, err := h.xport.status()
	if err != nil || !port.InputAvailable(status) {
		return false
	}

	var stored, overflow int
	start := time.Now()
	for port.InputAvailable(status) && time.Since(start) < h.cfg.ISRBudget {
		b, err := h.regs.ReadRegister(port.Data)
		if err != nil {
			break
		}

		if h.captureState == contracts.Run && h.numCapture.Load() > 0 {
			if h.input.full() {
				overflow++
			} else {
				if h.inputTimeStamp == 0 {
					h.inputTimeStamp = h.clock.Now()
				}
				h.input.put(b)
				stored++
			}
		}

		if status, err = h.xport.status(); err != nil {
			break
		}
	}

	h.interrupts.Add(1)
	if overflow > 0 {
		h.overflows.Add(uint64(overflow))
		h.log.Warn("capture buffer overflow",
			h.log.Field().String("device", h.String()),
			h.log.Field().Int("dropped", overflow))
	}
	if stored > 0 {
		h.service.Notify()
	}
	return true
}
