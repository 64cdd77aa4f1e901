// Package epd drives the 5.79" dual-controller e-paper panel (792x272) over
// SPI plus discrete reset, data/command, power and busy GPIO lines.
//
// The package separates the panel protocol (command sequences, waveform
// tables, busy gating, buffer packing) from the byte transport, so the same
// driver runs against real hardware (OpenSPI), a no-op virtual device
// (NewVirtual) or a recording test double.
package epd

import (
	"fmt"
	"time"
)

// Transport is the capability set the driver needs from the wiring layer.
// WriteCommand and WriteData are expected to drive the data/command select
// line themselves (low for command bytes, high for data bytes).
type Transport interface {
	// WriteCommand transmits a single command byte.
	WriteCommand(cmd byte) error
	// WriteData transmits payload bytes following a command.
	WriteData(data []byte) error
	// SetReset drives the panel reset line. true = line high.
	SetReset(level bool) error
	// SetPower drives the panel power rail. true = powered.
	SetPower(level bool) error
	// ReadBusy samples the busy line. true means the controller is still
	// processing and must not receive further commands.
	ReadBusy() (bool, error)
	// Delay blocks for the given duration.
	Delay(d time.Duration)
}

// Busy-gate defaults. The poll step and bound follow the vendor reference
// sequence for this controller (200us step, 5s ceiling).
const (
	DefaultPollInterval = 200 * time.Microsecond
	DefaultBusyTimeout  = 5 * time.Second
)

// busyGate polls the busy line after commands that trigger internal
// controller activity. Issuing commands while the line is asserted corrupts
// controller state, so every such command is followed by waitReady.
type busyGate struct {
	tr      Transport
	poll    time.Duration
	timeout time.Duration
}

func newBusyGate(tr Transport, poll, timeout time.Duration) busyGate {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultBusyTimeout
	}
	return busyGate{tr: tr, poll: poll, timeout: timeout}
}

// waitReady blocks until the busy line reports idle or the bound elapses.
// Only the check is retried; the command that started the wait is never
// reissued.
func (g busyGate) waitReady() error {
	start := time.Now()
	busy, err := g.tr.ReadBusy()
	if err != nil {
		return fmt.Errorf("epd: busy line read failed: %w", err)
	}
	if !busy {
		return nil
	}
	for time.Since(start) < g.timeout {
		g.tr.Delay(g.poll)
		busy, err = g.tr.ReadBusy()
		if err != nil {
			return fmt.Errorf("epd: busy line read failed: %w", err)
		}
		if !busy {
			return nil
		}
	}
	return fmt.Errorf("%w after %s (limit %s)", ErrBusyTimeout, time.Since(start).Round(time.Millisecond), g.timeout)
}
