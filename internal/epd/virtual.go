package epd

import (
	"time"

	"go.uber.org/zap"
)

// NewVirtual returns a Transport that logs traffic instead of touching
// hardware. The busy line always reads idle and delays are skipped, so a
// full daemon cycle runs in milliseconds. Useful for developing off the
// device and for --dry-run.
func NewVirtual(logger *zap.Logger) Transport {
	return &virtualTransport{l: logger}
}

type virtualTransport struct {
	l *zap.Logger
}

func (v *virtualTransport) WriteCommand(cmd byte) error {
	v.l.Debug("command", zap.Uint8("op", cmd))
	return nil
}

func (v *virtualTransport) WriteData(data []byte) error {
	v.l.Debug("data", zap.Int("len", len(data)))
	return nil
}

func (v *virtualTransport) SetReset(level bool) error {
	v.l.Debug("reset line", zap.Bool("level", level))
	return nil
}

func (v *virtualTransport) SetPower(level bool) error {
	v.l.Debug("power line", zap.Bool("level", level))
	return nil
}

func (v *virtualTransport) ReadBusy() (bool, error) { return false, nil }

func (v *virtualTransport) Delay(time.Duration) {}
