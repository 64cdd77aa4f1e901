//go:build !linux

package epd

import (
	"fmt"
	"time"
)

// SPIOpts mirrors the linux build so callers compile everywhere; opening
// the hardware transport only works on linux.
type SPIOpts struct {
	Port     string
	SpeedHz  int
	DCPin    int
	ResetPin int
	BusyPin  int
	PowerPin int
}

func DefaultSPIOpts() SPIOpts {
	return SPIOpts{SpeedHz: 4_000_000, DCPin: 25, ResetPin: 17, BusyPin: 24, PowerPin: 18}
}

// SPITransport is unavailable off linux; use NewVirtual instead. The
// methods exist so cross-platform callers still compile.
type SPITransport struct{}

func OpenSPI(SPIOpts) (*SPITransport, error) {
	return nil, fmt.Errorf("epd: SPI transport is only available on linux")
}

func (*SPITransport) WriteCommand(byte) error { return errUnsupported }
func (*SPITransport) WriteData([]byte) error  { return errUnsupported }
func (*SPITransport) SetReset(bool) error     { return errUnsupported }
func (*SPITransport) SetPower(bool) error     { return errUnsupported }
func (*SPITransport) ReadBusy() (bool, error) { return false, errUnsupported }
func (*SPITransport) Delay(time.Duration)     {}
func (*SPITransport) Close() error            { return nil }

var errUnsupported = fmt.Errorf("epd: SPI transport is only available on linux")

var _ Transport = (*SPITransport)(nil)
