//go:build linux

package epd

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// SPIOpts wires the transport to a SPI port and the four control lines.
// Pin numbers are BCM GPIO numbers.
type SPIOpts struct {
	// Port is the spireg port name, e.g. "SPI0.0". Empty selects the
	// first available port.
	Port string
	// SpeedHz is the SPI clock. Defaults to 4 MHz.
	SpeedHz int
	// Control lines.
	DCPin    int
	ResetPin int
	BusyPin  int
	PowerPin int
}

// DefaultSPIOpts matches the vendor HAT wiring for this panel.
func DefaultSPIOpts() SPIOpts {
	return SPIOpts{
		Port:     "",
		SpeedHz:  4_000_000,
		DCPin:    25,
		ResetPin: 17,
		BusyPin:  24,
		PowerPin: 18,
	}
}

// SPITransport is the periph.io-backed Transport for real hardware. The
// chip-select line is handled by the SPI kernel driver.
type SPITransport struct {
	port spi.PortCloser
	conn spi.Conn

	dc   gpio.PinOut
	rst  gpio.PinOut
	pwr  gpio.PinOut
	busy gpio.PinIn
}

// OpenSPI initializes the periph host, opens the SPI port and claims the
// GPIO control lines.
func OpenSPI(opts SPIOpts) (*SPITransport, error) {
	if opts.SpeedHz <= 0 {
		opts.SpeedHz = 4_000_000
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("epd: periph host init failed: %w", err)
	}

	port, err := spireg.Open(opts.Port)
	if err != nil {
		return nil, fmt.Errorf("epd: failed to open SPI port %q: %w", opts.Port, err)
	}
	conn, err := port.Connect(physic.Frequency(opts.SpeedHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("epd: failed to connect SPI: %w", err)
	}

	gpioOut := func(num int, initial gpio.Level) (gpio.PinOut, error) {
		name := fmt.Sprintf("GPIO%d", num)
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("epd: gpio %s not found", name)
		}
		if err := p.Out(initial); err != nil {
			return nil, fmt.Errorf("epd: gpio %s: %w", name, err)
		}
		return p, nil
	}

	t := &SPITransport{port: port, conn: conn}
	if t.dc, err = gpioOut(opts.DCPin, gpio.Low); err != nil {
		_ = port.Close()
		return nil, err
	}
	if t.rst, err = gpioOut(opts.ResetPin, gpio.Low); err != nil {
		_ = port.Close()
		return nil, err
	}
	if t.pwr, err = gpioOut(opts.PowerPin, gpio.Low); err != nil {
		_ = port.Close()
		return nil, err
	}

	busyName := fmt.Sprintf("GPIO%d", opts.BusyPin)
	busy := gpioreg.ByName(busyName)
	if busy == nil {
		_ = port.Close()
		return nil, fmt.Errorf("epd: gpio %s not found", busyName)
	}
	if err := busy.In(gpio.Float, gpio.NoEdge); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("epd: gpio %s: %w", busyName, err)
	}
	t.busy = busy

	return t, nil
}

// spiChunk bounds a single spidev transfer.
const spiChunk = 4096

func (t *SPITransport) WriteCommand(cmd byte) error {
	if err := t.dc.Out(gpio.Low); err != nil {
		return err
	}
	return t.conn.Tx([]byte{cmd}, nil)
}

func (t *SPITransport) WriteData(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := t.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(data) > 0 {
		n := len(data)
		if n > spiChunk {
			n = spiChunk
		}
		if err := t.conn.Tx(data[:n], nil); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func (t *SPITransport) SetReset(level bool) error {
	return t.rst.Out(gpio.Level(level))
}

func (t *SPITransport) SetPower(level bool) error {
	return t.pwr.Out(gpio.Level(level))
}

func (t *SPITransport) ReadBusy() (bool, error) {
	return t.busy.Read() == gpio.High, nil
}

func (t *SPITransport) Delay(d time.Duration) {
	time.Sleep(d)
}

// Close releases the SPI port. It does not touch the control lines; callers
// should have put the panel to sleep first.
func (t *SPITransport) Close() error {
	return t.port.Close()
}

var _ Transport = (*SPITransport)(nil)
