package epd

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ColorMode selects how the panel buffer is interpreted. The mode is fixed
// for a drawing session; switching requires PowerOn with the new mode.
type ColorMode uint8

const (
	// Binary drives the panel as a 1-bit black/white surface.
	Binary ColorMode = iota
	// Gray2 drives the panel as a 2-bit 4-level grayscale surface.
	Gray2
)

func (m ColorMode) String() string {
	switch m {
	case Binary:
		return "binary"
	case Gray2:
		return "gray2"
	default:
		return fmt.Sprintf("ColorMode(%d)", uint8(m))
	}
}

// RefreshMode selects the waveform used by Display.
type RefreshMode uint8

const (
	// Full runs the complete waveform: higher latency, no ghosting.
	Full RefreshMode = iota
	// Fast runs the abbreviated waveform: lower latency, ghosting can
	// accumulate over repeated use.
	Fast
)

func (m RefreshMode) String() string {
	switch m {
	case Full:
		return "full"
	case Fast:
		return "fast"
	default:
		return fmt.Sprintf("RefreshMode(%d)", uint8(m))
	}
}

type panelState uint8

const (
	stateUninitialized panelState = iota
	stateAwake
	stateDrawing
	stateSleeping
)

func (s panelState) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateAwake:
		return "awake"
	case stateDrawing:
		return "drawing"
	case stateSleeping:
		return "sleeping"
	default:
		return fmt.Sprintf("panelState(%d)", uint8(s))
	}
}

// Opts configures a Panel. The zero value uses the vendor reference busy
// bounds and a no-op logger.
type Opts struct {
	// BusyTimeout bounds every busy-line wait. Defaults to
	// DefaultBusyTimeout.
	BusyTimeout time.Duration
	// PollInterval is the busy-line sampling step. Defaults to
	// DefaultPollInterval.
	PollInterval time.Duration
	// Logger receives diagnostics, including failures suppressed during
	// Close.
	Logger *zap.Logger
}

// Panel owns the transport and the active pixel buffer and sequences the
// init / draw / refresh / sleep protocol. It is not safe for concurrent
// use; the driver is single threaded by design.
type Panel struct {
	tr   Transport
	gate busyGate
	log  *zap.Logger

	state     panelState
	mode      ColorMode
	loadedLUT RefreshMode
	poweredAt time.Time

	// buf is the logical pixel plane for the active mode: 1bpp rows in
	// Binary, 2bpp rows in Gray2.
	buf []byte
}

// New wraps a transport. The panel starts uninitialized; call PowerOn
// before drawing. Callers should defer Close so the panel is never left
// powered: a panel held out of deep sleep degrades over time.
func New(tr Transport, opts *Opts) *Panel {
	if opts == nil {
		opts = &Opts{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Panel{
		tr:   tr,
		gate: newBusyGate(tr, opts.PollInterval, opts.BusyTimeout),
		log:  log,
	}
}

// run issues a command sequence, gating on the busy line where the sequence
// demands it.
func (p *Panel) run(seq []command) error {
	for _, c := range seq {
		if err := p.tr.WriteCommand(c.op); err != nil {
			return fmt.Errorf("epd: command %#02x: %w", c.op, err)
		}
		if len(c.data) > 0 {
			if err := p.tr.WriteData(c.data); err != nil {
				return fmt.Errorf("epd: command %#02x payload: %w", c.op, err)
			}
		}
		if c.settle > 0 {
			p.tr.Delay(c.settle)
		}
		if c.wait {
			if err := p.gate.waitReady(); err != nil {
				return err
			}
		}
	}
	return nil
}

// reset raises the power rail and pulses the reset line, then waits for the
// controller to come up.
func (p *Panel) reset() error {
	if err := p.tr.SetPower(true); err != nil {
		return fmt.Errorf("epd: power line: %w", err)
	}
	for _, level := range []bool{true, false, true} {
		if err := p.tr.SetReset(level); err != nil {
			return fmt.Errorf("epd: reset line: %w", err)
		}
		p.tr.Delay(200 * time.Microsecond)
	}
	return p.gate.waitReady()
}

// PowerOn brings the panel out of deep sleep (or cold start) and
// initializes it for the given color mode, loading the Full waveform as the
// session default. Calling it from Awake re-initializes the panel, which is
// also how the color mode is switched; the current image is carried over
// into the new mode's buffer.
func (p *Panel) PowerOn(mode ColorMode) error {
	if p.state == stateDrawing {
		return fmt.Errorf("%w: PowerOn during an active drawing session", ErrInvalidModeTransition)
	}

	if err := p.reset(); err != nil {
		return err
	}
	if err := p.run([]command{{op: swReset, wait: true}}); err != nil {
		return err
	}
	if mode == Gray2 {
		if err := p.run(grayInitSequence()); err != nil {
			return err
		}
	}
	if err := p.run(addressSequence()); err != nil {
		return err
	}
	if err := p.run(waveformSequence(lutFor(Full))); err != nil {
		return err
	}
	p.loadedLUT = Full

	p.prepareBuffer(mode)
	p.mode = mode
	p.state = stateAwake
	p.poweredAt = time.Now()
	p.log.Debug("panel powered on", zap.Stringer("mode", mode))
	return nil
}

// prepareBuffer allocates the logical plane for mode, converting the
// previous mode's content when switching so an image survives
// re-initialization.
func (p *Panel) prepareBuffer(mode ColorMode) {
	switch {
	case p.buf == nil:
		if mode == Binary {
			p.buf = newBinaryBuffer()
		} else {
			p.buf = newGrayBuffer()
		}
	case mode == p.mode:
		// Same mode: keep the buffer as is.
	case mode == Binary:
		nb := newBinaryBuffer()
		for y := 0; y < Height; y++ {
			for x := 0; x < Width; x++ {
				setBinary(nb, x, y, grayAt(p.buf, x, y) >= LightGray)
			}
		}
		p.buf = nb
	default: // Binary -> Gray2
		ng := newGrayBuffer()
		for y := 0; y < Height; y++ {
			for x := 0; x < Width; x++ {
				l := Black
				if binaryAt(p.buf, x, y) {
					l = White
				}
				setGray(ng, x, y, l)
			}
		}
		p.buf = ng
	}
}

// BeginBinary opens a 1-bit drawing session. The returned surface is valid
// until the next Display; only one session may be live at a time.
func (p *Panel) BeginBinary() (*BinarySurface, error) {
	if p.state != stateAwake || p.mode != Binary {
		return nil, fmt.Errorf("%w: BeginBinary in state %s mode %s", ErrInvalidModeTransition, p.state, p.mode)
	}
	p.state = stateDrawing
	return &BinarySurface{p: p}, nil
}

// BeginGray2 opens a 4-level drawing session. The returned surface is valid
// until the next Display; only one session may be live at a time.
func (p *Panel) BeginGray2() (*Gray2Surface, error) {
	if p.state != stateAwake || p.mode != Gray2 {
		return nil, fmt.Errorf("%w: BeginGray2 in state %s mode %s", ErrInvalidModeTransition, p.state, p.mode)
	}
	p.state = stateDrawing
	return &Gray2Surface{p: p}, nil
}

// Display commits the drawing session to the panel: reloads the waveform if
// the refresh mode changed, uploads the image planes to both controllers,
// triggers the refresh and waits for it to finish. The session ends whether
// or not the refresh succeeds.
func (p *Panel) Display(refresh RefreshMode) error {
	if p.state != stateDrawing {
		return fmt.Errorf("%w: Display in state %s", ErrInvalidModeTransition, p.state)
	}
	p.state = stateAwake

	if refresh != p.loadedLUT {
		if refresh == Fast {
			if err := p.run(fastInitSequence()); err != nil {
				return err
			}
		}
		if err := p.run(waveformSequence(lutFor(refresh))); err != nil {
			return err
		}
		p.loadedLUT = refresh
	}

	var bw, red []byte
	if p.mode == Binary {
		bw = p.buf
		red = make([]byte, rowBytesBinary*Height) // no second plane in 1-bit mode
	} else {
		bw, red = grayBitPlanes(p.buf)
	}
	bwM, bwS := binaryPlanes(bw)
	redM, redS := binaryPlanes(red)
	if err := p.run([]command{
		{op: writeRAMBWMaster, data: bwM},
		{op: writeRAMRedMaster, data: redM},
		{op: writeRAMBWSlave, data: bwS},
		{op: writeRAMRedSlave, data: redS},
	}); err != nil {
		return err
	}

	if err := p.run(refreshSequence(p.updateControl(refresh))); err != nil {
		return err
	}
	p.log.Debug("display refreshed", zap.Stringer("refresh", refresh), zap.Stringer("mode", p.mode))
	return nil
}

// updateControl picks the display-update control byte for the active color
// mode and refresh mode.
func (p *Panel) updateControl(refresh RefreshMode) byte {
	if p.mode == Gray2 {
		return updateGray
	}
	if refresh == Fast {
		return updateBinaryFast
	}
	return updateBinaryFull
}

// Sleep puts the controller into deep sleep and drops the power and reset
// lines. Waking requires PowerOn. Sleeping from within a drawing session is
// allowed and abandons the session.
func (p *Panel) Sleep() error {
	if p.state != stateAwake && p.state != stateDrawing {
		return fmt.Errorf("%w: Sleep in state %s", ErrInvalidModeTransition, p.state)
	}
	err := p.run(deepSleepSequence())
	if perr := p.tr.SetPower(false); perr != nil && err == nil {
		err = fmt.Errorf("epd: power line: %w", perr)
	}
	if rerr := p.tr.SetReset(false); rerr != nil && err == nil {
		err = fmt.Errorf("epd: reset line: %w", rerr)
	}
	p.state = stateSleeping
	return err
}

// Close guarantees deep-sleep entry if the panel is still awake. Failures
// are logged rather than returned: during cleanup there is no actionable
// recovery for the caller, and the panel must not be left powered.
func (p *Panel) Close() error {
	if p.state == stateAwake || p.state == stateDrawing {
		if err := p.Sleep(); err != nil {
			p.log.Warn("deep sleep on close failed", zap.Error(err))
		}
	}
	return nil
}

// AwakeFor reports how long the panel has been out of deep sleep. ok is
// false while sleeping or uninitialized.
func (p *Panel) AwakeFor() (d time.Duration, ok bool) {
	if p.state != stateAwake && p.state != stateDrawing {
		return 0, false
	}
	return time.Since(p.poweredAt), true
}
