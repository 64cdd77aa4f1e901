package epd

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// recordTransport captures every transport interaction in order so tests
// can assert on the exact command stream.
type recordTransport struct {
	ops       []byte         // command opcodes in issue order
	payloads  map[int][]byte // index into ops -> payload of that command
	lines     []string       // "reset:high", "power:low", ...
	events    []string       // interleaved "cmd:XX" and "busy" in issue order
	busyReads int
	busy      func() bool // nil means always idle
	writeErr  error
}

func newRecordTransport() *recordTransport {
	return &recordTransport{payloads: map[int][]byte{}}
}

func (r *recordTransport) WriteCommand(cmd byte) error {
	if r.writeErr != nil {
		return r.writeErr
	}
	r.ops = append(r.ops, cmd)
	r.events = append(r.events, fmt.Sprintf("cmd:%02x", cmd))
	return nil
}

func (r *recordTransport) WriteData(data []byte) error {
	if r.writeErr != nil {
		return r.writeErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	r.payloads[len(r.ops)-1] = cp
	return nil
}

func (r *recordTransport) SetReset(level bool) error {
	r.lines = append(r.lines, "reset:"+lvl(level))
	return nil
}

func (r *recordTransport) SetPower(level bool) error {
	r.lines = append(r.lines, "power:"+lvl(level))
	return nil
}

func (r *recordTransport) ReadBusy() (bool, error) {
	r.busyReads++
	r.events = append(r.events, "busy")
	if r.busy != nil {
		return r.busy(), nil
	}
	return false, nil
}

func (r *recordTransport) Delay(time.Duration) {}

func lvl(level bool) string {
	if level {
		return "high"
	}
	return "low"
}

// count returns how many times op was issued.
func (r *recordTransport) count(op byte) int {
	n := 0
	for _, o := range r.ops {
		if o == op {
			n++
		}
	}
	return n
}

// lastPayload returns the payload of the most recent occurrence of op.
func (r *recordTransport) lastPayload(op byte) []byte {
	for i := len(r.ops) - 1; i >= 0; i-- {
		if r.ops[i] == op {
			return r.payloads[i]
		}
	}
	return nil
}

// assertGated checks that every occurrence of op in the event stream is
// followed by a busy read before any further command is issued.
func assertGated(t *testing.T, tr *recordTransport, op byte) {
	t.Helper()
	want := fmt.Sprintf("cmd:%02x", op)
	seen := false
	for i, ev := range tr.events {
		if ev != want {
			continue
		}
		seen = true
		require.Less(t, i+1, len(tr.events), "%s must not be the final event", want)
		assert.Equal(t, "busy", tr.events[i+1], "%s must be gated before the next command", want)
	}
	require.True(t, seen, "expected %s in the event stream", want)
}

func newTestPanel(t *testing.T) *Panel {
	t.Helper()
	return newTestPanelWith(t, newRecordTransport())
}

func newTestPanelWith(t *testing.T, tr Transport) *Panel {
	t.Helper()
	return New(tr, &Opts{Logger: zaptest.NewLogger(t)})
}

func TestRejectedTransitionsSendNoCommands(t *testing.T) {
	tr := newRecordTransport()
	p := newTestPanelWith(t, tr)

	_, err := p.BeginBinary()
	assert.ErrorIs(t, err, ErrInvalidModeTransition)
	_, err = p.BeginGray2()
	assert.ErrorIs(t, err, ErrInvalidModeTransition)
	assert.ErrorIs(t, p.Display(Full), ErrInvalidModeTransition)
	assert.ErrorIs(t, p.Sleep(), ErrInvalidModeTransition)

	assert.Empty(t, tr.ops, "rejected transitions must not reach the transport")
	assert.Empty(t, tr.lines)
}

func TestPowerOnBinarySequence(t *testing.T) {
	tr := newRecordTransport()
	p := newTestPanelWith(t, tr)

	require.NoError(t, p.PowerOn(Binary))

	// Power rail up, reset pulse high-low-high.
	assert.Equal(t, []string{"power:high", "reset:high", "reset:low", "reset:high"}, tr.lines)

	want := []byte{
		swReset,
		dataEntryModeSetting,
		setRAMXWindowMaster, setRAMYWindowMaster, setRAMXCounterMaster, setRAMYCounterMaster,
		slaveRAMSelect,
		setRAMXWindowSlave, setRAMYWindowSlave, setRAMXCounterSlave, setRAMYCounterSlave,
		writeLUTRegister, endOption, gateDrivingVoltage, sourceDrivingVoltage, vcomRegisterWrite,
	}
	assert.Equal(t, want, tr.ops)

	// Window registers carry the 792x272 geometry.
	assert.Equal(t, []byte{0x00, 0x31}, tr.lastPayload(setRAMXWindowMaster))
	assert.Equal(t, []byte{0x0F, 0x01, 0x00, 0x00}, tr.lastPayload(setRAMYWindowMaster))
	assert.Equal(t, []byte{0x31, 0x00}, tr.lastPayload(setRAMXWindowSlave))

	// Default session waveform is the full-refresh table.
	assert.Equal(t, lutFull[:], tr.lastPayload(writeLUTRegister))

	// Reset, software reset and the LUT load are all gated.
	assert.GreaterOrEqual(t, tr.busyReads, 3)
	assertGated(t, tr, swReset)
	assertGated(t, tr, writeLUTRegister)
}

func TestPowerOnGray2AddsBoosterAndBorder(t *testing.T) {
	tr := newRecordTransport()
	p := newTestPanelWith(t, tr)

	require.NoError(t, p.PowerOn(Gray2))
	assert.Equal(t, 1, tr.count(boosterSoftStart))
	assert.Equal(t, []byte{0x8B, 0x9C, 0xA6, 0x0F}, tr.lastPayload(boosterSoftStart))
	assert.Equal(t, []byte{0x81}, tr.lastPayload(borderWaveformControl))
}

func TestDisplayFullSequence(t *testing.T) {
	tr := newRecordTransport()
	p := newTestPanelWith(t, tr)
	require.NoError(t, p.PowerOn(Binary))

	s, err := p.BeginBinary()
	require.NoError(t, err)
	s.Clear(image1bit.On)
	s.SetPixel(0, 0, image1bit.Off)

	mark := len(tr.ops)
	require.NoError(t, p.Display(Full))

	// Full is already loaded at PowerOn, so no LUT reload: straight to the
	// four RAM uploads, then the gated refresh trigger.
	assert.Equal(t, []byte{
		writeRAMBWMaster, writeRAMRedMaster, writeRAMBWSlave, writeRAMRedSlave,
		displayUpdateControl2, masterActivation,
	}, tr.ops[mark:])

	assert.Equal(t, []byte{updateBinaryFull}, tr.lastPayload(displayUpdateControl2))
	assert.Len(t, tr.lastPayload(writeRAMBWMaster), planeSize)
	assert.Len(t, tr.lastPayload(writeRAMBWSlave), planeSize)
	assert.Equal(t, byte(0x7F), tr.lastPayload(writeRAMBWMaster)[0])

	// Binary mode zeroes the red planes.
	for _, b := range tr.lastPayload(writeRAMRedMaster) {
		require.Equal(t, byte(0x00), b)
	}
}

func TestRefreshModeSwitchReloadsLUT(t *testing.T) {
	tr := newRecordTransport()
	p := newTestPanelWith(t, tr)
	require.NoError(t, p.PowerOn(Binary))

	s, err := p.BeginBinary()
	require.NoError(t, err)
	s.Clear(image1bit.On)
	require.NoError(t, p.Display(Full))

	// Switching to Fast must run the temperature-register setup and load
	// the fast table before the refresh trigger.
	_, err = p.BeginBinary()
	require.NoError(t, err)
	mark := len(tr.ops)
	require.NoError(t, p.Display(Fast))

	seq := tr.ops[mark:]
	lutIdx, trigIdx := -1, -1
	for i, op := range seq {
		if op == writeLUTRegister {
			lutIdx = i
		}
		if op == masterActivation {
			trigIdx = i // last activation is the refresh trigger
		}
	}
	require.NotEqual(t, -1, lutIdx, "LUT must be reloaded when the refresh mode changes")
	assert.Less(t, lutIdx, trigIdx, "LUT load must precede the refresh trigger")
	assertGated(t, tr, writeLUTRegister)
	assert.Equal(t, lutFast[:], tr.lastPayload(writeLUTRegister))
	assert.Equal(t, 1, tr.count(tempSensorRegWrite))
	assert.Equal(t, []byte{updateBinaryFast}, tr.lastPayload(displayUpdateControl2))

	// Same mode again: no further LUT traffic.
	_, err = p.BeginBinary()
	require.NoError(t, err)
	luts := tr.count(writeLUTRegister)
	require.NoError(t, p.Display(Fast))
	assert.Equal(t, luts, tr.count(writeLUTRegister))
}

func TestGray2DisplayControlByte(t *testing.T) {
	tr := newRecordTransport()
	p := newTestPanelWith(t, tr)
	require.NoError(t, p.PowerOn(Gray2))

	s, err := p.BeginGray2()
	require.NoError(t, err)
	s.Clear(White)
	s.SetPixel(4, 0, DarkGray)
	require.NoError(t, p.Display(Full))

	assert.Equal(t, []byte{updateGray}, tr.lastPayload(displayUpdateControl2))
	// DarkGray clears the red-plane bit but keeps the BW bit.
	assert.Equal(t, byte(0xFF), tr.lastPayload(writeRAMBWMaster)[0])
	assert.Equal(t, byte(0xF7), tr.lastPayload(writeRAMRedMaster)[0])
}

func TestBeginRequiresMatchingMode(t *testing.T) {
	p := newTestPanel(t)
	require.NoError(t, p.PowerOn(Binary))

	_, err := p.BeginGray2()
	assert.ErrorIs(t, err, ErrInvalidModeTransition)

	// Re-initializing with the other mode makes it valid.
	require.NoError(t, p.PowerOn(Gray2))
	_, err = p.BeginGray2()
	assert.NoError(t, err)
}

func TestModeSwitchMigratesBuffer(t *testing.T) {
	p := newTestPanel(t)
	require.NoError(t, p.PowerOn(Binary))

	s, err := p.BeginBinary()
	require.NoError(t, err)
	s.Clear(image1bit.On)
	s.SetPixel(12, 34, image1bit.Off)
	require.NoError(t, p.Display(Full))

	require.NoError(t, p.PowerOn(Gray2))
	g, err := p.BeginGray2()
	require.NoError(t, err)
	assert.Equal(t, Black, g.LevelAt(12, 34))
	assert.Equal(t, White, g.LevelAt(0, 0))

	// And back: dark levels collapse to black, light ones to white.
	g.SetPixel(100, 100, DarkGray)
	g.SetPixel(101, 100, LightGray)
	require.NoError(t, p.Display(Full))
	require.NoError(t, p.PowerOn(Binary))
	b, err := p.BeginBinary()
	require.NoError(t, err)
	assert.Equal(t, image1bit.Off, b.BitAt(100, 100))
	assert.Equal(t, image1bit.On, b.BitAt(101, 100))
}

func TestCloseEntersDeepSleepExactlyOnce(t *testing.T) {
	tr := newRecordTransport()
	p := newTestPanelWith(t, tr)
	require.NoError(t, p.PowerOn(Binary))

	require.NoError(t, p.Close())
	assert.Equal(t, 1, tr.count(deepSleepMode))
	assert.Equal(t, []byte{deepSleepEnter}, tr.lastPayload(deepSleepMode))
	assert.Equal(t, "power:low", tr.lines[len(tr.lines)-2])
	assert.Equal(t, "reset:low", tr.lines[len(tr.lines)-1])

	// Close is idempotent once sleeping.
	require.NoError(t, p.Close())
	assert.Equal(t, 1, tr.count(deepSleepMode))
}

func TestCloseDuringDrawingSession(t *testing.T) {
	tr := newRecordTransport()
	p := newTestPanelWith(t, tr)
	require.NoError(t, p.PowerOn(Binary))
	_, err := p.BeginBinary()
	require.NoError(t, err)

	require.NoError(t, p.Close())
	assert.Equal(t, 1, tr.count(deepSleepMode))
}

func TestBusyTimeout(t *testing.T) {
	tr := newRecordTransport()
	tr.busy = func() bool { return true }
	p := New(tr, &Opts{
		BusyTimeout:  2 * time.Millisecond,
		PollInterval: 100 * time.Microsecond,
		Logger:       zaptest.NewLogger(t),
	})

	err := p.PowerOn(Binary)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBusyTimeout)
}

func TestTransportErrorSurfaces(t *testing.T) {
	tr := newRecordTransport()
	p := newTestPanelWith(t, tr)
	require.NoError(t, p.PowerOn(Binary))
	_, err := p.BeginBinary()
	require.NoError(t, err)

	sentinel := errors.New("spi wedged")
	tr.writeErr = sentinel
	err = p.Display(Full)
	assert.ErrorIs(t, err, sentinel)
}

func TestSleepWakeCycle(t *testing.T) {
	p := newTestPanel(t)
	require.NoError(t, p.PowerOn(Binary))
	require.NoError(t, p.Sleep())

	// Everything but PowerOn is rejected while sleeping.
	_, err := p.BeginBinary()
	assert.ErrorIs(t, err, ErrInvalidModeTransition)
	assert.ErrorIs(t, p.Sleep(), ErrInvalidModeTransition)

	require.NoError(t, p.PowerOn(Binary))
	_, err = p.BeginBinary()
	assert.NoError(t, err)
}

func TestAwakeFor(t *testing.T) {
	p := newTestPanel(t)
	_, ok := p.AwakeFor()
	assert.False(t, ok)

	require.NoError(t, p.PowerOn(Binary))
	_, ok = p.AwakeFor()
	assert.True(t, ok)

	require.NoError(t, p.Sleep())
	_, ok = p.AwakeFor()
	assert.False(t, ok)
}
