package epd

import "time"

// Controller opcodes. The panel carries two cascaded controllers; the slave
// mirrors the master's RAM and window registers at opcode+0x80.
const (
	gateDrivingVoltage     byte = 0x03
	sourceDrivingVoltage   byte = 0x04
	boosterSoftStart       byte = 0x0C
	deepSleepMode          byte = 0x10
	dataEntryModeSetting   byte = 0x11
	swReset                byte = 0x12
	tempSensorSelect       byte = 0x18
	tempSensorRegWrite     byte = 0x1A
	masterActivation       byte = 0x20
	displayUpdateControl2  byte = 0x22
	writeRAMBWMaster       byte = 0x24
	writeRAMRedMaster      byte = 0x26
	vcomRegisterWrite      byte = 0x2C
	writeLUTRegister       byte = 0x32
	borderWaveformControl  byte = 0x3C
	endOption              byte = 0x3F
	setRAMXWindowMaster    byte = 0x44
	setRAMYWindowMaster    byte = 0x45
	setRAMXCounterMaster   byte = 0x4E
	setRAMYCounterMaster   byte = 0x4F
	slaveRAMSelect         byte = 0x91
	writeRAMBWSlave        byte = 0xA4
	writeRAMRedSlave       byte = 0xA6
	setRAMXWindowSlave     byte = 0xC4
	setRAMYWindowSlave     byte = 0xC5
	setRAMXCounterSlave    byte = 0xCE
	setRAMYCounterSlave    byte = 0xCF
)

// Display-update control bytes for the refresh trigger.
const (
	updateBinaryFull byte = 0xF7
	updateBinaryFast byte = 0xC7
	updateGray       byte = 0xCF
)

// Payload written with deepSleepMode to enter the lowest-power state.
const deepSleepEnter byte = 0x03

// settleDelay is inserted between the refresh trigger and the first busy
// sample; the controller needs a moment to assert the line.
const settleDelay = 200 * time.Microsecond

// command is one logical controller operation: an opcode, its payload, and
// whether the controller performs internal work afterwards that must be
// gated on the busy line before the next command.
type command struct {
	op     byte
	data   []byte
	wait   bool
	settle time.Duration
}

// addressSequence programs data entry mode, the RAM windows and the RAM
// counters for both controllers. The byte values encode the fixed 792x272
// geometry (0x31 = 49 = last window byte column, 0x010F = 271 = last row)
// and must be reproduced exactly.
func addressSequence() []command {
	return []command{
		{op: dataEntryModeSetting, data: []byte{0x01}},

		{op: setRAMXWindowMaster, data: []byte{0x00, 0x31}},
		{op: setRAMYWindowMaster, data: []byte{0x0F, 0x01, 0x00, 0x00}},
		{op: setRAMXCounterMaster, data: []byte{0x00}},
		{op: setRAMYCounterMaster, data: []byte{0x0F, 0x01}},

		{op: slaveRAMSelect, data: []byte{0x00}},
		{op: setRAMXWindowSlave, data: []byte{0x31, 0x00}},
		{op: setRAMYWindowSlave, data: []byte{0x0F, 0x01, 0x00, 0x00}},
		{op: setRAMXCounterSlave, data: []byte{0x31}},
		{op: setRAMYCounterSlave, data: []byte{0x0F, 0x01}},
	}
}

// grayInitSequence holds the extra register setup the 4-level mode needs
// before address programming.
func grayInitSequence() []command {
	return []command{
		{op: boosterSoftStart, data: []byte{0x8B, 0x9C, 0xA6, 0x0F}},
		{op: borderWaveformControl, data: []byte{0x81}},
	}
}

// fastInitSequence runs the temperature-register trick that selects the
// reduced waveform timing: load the sensor, overwrite the temperature
// register, and reload. Both loads trigger controller work.
func fastInitSequence() []command {
	return []command{
		{op: tempSensorSelect, data: []byte{0x80}},
		{op: displayUpdateControl2, data: []byte{0xB1}},
		{op: masterActivation, wait: true},
		{op: tempSensorRegWrite, data: []byte{0x64, 0x00}},
		{op: displayUpdateControl2, data: []byte{0x91}},
		{op: masterActivation, wait: true},
	}
}

// waveformSequence loads a LUT and the voltage/VCOM registers that
// accompany it. The LUT write triggers controller-internal processing and
// is gated before the registers are touched.
func waveformSequence(lut []byte) []command {
	return []command{
		{op: writeLUTRegister, data: lut, wait: true},
		{op: endOption, data: []byte{0x22}},
		{op: gateDrivingVoltage, data: []byte{0x17}},
		{op: sourceDrivingVoltage, data: []byte{0x41, 0xA8, 0x32}},
		{op: vcomRegisterWrite, data: []byte{0x40}},
	}
}

// refreshSequence triggers the display update with the given control byte
// and gates on the busy line after a short settle.
func refreshSequence(ctl byte) []command {
	return []command{
		{op: displayUpdateControl2, data: []byte{ctl}},
		{op: masterActivation, wait: true, settle: settleDelay},
	}
}

func deepSleepSequence() []command {
	return []command{
		{op: deepSleepMode, data: []byte{deepSleepEnter}, wait: true},
	}
}
