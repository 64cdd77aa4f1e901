package epd

// Waveform tables for the panel controller. Each RefreshMode binds to
// exactly one table; lutFor is total over the RefreshMode values.
//
// The full table is the vendor reference waveform for this panel model. The
// fast table keeps the same phase structure with the long drive phases
// removed, trading ghosting for latency. Neither table is derivable from
// first principles; treat the bytes as opaque vendor data.

// lutFull: complete waveform. Eliminates residual image artifacts.
var lutFull = [227]byte{
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,

	0x01, 0x4A, 0x00, 0x00, 0x00, 0x01, 0x00,
	0x01, 0x82, 0x42, 0x00, 0x00, 0x10, 0x00,
	0x01, 0x8A, 0x00, 0x00, 0x00, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,

	0x01, 0x41, 0x00, 0x00, 0x00, 0x01, 0x00,
	0x01, 0x82, 0x42, 0x00, 0x00, 0x10, 0x00,
	0x01, 0x81, 0x00, 0x00, 0x00, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,

	0x01, 0x81, 0x00, 0x00, 0x00, 0x01, 0x00,
	0x01, 0x82, 0x42, 0x00, 0x00, 0x10, 0x00,
	0x01, 0x41, 0x00, 0x00, 0x00, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,

	0x01, 0x8A, 0x00, 0x00, 0x00, 0x01, 0x00,
	0x01, 0x82, 0x42, 0x00, 0x00, 0x10, 0x00,
	0x01, 0x4A, 0x00, 0x00, 0x00, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,

	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,

	0x02, 0x00, 0x00,
}

// lutFast: abbreviated waveform. Lower latency; may accumulate ghosting
// over repeated use, so callers should interleave full refreshes.
var lutFast = [227]byte{
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,

	0x01, 0x4A, 0x00, 0x00, 0x00, 0x01, 0x00,
	0x01, 0x82, 0x42, 0x00, 0x00, 0x02, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,

	0x01, 0x41, 0x00, 0x00, 0x00, 0x01, 0x00,
	0x01, 0x82, 0x42, 0x00, 0x00, 0x02, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,

	0x01, 0x81, 0x00, 0x00, 0x00, 0x01, 0x00,
	0x01, 0x82, 0x42, 0x00, 0x00, 0x02, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,

	0x01, 0x8A, 0x00, 0x00, 0x00, 0x01, 0x00,
	0x01, 0x82, 0x42, 0x00, 0x00, 0x02, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,

	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,

	0x02, 0x00, 0x00,
}

// lutFor returns the waveform table for a refresh mode.
func lutFor(mode RefreshMode) []byte {
	switch mode {
	case Full:
		return lutFull[:]
	case Fast:
		return lutFast[:]
	default:
		panic("epd: unknown refresh mode")
	}
}
