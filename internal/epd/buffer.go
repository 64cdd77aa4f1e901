package epd

import (
	"image"
	"image/color"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Panel geometry. The width is a multiple of 8 so rows pack byte-aligned.
const (
	Width  = 792
	Height = 272
)

// Row packing. The panel is driven by two cascaded controllers: the master
// window covers columns 0..399 and the slave window columns 392..791, 50
// bytes per row each, sharing the byte for columns 392..399. A single
// logical plane of 99 bytes per row holds every pixel once; the per
// controller planes are sliced out of it on commit.
const (
	rowBytesBinary = Width / 8  // 99
	rowBytesGray   = Width / 4  // 198
	planeRowBytes  = 50         // bytes per controller row
	slaveRowStart  = 49         // first logical row byte of the slave window
	planeSize      = planeRowBytes * Height
)

// Level is one of the four gray levels of the 2-bit mode, ordered darkest
// to lightest.
type Level uint8

const (
	Black Level = iota
	DarkGray
	LightGray
	White
)

// gray2Model quantizes any color to the nearest of the four panel levels.
var gray2Model = color.ModelFunc(func(c color.Color) color.Color {
	g := color.GrayModel.Convert(c).(color.Gray)
	return color.Gray{Y: (g.Y >> 6) * 0x55}
})

func bounds() image.Rectangle {
	return image.Rect(0, 0, Width, Height)
}

func inBounds(x, y int) bool {
	return x >= 0 && x < Width && y >= 0 && y < Height
}

// --- 1-bit buffer ---

func newBinaryBuffer() []byte {
	buf := make([]byte, rowBytesBinary*Height)
	for i := range buf {
		buf[i] = 0xFF // white
	}
	return buf
}

// setBinary packs a pixel MSB-first: bit 1 = white, 0 = black. Out of range
// coordinates are ignored, matching the panel clipping convention.
func setBinary(buf []byte, x, y int, white bool) {
	if !inBounds(x, y) {
		return
	}
	idx := y*rowBytesBinary + x/8
	mask := byte(0x80) >> (x % 8)
	if white {
		buf[idx] |= mask
	} else {
		buf[idx] &^= mask
	}
}

func binaryAt(buf []byte, x, y int) bool {
	idx := y*rowBytesBinary + x/8
	return buf[idx]&(0x80>>(x%8)) != 0
}

// binaryPlanes slices the logical plane into the master and slave RAM
// images. The overlap byte is emitted to both controllers.
func binaryPlanes(buf []byte) (master, slave []byte) {
	master = make([]byte, planeSize)
	slave = make([]byte, planeSize)
	for y := 0; y < Height; y++ {
		row := buf[y*rowBytesBinary : (y+1)*rowBytesBinary]
		copy(master[y*planeRowBytes:], row[:planeRowBytes])
		copy(slave[y*planeRowBytes:], row[slaveRowStart:])
	}
	return master, slave
}

// --- 2-bit buffer ---

func newGrayBuffer() []byte {
	buf := make([]byte, rowBytesGray*Height)
	for i := range buf {
		buf[i] = 0xFF // level 3 (white) in every slot
	}
	return buf
}

func setGray(buf []byte, x, y int, l Level) {
	if !inBounds(x, y) {
		return
	}
	idx := y*rowBytesGray + x/4
	shift := uint(6 - 2*(x%4))
	buf[idx] = buf[idx]&^(0x03<<shift) | byte(l&0x03)<<shift
}

func grayAt(buf []byte, x, y int) Level {
	idx := y*rowBytesGray + x/4
	shift := uint(6 - 2*(x%4))
	return Level(buf[idx]>>shift) & 0x03
}

// grayBitPlanes splits the 2-bit logical buffer into the two overlaid 1-bit
// planes the controller expects: bit 0 of the level feeds the BW RAM, bit 1
// the red RAM.
func grayBitPlanes(buf []byte) (bw, red []byte) {
	bw = make([]byte, rowBytesBinary*Height)
	red = make([]byte, rowBytesBinary*Height)
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			l := grayAt(buf, x, y)
			idx := y*rowBytesBinary + x/8
			mask := byte(0x80) >> (x % 8)
			if l&0x01 != 0 {
				bw[idx] |= mask
			}
			if l&0x02 != 0 {
				red[idx] |= mask
			}
		}
	}
	return bw, red
}

// --- Drawing surfaces ---

// BinarySurface is the 1-bit drawing view over the panel buffer. It is only
// valid between BeginBinary and the following Display; a single surface may
// be live at a time. It implements draw.Image so image/draw and anything
// built on it can rasterize straight into the panel buffer.
type BinarySurface struct {
	p *Panel
}

// Clear fills the whole buffer with one color.
func (s *BinarySurface) Clear(c image1bit.Bit) {
	fill := byte(0x00)
	if c == image1bit.On {
		fill = 0xFF
	}
	for i := range s.p.buf {
		s.p.buf[i] = fill
	}
}

// SetPixel sets one pixel. image1bit.On is white. Out of range coordinates
// are a no-op.
func (s *BinarySurface) SetPixel(x, y int, c image1bit.Bit) {
	setBinary(s.p.buf, x, y, c == image1bit.On)
}

// BitAt reports the current value of a pixel. Out of range reads return Off.
func (s *BinarySurface) BitAt(x, y int) image1bit.Bit {
	if !inBounds(x, y) {
		return image1bit.Off
	}
	return image1bit.Bit(binaryAt(s.p.buf, x, y))
}

func (s *BinarySurface) ColorModel() color.Model { return image1bit.BitModel }

func (s *BinarySurface) Bounds() image.Rectangle { return bounds() }

func (s *BinarySurface) At(x, y int) color.Color { return s.BitAt(x, y) }

func (s *BinarySurface) Set(x, y int, c color.Color) {
	s.SetPixel(x, y, image1bit.BitModel.Convert(c).(image1bit.Bit))
}

// Gray2Surface is the 4-level drawing view over the panel buffer, valid
// between BeginGray2 and the following Display. It implements draw.Image
// with colors quantized to the four panel levels.
type Gray2Surface struct {
	p *Panel
}

func (s *Gray2Surface) Clear(l Level) {
	fill := byte(l&0x03) * 0x55 // replicate the 2-bit code into all four slots
	for i := range s.p.buf {
		s.p.buf[i] = fill
	}
}

func (s *Gray2Surface) SetPixel(x, y int, l Level) {
	setGray(s.p.buf, x, y, l)
}

// LevelAt reports the current level of a pixel. Out of range reads return
// White.
func (s *Gray2Surface) LevelAt(x, y int) Level {
	if !inBounds(x, y) {
		return White
	}
	return grayAt(s.p.buf, x, y)
}

func (s *Gray2Surface) ColorModel() color.Model { return gray2Model }

func (s *Gray2Surface) Bounds() image.Rectangle { return bounds() }

func (s *Gray2Surface) At(x, y int) color.Color {
	return color.Gray{Y: uint8(s.LevelAt(x, y)) * 0x55}
}

func (s *Gray2Surface) Set(x, y int, c color.Color) {
	g := color.GrayModel.Convert(c).(color.Gray)
	s.SetPixel(x, y, Level(g.Y>>6))
}
