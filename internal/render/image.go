package render

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

// Prepare scales src to fit the w by h panel, preserving aspect ratio, and
// letterboxes the remainder on white. The result is grayscale; the panel
// surfaces quantize it further on draw.
func Prepare(src image.Image, w, h int) *image.NRGBA {
	gray := imaging.Grayscale(src)
	fitted := imaging.Fit(gray, w, h, imaging.Lanczos)

	canvas := imaging.New(w, h, color.White)
	return imaging.PasteCenter(canvas, fitted)
}

// DrawTo composites a prepared frame onto a panel drawing surface. The
// surface's color model quantizes each pixel (1-bit threshold or 2-bit
// gray).
func DrawTo(dst draw.Image, frame image.Image) {
	draw.Draw(dst, dst.Bounds(), frame, frame.Bounds().Min, draw.Src)
}
