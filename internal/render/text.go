package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Banner renders the given lines of text onto a white w by h frame. Used for
// the demo screen and for surfacing errors on the panel itself when no
// capture source is configured or reachable.
func Banner(w, h int, lines []string) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	lineHeight := face.Metrics().Height.Ceil() + 4

	total := lineHeight * len(lines)
	y := (h-total)/2 + face.Metrics().Ascent.Ceil()
	if y < face.Metrics().Ascent.Ceil() {
		y = face.Metrics().Ascent.Ceil()
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	for _, line := range lines {
		width := d.MeasureString(line).Ceil()
		x := (w - width) / 2
		if x < 0 {
			x = 0
		}
		d.Dot = fixed.P(x, y)
		d.DrawString(line)
		y += lineHeight
	}
	return img
}
