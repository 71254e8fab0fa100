package capture

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Label is a box to draw on the live frame.
type Label struct {
	Box   image.Rectangle
	Kind  string // known, bad, unknown
	Title string
	Note  string
}

var labelColors = map[string]color.RGBA{
	"known":   {R: 50, G: 200, B: 120, A: 255},
	"bad":     {R: 220, G: 30, B: 30, A: 255},
	"unknown": {R: 245, G: 140, B: 30, A: 255},
}

const (
	boxThickness = 2
	lineHeight   = 14
)

// Annotate returns a copy of img with a colored box and caption per label.
func Annotate(img image.Image, labels []Label) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)

	for _, l := range labels {
		c, ok := labelColors[l.Kind]
		if !ok {
			c = labelColors["unknown"]
		}
		box := l.Box.Intersect(b)
		if box.Empty() {
			continue
		}
		drawOutline(dst, box, c)

		lines := []string{l.Title}
		if l.Note != "" {
			lines = append(lines, l.Note)
		}
		drawCaption(dst, box, lines, c)
	}
	return dst
}

func drawOutline(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+boxThickness),
		image.Rect(r.Min.X, r.Max.Y-boxThickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+boxThickness, r.Max.Y),
		image.Rect(r.Max.X-boxThickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}

// drawCaption writes lines on a filled band above the box, or inside it at
// the top edge of the frame.
func drawCaption(dst *image.RGBA, box image.Rectangle, lines []string, c color.RGBA) {
	face := basicfont.Face7x13
	width := 0
	for _, line := range lines {
		width = max(width, font.MeasureString(face, line).Ceil())
	}
	height := len(lines)*lineHeight + 4

	top := box.Min.Y - height
	if top < dst.Bounds().Min.Y {
		top = box.Min.Y
	}
	band := image.Rect(box.Min.X, top, box.Min.X+width+8, top+height).Intersect(dst.Bounds())
	draw.Draw(dst, band, image.NewUniform(c), image.Point{}, draw.Src)

	d := &font.Drawer{Dst: dst, Src: image.White, Face: face}
	for i, line := range lines {
		d.Dot = fixed.P(band.Min.X+4, band.Min.Y+(i+1)*lineHeight-2)
		d.DrawString(line)
	}
}

// BoxFromBBox converts a detector [x1, y1, x2, y2] bounding box.
func BoxFromBBox(bbox []float64) image.Rectangle {
	if len(bbox) < 4 {
		return image.Rectangle{}
	}
	return image.Rect(int(bbox[0]), int(bbox[1]), int(bbox[2]), int(bbox[3]))
}
