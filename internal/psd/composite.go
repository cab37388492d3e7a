package psd

import (
	"image"
	"image/color"
	"image/draw"
)

// Composite paints the visible raster layers onto a transparent canvas in
// document order. include filters by layer id; nil includes everything.
// Every blend mode is painted as source-over.
func Composite(width, height int, entries []Entry, include func(id string) bool) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))

	for _, e := range entries {
		if e.Layer.IsGroup || !e.Layer.Visible || e.Node.Image == nil || e.Alpha == 0 {
			continue
		}
		if include != nil && !include(e.Layer.ID) {
			continue
		}

		r := e.Node.Image.Bounds().Intersect(dst.Bounds())
		if r.Empty() {
			continue
		}

		var mask image.Image
		if e.Alpha < 255 {
			mask = image.NewUniform(color.Alpha{A: e.Alpha})
		}
		draw.DrawMask(dst, r, e.Node.Image, r.Min, mask, image.Point{}, draw.Over)
	}

	return dst
}
