// Package surface defines the raster target strokes are painted onto.
package surface

import (
	"image/color"

	"SharedBoard/internal/geom"
	"SharedBoard/internal/state"
	"SharedBoard/internal/view"
)

// PointRadius is the radius of the debug sample overlay rings.
const PointRadius = 4.0

// Style carries the paint attributes of one stroke. Color is ignored when
// Erase is set; erasing removes coverage from what is already painted.
type Style struct {
	Width float64
	Color color.NRGBA
	Erase bool
}

// StyleOf returns the style a command is painted with.
func StyleOf(c state.StrokeCommand) Style {
	return Style{Width: c.Width, Color: state.ColorOf(c.Color), Erase: c.Erasing}
}

// Surface is the mutable drawing target. Segments are in surface space.
type Surface interface {
	Clear()
	StrokePath(segs []geom.Segment, style Style)
	Resize(width, height int) error
}

// PointMarker is implemented by surfaces that can show the debug sample
// overlay.
type PointMarker interface {
	MarkPoint(p geom.Point, radius float64)
}

// Draw paints document-space segments onto s under view v.
func Draw(s Surface, v view.Transform, segs []geom.Segment, style Style) {
	if len(segs) == 0 {
		return
	}
	if !v.IsIdentity() {
		segs = geom.Translate(segs, v.Offset)
	}
	s.StrokePath(segs, style)
}

// MarkPoints shows document-space samples when s supports the overlay.
func MarkPoints(s Surface, v view.Transform, pts []geom.Point, radius float64) {
	m, ok := s.(PointMarker)
	if !ok {
		return
	}
	for _, p := range pts {
		m.MarkPoint(v.ToSurface(p), radius)
	}
}

// Discard accepts and drops everything.
type Discard struct{}

func (Discard) Clear()                           {}
func (Discard) StrokePath([]geom.Segment, Style) {}
func (Discard) Resize(int, int) error            { return nil }
