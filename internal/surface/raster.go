package surface

import (
	"fmt"
	"image"
	"io"
	"slices"
	"sync"

	"github.com/gogpu/gg"

	"SharedBoard/internal/geom"
)

// Raster is a software Surface backed by a gg drawing context. Erase strokes
// are composited destination-out: their coverage is rasterised into a scratch
// context and removed from the canvas.
type Raster struct {
	mu      sync.RWMutex
	dc      *gg.Context
	scratch *gg.Context
}

func NewRaster(width, height int) *Raster {
	return &Raster{
		dc:      gg.NewContext(width, height),
		scratch: gg.NewContext(width, height),
	}
}

func (r *Raster) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dc.Clear()
}

func (r *Raster) StrokePath(segs []geom.Segment, style Style) {
	if len(segs) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if style.Erase {
		r.erase(segs, style.Width)
		return
	}
	r.dc.SetColor(style.Color)
	stroke(r.dc, segs, style.Width)
}

func (r *Raster) erase(segs []geom.Segment, width float64) {
	r.scratch.Clear()
	r.scratch.SetRGBA(0, 0, 0, 1)
	stroke(r.scratch, segs, width)

	cover := r.scratch.ResizeTarget().Data()
	dst := r.dc.ResizeTarget().Data()
	for i := 3; i < len(dst) && i < len(cover); i += 4 {
		a := uint32(cover[i])
		if a == 0 {
			continue
		}
		keep := 255 - a
		for c := i - 3; c <= i; c++ {
			dst[c] = uint8((uint32(dst[c])*keep + 127) / 255)
		}
	}
}

// MarkPoint draws a thin ring used by the debug sample overlay.
func (r *Raster) MarkPoint(p geom.Point, radius float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dc.SetRGBA(0, 0, 0, 1)
	r.dc.SetLineWidth(1)
	r.dc.DrawCircle(p.X, p.Y, radius)
	_ = r.dc.Stroke()
}

func (r *Raster) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.dc.Resize(width, height); err != nil {
		return fmt.Errorf("resize raster: %w", err)
	}
	if err := r.scratch.Resize(width, height); err != nil {
		return fmt.Errorf("resize scratch: %w", err)
	}
	return nil
}

func (r *Raster) Size() (int, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dc.Width(), r.dc.Height()
}

// Image returns a copy of the current pixels.
func (r *Raster) Image() image.Image {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dc.Image()
}

// Pixels returns a copy of the raw RGBA bytes.
func (r *Raster) Pixels() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.dc.ResizeTarget().Data())
}

func (r *Raster) EncodePNG(w io.Writer) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dc.EncodePNG(w)
}

func stroke(dc *gg.Context, segs []geom.Segment, width float64) {
	dc.SetLineWidth(width)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	cur := segs[0].From
	dc.MoveTo(cur.X, cur.Y)
	for _, s := range segs {
		if s.From != cur {
			dc.MoveTo(s.From.X, s.From.Y)
		}
		switch s.Kind {
		case geom.Quad:
			dc.QuadraticTo(s.Ctrl.X, s.Ctrl.Y, s.To.X, s.To.Y)
		default:
			dc.LineTo(s.To.X, s.To.Y)
		}
		cur = s.To
	}
	// A failed stroke leaves the canvas untouched; the next full replay
	// repaints from the log anyway.
	_ = dc.Stroke()
}
