// Package export renders a full replay of the log into a file.
package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"SharedBoard/internal/geom"
	"SharedBoard/internal/state"
	"SharedBoard/internal/view"
)

// Frame is the visible region exported: a Width x Height surface under the
// given pan offset.
type Frame struct {
	Width  int
	Height int
	Offset geom.Point
}

func (f Frame) view() view.Transform {
	return view.Transform{Offset: f.Offset}
}

// PDF writes cmds as vector paths to a single page the size of the frame.
func PDF(path string, cmds []state.StrokeCommand, f Frame) error {
	p, err := document(cmds, f)
	if err != nil {
		return err
	}
	if err := p.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf %s: %w", path, err)
	}
	return nil
}

func WritePDF(w io.Writer, cmds []state.StrokeCommand, f Frame) error {
	p, err := document(cmds, f)
	if err != nil {
		return err
	}
	if err := p.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// document replays cmds onto a page. Erase strokes are painted in the page
// color, which is what removing ink from white paper looks like.
func document(cmds []state.StrokeCommand, f Frame) (*gofpdf.Fpdf, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("export frame %dx%d: %w", f.Width, f.Height, ErrEmptyFrame)
	}
	p := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: float64(f.Width), Ht: float64(f.Height)},
	})
	p.SetMargins(0, 0, 0)
	p.SetAutoPageBreak(false, 0)
	p.AddPage()
	p.SetLineCapStyle("round")
	p.SetLineJoinStyle("round")

	v := f.view()
	for _, c := range cmds {
		if !c.Valid() {
			continue
		}
		if c.Erasing {
			p.SetDrawColor(255, 255, 255)
		} else {
			col := state.ColorOf(c.Color)
			p.SetDrawColor(int(col.R), int(col.G), int(col.B))
		}
		p.SetLineWidth(c.Width)

		segs := geom.Path(c.Points, c.Smooth)
		start := v.ToSurface(segs[0].From)
		p.MoveTo(start.X, start.Y)
		for _, s := range segs {
			to := v.ToSurface(s.To)
			if s.Kind == geom.Quad {
				ctrl := v.ToSurface(s.Ctrl)
				p.CurveTo(ctrl.X, ctrl.Y, to.X, to.Y)
			} else {
				p.LineTo(to.X, to.Y)
			}
		}
		p.DrawPath("D")
	}
	if err := p.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return p, nil
}
