package export

import (
	"errors"
	"fmt"
	"io"

	"SharedBoard/internal/geom"
	"SharedBoard/internal/state"
	"SharedBoard/internal/surface"
)

var ErrEmptyFrame = errors.New("frame has no area")

// Render replays cmds into a fresh raster, exactly as a site would after a
// full reset.
func Render(cmds []state.StrokeCommand, f Frame) (*surface.Raster, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("export frame %dx%d: %w", f.Width, f.Height, ErrEmptyFrame)
	}
	r := surface.NewRaster(f.Width, f.Height)
	v := f.view()
	for _, c := range cmds {
		if !c.Valid() {
			continue
		}
		surface.Draw(r, v, geom.Path(c.Points, c.Smooth), surface.StyleOf(c))
	}
	return r, nil
}

// PNG writes the rendered frame as a PNG image.
func PNG(w io.Writer, cmds []state.StrokeCommand, f Frame) error {
	r, err := Render(cmds, f)
	if err != nil {
		return err
	}
	if err := r.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
