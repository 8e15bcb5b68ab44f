package state

import (
	"image/color"

	"SharedBoard/internal/geom"
)

// StrokeCommand is one replicated drawing action. It is immutable once
// appended to the log.
type StrokeCommand struct {
	ID       string       `json:"id"`
	AuthorID string       `json:"authorId"`
	Width    float64      `json:"width"`
	Erasing  bool         `json:"erasing"`
	Color    string       `json:"color"`
	Smooth   bool         `json:"smooth"`
	Points   []geom.Point `json:"points"`
}

// Valid reports whether the command can be drawn: at least two points and a
// positive width.
func (c StrokeCommand) Valid() bool {
	return len(c.Points) >= 2 && c.Width > 0
}

// Tool is the input interpretation currently selected on a site.
type Tool int

const (
	ToolPen Tool = iota
	ToolErase
	ToolPan
)

func (t Tool) String() string {
	switch t {
	case ToolPen:
		return "pen"
	case ToolErase:
		return "erase"
	case ToolPan:
		return "pan"
	}
	return "unknown"
}

// Paints reports whether the tool produces strokes.
func (t Tool) Paints() bool {
	return t == ToolPen || t == ToolErase
}

const (
	PenWidth     = 4.0
	EraserWidth  = 30.0
	DefaultColor = "blue"
)

// Palette lists the selectable pen colors in toolbar order.
var Palette = []string{"red", "green", "blue", "yellow", "orange", "black"}

var paletteRGBA = map[string]color.NRGBA{
	"red":    {R: 255, A: 255},
	"green":  {G: 128, A: 255},
	"blue":   {B: 255, A: 255},
	"yellow": {R: 255, G: 255, A: 255},
	"orange": {R: 255, G: 165, A: 255},
	"black":  {A: 255},
}

// ColorOf resolves a palette name. Unknown names draw black.
func ColorOf(name string) color.NRGBA {
	if c, ok := paletteRGBA[name]; ok {
		return c
	}
	return color.NRGBA{A: 255}
}

// KnownColor reports whether name is in the palette.
func KnownColor(name string) bool {
	_, ok := paletteRGBA[name]
	return ok
}
