package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"SharedBoard/internal/board"
	"SharedBoard/internal/state"
)

type colorSwatch struct {
	widget.BaseWidget
	Color    color.Color
	OnTapped func()
}

func newColorSwatch(c color.Color, tapped func()) *colorSwatch {
	s := &colorSwatch{Color: c, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(s.Color)
	rect.SetMinSize(fyne.NewSize(28, 28))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped()
	}
}

// toolbar holds the controls. Every control only names a board action.
type toolbar struct {
	board  *board.Board
	logger zerolog.Logger
	tools  map[string]*widget.Button
}

func (t *toolbar) dispatch(id string) {
	if err := t.board.Dispatch(id); err != nil {
		t.logger.Error().Err(err).Msg("toolbar action")
	}
}

func (t *toolbar) selectTool(id string) {
	t.dispatch(id)
	for name, btn := range t.tools {
		if name == id {
			btn.Importance = widget.HighImportance
		} else {
			btn.Importance = widget.MediumImportance
		}
		btn.Refresh()
	}
}

func (t *toolbar) toolButton(id, label string, icon fyne.Resource) *widget.Button {
	btn := widget.NewButtonWithIcon(label, icon, func() { t.selectTool(id) })
	t.tools[id] = btn
	return btn
}

func (t *toolbar) toggle(id, label string, on bool) *widget.Check {
	c := widget.NewCheck(label, func(bool) { t.dispatch(id) })
	c.Checked = on
	return c
}

// NewToolbar builds the tool selector, palette and toggles for b. The extra
// objects are appended at the end of the bar.
func NewToolbar(b *board.Board, logger zerolog.Logger, extra ...fyne.CanvasObject) fyne.CanvasObject {
	t := &toolbar{board: b, logger: logger, tools: make(map[string]*widget.Button)}
	st := b.Status()

	tools := container.NewHBox(
		t.toolButton("pen", "Pen", theme.DocumentCreateIcon()),
		t.toolButton("erase", "Erase", theme.ContentClearIcon()),
		t.toolButton("pan", "Pan", theme.ViewFullScreenIcon()),
	)
	for name, btn := range t.tools {
		if name == st.Tool.String() {
			btn.Importance = widget.HighImportance
		}
	}

	palette := container.NewHBox()
	for _, name := range state.Palette {
		palette.Add(newColorSwatch(state.ColorOf(name), func() { t.dispatch("color:" + name) }))
	}

	clearBtn := widget.NewButtonWithIcon("Clear", theme.DeleteIcon(), func() { t.dispatch("clear") })

	objects := []fyne.CanvasObject{
		tools,
		widget.NewSeparator(),
		palette,
		widget.NewSeparator(),
		clearBtn,
		t.toggle("smooth", "Smooth", st.Smoothing),
		t.toggle("points", "Points", st.ShowPoints),
		t.toggle("sim", "Simulate", st.Simulating),
	}
	if len(extra) > 0 {
		objects = append(objects, widget.NewSeparator())
		objects = append(objects, extra...)
	}
	return container.NewHScroll(container.NewHBox(objects...))
}
