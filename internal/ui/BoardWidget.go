package ui

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"SharedBoard/internal/board"
	"SharedBoard/internal/geom"
	"SharedBoard/internal/state"
	"SharedBoard/internal/surface"
)

// BoardWidget shows a site's raster and feeds pointer input to its board.
type BoardWidget struct {
	widget.BaseWidget
	board  *board.Board
	raster *surface.Raster

	mu    sync.Mutex
	image *canvas.Image
	size  fyne.Size
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)
var _ desktop.Hoverable = (*BoardWidget)(nil)
var _ desktop.Cursorable = (*BoardWidget)(nil)

func NewBoardWidget(b *board.Board, raster *surface.Raster) *BoardWidget {
	w := &BoardWidget{board: b, raster: raster}
	w.ExtendBaseWidget(w)
	return w
}

// Repaint copies the raster into the widget. Safe from any goroutine.
func (w *BoardWidget) Repaint() {
	img := w.raster.Image()
	fyne.Do(func() {
		w.mu.Lock()
		target := w.image
		w.mu.Unlock()
		if target == nil {
			return
		}
		target.Image = img
		target.Refresh()
	})
}

func pt(p fyne.Position) geom.Point {
	return geom.Pt(float64(p.X), float64(p.Y))
}

func (w *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if e.Button == desktop.MouseButtonPrimary {
		w.board.Press(pt(e.Position))
	}
}

func (w *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	if e.Button == desktop.MouseButtonPrimary {
		w.board.Release(pt(e.Position))
	}
}

func (w *BoardWidget) Dragged(e *fyne.DragEvent) {
	w.board.Move(pt(e.Position))
}

func (w *BoardWidget) DragEnd() {}

func (w *BoardWidget) MouseIn(*desktop.MouseEvent)    {}
func (w *BoardWidget) MouseMoved(*desktop.MouseEvent) {}

// MouseOut ends a gesture that leaves the surface.
func (w *BoardWidget) MouseOut() {
	w.board.Leave()
}

func (w *BoardWidget) Cursor() desktop.Cursor {
	if w.board.Status().Tool == state.ToolPan {
		return desktop.PointerCursor
	}
	return desktop.CrosshairCursor
}

func (w *BoardWidget) resized(size fyne.Size) {
	w.mu.Lock()
	changed := size != w.size
	w.size = size
	w.mu.Unlock()
	if !changed || size.Width < 1 || size.Height < 1 {
		return
	}
	w.board.Resize(int(size.Width), int(size.Height))
}

func (w *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	img := canvas.NewImageFromImage(w.raster.Image())
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScalePixels

	w.mu.Lock()
	w.image = img
	w.mu.Unlock()

	return &boardWidgetRenderer{
		board:      w,
		background: canvas.NewRectangle(color.White),
		image:      img,
	}
}

type boardWidgetRenderer struct {
	board      *BoardWidget
	background *canvas.Rectangle
	image      *canvas.Image
}

func (r *boardWidgetRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.background, r.image}
}

func (r *boardWidgetRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)
	r.image.Resize(size)
	r.board.resized(size)
}

func (r *boardWidgetRenderer) MinSize() fyne.Size {
	return fyne.NewSize(300, 300)
}

func (r *boardWidgetRenderer) Refresh() {
	canvas.Refresh(r.board)
}

func (r *boardWidgetRenderer) Destroy() {}
