// Package capture turns pointer events into locally painted, batched
// StrokeCommands appended to the shared log.
package capture

import (
	"slices"

	"github.com/rs/zerolog"

	"SharedBoard/internal/geom"
	"SharedBoard/internal/state"
	"SharedBoard/internal/surface"
)

const (
	// DefaultBatchSize bounds the points carried by one command.
	DefaultBatchSize = 10
	// DefaultMinDistance is the smoothing-distance gate.
	DefaultMinDistance = 2.0
)

// Config holds the capture tunables.
type Config struct {
	BatchSize   int
	MinDistance float64
	PenWidth    float64
	EraserWidth float64
}

func DefaultConfig() Config {
	return Config{
		BatchSize:   DefaultBatchSize,
		MinDistance: DefaultMinDistance,
		PenWidth:    state.PenWidth,
		EraserWidth: state.EraserWidth,
	}
}

// Capture is the input state machine of one site. It is idle until a press
// with a painting tool, dragging until release or leave.
type Capture struct {
	cfg     Config
	session *state.Session
	log     state.Log
	surface surface.Surface
	logger  zerolog.Logger

	// OnPan is called after every pan step; the owner requests a full replay.
	OnPan func()
	// OnPaint is called after optimistic painting.
	OnPaint func()

	cmdID   string
	smooth  bool
	erasing bool
	color   string
	painted int // segments of the active command already on the surface
}

func New(cfg Config, session *state.Session, log state.Log, surf surface.Surface, logger zerolog.Logger) *Capture {
	if cfg.BatchSize < 2 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.PenWidth <= 0 {
		cfg.PenWidth = state.PenWidth
	}
	if cfg.EraserWidth <= 0 {
		cfg.EraserWidth = state.EraserWidth
	}
	return &Capture{
		cfg:     cfg,
		session: session,
		log:     log,
		surface: surf,
		logger:  logger,
	}
}

// Press starts a gesture at raw surface position p.
func (c *Capture) Press(p geom.Point) {
	s := c.session
	if s.Dragging {
		c.finish()
	}
	s.Dragging = true
	s.Anchor = p
	if !s.Tool.Paints() {
		return
	}
	d := s.View.ToDocument(p)
	c.begin([]geom.Point{d})
	c.mark(d)
}

// Move continues a gesture.
func (c *Capture) Move(p geom.Point) {
	s := c.session
	if !s.Dragging {
		return
	}
	if s.Tool == state.ToolPan {
		delta := p.Sub(s.Anchor)
		s.Anchor = p
		if delta == (geom.Point{}) {
			return
		}
		s.View.Pan(delta)
		if c.OnPan != nil {
			c.OnPan()
		}
		return
	}

	d := s.View.ToDocument(p)
	last := s.Active[len(s.Active)-1]
	if c.smooth && !geom.Gate(last, d, c.cfg.MinDistance) {
		return
	}
	s.Active = append(s.Active, d)
	c.paint(false)
	c.mark(d)

	if len(s.Active) >= c.cfg.BatchSize {
		// The boundary sample ends this command and starts the next one, so
		// both meet at the same point.
		c.paint(true)
		c.flush()
		c.begin([]geom.Point{d})
	}
	c.notify()
}

// Release ends a gesture at p. The release point is kept even when the
// smoothing gate would reject it, so the stroke ends where the pointer did.
func (c *Capture) Release(p geom.Point) {
	s := c.session
	if !s.Dragging {
		return
	}
	if s.Tool == state.ToolPan {
		c.Move(p)
	} else if s.Tool.Paints() {
		d := s.View.ToDocument(p)
		if d != s.Active[len(s.Active)-1] {
			s.Active = append(s.Active, d)
			c.mark(d)
		}
	}
	c.finish()
}

// Leave abandons the gesture because the pointer left the surface. A
// buffered stroke is closed at its last sample.
func (c *Capture) Leave() {
	if !c.session.Dragging {
		return
	}
	c.finish()
}

// SetTool switches tools. A stroke never spans a tool change.
func (c *Capture) SetTool(t state.Tool) {
	if c.session.Tool == t {
		return
	}
	if c.session.Dragging {
		c.finish()
	}
	c.session.Tool = t
}

// Dragging reports whether a gesture is in progress.
func (c *Capture) Dragging() bool {
	return c.session.Dragging
}

func (c *Capture) begin(pts []geom.Point) {
	s := c.session
	c.cmdID = state.NewCommandID()
	c.smooth = s.Smoothing
	c.erasing = s.Tool == state.ToolErase
	c.color = s.Color
	c.painted = 0
	s.Active = pts
	s.MarkPainted(c.cmdID)
}

func (c *Capture) finish() {
	s := c.session
	if s.Tool.Paints() && s.Active != nil {
		c.paint(true)
		c.flush()
		c.notify()
	}
	s.Active = nil
	s.Dragging = false
	c.cmdID = ""
}

// Restore puts the stroke in progress back after the surface was cleared and
// replayed: its final segments are painted again and it stays marked as
// locally painted, so replay still skips it when it comes back.
func (c *Capture) Restore() {
	s := c.session
	if c.cmdID == "" || len(s.Active) == 0 {
		return
	}
	s.MarkPainted(c.cmdID)
	c.paintRange(1, c.painted, false)
	if s.ShowPoints {
		surface.MarkPoints(c.surface, s.View, s.Active, surface.PointRadius)
	}
}

// paint puts every segment whose geometry is final onto the surface. With
// smoothing the newest segment still depends on whether its end sample is
// the last one, so it waits for the next sample or for terminal.
func (c *Capture) paint(terminal bool) {
	pts := c.session.Active
	last := len(pts) - 1
	upto := last
	if c.smooth && !terminal {
		upto = last - 1
	}
	if upto <= c.painted {
		return
	}
	c.paintRange(c.painted+1, upto, terminal)
	c.painted = upto
}

// paintRange draws segments from through to of the active stroke.
func (c *Capture) paintRange(from, to int, terminal bool) {
	if to < from {
		return
	}
	pts := c.session.Active
	last := len(pts) - 1
	segs := make([]geom.Segment, 0, to-from+1)
	for j := from; j <= to; j++ {
		segs = append(segs, geom.SegmentAt(pts, j, terminal && j == last, c.smooth))
	}
	surface.Draw(c.surface, c.session.View, segs, c.style())
}

func (c *Capture) flush() {
	s := c.session
	if len(s.Active) < 2 {
		s.ForgetPainted(c.cmdID)
		c.logger.Debug().Msg("dropping stroke with fewer than two points")
		return
	}
	width := c.cfg.PenWidth
	if c.erasing {
		width = c.cfg.EraserWidth
	}
	cmd := state.StrokeCommand{
		ID:       c.cmdID,
		AuthorID: c.log.SiteID(),
		Width:    width,
		Erasing:  c.erasing,
		Color:    c.color,
		Smooth:   c.smooth,
		Points:   slices.Clone(s.Active),
	}
	c.log.Append(cmd)
	c.logger.Trace().Str("id", cmd.ID).Int("points", len(cmd.Points)).Msg("flushed stroke")
}

func (c *Capture) style() surface.Style {
	if c.erasing {
		return surface.Style{Width: c.cfg.EraserWidth, Erase: true}
	}
	return surface.Style{Width: c.cfg.PenWidth, Color: state.ColorOf(c.color)}
}

func (c *Capture) mark(p geom.Point) {
	if c.session.ShowPoints {
		surface.MarkPoints(c.surface, c.session.View, []geom.Point{p}, surface.PointRadius)
	}
}

func (c *Capture) notify() {
	if c.OnPaint != nil {
		c.OnPaint()
	}
}
