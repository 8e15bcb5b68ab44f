// Package replay keeps a site's drawing surface a rasterisation of the shared
// log, painting only new entries on growth and replaying everything after a
// truncation, pan, resize or reconnect.
package replay

import (
	"github.com/rs/zerolog"

	"SharedBoard/internal/geom"
	"SharedBoard/internal/state"
	"SharedBoard/internal/surface"
)

// Stats counts what the engine has done. Tests and the status bar read it.
type Stats struct {
	Repaints     int
	FullRepaints int
	Painted      int
	Skipped      int
	Malformed    int
}

type Engine struct {
	log     state.Log
	surface surface.Surface
	session *state.Session
	loop    *Loop
	logger  zerolog.Logger

	lastLen int
	cancel  func()
	stats   Stats
	onReset []func()
}

// New wires an engine to loop. Start must be called to follow the log.
func New(log state.Log, surf surface.Surface, session *state.Session, loop *Loop, logger zerolog.Logger) *Engine {
	e := &Engine{
		log:     log,
		surface: surf,
		session: session,
		loop:    loop,
		logger:  logger,
	}
	loop.SetRenderer(e.repaint)
	return e
}

// Start subscribes to log changes. Whatever the log already holds is treated
// as growth from empty.
func (e *Engine) Start() {
	e.cancel = e.log.OnChange(func(n int) {
		e.loop.Post(func() { e.observe(n) })
	})
	n := e.log.Len()
	e.loop.Post(func() { e.observe(n) })
}

func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// OnReset registers fn to run on the loop after every full replay, once the
// log has been repainted onto the cleared surface.
func (e *Engine) OnReset(fn func()) {
	e.onReset = append(e.onReset, fn)
}

// Invalidate requests a full replay, for a pan, resize, clear or reconnect.
func (e *Engine) Invalidate() {
	e.loop.RequestRepaint(true)
}

func (e *Engine) Stats() Stats {
	return e.stats
}

// observe runs on the loop for every length notification, in order. A
// shrink means entries we painted are gone, so only a full replay is correct.
func (e *Engine) observe(n int) {
	full := n < e.lastLen
	if full {
		e.logger.Debug().Int("from", e.lastLen).Int("to", n).Msg("log shrank")
	}
	e.lastLen = n
	e.loop.RequestRepaint(full)
}

// repaint reads the log length at the time it runs, not when it was
// requested, so coalesced requests never lose entries.
func (e *Engine) repaint(full bool) {
	s := e.session
	n := e.log.Len()
	reset := full || n < s.HighWaterMark
	if reset {
		e.reset()
		e.stats.FullRepaints++
	}
	e.stats.Repaints++

	site := e.log.SiteID()
	start := s.HighWaterMark
	for i := start; i < n; i++ {
		c, ok := e.log.Get(i)
		if !ok {
			// Truncated under us; the shrink notification is already queued.
			n = i
			break
		}
		if c.AuthorID == site && s.ConsumePainted(c.ID) {
			e.stats.Skipped++
			continue
		}
		if !c.Valid() {
			e.stats.Malformed++
			e.logger.Debug().Int("index", i).Str("author", c.AuthorID).Msg("skipping malformed entry")
			continue
		}
		e.paint(c)
	}
	s.HighWaterMark = n
	if reset {
		for _, fn := range e.onReset {
			fn()
		}
	}

	e.logger.Trace().Int("from", start).Int("to", n).Bool("full", full).Msg("repainted")
}

func (e *Engine) reset() {
	e.surface.Clear()
	e.session.HighWaterMark = 0
	e.session.ResetPainted()
}

func (e *Engine) paint(c state.StrokeCommand) {
	s := e.session
	surface.Draw(e.surface, s.View, geom.Path(c.Points, c.Smooth), surface.StyleOf(c))
	if s.ShowPoints {
		surface.MarkPoints(e.surface, s.View, c.Points, surface.PointRadius)
	}
	e.stats.Painted++
}
