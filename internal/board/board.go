// Package board ties one site together: the session state, stroke capture,
// replay and the loop they all run on.
package board

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"SharedBoard/internal/capture"
	"SharedBoard/internal/geom"
	"SharedBoard/internal/logging"
	"SharedBoard/internal/replay"
	"SharedBoard/internal/state"
	"SharedBoard/internal/surface"
)

var ErrUnknownAction = errors.New("unknown action")

// Simulator is a drawing source that can be switched on and off from the
// toolbar.
type Simulator interface {
	Toggle(ctx context.Context) bool
	Running() bool
	SetBounds(width, height int)
}

type Options struct {
	Capture       capture.Config
	FrameInterval time.Duration
	Smoothing     bool
	Color         string
}

func DefaultOptions() Options {
	return Options{
		Capture:       capture.DefaultConfig(),
		FrameInterval: replay.DefaultFrameInterval,
		Smoothing:     true,
		Color:         state.DefaultColor,
	}
}

// Status is a copy of the session taken after each frame, for the UI.
type Status struct {
	Tool       state.Tool
	Color      string
	Smoothing  bool
	ShowPoints bool
	Simulating bool
	Offset     geom.Point
	Painted    int
	Pending    int
	Stats      replay.Stats
}

// Board is the per-site facade. Every exported method may be called from any
// goroutine; the work itself runs on the loop.
type Board struct {
	log     state.Log
	surface surface.Surface
	session *state.Session
	loop    *replay.Loop
	engine  *replay.Engine
	capture *capture.Capture
	logger  zerolog.Logger
	opts    Options

	mu        sync.Mutex
	status    Status
	onRepaint func()
	sim       Simulator
	ctx       context.Context
}

func New(log state.Log, surf surface.Surface, opts Options, logger zerolog.Logger) *Board {
	session := state.NewSession()
	session.Smoothing = opts.Smoothing
	if state.KnownColor(opts.Color) {
		session.Color = opts.Color
	}
	loop := replay.NewLoop()
	b := &Board{
		log:     log,
		surface: surf,
		session: session,
		loop:    loop,
		engine:  replay.New(log, surf, session, loop, logging.Component(logger, "replay")),
		capture: capture.New(opts.Capture, session, log, surf, logging.Component(logger, "capture")),
		logger:  logger,
		opts:    opts,
		ctx:     context.Background(),
	}
	b.capture.OnPan = b.engine.Invalidate
	b.engine.OnReset(b.capture.Restore)
	b.capture.OnPaint = func() { b.loop.RequestRepaint(false) }
	loop.OnFrame(b.frame)
	b.engine.Start()
	b.snapshot()
	return b
}

// SiteID is this site's author id.
func (b *Board) SiteID() string {
	return b.log.SiteID()
}

func (b *Board) Surface() surface.Surface {
	return b.surface
}

// OnRepaint registers fn to run after every frame that changed something.
func (b *Board) OnRepaint(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onRepaint = fn
}

// SetSimulator attaches the source toggled by the "sim" action.
func (b *Board) SetSimulator(s Simulator) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sim = s
}

func (b *Board) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Tick runs one frame synchronously.
func (b *Board) Tick() bool {
	return b.loop.Tick()
}

// Run drives the loop until ctx is done.
func (b *Board) Run(ctx context.Context) error {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()
	return b.loop.Run(ctx, b.opts.FrameInterval)
}

// Close stops following the log.
func (b *Board) Close() {
	b.engine.Stop()
}

func (b *Board) Press(p geom.Point)   { b.loop.Post(func() { b.capture.Press(p) }) }
func (b *Board) Move(p geom.Point)    { b.loop.Post(func() { b.capture.Move(p) }) }
func (b *Board) Release(p geom.Point) { b.loop.Post(func() { b.capture.Release(p) }) }
func (b *Board) Leave()               { b.loop.Post(b.capture.Leave) }

func (b *Board) SetTool(t state.Tool) {
	b.loop.Post(func() { b.capture.SetTool(t) })
}

// SetColor selects a palette color. Unknown names are ignored.
func (b *Board) SetColor(name string) {
	if !state.KnownColor(name) {
		b.logger.Warn().Str("color", name).Msg("ignoring unknown color")
		return
	}
	b.loop.Post(func() { b.session.Color = name })
}

// SetSmoothing applies to strokes started afterwards.
func (b *Board) SetSmoothing(on bool) {
	b.loop.Post(func() { b.session.Smoothing = on })
}

// SetShowPoints switches the sample overlay and repaints with or without it.
func (b *Board) SetShowPoints(on bool) {
	b.loop.Post(func() {
		if b.session.ShowPoints == on {
			return
		}
		b.session.ShowPoints = on
		b.engine.Invalidate()
	})
}

// Clear empties the shared log for every participant and recenters the
// local view.
func (b *Board) Clear() {
	b.loop.Post(func() {
		b.capture.Leave()
		b.log.Truncate()
		b.session.View.Reset()
		b.engine.Invalidate()
	})
}

// Import appends previously saved commands to the shared log.
func (b *Board) Import(cmds []state.StrokeCommand) {
	if len(cmds) == 0 {
		return
	}
	b.loop.Post(func() { b.log.Append(cmds...) })
}

// Entries returns a copy of the log as this site currently sees it.
func (b *Board) Entries() []state.StrokeCommand {
	return state.Entries(b.log)
}

// Resize resizes the surface and replays the log into it.
func (b *Board) Resize(width, height int) {
	b.loop.Post(func() {
		if err := b.surface.Resize(width, height); err != nil {
			b.logger.Error().Err(err).Int("width", width).Int("height", height).Msg("resize failed")
			return
		}
		b.engine.Invalidate()
	})
	b.mu.Lock()
	sim := b.sim
	b.mu.Unlock()
	if sim != nil {
		sim.SetBounds(width, height)
	}
}

// Reconnected forces a full replay after the log was resynchronised.
func (b *Board) Reconnected() {
	b.logger.Info().Msg("log resynchronised, replaying")
	b.engine.Invalidate()
}

// ToggleSimulation switches the attached simulator and reports whether it is
// now running.
func (b *Board) ToggleSimulation() bool {
	b.mu.Lock()
	sim, ctx := b.sim, b.ctx
	b.mu.Unlock()
	if sim == nil {
		return false
	}
	on := sim.Toggle(ctx)
	b.loop.Post(func() {}) // next frame picks up the new status
	return on
}

// Dispatch runs the toolbar action with the given id.
func (b *Board) Dispatch(id string) error {
	fn, ok := actions[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, id)
	}
	fn(b)
	return nil
}

// Actions lists the ids Dispatch accepts, sorted.
func Actions() []string {
	ids := make([]string, 0, len(actions))
	for id := range actions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var actions = buildActions()

func buildActions() map[string]func(*Board) {
	m := map[string]func(*Board){
		"pen":   func(b *Board) { b.SetTool(state.ToolPen) },
		"erase": func(b *Board) { b.SetTool(state.ToolErase) },
		"pan":   func(b *Board) { b.SetTool(state.ToolPan) },
		"clear": (*Board).Clear,
		"smooth": func(b *Board) {
			b.loop.Post(func() { b.session.Smoothing = !b.session.Smoothing })
		},
		"points": func(b *Board) {
			b.loop.Post(func() {
				b.session.ShowPoints = !b.session.ShowPoints
				b.engine.Invalidate()
			})
		},
		"sim": func(b *Board) { b.ToggleSimulation() },
	}
	for _, name := range state.Palette {
		m["color:"+name] = func(b *Board) { b.SetColor(name) }
	}
	return m
}

func (b *Board) frame() {
	b.snapshot()
	b.mu.Lock()
	fn := b.onRepaint
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// snapshot runs on the loop.
func (b *Board) snapshot() {
	s := b.session
	st := Status{
		Tool:       s.Tool,
		Color:      s.Color,
		Smoothing:  s.Smoothing,
		ShowPoints: s.ShowPoints,
		Offset:     s.View.Offset,
		Painted:    s.HighWaterMark,
		Pending:    s.PendingPainted(),
		Stats:      b.engine.Stats(),
	}
	b.mu.Lock()
	if b.sim != nil {
		st.Simulating = b.sim.Running()
	}
	b.status = st
	b.mu.Unlock()
}
