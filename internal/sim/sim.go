// Package sim draws a Lissajous figure as if a remote participant were
// holding the pen. It authors commands under its own site id into the same
// log the local site replays.
package sim

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"SharedBoard/internal/capture"
	"SharedBoard/internal/geom"
	"SharedBoard/internal/state"
	"SharedBoard/internal/surface"
)

const (
	DefaultInterval = 100 * time.Millisecond

	freqX = 5
	freqY = 6
	phase = math.Pi / 2
	step  = 0.01
	scale = 0.45
)

type Config struct {
	Interval time.Duration
	Color    string
	Capture  capture.Config
}

// Generator owns a capture state machine of its own and feeds it one curve
// sample per interval while running.
type Generator struct {
	mu      sync.Mutex
	session *state.Session
	capture *capture.Capture
	log     state.Log
	logger  zerolog.Logger

	interval time.Duration
	t        float64
	center   geom.Point
	size     float64

	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a stopped generator appending to log under a fresh site id.
func New(log state.Log, cfg Config, logger zerolog.Logger) *Generator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	site := state.WithSite(log, state.NewSiteID())
	session := state.NewSession()
	if cfg.Color != "" {
		session.Color = cfg.Color
	}
	g := &Generator{
		session:  session,
		log:      site,
		logger:   logger.With().Str("site", site.SiteID()).Logger(),
		interval: cfg.Interval,
	}
	g.capture = capture.New(cfg.Capture, session, site, surface.Discard{}, g.logger)
	return g
}

// SiteID is the author id of the simulated participant.
func (g *Generator) SiteID() string {
	return g.log.SiteID()
}

// SetBounds sizes the figure to a width x height surface.
func (g *Generator) SetBounds(width, height int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.center = geom.Pt(float64(width)/2, float64(height)/2)
	g.size = math.Min(float64(width), float64(height)) * scale
}

// Point is the curve sample at parameter t.
func (g *Generator) Point(t float64) geom.Point {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.point(t)
}

func (g *Generator) point(t float64) geom.Point {
	return geom.Pt(
		g.center.X+math.Sin(freqX*t+phase)*g.size,
		g.center.Y+math.Cos(freqY*t)*g.size,
	)
}

// Step feeds the next sample. The first step after a stop starts a new
// stroke where the curve left off.
func (g *Generator) Step() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.capture.Dragging() {
		g.capture.Press(g.point(g.t))
		return
	}
	g.t += step
	g.capture.Move(g.point(g.t))
	// No engine replays this site, so nothing would ever consume the marks.
	g.session.ResetPainted()
}

// Start runs the generator until Stop or ctx is done.
func (g *Generator) Start(ctx context.Context) {
	g.mu.Lock()
	if g.cancel != nil {
		g.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.done = make(chan struct{})
	done := g.done
	g.mu.Unlock()

	g.logger.Info().Dur("interval", g.interval).Msg("simulated drawing started")
	go func() {
		defer close(done)
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		g.Step()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.Step()
			}
		}
	}()
}

// Stop halts the generator and flushes the stroke in progress.
func (g *Generator) Stop() {
	g.mu.Lock()
	cancel, done := g.cancel, g.done
	g.cancel, g.done = nil, nil
	g.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done

	g.mu.Lock()
	g.capture.Leave()
	g.mu.Unlock()
	g.logger.Info().Msg("simulated drawing stopped")
}

func (g *Generator) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancel != nil
}

// Toggle starts a stopped generator and stops a running one. It reports
// whether the generator is running afterwards.
func (g *Generator) Toggle(ctx context.Context) bool {
	if g.Running() {
		g.Stop()
		return false
	}
	g.Start(ctx)
	return true
}
