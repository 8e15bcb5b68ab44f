package state

import (
	"SharedBoard/internal/geom"
	"SharedBoard/internal/view"
)

// Session is the per-site, in-memory state shared by stroke capture and
// replay. It lives for one session and is never persisted: the log is the
// only durable state of a drawing.
type Session struct {
	// HighWaterMark is how many log entries this site has painted.
	HighWaterMark int
	View          view.Transform

	Tool       Tool
	Color      string
	Smoothing  bool
	ShowPoints bool

	// Dragging is true between press and release of a gesture.
	Dragging bool
	// Active holds the document-space samples of the stroke being captured.
	Active []geom.Point
	// Anchor is the last raw pointer position of a pan gesture.
	Anchor geom.Point

	// optimistic holds ids of own commands painted during capture that
	// replay has not yet walked past.
	optimistic map[string]struct{}
}

func NewSession() *Session {
	return &Session{
		Tool:       ToolPen,
		Color:      DefaultColor,
		Smoothing:  true,
		optimistic: make(map[string]struct{}),
	}
}

// MarkPainted records that command id is being painted locally during capture.
func (s *Session) MarkPainted(id string) {
	s.optimistic[id] = struct{}{}
}

// ConsumePainted removes id from the locally painted set and reports whether
// it was there.
func (s *Session) ConsumePainted(id string) bool {
	if _, ok := s.optimistic[id]; !ok {
		return false
	}
	delete(s.optimistic, id)
	return true
}

// ForgetPainted drops id without replaying it, e.g. for a discarded stroke.
func (s *Session) ForgetPainted(id string) {
	delete(s.optimistic, id)
}

// ResetPainted empties the set; after the surface is cleared nothing is
// painted anymore.
func (s *Session) ResetPainted() {
	clear(s.optimistic)
}

// PendingPainted returns how many locally painted commands have not yet come
// back through the log.
func (s *Session) PendingPainted() int {
	return len(s.optimistic)
}
