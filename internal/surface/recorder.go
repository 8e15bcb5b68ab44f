package surface

import (
	"slices"
	"sync"

	"SharedBoard/internal/geom"
)

type OpKind int

const (
	OpClear OpKind = iota
	OpStroke
	OpResize
	OpMark
)

// Op is one recorded surface call.
type Op struct {
	Kind   OpKind
	Segs   []geom.Segment
	Style  Style
	Width  int
	Height int
	Point  geom.Point
}

// Recorder is a Surface that keeps a list of every call made to it.
type Recorder struct {
	mu  sync.Mutex
	ops []Op
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Clear() {
	r.record(Op{Kind: OpClear})
}

func (r *Recorder) StrokePath(segs []geom.Segment, style Style) {
	r.record(Op{Kind: OpStroke, Segs: slices.Clone(segs), Style: style})
}

func (r *Recorder) Resize(width, height int) error {
	r.record(Op{Kind: OpResize, Width: width, Height: height})
	return nil
}

func (r *Recorder) MarkPoint(p geom.Point, _ float64) {
	r.record(Op{Kind: OpMark, Point: p})
}

func (r *Recorder) record(op Op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

// Ops returns every call recorded so far.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.ops)
}

// Visible returns the strokes painted since the last Clear.
func (r *Recorder) Visible() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Op
	for _, op := range r.ops {
		switch op.Kind {
		case OpClear:
			out = out[:0]
		case OpStroke:
			out = append(out, op)
		}
	}
	return out
}

// Count returns how many calls of the given kind were recorded.
func (r *Recorder) Count(kind OpKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, op := range r.ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = nil
}
