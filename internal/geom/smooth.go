package geom

// SegmentKind tells how a segment is stroked.
type SegmentKind int

const (
	Line SegmentKind = iota
	Quad
)

// Segment is one piece of a stroked path. Ctrl is only meaningful for Quad.
type Segment struct {
	Kind SegmentKind
	From Point
	Ctrl Point
	To   Point
}

// SegmentAt returns segment j (1 <= j < len(pts)) of the path through pts.
//
// With smoothing, segment j uses pts[j-1] as its control point and joins the
// midpoints of neighbouring samples. The first segment runs straight from
// pts[0]; the terminal segment ends on the last sample itself instead of on a
// midpoint. Without smoothing, segment j is the straight line pts[j-1]->pts[j].
//
// Capture paints segments one by one as they become final and replay paints
// them all at once; both go through this function.
func SegmentAt(pts []Point, j int, terminal, smooth bool) Segment {
	if !smooth {
		return Segment{Kind: Line, From: pts[j-1], To: pts[j]}
	}
	if j == 1 {
		to := Mid(pts[0], pts[1])
		if terminal {
			to = pts[1]
		}
		return Segment{Kind: Line, From: pts[0], To: to}
	}
	to := Mid(pts[j-1], pts[j])
	if terminal {
		to = pts[j]
	}
	return Segment{
		Kind: Quad,
		From: Mid(pts[j-2], pts[j-1]),
		Ctrl: pts[j-1],
		To:   to,
	}
}

// Path returns every segment of pts with the last one treated as terminal.
// Sequences shorter than two points have no path.
func Path(pts []Point, smooth bool) []Segment {
	if len(pts) < 2 {
		return nil
	}
	last := len(pts) - 1
	segs := make([]Segment, 0, last)
	for j := 1; j <= last; j++ {
		segs = append(segs, SegmentAt(pts, j, j == last, smooth))
	}
	return segs
}

// Translate shifts every segment by d.
func Translate(segs []Segment, d Point) []Segment {
	out := make([]Segment, len(segs))
	for i, s := range segs {
		out[i] = Segment{Kind: s.Kind, From: s.From.Add(d), Ctrl: s.Ctrl.Add(d), To: s.To.Add(d)}
	}
	return out
}
