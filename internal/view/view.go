// Package view maps between document space and surface space.
package view

import "SharedBoard/internal/geom"

// Transform is a pure pan translation. Points are stored in document space
// and shifted by Offset only when painted.
type Transform struct {
	Offset geom.Point
}

// ToDocument converts a raw surface position into document space.
func (t Transform) ToDocument(raw geom.Point) geom.Point {
	return raw.Sub(t.Offset)
}

// ToSurface converts a document point into surface space.
func (t Transform) ToSurface(p geom.Point) geom.Point {
	return p.Add(t.Offset)
}

// Pan moves the view by d.
func (t *Transform) Pan(d geom.Point) {
	t.Offset = t.Offset.Add(d)
}

// Reset returns to the origin.
func (t *Transform) Reset() {
	t.Offset = geom.Point{}
}

// IsIdentity reports whether no pan is applied.
func (t Transform) IsIdentity() bool {
	return t.Offset == geom.Point{}
}
