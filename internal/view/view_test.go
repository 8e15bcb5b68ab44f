package view

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"SharedBoard/internal/geom"
)

func TestTransform_RoundTrip(t *testing.T) {
	var tr Transform
	assert.True(t, tr.IsIdentity())

	tr.Pan(geom.Pt(15, -4))
	tr.Pan(geom.Pt(5, 1))
	assert.Equal(t, geom.Pt(20, -3), tr.Offset)
	assert.False(t, tr.IsIdentity())

	raw := geom.Pt(100, 50)
	doc := tr.ToDocument(raw)
	assert.Equal(t, geom.Pt(80, 53), doc)
	assert.Equal(t, raw, tr.ToSurface(doc))
}

func TestTransform_Reset(t *testing.T) {
	tr := Transform{Offset: geom.Pt(3, 3)}
	tr.Reset()
	assert.True(t, tr.IsIdentity())
	assert.Equal(t, geom.Pt(7, 7), tr.ToSurface(geom.Pt(7, 7)))
}
