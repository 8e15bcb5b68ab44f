package export

import (
	"bytes"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SharedBoard/internal/geom"
	"SharedBoard/internal/replay"
	"SharedBoard/internal/state"
	"SharedBoard/internal/surface"
)

var drawing = []state.StrokeCommand{
	{ID: "1", AuthorID: "a", Width: state.PenWidth, Color: "red", Smooth: true,
		Points: []geom.Point{geom.Pt(5, 5), geom.Pt(20, 30), geom.Pt(40, 10), geom.Pt(60, 50)}},
	{ID: "2", AuthorID: "b", Width: state.EraserWidth, Erasing: true,
		Points: []geom.Point{geom.Pt(0, 20), geom.Pt(64, 20)}},
	{ID: "bad", AuthorID: "b", Width: state.PenWidth, Points: []geom.Point{geom.Pt(1, 1)}},
}

func TestRender_MatchesReplay(t *testing.T) {
	f := Frame{Width: 64, Height: 64, Offset: geom.Pt(3, -2)}
	got, err := Render(drawing, f)
	require.NoError(t, err)

	mem := state.NewMemoryLog()
	mem.Append(drawing...)
	r := surface.NewRaster(64, 64)
	session := state.NewSession()
	session.View.Offset = f.Offset
	loop := replay.NewLoop()
	e := replay.New(mem.Site("viewer"), r, session, loop, zerolog.Nop())
	e.Start()
	defer e.Stop()
	loop.Tick()

	assert.Equal(t, r.Pixels(), got.Pixels())
}

func TestPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, drawing, Frame{Width: 80, Height: 40}))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 80, img.Bounds().Dx())
	assert.Equal(t, 40, img.Bounds().Dy())
}

func TestPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, drawing, Frame{Width: 200, Height: 100}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	path := filepath.Join(t.TempDir(), "board.pdf")
	require.NoError(t, PDF(path, nil, Frame{Width: 10, Height: 10}))
	assert.FileExists(t, path)
}

func TestEmptyFrame(t *testing.T) {
	_, err := Render(drawing, Frame{Width: 0, Height: 10})
	assert.ErrorIs(t, err, ErrEmptyFrame)

	var buf bytes.Buffer
	assert.ErrorIs(t, WritePDF(&buf, drawing, Frame{Width: 10}), ErrEmptyFrame)
	assert.ErrorIs(t, PNG(&buf, drawing, Frame{}), ErrEmptyFrame)
}
