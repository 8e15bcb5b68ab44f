package store

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SharedBoard/internal/geom"
	"SharedBoard/internal/state"
)

func stroke(id string, pts ...geom.Point) state.StrokeCommand {
	return state.StrokeCommand{ID: id, AuthorID: "a", Width: state.PenWidth, Color: "green", Smooth: true, Points: pts}
}

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "board.db")
	s, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	return s, path
}

func TestStore_MirrorsLog(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()

	log := state.NewMemoryLog()
	s.Watch(log)

	log.Append(stroke("1", geom.Pt(0, 0), geom.Pt(1, 1)))
	log.Append(stroke("2", geom.Pt(2, 2), geom.Pt(3, 3)), stroke("3", geom.Pt(4, 4), geom.Pt(5, 5)))

	cmds, err := s.Load()
	require.NoError(t, err)
	require.Len(t, cmds, 3)
	assert.Equal(t, "3", cmds[2].ID)
	assert.Equal(t, []geom.Point{geom.Pt(4, 4), geom.Pt(5, 5)}, cmds[2].Points)
	assert.True(t, cmds[2].Smooth)

	log.Truncate()
	n, err := s.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	log.Append(stroke("4", geom.Pt(0, 0), geom.Pt(9, 9)))
	cmds, err = s.Load()
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, "4", cmds[0].ID)
}

func TestStore_RestoreAfterRestart(t *testing.T) {
	s, path := openTemp(t)
	log := state.NewMemoryLog()
	s.Watch(log)
	log.Append(stroke("1", geom.Pt(0, 0), geom.Pt(1, 1)), stroke("2", geom.Pt(1, 1), geom.Pt(2, 2)))
	require.NoError(t, s.Close())

	s2, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer s2.Close()

	restored := state.NewMemoryLog()
	n, err := s2.Restore(restored)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, restored.Len())

	restored.Append(stroke("3", geom.Pt(5, 5), geom.Pt(6, 6)))
	count, err := s2.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count, "restored log keeps being mirrored")

	_, err = s2.Restore(restored)
	assert.Error(t, err)
}

func TestStore_InMemory(t *testing.T) {
	s, err := Open("", zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	log := state.NewMemoryLog()
	s.Watch(log)
	log.Append(stroke("1", geom.Pt(0, 0), geom.Pt(1, 1)))
	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestJSON(t *testing.T) {
	cmds := []state.StrokeCommand{
		stroke("1", geom.Pt(0, 0), geom.Pt(1, 1)),
		{ID: "e", AuthorID: "b", Width: state.EraserWidth, Erasing: true, Points: []geom.Point{geom.Pt(0, 0), geom.Pt(3, 0)}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, cmds))
	assert.Contains(t, buf.String(), `"authorId": "a"`)
	assert.Contains(t, buf.String(), `"erasing": true`)

	got, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, cmds, got)
}

func TestReadJSON_DropsUndrawable(t *testing.T) {
	in := `[{"id":"1","authorId":"a","width":4,"points":[{"x":1,"y":1}]},
	         {"id":"2","authorId":"a","width":4,"points":[{"x":1,"y":1},{"x":2,"y":2}]}]`
	got, err := ReadJSON(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)

	_, err = ReadJSON(strings.NewReader("{"))
	assert.Error(t, err)
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drawing.json")
	cmds := []state.StrokeCommand{stroke("1", geom.Pt(0, 0), geom.Pt(1, 1))}
	require.NoError(t, SaveFile(path, cmds))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cmds, got)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	var empty bytes.Buffer
	require.NoError(t, WriteJSON(&empty, nil))
	assert.Equal(t, "[]", empty.String())
}
