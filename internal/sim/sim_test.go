package sim

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SharedBoard/internal/capture"
	"SharedBoard/internal/state"
)

func TestGenerator_Point(t *testing.T) {
	g := New(state.NewMemoryLog().Site("local"), Config{}, zerolog.Nop())
	g.SetBounds(200, 100)

	p := g.Point(0)
	assert.InDelta(t, 145, p.X, 1e-9)
	assert.InDelta(t, 95, p.Y, 1e-9)

	p = g.Point(math.Pi / 10)
	assert.InDelta(t, 100+math.Sin(math.Pi)*45, p.X, 1e-9)
}

func TestGenerator_StepsAuthorRemoteCommands(t *testing.T) {
	mem := state.NewMemoryLog()
	g := New(mem.Site("local"), Config{Color: "orange"}, zerolog.Nop())
	g.SetBounds(400, 400)
	require.NotEqual(t, "local", g.SiteID())

	for range 300 {
		g.Step()
	}
	_, cmds := mem.Snapshot()
	require.NotEmpty(t, cmds)
	for i, c := range cmds {
		assert.Equal(t, g.SiteID(), c.AuthorID)
		assert.Equal(t, "orange", c.Color)
		assert.LessOrEqual(t, len(c.Points), capture.DefaultBatchSize)
		if i > 0 {
			prev := cmds[i-1].Points
			assert.Equal(t, prev[len(prev)-1], c.Points[0], "batches continue the same stroke")
		}
	}
	assert.Zero(t, g.session.PendingPainted())
}

func TestGenerator_StartStop(t *testing.T) {
	mem := state.NewMemoryLog()
	g := New(mem.Site("local"), Config{Interval: time.Millisecond}, zerolog.Nop())
	g.SetBounds(400, 400)

	assert.True(t, g.Toggle(context.Background()))
	assert.True(t, g.Running())
	require.Eventually(t, func() bool { return mem.Len() > 0 }, 5*time.Second, 5*time.Millisecond)

	assert.False(t, g.Toggle(context.Background()))
	assert.False(t, g.Running())
	n := mem.Len()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, n, mem.Len(), "nothing appended after stop")
	assert.False(t, g.capture.Dragging())
}
