package net

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SharedBoard/internal/geom"
	"SharedBoard/internal/state"
)

const waitFor = 5 * time.Second

func stroke(id, author string) state.StrokeCommand {
	return state.StrokeCommand{
		ID:       id,
		AuthorID: author,
		Width:    state.PenWidth,
		Color:    "red",
		Smooth:   true,
		Points:   []geom.Point{geom.Pt(0, 0), geom.Pt(10, 10)},
	}
}

func testHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(state.NewMemoryLog(), zerolog.Nop())
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + Path
}

func connect(t *testing.T, srv *httptest.Server, site string) *Replica {
	t.Helper()
	r := NewReplica(ReplicaConfig{URL: wsURL(srv), SiteID: site, InitialBackoff: 10 * time.Millisecond}, zerolog.Nop())
	require.NoError(t, r.Connect(context.Background()))
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func ids(l interface {
	Len() int
	Get(i int) (state.StrokeCommand, bool)
}) []string {
	out := make([]string, 0, l.Len())
	for i := range l.Len() {
		c, ok := l.Get(i)
		if !ok {
			break
		}
		out = append(out, c.ID)
	}
	return out
}

func TestHub_SnapshotOnConnect(t *testing.T) {
	hub, srv := testHub(t)
	hub.Log().Append(stroke("1", "host"), stroke("2", "host"))

	r := connect(t, srv, "client")
	require.Eventually(t, func() bool { return r.Len() == 2 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []string{"1", "2"}, ids(r))
	assert.True(t, r.Connected())
	assert.Equal(t, 1, hub.Peers())
}

func TestReplica_AppendIsHostOrdered(t *testing.T) {
	hub, srv := testHub(t)
	r := connect(t, srv, "client")
	require.Eventually(t, func() bool { return hub.Peers() == 1 }, waitFor, 5*time.Millisecond)

	r.Append(stroke("c1", "client"))
	require.Eventually(t, func() bool { return r.Len() == 1 }, waitFor, 5*time.Millisecond)
	hub.Log().Append(stroke("h1", "host"))
	require.Eventually(t, func() bool { return r.Len() == 2 }, waitFor, 5*time.Millisecond)

	assert.Equal(t, ids(hub.Log()), ids(r))
	c, _ := r.Get(0)
	assert.Equal(t, "client", c.AuthorID)
	assert.Equal(t, "client", r.SiteID())
}

func TestReplica_Converge(t *testing.T) {
	hub, srv := testHub(t)
	a := connect(t, srv, "a")
	b := connect(t, srv, "b")
	require.Eventually(t, func() bool { return hub.Peers() == 2 }, waitFor, 5*time.Millisecond)

	var notified atomic.Int32
	cancel := b.OnChange(func(int) { notified.Add(1) })
	defer cancel()

	a.Append(stroke("a1", "a"))
	b.Append(stroke("b1", "b"))
	hub.Log().Append(stroke("h1", "host"))
	require.Eventually(t, func() bool { return hub.Log().Len() == 3 }, waitFor, 5*time.Millisecond)

	a.Truncate()
	require.Eventually(t, func() bool { return hub.Log().Len() == 0 }, waitFor, 5*time.Millisecond)
	b.Append(stroke("b2", "b"))

	converged := func() bool {
		want := ids(hub.Log())
		return len(want) == 1 && slices.Equal(want, ids(a)) && slices.Equal(want, ids(b))
	}
	require.Eventually(t, converged, waitFor, 5*time.Millisecond)
	assert.Positive(t, notified.Load())
}

func TestReplica_ReconnectResyncs(t *testing.T) {
	hub, srv := testHub(t)
	hub.Log().Append(stroke("1", "host"))
	r := connect(t, srv, "client")
	require.Eventually(t, func() bool { return r.Len() == 1 }, waitFor, 5*time.Millisecond)

	var reconnected atomic.Int32
	r.OnReconnect(func() { reconnected.Add(1) })
	var lengths []int
	lenCh := make(chan int, 16)
	cancel := r.OnChange(func(n int) { lenCh <- n })
	defer cancel()

	hub.DropPeers()
	require.Eventually(t, func() bool { return reconnected.Load() == 1 }, waitFor, 5*time.Millisecond)

	hub.Log().Append(stroke("2", "host"))
	require.Eventually(t, func() bool { return r.Len() == 2 }, waitFor, 5*time.Millisecond)

	for len(lenCh) > 0 {
		lengths = append(lengths, <-lenCh)
	}
	require.NotEmpty(t, lengths)
	assert.Equal(t, 0, lengths[0], "resync shows up as truncate then grow")
	assert.Equal(t, 2, lengths[len(lengths)-1])
}

func TestReplica_ClosedRefusesConnect(t *testing.T) {
	_, srv := testHub(t)
	r := NewReplica(ReplicaConfig{URL: wsURL(srv)}, zerolog.Nop())
	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Connect(context.Background()), ErrClosed)
	assert.NotEmpty(t, r.SiteID())

	r.Append(stroke("x", r.SiteID()))
	assert.Zero(t, r.Len())
}

func TestReplica_DialError(t *testing.T) {
	r := NewReplica(ReplicaConfig{URL: "ws://127.0.0.1:1" + Path}, zerolog.Nop())
	defer r.Close()
	assert.Error(t, r.Connect(context.Background()))
	assert.False(t, r.Connected())
}

func envelope(t *testing.T, typ string, payload any) Envelope {
	t.Helper()
	data, err := encode(typ, payload)
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestReplica_ApplyOrdering(t *testing.T) {
	r := NewReplica(ReplicaConfig{URL: "ws://unused" + Path}, zerolog.Nop())
	defer r.Close()

	require.NoError(t, r.apply(envelope(t, TypeSnapshot, SnapshotPayload{
		Epoch: 3, Commands: []state.StrokeCommand{stroke("1", "h"), stroke("2", "h")},
	})))
	assert.Equal(t, []string{"1", "2"}, ids(r))

	// Overlaps the snapshot: only the new entry is applied.
	require.NoError(t, r.apply(envelope(t, TypeAppended, AppendedPayload{
		Epoch: 3, Start: 1, Commands: []state.StrokeCommand{stroke("2", "h"), stroke("3", "h")},
	})))
	assert.Equal(t, []string{"1", "2", "3"}, ids(r))

	// Already reflected in the snapshot.
	require.NoError(t, r.apply(envelope(t, TypeTruncated, TruncatedPayload{Epoch: 3})))
	assert.Equal(t, 3, r.Len())

	// Stale epoch.
	require.NoError(t, r.apply(envelope(t, TypeAppended, AppendedPayload{
		Epoch: 2, Start: 3, Commands: []state.StrokeCommand{stroke("old", "h")},
	})))
	assert.Equal(t, 3, r.Len())

	require.NoError(t, r.apply(envelope(t, TypeTruncated, TruncatedPayload{Epoch: 4})))
	assert.Zero(t, r.Len())

	// A gap asks for a snapshot and ignores traffic until it arrives.
	require.NoError(t, r.apply(envelope(t, TypeAppended, AppendedPayload{
		Epoch: 4, Start: 5, Commands: []state.StrokeCommand{stroke("far", "h")},
	})))
	assert.Zero(t, r.Len())
	require.Len(t, r.sendCh, 1)
	var env Envelope
	require.NoError(t, json.Unmarshal(<-r.sendCh, &env))
	assert.Equal(t, TypeSync, env.Type)

	require.NoError(t, r.apply(envelope(t, TypeAppended, AppendedPayload{
		Epoch: 4, Start: 0, Commands: []state.StrokeCommand{stroke("a", "h")},
	})))
	assert.Zero(t, r.Len(), "ignored while syncing")

	require.NoError(t, r.apply(envelope(t, TypeSnapshot, SnapshotPayload{Epoch: 5})))
	assert.Zero(t, r.Len())
	assert.Error(t, r.apply(Envelope{Type: "bogus"}))
}

func TestHub_IgnoresUnknownMessages(t *testing.T) {
	hub, srv := testHub(t)
	conn, _, err := ws.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()

	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, TypeSnapshot, env.Type)

	require.NoError(t, conn.WriteJSON(Envelope{Type: "bogus"}))
	require.NoError(t, conn.WriteJSON(envelope(t, TypeAppend, AppendPayload{Commands: []state.StrokeCommand{stroke("1", "raw")}})))

	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, TypeAppended, env.Type)
	msg, err := decode[AppendedPayload](env)
	require.NoError(t, err)
	assert.Equal(t, 0, msg.Start)
	require.Len(t, msg.Commands, 1)
	assert.Equal(t, 1, hub.Log().Len())

	require.NoError(t, conn.WriteJSON(Envelope{Type: TypeSync}))
	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, TypeSnapshot, env.Type)
}

func TestHub_ClosedRejects(t *testing.T) {
	hub, srv := testHub(t)
	hub.Close()
	_, resp, err := ws.DefaultDialer.Dial(wsURL(srv), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestShareLink(t *testing.T) {
	link := ShareLink("192.168.1.5", 8888)
	assert.Equal(t, "sharedboard://192.168.1.5:8888", link)
	assert.True(t, IsShareLink(link))

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: link, want: "192.168.1.5:8888"},
		{in: "sharedboard://host:1/", want: "host:1"},
		{in: "localboard://host:1", wantErr: true},
		{in: "sharedboard://host", wantErr: true},
		{in: "sharedboard://:8888", wantErr: true},
		{in: "sharedboard://host:99999", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseShareLink(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "ws://h:1/ws", WebsocketURL("h:1"))
}
