package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"SharedBoard/internal/state"
)

// ErrClosed is returned by operations on a closed hub or replica.
var ErrClosed = errors.New("connection closed")

// Path is the websocket endpoint served by the host.
const Path = "/ws"

// Hub is the host side of a board. It owns the authoritative log, orders
// every append and truncate in arrival order, and relays each change to all
// connected replicas.
type Hub struct {
	log      *state.MemoryLog
	peers    *peerSet
	upgrader ws.Upgrader
	logger   zerolog.Logger

	mu     sync.Mutex // orders snapshots against broadcasts
	epoch  uint64
	sent   int
	cancel func()
	closed bool
}

// NewHub relays log. Entries already in log are part of every snapshot.
func NewHub(log *state.MemoryLog, logger zerolog.Logger) *Hub {
	h := &Hub{
		log:   log,
		peers: newPeerSet(logger),
		upgrader: ws.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
	h.epoch, _ = log.Snapshot()
	h.sent = log.Len()
	h.cancel = log.OnChange(h.changed)
	return h
}

// Log is the authoritative log. The host's own board appends to it directly.
func (h *Hub) Log() *state.MemoryLog {
	return h.log
}

// Peers returns the number of connected replicas.
func (h *Hub) Peers() int {
	return h.peers.len()
}

// Handler serves the websocket endpoint.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(Path, h)
	return mux
}

// ListenAndServe serves on addr until ctx is done.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return h.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (h *Hub) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: h.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.Close()
		_ = srv.Shutdown(shutdownCtx)
	}()
	h.logger.Info().Str("addr", ln.Addr().String()).Msg("host listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, ErrClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("upgrade failed")
		return
	}
	p := newPeer(conn, h.logger)
	go p.writeLoop()

	if err := h.join(p); err != nil {
		p.logger.Error().Err(err).Msg("initial snapshot")
		p.close()
		return
	}
	defer h.peers.remove(p)
	defer p.close()
	h.readLoop(p)
}

// join registers p and queues the current snapshot as its first message.
func (h *Hub) join(p *peer) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.sendSnapshot(p); err != nil {
		return err
	}
	h.peers.add(p)
	return nil
}

func (h *Hub) sendSnapshot(p *peer) error {
	epoch, cmds := h.log.Snapshot()
	data, err := encode(TypeSnapshot, SnapshotPayload{Epoch: epoch, Commands: cmds})
	if err != nil {
		return err
	}
	p.enqueue(data)
	return nil
}

func (h *Hub) readLoop(p *peer) {
	conn := p.conn
	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				p.logger.Warn().Err(err).Msg("read failed")
			}
			return
		}
		if err := h.handle(p, env); err != nil {
			p.logger.Warn().Err(err).Str("type", env.Type).Msg("bad message")
		}
	}
}

func (h *Hub) handle(p *peer, env Envelope) error {
	switch env.Type {
	case TypeAppend:
		msg, err := decode[AppendPayload](env)
		if err != nil {
			return err
		}
		h.log.Append(msg.Commands...)
	case TypeTruncate:
		p.logger.Info().Msg("truncate requested")
		h.log.Truncate()
	case TypeSync:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.sendSnapshot(p)
	default:
		return fmt.Errorf("unknown message type %q", env.Type)
	}
	return nil
}

// changed runs for every length change of the log, in mutation order.
func (h *Hub) changed(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	epoch, cmds := h.log.Snapshot()
	if epoch != h.epoch {
		h.epoch = epoch
		h.sent = 0
		h.broadcast(TypeTruncated, TruncatedPayload{Epoch: epoch})
	}
	if len(cmds) > h.sent {
		h.broadcast(TypeAppended, AppendedPayload{Epoch: epoch, Start: h.sent, Commands: cmds[h.sent:]})
		h.sent = len(cmds)
	}
	h.logger.Trace().Int("len", n).Uint64("epoch", epoch).Msg("relayed change")
}

func (h *Hub) broadcast(typ string, payload any) {
	data, err := encode(typ, payload)
	if err != nil {
		h.logger.Error().Err(err).Msg("encode broadcast")
		return
	}
	h.peers.broadcast(data)
}

// DropPeers disconnects every replica. They reconnect and resynchronise.
func (h *Hub) DropPeers() {
	h.peers.closeAll()
}

// Close stops relaying and disconnects every replica.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()
	h.cancel()
	h.peers.closeAll()
}
