package net

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"SharedBoard/internal/state"
)

const (
	sendChSize   = 10_000
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
)

type ReplicaConfig struct {
	// URL is the host websocket endpoint, e.g. ws://10.0.0.2:8888/ws.
	URL    string
	SiteID string
	// InitialBackoff and MaxBackoff bound the delay between reconnect
	// attempts; it doubles after every failure.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxAttempts    int
}

// Replica is a client copy of the host log. It implements state.Log: local
// appends and truncates are sent to the host and only show up once the host
// relays them back, in host order.
type Replica struct {
	cfg    ReplicaConfig
	mirror *state.MemoryLog
	logger zerolog.Logger

	mu          sync.Mutex
	conn        *ws.Conn
	epoch       uint64
	syncing     bool
	resync      bool
	closed      bool
	onReconnect func()

	sendCh chan []byte
	done   chan struct{}
	wg     sync.WaitGroup
}

var _ state.Log = (*Replica)(nil)

func NewReplica(cfg ReplicaConfig, logger zerolog.Logger) *Replica {
	if cfg.SiteID == "" {
		cfg.SiteID = state.NewSiteID()
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = maxBackoff
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = maxReconnect
	}
	return &Replica{
		cfg:    cfg,
		mirror: state.NewMemoryLog(),
		logger: logger.With().Str("url", cfg.URL).Logger(),
		sendCh: make(chan []byte, sendChSize),
		done:   make(chan struct{}),
	}
}

// WebsocketURL turns a host:port address into the host endpoint URL.
func WebsocketURL(addr string) string {
	u := url.URL{Scheme: "ws", Host: addr, Path: Path}
	return u.String()
}

// OnReconnect registers fn to run after every snapshot received on a
// reconnected link.
func (r *Replica) OnReconnect(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onReconnect = fn
}

// Connect dials the host and starts the read and write loops. The host sends
// a snapshot as soon as the link is up.
func (r *Replica) Connect(ctx context.Context) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}

	conn, err := r.dial(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		_ = conn.Close()
		return ErrClosed
	}
	r.conn = conn
	r.start(conn)
	return nil
}

func (r *Replica) dial(ctx context.Context) (*ws.Conn, error) {
	conn, _, err := ws.DefaultDialer.DialContext(ctx, r.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", r.cfg.URL, err)
	}
	conn.SetReadLimit(maxMessage)
	return conn, nil
}

// start must be called with mu held.
func (r *Replica) start(conn *ws.Conn) {
	stop := make(chan struct{})
	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		r.writeLoop(conn, stop)
	}()
	go func() {
		defer r.wg.Done()
		r.readLoop(conn, stop)
	}()
}

func (r *Replica) writeLoop(conn *ws.Conn, stop <-chan struct{}) {
	for {
		select {
		case <-r.done:
			return
		case <-stop:
			return
		case data := <-r.sendCh:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				r.logger.Warn().Err(err).Msg("set write deadline")
				_ = conn.Close()
				return
			}
			if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
				r.logger.Warn().Err(err).Msg("write failed")
				_ = conn.Close()
				return
			}
		}
	}
}

func (r *Replica) readLoop(conn *ws.Conn, stop chan struct{}) {
	defer close(stop)
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			select {
			case <-r.done:
				return
			default:
			}
			r.logger.Warn().Err(err).Msg("link lost")
			_ = conn.Close()
			go r.reconnect()
			return
		}
		if err := r.apply(env); err != nil {
			r.logger.Warn().Err(err).Str("type", env.Type).Msg("bad message")
		}
	}
}

// apply folds one host message into the mirror. Entries are addressed by
// (epoch, index) so a message overlapping the snapshot is applied once.
func (r *Replica) apply(env Envelope) error {
	switch env.Type {
	case TypeSnapshot:
		msg, err := decode[SnapshotPayload](env)
		if err != nil {
			return err
		}
		r.mu.Lock()
		r.epoch = msg.Epoch
		r.syncing = false
		hook := r.onReconnect
		if !r.resync {
			hook = nil
		}
		r.resync = false
		r.mu.Unlock()

		r.mirror.Truncate()
		r.mirror.Append(msg.Commands...)
		r.logger.Debug().Uint64("epoch", msg.Epoch).Int("entries", len(msg.Commands)).Msg("snapshot applied")
		if hook != nil {
			hook()
		}

	case TypeTruncated:
		msg, err := decode[TruncatedPayload](env)
		if err != nil {
			return err
		}
		r.mu.Lock()
		if r.syncing || msg.Epoch <= r.epoch {
			r.mu.Unlock()
			return nil
		}
		r.epoch = msg.Epoch
		r.mu.Unlock()
		r.mirror.Truncate()

	case TypeAppended:
		msg, err := decode[AppendedPayload](env)
		if err != nil {
			return err
		}
		r.mu.Lock()
		if r.syncing || msg.Epoch < r.epoch {
			r.mu.Unlock()
			return nil
		}
		if msg.Epoch > r.epoch {
			r.mu.Unlock()
			r.requestSync("missed truncate")
			return nil
		}
		r.mu.Unlock()

		n := r.mirror.Len()
		if msg.Start > n {
			r.requestSync("gap in appended entries")
			return nil
		}
		if skip := n - msg.Start; skip < len(msg.Commands) {
			r.mirror.Append(msg.Commands[skip:]...)
		}

	default:
		return fmt.Errorf("unknown message type %q", env.Type)
	}
	return nil
}

func (r *Replica) requestSync(reason string) {
	r.mu.Lock()
	r.syncing = true
	r.mu.Unlock()
	r.logger.Info().Str("reason", reason).Msg("requesting snapshot")
	r.send(TypeSync, nil)
}

// reconnect re-dials with exponential backoff. The snapshot that follows a
// successful dial replaces the mirror and fires the reconnect hook.
func (r *Replica) reconnect() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.conn = nil
	r.mu.Unlock()

	backoff := r.cfg.InitialBackoff
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		r.logger.Info().Int("attempt", attempt).Dur("backoff", backoff).Msg("reconnecting")
		select {
		case <-r.done:
			return
		case <-time.After(backoff):
		}

		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		conn, err := r.dial(ctx)
		cancel()
		if err != nil {
			r.logger.Warn().Err(err).Int("attempt", attempt).Msg("reconnect failed")
			backoff = min(backoff*2, r.cfg.MaxBackoff)
			continue
		}

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			_ = conn.Close()
			return
		}
		r.conn = conn
		r.resync = true
		r.syncing = false
		r.start(conn)
		r.mu.Unlock()

		r.logger.Info().Int("attempt", attempt).Msg("reconnected")
		return
	}
	r.logger.Error().Int("attempts", r.cfg.MaxAttempts).Msg("giving up on host")
}

func (r *Replica) send(typ string, payload any) {
	data, err := encode(typ, payload)
	if err != nil {
		r.logger.Error().Err(err).Msg("encode")
		return
	}
	select {
	case <-r.done:
	case r.sendCh <- data:
	default:
		r.logger.Warn().Str("type", typ).Msg("send queue full, dropping message")
	}
}

func (r *Replica) SiteID() string {
	return r.cfg.SiteID
}

func (r *Replica) Append(cmds ...state.StrokeCommand) {
	if len(cmds) == 0 {
		return
	}
	r.send(TypeAppend, AppendPayload{Commands: cmds})
}

func (r *Replica) Truncate() {
	r.send(TypeTruncate, nil)
}

func (r *Replica) Len() int {
	return r.mirror.Len()
}

func (r *Replica) Get(i int) (state.StrokeCommand, bool) {
	return r.mirror.Get(i)
}

func (r *Replica) OnChange(fn func(n int)) func() {
	return r.mirror.OnChange(fn)
}

// Connected reports whether the link to the host is up.
func (r *Replica) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil
}

// Close shuts the link down. Appends after Close are dropped.
func (r *Replica) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	var err error
	if conn != nil {
		_ = conn.WriteControl(ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(writeWait))
		err = conn.Close()
	}
	r.wg.Wait()
	return err
}
