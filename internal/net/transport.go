package net

import (
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	peerSendSize = 1024
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
	maxMessage   = 4 << 20
)

// peer is one replica connected to the host. All writes go through send and
// a single write goroutine.
type peer struct {
	conn   *ws.Conn
	addr   string
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger zerolog.Logger
}

func newPeer(conn *ws.Conn, logger zerolog.Logger) *peer {
	addr := conn.RemoteAddr().String()
	return &peer{
		conn:   conn,
		addr:   addr,
		send:   make(chan []byte, peerSendSize),
		done:   make(chan struct{}),
		logger: logger.With().Str("peer", addr).Logger(),
	}
}

// enqueue hands data to the write loop. A peer that cannot keep up is
// dropped; it resynchronises from a snapshot when it reconnects.
func (p *peer) enqueue(data []byte) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.send <- data:
		return true
	default:
		p.logger.Warn().Msg("send queue full, dropping peer")
		p.close()
		return false
	}
}

func (p *peer) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = p.conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
			_ = p.conn.Close()
			return
		case data := <-p.send:
			if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				p.logger.Warn().Err(err).Msg("set write deadline")
				p.close()
				continue
			}
			if err := p.conn.WriteMessage(ws.TextMessage, data); err != nil {
				p.logger.Warn().Err(err).Msg("write failed")
				p.close()
			}
		case <-ticker.C:
			if err := p.conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				p.close()
			}
		}
	}
}

func (p *peer) close() {
	p.once.Do(func() { close(p.done) })
}

// peerSet tracks the connected replicas of the host.
type peerSet struct {
	mu     sync.RWMutex
	peers  map[*peer]struct{}
	logger zerolog.Logger
}

func newPeerSet(logger zerolog.Logger) *peerSet {
	return &peerSet{peers: make(map[*peer]struct{}), logger: logger}
}

func (s *peerSet) add(p *peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers[p] = struct{}{}
	s.logger.Info().Str("peer", p.addr).Int("peers", len(s.peers)).Msg("peer connected")
}

func (s *peerSet) remove(p *peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.peers[p]; !ok {
		return
	}
	delete(s.peers, p)
	s.logger.Info().Str("peer", p.addr).Int("peers", len(s.peers)).Msg("peer disconnected")
}

func (s *peerSet) broadcast(data []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for p := range s.peers {
		p.enqueue(data)
	}
}

func (s *peerSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

func (s *peerSet) closeAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for p := range s.peers {
		p.close()
	}
}
