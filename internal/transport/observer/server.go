package observer

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"aoc2022.dev/internal/observerproto"
	"aoc2022.dev/internal/sim/keepaway"
)

const DefaultQueueDepth = 8

// Server streams every completed round to subscribed websocket observers. It
// implements keepaway.RoundLogger; a slow observer loses its oldest queued
// rounds rather than holding up the simulation.
type Server struct {
	log        *zap.Logger
	upgrader   websocket.Upgrader
	queueDepth int

	mu     sync.Mutex
	boot   observerproto.BootstrapResponse
	subs   map[uint64]*subscriber
	nextID uint64
	closed bool

	wg      sync.WaitGroup
	dropped atomic.Uint64
}

var _ keepaway.RoundLogger = (*Server)(nil)

type subscriber struct {
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func (s *subscriber) stop() { s.once.Do(func() { close(s.done) }) }

func NewServer(boot observerproto.BootstrapResponse, queueDepth int, logger *zap.Logger) *Server {
	if queueDepth <= 0 {
		queueDepth = DefaultQueueDepth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	boot.ProtocolVersion = observerproto.Version
	return &Server{
		log:        logger,
		queueDepth: queueDepth,
		boot:       boot,
		subs:       map[uint64]*subscriber{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only
		},
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !IsLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		s.mu.Lock()
		resp := s.boot
		s.mu.Unlock()

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !IsLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub observerproto.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil {
			closeWith(conn, websocket.ClosePolicyViolation, "bad subscribe")
			return
		}
		if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
			closeWith(conn, websocket.ClosePolicyViolation, "expected SUBSCRIBE")
			return
		}

		id, sess, ok := s.register()
		if !ok {
			closeWith(conn, websocket.CloseGoingAway, "server closing")
			return
		}
		defer s.wg.Done()
		defer s.unregister(id)
		s.log.Debug("observer joined", zap.Uint64("session", id), zap.String("remote", r.RemoteAddr))

		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for {
				select {
				case <-sess.done:
					closeWith(conn, websocket.CloseGoingAway, "bye")
					_ = conn.Close()
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						_ = conn.Close()
						return
					}
				}
			}
		}()

		// Observers are read-only; reads only detect the peer going away.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		sess.stop()
		<-writerDone
		s.log.Debug("observer left", zap.Uint64("session", id))
	}
}

func (s *Server) register() (uint64, *subscriber, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, nil, false
	}
	s.nextID++
	sub := &subscriber{out: make(chan []byte, s.queueDepth), done: make(chan struct{})}
	s.subs[s.nextID] = sub
	s.wg.Add(1)
	return s.nextID, sub, true
}

func (s *Server) unregister(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

// WriteRound broadcasts the round to every subscriber.
func (s *Server) WriteRound(e keepaway.RoundLogEntry) error {
	b, err := json.Marshal(observerproto.RoundMsg{
		Type:            observerproto.TypeRound,
		ProtocolVersion: observerproto.Version,
		RunID:           e.RunID,
		Round:           e.Round,
		Mode:            e.Mode,
		Digest:          e.Digest,
		Inspected:       e.Inspected,
		Inspections:     e.Inspections,
		Holding:         e.Holding,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.boot.Round = e.Round
	s.boot.Mode = e.Mode
	for _, sub := range s.subs {
		select {
		case sub.out <- b:
			continue
		default:
		}
		// Full: drop the oldest queued round and retry once.
		select {
		case <-sub.out:
			s.dropped.Add(1)
		default:
		}
		select {
		case sub.out <- b:
		default:
			s.dropped.Add(1)
		}
	}
	return nil
}

func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Dropped counts rounds discarded because an observer fell behind.
func (s *Server) Dropped() uint64 { return s.dropped.Load() }

// Close disconnects every observer and waits for their handlers to return.
// Later connections are refused.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	for _, sub := range s.subs {
		sub.stop()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

// IsLoopbackRemote reports whether an http.Request RemoteAddr is a loopback address.
func IsLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
