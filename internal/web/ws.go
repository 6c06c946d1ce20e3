package web

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/arena"
	"github.com/cory-johannsen/arena/internal/game/combat"
)

const (
	wsWriteWait  = 5 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Message is one server-to-client websocket frame.
type Message struct {
	Type    string          `json:"type"`
	Update  *combat.Update  `json:"update,omitempty"`
	Outcome *combat.Outcome `json:"outcome,omitempty"`
	Error   string          `json:"error,omitempty"`
}

const (
	MessageUpdate  = "update"
	MessageOutcome = "outcome"
	MessageError   = "error"
)

// wsConn serialises writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	mu sync.Mutex
	c  *websocket.Conn
}

func (w *wsConn) send(m Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.c.WriteJSON(m)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

func (w *wsConn) closeWith(code int, reason string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = w.c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
}

// handleStream upgrades to a websocket that pushes every battle update and
// the final outcome, and accepts Action frames from the client.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.battle(w, r)
	if !ok {
		return
	}
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	conn := &wsConn{c: raw}
	defer raw.Close()

	updates, cancel := sess.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go s.readActions(conn, sess, done)

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				if o, ended := sess.Outcome(); ended {
					_ = conn.send(Message{Type: MessageOutcome, Outcome: &o})
				}
				conn.closeWith(websocket.CloseNormalClosure, "battle over")
				return
			}
			if err := conn.send(Message{Type: MessageUpdate, Update: &u}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Server) readActions(conn *wsConn, sess *combat.Session, done chan<- struct{}) {
	defer close(done)
	c := conn.c
	c.SetReadLimit(4096)
	_ = c.SetReadDeadline(time.Now().Add(wsPongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		var a arena.Action
		if err := c.ReadJSON(&a); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				s.logger.Debug("websocket read", zap.String("session", sess.ID()), zap.Error(err))
			}
			return
		}
		_ = c.SetReadDeadline(time.Now().Add(wsPongWait))
		if err := arena.Apply(sess, a); err != nil {
			if conn.send(Message{Type: MessageError, Error: err.Error()}) != nil {
				return
			}
		}
	}
}
