package presence

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Socket event names, matching what clients send and receive.
const (
	EventUpdateLocation = "update_location"
	EventLocationUpdate = "location_update"
)

// Message is the wire frame for the presence channel.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Session binds one live websocket connection to the identity it was
// admitted with. It exists only between successful admission and cleanup;
// nothing about it is persisted.
type Session struct {
	UserID uuid.UUID
	Role   string

	hub   *Hub
	token string
	conn  *websocket.Conn
	send  chan Message

	closed atomic.Bool
}

func newSession(hub *Hub, userID uuid.UUID, role string, token string) *Session {
	return &Session{
		UserID: userID,
		Role:   role,
		hub:    hub,
		token:  token,
		send:   make(chan Message, 64),
	}
}

// Serve attaches the websocket connection to the session and pumps it
// until the connection closes. Blocks for the life of the connection.
func (s *Session) Serve(ctx context.Context, conn *websocket.Conn) {
	s.conn = conn
	go s.writePump()
	s.readPump(ctx)
}

func (s *Session) readPump(ctx context.Context) {
	defer func() {
		s.hub.Disconnect(ctx, s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Event {
		case EventUpdateLocation:
			var payload UpdateLocationPayload
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				continue
			}
			if err := s.hub.HandleLocationUpdate(ctx, s, payload); err != nil {
				return
			}
		default:
			// Unknown events are ignored; keepalive runs on ping frames.
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// Hub closed the channel during cleanup.
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) closeConn() {
	if s.conn == nil {
		return
	}
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid credential"),
		time.Now().Add(writeWait))
	_ = s.conn.Close()
}
