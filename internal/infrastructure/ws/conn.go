package ws

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// socket wraps a gorilla connection with the deadlines and limits of a hub.
type socket struct {
	*websocket.Conn
	writeTimeout time.Duration
	pongWait     time.Duration
}

func newSocket(conn *websocket.Conn, opts Options) *socket {
	s := &socket{
		Conn:         conn,
		writeTimeout: opts.WriteTimeout,
		pongWait:     opts.PingInterval * 2,
	}
	conn.SetReadLimit(opts.MaxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.pongWait))
	})
	return s
}

func (s *socket) write(data []byte) error {
	_ = s.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return s.WriteMessage(websocket.TextMessage, data)
}

func (s *socket) ping() error {
	return s.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout))
}

// readLoop hands every text frame to onMsg until the peer goes away.
func (s *socket) readLoop(log zerolog.Logger, onMsg func([]byte)) {
	for {
		_, data, err := s.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("unexpected close")
			}
			return
		}
		if len(data) > 0 {
			onMsg(data)
		}
	}
}
