package realtime

import (
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const closeGracePeriod = time.Second

// wsStream exposes a WebSocket as the byte stream a STOMP connection runs on.
// Every Write becomes one text message; reads continue across messages.
type wsStream struct {
	conn    *websocket.Conn
	reader  io.Reader
	writeMu sync.Mutex
	once    sync.Once
	err     error
}

func newWSStream(conn *websocket.Conn) *wsStream {
	return &wsStream{conn: conn}
}

func (s *wsStream) Read(p []byte) (int, error) {
	for {
		if s.reader == nil {
			_, r, err := s.conn.NextReader()
			if err != nil {
				return 0, err
			}
			s.reader = r
		}
		n, err := s.reader.Read(p)
		if err == io.EOF {
			s.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (s *wsStream) Write(p []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *wsStream) Close() error {
	s.once.Do(func() {
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGracePeriod),
		)
		s.err = s.conn.Close()
	})
	return s.err
}

// setHandshakeDeadline bounds the STOMP CONNECT exchange; a zero time clears it.
func (s *wsStream) setHandshakeDeadline(t time.Time) error {
	return s.conn.SetReadDeadline(t)
}
