package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/angelmondragon/forkfinderz-realtime/pkg/auth"
	pkgerrors "github.com/angelmondragon/forkfinderz-realtime/pkg/errors"
	"github.com/go-stomp/stomp/v3"
	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"
)

const disconnectTimeout = 2 * time.Second

// session is one live STOMP connection subscribed to the notification queue.
type session interface {
	Messages() <-chan *stomp.Message
	Close() error
}

// connectFunc opens a session authenticated with token.
type connectFunc func(ctx context.Context, token string) (session, error)

type stompSession struct {
	conn   *stomp.Conn
	sub    *stomp.Subscription
	stream *wsStream
}

func (s *stompSession) Messages() <-chan *stomp.Message {
	return s.sub.C
}

// Close sends DISCONNECT and waits briefly for the receipt before dropping the
// socket.
func (s *stompSession) Close() error {
	done := make(chan error, 1)
	go func() {
		done <- s.conn.Disconnect()
	}()
	var err error
	select {
	case err = <-done:
	case <-time.After(disconnectTimeout):
		err = errors.New("stomp disconnect timed out")
	}
	_ = s.stream.Close()
	return err
}

// stompDialer opens STOMP sessions over a WebSocket endpoint.
type stompDialer struct {
	cfg    Config
	dialer *websocket.Dialer
}

func newStompDialer(cfg Config) *stompDialer {
	return &stompDialer{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

func (d *stompDialer) connect(ctx context.Context, token string) (session, error) {
	header := http.Header{}
	header.Set("Authorization", auth.BearerHeader(token))

	conn, resp, err := d.dialer.DialContext(ctx, d.cfg.URL, header)
	if err != nil {
		if resp != nil {
			code := pkgerrors.FromHTTPStatus(resp.StatusCode)
			return nil, pkgerrors.Wrap(code, err, "websocket handshake rejected").
				WithDetails(map[string]any{"status": resp.StatusCode})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dial websocket")
	}
	stream := newWSStream(conn)

	if d.cfg.HandshakeTimeout > 0 {
		_ = stream.setHandshakeDeadline(time.Now().Add(d.cfg.HandshakeTimeout))
	}
	stompConn, err := stomp.Connect(stream,
		stomp.ConnOpt.Host(hostOf(d.cfg.URL)),
		stomp.ConnOpt.HeartBeat(d.cfg.HeartBeat, d.cfg.HeartBeat),
		stomp.ConnOpt.Header("Authorization", auth.BearerHeader(token)),
	)
	if err != nil {
		_ = stream.Close()
		var stompErr stomp.Error
		if errors.As(err, &stompErr) && stompErr.Frame != nil && stompErr.Frame.Command == frame.ERROR {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "stomp connect rejected")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stomp connect")
	}
	_ = stream.setHandshakeDeadline(time.Time{})

	sub, err := stompConn.Subscribe(d.cfg.Destination, stomp.AckAuto)
	if err != nil {
		_ = stream.Close()
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe "+d.cfg.Destination)
	}
	return &stompSession{conn: stompConn, sub: sub, stream: stream}, nil
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return "/"
	}
	return parsed.Hostname()
}
