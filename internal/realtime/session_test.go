package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/forkfinderz-realtime/internal/notifications"
	pkgerrors "github.com/angelmondragon/forkfinderz-realtime/pkg/errors"
	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stompServer is a minimal STOMP 1.2 broker behind a WebSocket endpoint. It
// accepts one subscription and pushes the configured bodies to it.
type stompServer struct {
	token  string
	bodies []string

	mu           sync.Mutex
	destinations []string
	disconnected bool
}

func (s *stompServer) handler(t *testing.T) http.HandlerFunc {
	upgrader := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		stream := newWSStream(conn)
		defer stream.Close()
		reader := frame.NewReader(stream)
		writer := frame.NewWriter(stream)

		connect, err := readFrame(reader)
		if err != nil || connect.Command != frame.CONNECT && connect.Command != frame.STOMP {
			return
		}
		if connect.Header.Get("Authorization") != "Bearer "+s.token {
			_ = writer.Write(frame.New(frame.ERROR, frame.Message, "invalid credentials"))
			return
		}
		if err := writer.Write(frame.New(frame.CONNECTED, frame.Version, "1.2", frame.HeartBeat, "0,0")); err != nil {
			return
		}

		subscribe, err := readFrame(reader)
		if err != nil || subscribe.Command != frame.SUBSCRIBE {
			return
		}
		destination := subscribe.Header.Get(frame.Destination)
		s.mu.Lock()
		s.destinations = append(s.destinations, destination)
		s.mu.Unlock()

		for i, body := range s.bodies {
			msg := frame.New(frame.MESSAGE,
				frame.Destination, destination,
				frame.Subscription, subscribe.Header.Get(frame.Id),
				frame.MessageId, strconv.Itoa(i),
				frame.ContentType, "application/json",
			)
			msg.Body = []byte(body)
			if err := writer.Write(msg); err != nil {
				return
			}
		}

		for {
			f, err := readFrame(reader)
			if err != nil {
				return
			}
			if f.Command == frame.DISCONNECT {
				s.mu.Lock()
				s.disconnected = true
				s.mu.Unlock()
				_ = writer.Write(frame.New(frame.RECEIPT, frame.ReceiptId, f.Header.Get(frame.Receipt)))
				return
			}
		}
	}
}

// readFrame skips heart-beats.
func readFrame(reader *frame.Reader) (*frame.Frame, error) {
	for {
		f, err := reader.Read()
		if err != nil {
			return nil, err
		}
		if f != nil {
			return f, nil
		}
	}
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/websocket"
}

func TestStompSessionOverWebSocket(t *testing.T) {
	broker := &stompServer{
		token: "good-token",
		bodies: []string{
			`{"notificationId":41,"title":"New review","message":"4 stars","type":"NEW_REVIEW","targetUrl":"/reviews/42","isRead":false,"createdAt":"2024-05-01T12:00:00"}`,
			`{"garbage":true}`,
			`{"notificationId":43,"title":"Welcome","message":"hi","type":"WELCOME","targetUrl":null,"isRead":false,"createdAt":"2024-05-01T12:01:00Z"}`,
		},
	}
	server := httptest.NewServer(broker.handler(t))
	defer server.Close()

	cfg := testConfig()
	cfg.URL = wsURL(server)
	cfg.HandshakeTimeout = 2 * time.Second
	client, err := NewClient(cfg)
	require.NoError(t, err)

	var mu sync.Mutex
	var got []int64
	var reviews []string
	client.OnNotification(func(_ context.Context, n notifications.Notification) {
		mu.Lock()
		got = append(got, n.ID)
		mu.Unlock()
	})
	client.OnReview(func(_ context.Context, ref notifications.ReviewRef) {
		mu.Lock()
		reviews = append(reviews, ref.ID)
		mu.Unlock()
	})

	require.NoError(t, client.Connect(context.Background(), "good-token"))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []int64{41, 43}, got)
	assert.Equal(t, []string{"42"}, reviews)
	mu.Unlock()

	broker.mu.Lock()
	assert.Equal(t, []string{"/user/queue/notifications"}, broker.destinations)
	broker.mu.Unlock()

	require.NoError(t, client.Disconnect())
	client.wait()
	require.Eventually(t, func() bool {
		broker.mu.Lock()
		defer broker.mu.Unlock()
		return broker.disconnected
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStompConnectRejectedCredentials(t *testing.T) {
	broker := &stompServer{token: "good-token"}
	server := httptest.NewServer(broker.handler(t))
	defer server.Close()

	cfg := testConfig()
	cfg.URL = wsURL(server)
	cfg.HandshakeTimeout = 2 * time.Second

	_, err := newStompDialer(cfg).connect(context.Background(), "wrong-token")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "got %v", err)
}

func TestWebSocketHandshakeStatusIsClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.URL = wsURL(server)
	_, err := newStompDialer(cfg).connect(context.Background(), "token")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "api.forkfinderz.test", hostOf("wss://api.forkfinderz.test:443/ws/websocket"))
	assert.Equal(t, "/", hostOf("::not a url"))
}
