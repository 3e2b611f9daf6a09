package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/forkfinderz-realtime/internal/notifications"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/auth"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/config"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/enums"
	pkgerrors "github.com/angelmondragon/forkfinderz-realtime/pkg/errors"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/logger"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/metrics"
)

// ErrReconnectExhausted is reported to connect-error listeners once every
// reconnect attempt has failed.
var ErrReconnectExhausted = errors.New("realtime: reconnect attempts exhausted")

var errSessionClosed = errors.New("realtime: session closed by peer")

// Config describes the push endpoint and its retry policy.
type Config struct {
	URL              string
	Destination      string
	HeartBeat        time.Duration
	HandshakeTimeout time.Duration
	Backoff          Backoff
}

// ConfigFrom maps the environment configuration.
func ConfigFrom(cfg config.RealtimeConfig) Config {
	return Config{
		URL:              cfg.WebSocketURL,
		Destination:      cfg.Destination,
		HeartBeat:        cfg.HeartBeat,
		HandshakeTimeout: cfg.HandshakeTimeout,
		Backoff: Backoff{
			Base:        cfg.ReconnectBaseDelay,
			MaxAttempts: cfg.MaxReconnects,
		},
	}
}

// ConnectErrorListener is told about failed handshakes and reconnect exhaustion.
type ConnectErrorListener func(err error)

// Client owns one STOMP session bound to the user's notification queue and
// the dispatcher that fans its frames out.
type Client struct {
	cfg        Config
	dispatcher *notifications.Dispatcher
	logg       *logger.Logger
	metrics    *metrics.RealtimeMetrics

	connect connectFunc
	sleep   func(ctx context.Context, d time.Duration) error
	now     func() time.Time

	mu          sync.Mutex
	state       enums.ConnectionState
	generation  uint64
	token       string
	session     session
	lifeCtx     context.Context
	cancel      context.CancelFunc
	errNextID   uint64
	errHandlers map[uint64]ConnectErrorListener
	errOrder    []uint64

	wg sync.WaitGroup
}

// Option customizes a Client.
type Option func(*Client)

func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logg = logg
		}
	}
}

func WithMetrics(m *metrics.RealtimeMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func withConnector(fn connectFunc) Option {
	return func(c *Client) {
		c.connect = fn
	}
}

func withSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = fn
	}
}

func withClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "websocket url required")
	}
	if cfg.Destination == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription destination required")
	}
	if cfg.Backoff.MaxAttempts < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max reconnect attempts must be non-negative")
	}
	c := &Client{
		cfg:         cfg,
		logg:        logger.Nop(),
		sleep:       sleepContext,
		now:         time.Now,
		state:       enums.ConnectionStateDisconnected,
		errHandlers: make(map[uint64]ConnectErrorListener),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.connect == nil {
		c.connect = newStompDialer(cfg).connect
	}
	c.dispatcher = notifications.NewDispatcher(c.logg)
	c.metrics.SetState(c.state.Gauge())
	return c, nil
}

// Connect opens the session unless one is live or being established. An
// already-expired token is rejected before dialing. When the first handshake
// fails the error is returned and bounded reconnects start in the background.
func (c *Client) Connect(ctx context.Context, token string) error {
	c.mu.Lock()
	if c.state != enums.ConnectionStateDisconnected {
		c.mu.Unlock()
		return nil
	}
	info, err := auth.InspectToken(token, c.now())
	if err != nil {
		c.mu.Unlock()
		c.emitConnectError(err)
		return err
	}
	c.generation++
	gen := c.generation
	c.token = token
	c.lifeCtx, c.cancel = context.WithCancel(context.Background())
	lifeCtx := c.lifeCtx
	c.setStateLocked(enums.ConnectionStateConnecting)
	c.mu.Unlock()

	if info.Subject != "" {
		ctx = c.logg.WithUserID(ctx, info.Subject)
	}
	sess, err := c.connect(ctx, token)
	if err != nil {
		c.logg.Error(ctx, "realtime connect failed", err)
		c.emitConnectError(err)
		c.startReconnect(lifeCtx, gen)
		return err
	}
	if !c.attach(gen, sess) {
		_ = sess.Close()
		return nil
	}
	c.logg.Info(c.logg.WithField(ctx, "destination", c.cfg.Destination), "realtime session established")
	return nil
}

// Disconnect tears the session down, cancels pending reconnects and clears
// every registered listener.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	c.generation++
	cancel := c.cancel
	sess := c.session
	c.cancel = nil
	c.lifeCtx = nil
	c.session = nil
	c.token = ""
	c.setStateLocked(enums.ConnectionStateDisconnected)
	c.errHandlers = make(map[uint64]ConnectErrorListener)
	c.errOrder = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.dispatcher.Clear()
	if sess != nil {
		return sess.Close()
	}
	return nil
}

func (c *Client) IsConnected() bool {
	return c.State() == enums.ConnectionStateConnected
}

func (c *Client) State() enums.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dispatcher exposes the listener registry owned by this connection.
func (c *Client) Dispatcher() *notifications.Dispatcher {
	return c.dispatcher
}

func (c *Client) OnNotification(fn notifications.NotificationListener) func() {
	return c.dispatcher.OnNotification(fn)
}

func (c *Client) OnReview(fn notifications.ReviewListener) func() {
	return c.dispatcher.OnReview(fn)
}

// OnConnectError registers fn and returns its unsubscribe function.
func (c *Client) OnConnectError(fn ConnectErrorListener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errNextID++
	id := c.errNextID
	c.errHandlers[id] = fn
	c.errOrder = append(c.errOrder, id)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.errHandlers, id)
	}
}

func (c *Client) emitConnectError(err error) {
	c.mu.Lock()
	handlers := make([]ConnectErrorListener, 0, len(c.errHandlers))
	for _, id := range c.errOrder {
		if fn, ok := c.errHandlers[id]; ok {
			handlers = append(handlers, fn)
		}
	}
	c.mu.Unlock()
	for _, fn := range handlers {
		fn(err)
	}
}

func (c *Client) attach(gen uint64, sess session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || c.lifeCtx == nil {
		return false
	}
	c.session = sess
	c.setStateLocked(enums.ConnectionStateConnected)
	c.wg.Add(1)
	go c.readLoop(c.lifeCtx, gen, sess)
	return true
}

func (c *Client) readLoop(ctx context.Context, gen uint64, sess session) {
	defer c.wg.Done()
	messages := sess.Messages()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				c.sessionLost(gen, errSessionClosed)
				return
			}
			if msg.Err != nil {
				c.sessionLost(gen, msg.Err)
				return
			}
			c.handleFrame(ctx, msg.Body)
		}
	}
}

func (c *Client) handleFrame(ctx context.Context, body []byte) {
	c.metrics.IncFramesReceived()
	n, err := notifications.Decode(body)
	if err != nil {
		c.metrics.IncFramesDropped("invalid_payload")
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "dropping malformed notification frame")
		return
	}
	c.dispatcher.Dispatch(ctx, n)
}

// sessionLost moves a broken session into the reconnect policy.
func (c *Client) sessionLost(gen uint64, cause error) {
	c.mu.Lock()
	if gen != c.generation || c.state != enums.ConnectionStateConnected {
		c.mu.Unlock()
		return
	}
	sess := c.session
	c.session = nil
	lifeCtx := c.lifeCtx
	c.setStateLocked(enums.ConnectionStateReconnecting)
	c.mu.Unlock()

	c.logg.Warn(c.logg.WithField(lifeCtx, "cause", cause.Error()), "realtime session lost")
	if sess != nil {
		_ = sess.Close()
	}
	c.startReconnect(lifeCtx, gen)
}

func (c *Client) startReconnect(ctx context.Context, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.wg.Add(1)
	go c.reconnectLoop(ctx, gen)
}

func (c *Client) reconnectLoop(ctx context.Context, gen uint64) {
	defer c.wg.Done()
	for attempt := 1; attempt <= c.cfg.Backoff.MaxAttempts; attempt++ {
		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			return
		}
		token := c.token
		c.setStateLocked(enums.ConnectionStateReconnecting)
		c.mu.Unlock()

		delay := c.cfg.Backoff.Delay(attempt)
		attemptCtx := c.logg.WithFields(ctx, map[string]any{"attempt": attempt, "delay": delay.String()})
		c.logg.Info(attemptCtx, "realtime reconnect scheduled")
		if err := c.sleep(ctx, delay); err != nil {
			return
		}
		c.metrics.IncReconnects()

		sess, err := c.connect(ctx, token)
		if err != nil {
			c.logg.Error(attemptCtx, "realtime reconnect failed", err)
			c.emitConnectError(err)
			continue
		}
		if c.attach(gen, sess) {
			c.logg.Info(attemptCtx, "realtime session re-established")
			return
		}
		_ = sess.Close()
		return
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	c.cancel = nil
	c.lifeCtx = nil
	c.setStateLocked(enums.ConnectionStateDisconnected)
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.logg.Warn(ctx, "realtime reconnect attempts exhausted")
	c.emitConnectError(ErrReconnectExhausted)
}

func (c *Client) setStateLocked(state enums.ConnectionState) {
	c.state = state
	c.metrics.SetState(state.Gauge())
}

// wait blocks until background goroutines have exited.
func (c *Client) wait() {
	c.wg.Wait()
}
