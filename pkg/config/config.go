package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Backend  BackendConfig
	Realtime RealtimeConfig
	Session  SessionConfig
	Redis    RedisConfig
	Watch    WatchConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Backend.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Realtime.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Session.validate(cfg.Redis); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"FORKFINDERZ_APP_ENV" default:"dev"`
	ListenAddr   string   `envconfig:"FORKFINDERZ_LISTEN_ADDR" default:"127.0.0.1:7070"`
	LogLevel     string   `envconfig:"FORKFINDERZ_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"FORKFINDERZ_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"FORKFINDERZ_CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// BackendConfig points at the REST collaborator that owns notification history.
type BackendConfig struct {
	BaseURL       string        `envconfig:"FORKFINDERZ_API_BASE_URL" required:"true"`
	Timeout       time.Duration `envconfig:"FORKFINDERZ_API_TIMEOUT" default:"30s"`
	PageSize      int           `envconfig:"FORKFINDERZ_NOTIFICATIONS_PAGE_SIZE" default:"10"`
	SortBy        string        `envconfig:"FORKFINDERZ_NOTIFICATIONS_SORT_BY" default:"createdAt"`
	SortDirection string        `envconfig:"FORKFINDERZ_NOTIFICATIONS_SORT_DIRECTION" default:"DESC"`
}

func (b BackendConfig) validate() error {
	parsed, err := url.Parse(b.BaseURL)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvAPIBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", EnvAPIBaseURL, parsed.Scheme)
	}
	if b.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvAPITimeout)
	}
	return nil
}

// RealtimeConfig configures the STOMP-over-WebSocket push channel.
type RealtimeConfig struct {
	WebSocketURL       string        `envconfig:"FORKFINDERZ_WS_URL" required:"true"`
	Destination        string        `envconfig:"FORKFINDERZ_WS_DESTINATION" default:"/user/queue/notifications"`
	HeartBeat          time.Duration `envconfig:"FORKFINDERZ_WS_HEARTBEAT" default:"4s"`
	ReconnectBaseDelay time.Duration `envconfig:"FORKFINDERZ_WS_RECONNECT_BASE_DELAY" default:"3s"`
	MaxReconnects      int           `envconfig:"FORKFINDERZ_WS_MAX_RECONNECTS" default:"5"`
	HandshakeTimeout   time.Duration `envconfig:"FORKFINDERZ_WS_HANDSHAKE_TIMEOUT" default:"10s"`
}

func (r RealtimeConfig) validate() error {
	parsed, err := url.Parse(r.WebSocketURL)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvWSURL, err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return fmt.Errorf("%s must use ws or wss, got %q", EnvWSURL, parsed.Scheme)
	}
	if strings.TrimSpace(r.Destination) == "" {
		return fmt.Errorf("%s is required", EnvWSDestination)
	}
	if r.MaxReconnects < 0 {
		return fmt.Errorf("%s must be non-negative", EnvWSMaxReconnects)
	}
	return nil
}

// SessionConfig holds the per-user session state: the bearer token and how
// already-surfaced notification ids are remembered.
type SessionConfig struct {
	Token        string        `envconfig:"FORKFINDERZ_TOKEN"`
	SeenBackend  string        `envconfig:"FORKFINDERZ_SEEN_BACKEND" default:"memory"`
	SeenCapacity int           `envconfig:"FORKFINDERZ_SEEN_CAPACITY" default:"1000"`
	SeenTTL      time.Duration `envconfig:"FORKFINDERZ_SEEN_TTL" default:"24h"`
}

// UsesRedis reports whether processed notification ids live in Redis.
func (s SessionConfig) UsesRedis() bool {
	return strings.EqualFold(strings.TrimSpace(s.SeenBackend), SeenBackendRedis)
}

func (s SessionConfig) validate(redisCfg RedisConfig) error {
	switch strings.ToLower(strings.TrimSpace(s.SeenBackend)) {
	case SeenBackendMemory:
		if s.SeenCapacity <= 0 {
			return fmt.Errorf("%s must be positive", EnvSeenCapacity)
		}
	case SeenBackendRedis:
		if redisCfg.URL == "" && redisCfg.Address == "" {
			return fmt.Errorf("%s=redis requires %s or %s", EnvSeenBackend, EnvRedisURL, EnvRedisAddr)
		}
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvSeenBackend, SeenBackendMemory, SeenBackendRedis, s.SeenBackend)
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"FORKFINDERZ_REDIS_URL"`
	Address      string        `envconfig:"FORKFINDERZ_REDIS_ADDR"`
	Password     string        `envconfig:"FORKFINDERZ_REDIS_PASSWORD"`
	DB           int           `envconfig:"FORKFINDERZ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FORKFINDERZ_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"FORKFINDERZ_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"FORKFINDERZ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FORKFINDERZ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FORKFINDERZ_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// WatchConfig enables the restaurant detail watcher when RestaurantID is set.
type WatchConfig struct {
	RestaurantID int64         `envconfig:"FORKFINDERZ_WATCH_RESTAURANT_ID" default:"0"`
	PollInterval time.Duration `envconfig:"FORKFINDERZ_WATCH_POLL_INTERVAL" default:"15s"`
	ReviewsSize  int           `envconfig:"FORKFINDERZ_WATCH_REVIEWS_PAGE_SIZE" default:"5"`
}

// Enabled reports whether a restaurant should be watched.
func (w WatchConfig) Enabled() bool {
	return w.RestaurantID > 0
}
