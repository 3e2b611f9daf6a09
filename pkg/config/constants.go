package config

const EnvPrefix = "FORKFINDERZ"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	SeenBackendMemory = "memory"
	SeenBackendRedis  = "redis"
)

const (
	EnvAppEnv     = "FORKFINDERZ_APP_ENV"
	EnvListenAddr = "FORKFINDERZ_LISTEN_ADDR"
	EnvLogLevel   = "FORKFINDERZ_LOG_LEVEL"

	EnvAPIBaseURL = "FORKFINDERZ_API_BASE_URL"
	EnvAPITimeout = "FORKFINDERZ_API_TIMEOUT"
	EnvPageSize   = "FORKFINDERZ_NOTIFICATIONS_PAGE_SIZE"

	EnvWSURL              = "FORKFINDERZ_WS_URL"
	EnvWSDestination      = "FORKFINDERZ_WS_DESTINATION"
	EnvWSHeartBeat        = "FORKFINDERZ_WS_HEARTBEAT"
	EnvWSReconnectBase    = "FORKFINDERZ_WS_RECONNECT_BASE_DELAY"
	EnvWSMaxReconnects    = "FORKFINDERZ_WS_MAX_RECONNECTS"
	EnvWSHandshakeTimeout = "FORKFINDERZ_WS_HANDSHAKE_TIMEOUT"

	EnvToken        = "FORKFINDERZ_TOKEN"
	EnvSeenBackend  = "FORKFINDERZ_SEEN_BACKEND"
	EnvSeenCapacity = "FORKFINDERZ_SEEN_CAPACITY"
	EnvSeenTTL      = "FORKFINDERZ_SEEN_TTL"

	EnvRedisURL  = "FORKFINDERZ_REDIS_URL"
	EnvRedisAddr = "FORKFINDERZ_REDIS_ADDR"

	EnvWatchRestaurantID = "FORKFINDERZ_WATCH_RESTAURANT_ID"
	EnvWatchPollInterval = "FORKFINDERZ_WATCH_POLL_INTERVAL"
)
