package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	DataDir      string // directory holding the local database file
	BackendsFile string // path to backends.yaml (optional, empty = no remote sync)

	SyncInterval time.Duration // interval between periodic full syncs (default: 5m)
	SyncDebounce time.Duration // delay collapsing change bursts into one sync (default: 1s)
	SyncCooldown time.Duration // minimum gap between attempts per backend (default: 5s)

	RetryAttempts int           // remote attempt budget per operation (default: 3)
	RetryBase     time.Duration // base delay of the retry backoff curve (default: 1s)

	// Redis settings, used only when an object backend is configured.
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("TIDEMARK_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("TIDEMARK_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("TIDEMARK_LOG_LEVEL", "info"),
		PrettyLog: mustBool("TIDEMARK_PRETTY_LOG", true),

		// Storage and backends
		DataDir:      getenv("TIDEMARK_DATA_DIR", "/var/lib/tidemark"),
		BackendsFile: getenv("TIDEMARK_BACKENDS_FILE", ""),

		// Sync pacing
		SyncInterval: mustDuration("TIDEMARK_SYNC_INTERVAL", 5*time.Minute),
		SyncDebounce: mustDuration("TIDEMARK_SYNC_DEBOUNCE", time.Second),
		SyncCooldown: mustDuration("TIDEMARK_SYNC_COOLDOWN", 5*time.Second),

		// Remote retry budget
		RetryAttempts: getenvInt("TIDEMARK_RETRY_ATTEMPTS", 3),
		RetryBase:     mustDuration("TIDEMARK_RETRY_BASE", time.Second),

		// Redis settings
		RedisUser:           getenv("TIDEMARK_REDIS_USERNAME", ""),
		RedisPassword:       getenv("TIDEMARK_REDIS_PASSWORD", ""),
		RedisDT:             mustDuration("TIDEMARK_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("TIDEMARK_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("TIDEMARK_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("TIDEMARK_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("TIDEMARK_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("TIDEMARK_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("TIDEMARK_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("TIDEMARK_REDIS_RETRY_INTERVAL", 2*time.Second),
	}

	if cfg.RetryAttempts < 1 {
		panic(fmt.Sprintf("❌ FATAL: TIDEMARK_RETRY_ATTEMPTS must be >= 1, got %d", cfg.RetryAttempts))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfg.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
