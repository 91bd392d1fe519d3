package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "vigil/pkg/platform/strings"
)

// Config captures process-level configuration for the vigil server. Values
// come from environment variables so main stays lean and deployments stay
// twelve-factor.
type Config struct {
	Addr string

	// PostgresURL is the DSN for the relational store. Empty means the server
	// runs on in-memory stores (dev / tests only).
	PostgresURL string

	// RedisURL backs velocity counters, the URL verdict cache, and the
	// redis-streams transport. Empty disables redis-backed components.
	RedisURL string

	// StreamBackend selects the log transport: "memory", "redis", or "kafka".
	StreamBackend string

	// KafkaBrokers is the seed broker list for the kafka stream backend.
	KafkaBrokers []string

	// PolicyPath points at the JSON policy document loaded at startup.
	PolicyPath string

	// AdminToken protects the moderator admin API.
	AdminToken string

	// SensitiveSurfaces are surfaces where risk/bad band writes are forced
	// into shadow.
	SensitiveSurfaces []string

	// DecayInterval is how often the reputation decay sweep runs.
	DecayInterval time.Duration

	// DecayAfter is how long a user must be quiet before decay applies.
	DecayAfter time.Duration

	Redis RedisConfig
}

// RedisConfig tunes the shared redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables, applying defaults
// suitable for local development.
func FromEnv() Config {
	cfg := Config{
		Addr:          getEnv("VIGIL_ADDR", ":8080"),
		PostgresURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		StreamBackend: getEnv("STREAM_BACKEND", "memory"),
		PolicyPath:    getEnv("POLICY_PATH", "policy.json"),
		AdminToken:    os.Getenv("ADMIN_TOKEN"),
		DecayInterval: getDuration("DECAY_INTERVAL", time.Hour),
		DecayAfter:    getDuration("DECAY_AFTER", 7*24*time.Hour),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = pstrings.DedupeAndTrim(strings.Split(brokers, ","))
	}

	surfaces := getEnv("SENSITIVE_SURFACES", "invite,message")
	cfg.SensitiveSurfaces = pstrings.DedupeAndTrimLower(strings.Split(surfaces, ","))

	cfg.Redis = RedisConfig{
		URL:          cfg.RedisURL,
		PoolSize:     getInt("REDIS_POOL_SIZE", 10),
		MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
