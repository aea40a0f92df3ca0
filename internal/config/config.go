package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the client.
type Config struct {
	Env      string
	LogLevel string

	APIBaseURL     string
	RequestTimeout time.Duration

	// Realtime
	RealtimeDriver string // "stomp" or "amqp"
	WSURL          string
	AMQPURL        string
	AMQPExchange   string
	AMQPUsername   string

	// Session persistence
	SessionBackend string // "sqlite3", "postgres" or "redis"
	SessionDSN     string
	RedisURL       string

	// Client telemetry events
	EventsAMQPURL  string
	EventsExchange string

	DebugAddr    string
	DebugRoutes  bool
	OTLPEndpoint string
	ServiceName  string

	// Terminal chat room
	RoomID        int64
	RoomType      string
	LoginEmail    string
	LoginPassword string
}

// Load reads configuration from environment variables, loading .env first when present.
func Load() *Config {
	_ = godotenv.Load()

	home, _ := os.UserHomeDir()
	defaultDSN := "file:" + home + "/.chat-client/session.db?_busy_timeout=5000"

	return &Config{
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		APIBaseURL:     strings.TrimSuffix(getEnv("API_BASE_URL", "http://localhost:8080"), "/"),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 30*time.Second),

		RealtimeDriver: getEnv("REALTIME_DRIVER", "stomp"),
		WSURL:          getEnv("WS_URL", "ws://localhost:8080/ws"),
		AMQPURL:        getEnv("AMQP_URL", "amqp://localhost:5672/"),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "amq.topic"),
		AMQPUsername:   getEnv("AMQP_USERNAME", ""),

		SessionBackend: getEnv("SESSION_BACKEND", "sqlite3"),
		SessionDSN:     getEnv("SESSION_DSN", defaultDSN),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),

		EventsAMQPURL:  os.Getenv("EVENTS_AMQP_URL"),
		EventsExchange: getEnv("EVENTS_EXCHANGE", "client_events"),

		DebugAddr:    getEnv("DEBUG_ADDR", "127.0.0.1:9091"),
		DebugRoutes:  getEnv("DEBUG_ROUTES", "false") == "true",
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "chat-client"),

		RoomID:        getInt64("CHAT_ROOM_ID", 0),
		RoomType:      getEnv("CHAT_ROOM_TYPE", "group"),
		LoginEmail:    os.Getenv("LOGIN_EMAIL"),
		LoginPassword: os.Getenv("LOGIN_PASSWORD"),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	n, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
