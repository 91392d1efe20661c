package internal

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

type Config struct {
	Host              string        `env:"HOST,required=true"`
	Port              int           `env:"PORT,required=true"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,required=true"`
	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`
	SessionBufferSize int           `env:"SESSION_BUFFER_SIZE,required=true"`
	DeliveryQueueSize int           `env:"DELIVERY_QUEUE_SIZE,required=true"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,required=true"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT,required=true"`
	LimitMessages     *int          `env:"LIMIT_MESSAGES"`
	DevOrigins        bool          `env:"DEV_ORIGINS"`
}

// Logger builds a text slog handler at the configured level. Unknown
// levels fall back to Info rather than failing startup.
func Logger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		l = slog.LevelDebug
	case "WARN":
		l = slog.LevelWarn
	case "ERROR":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}
