package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config drives the analytics server.
type Config struct {
	Addr             string
	DataDir          string
	DBPath           string
	StreamURL        string
	StreamToken      string
	ReconnectDelay   time.Duration
	SampleInterval   time.Duration
	RetentionDays    int
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	TelegramBotToken string
	TelegramChatID   string
	LogLevel         slog.Level
}

func Load() Config {
	dataDir := getenv("PULSE_DATA_DIR", "./data")
	return Config{
		Addr:             getenv("PULSE_ADDR", ":8080"),
		DataDir:          dataDir,
		DBPath:           getenv("PULSE_DB_PATH", dataDir+"/pulse.db"),
		StreamURL:        getenv("PULSE_STREAM_URL", "ws://localhost:9002"),
		StreamToken:      os.Getenv("PULSE_STREAM_TOKEN"),
		ReconnectDelay:   getenvDuration("PULSE_RECONNECT_DELAY", 4*time.Second),
		SampleInterval:   getenvDuration("PULSE_SAMPLE_INTERVAL", time.Second),
		RetentionDays:    getenvInt("PULSE_RETENTION_DAYS", 7),
		RedisAddr:        os.Getenv("PULSE_REDIS_ADDR"),
		RedisPassword:    os.Getenv("PULSE_REDIS_PASSWORD"),
		RedisDB:          getenvInt("PULSE_REDIS_DB", 0),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		LogLevel:         ParseLevel(os.Getenv("PULSE_LOG_LEVEL")),
	}
}

// AgentConfig drives the host agent that publishes frames.
type AgentConfig struct {
	Addr       string
	Token      string
	MaxClients int
	Interval   time.Duration
	DockerHost string
	ProcRoot   string
	LogLevel   slog.Level
}

const (
	DefaultMaxClients = 32
	maxClientsCeiling = 4096
)

func LoadAgent() AgentConfig {
	return AgentConfig{
		Addr:       getenv("MONITORING_WS_ADDR", ":9002"),
		Token:      strings.TrimSpace(os.Getenv("MONITORING_API_TOKEN")),
		MaxClients: clamp(getenvInt("MONITORING_WS_MAX_CLIENTS", DefaultMaxClients), 1, maxClientsCeiling),
		Interval:   getenvDuration("MONITORING_INTERVAL", time.Second),
		DockerHost: os.Getenv("DOCKER_HOST"),
		ProcRoot:   getenv("MONITORING_PROC_ROOT", "/proc"),
		LogLevel:   ParseLevel(os.Getenv("MONITORING_LOG_LEVEL")),
	}
}

// ParseLevel maps debug, warn and error to slog levels; anything else is info.
func ParseLevel(v string) slog.Level {
	switch strings.TrimSpace(strings.ToLower(v)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return d
	}
	return n
}

func getenvDuration(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	dur, err := time.ParseDuration(v)
	if err != nil || dur <= 0 {
		return d
	}
	return dur
}
