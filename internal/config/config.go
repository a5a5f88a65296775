// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds every environment-driven setting of the server and historian.
type Config struct {
	Port     string
	LogLevel logrus.Level

	// AllowedOrigins limits browser origins for the socket and HTTP API.
	AllowedOrigins []string

	RedisAddr  string // empty disables the action publisher
	RedisDB    int
	QueueName  string
	PublishTTL time.Duration

	DatabaseURL         string
	HistorianBatchSize  int
	HistorianFlush      time.Duration
	HistorianInactivity time.Duration

	VerifyClaims    bool
	AutoResumeDelay time.Duration
	MessageRate     float64
	MessageBurst    int
}

// Load reads the configuration from the environment, falling back to defaults.
func Load() Config {
	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "debug"))
	if err != nil {
		level = logrus.DebugLevel
	}

	return Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: level,

		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),

		RedisAddr:  os.Getenv("REDIS_ADDR"),
		RedisDB:    getEnvInt("REDIS_DB", 0),
		QueueName:  getEnv("HISTORIAN_QUEUE_NAME", "tombola_actions"),
		PublishTTL: time.Duration(getEnvInt("HISTORIAN_PUBLISH_TIMEOUT_MS", 2000)) * time.Millisecond,

		DatabaseURL:         os.Getenv("DATABASE_URL"),
		HistorianBatchSize:  getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		HistorianFlush:      time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		HistorianInactivity: time.Duration(getEnvInt("ROOM_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,

		VerifyClaims:    getEnvBool("VERIFY_CLAIMS", false),
		AutoResumeDelay: time.Duration(getEnvInt("AUTO_RESUME_DELAY_MS", 5000)) * time.Millisecond,
		MessageRate:     getEnvFloat("WS_MESSAGE_RATE", 10),
		MessageBurst:    getEnvInt("WS_MESSAGE_BURST", 20),
	}
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func getEnvFloat(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}

// getEnvList splits a comma-separated variable, dropping empty entries.
func getEnvList(key string, def []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
