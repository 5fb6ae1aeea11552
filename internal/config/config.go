package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the client.
type Config struct {
	App     AppConfig
	API     APIConfig
	Chat    ChatConfig
	List    ListConfig
	Display DisplayConfig
	Session SessionConfig
	Redis   RedisConfig
	Logger  LoggerConfig
}

// AppConfig identifies the running client.
type AppConfig struct {
	Name        string
	Env         string
	Version     string
	DownloadDir string
}

// APIConfig points the client at the helpdesk backend.
type APIConfig struct {
	BaseURL               string
	RequestTimeoutSeconds int
}

// ChatConfig controls the message synchronizer.
type ChatConfig struct {
	PollIntervalSeconds int
	MergePolicy         string
}

// ListConfig controls the ticket list controller.
type ListConfig struct {
	DefaultLastPage int
}

// DisplayConfig controls how values are rendered.
type DisplayConfig struct {
	TimezoneOffsetHours int
}

// SessionConfig selects where the persisted session is read from.
type SessionConfig struct {
	Source      string
	File        string
	RedisPrefix string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level    string
	Encoding string
	File     string
}

// Merge policies for chat polling.
const (
	MergePolicyReplace = "replace"
	MergePolicyMerge   = "merge"
)

// Session sources.
const (
	SessionSourceFile  = "file"
	SessionSourceRedis = "redis"
)

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "helpdesk"),
			Env:         getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "dev"),
			DownloadDir: getEnv("DOWNLOAD_DIR", defaultDownloadDir()),
		},
		API: APIConfig{
			BaseURL:               getEnv("HELPDESK_API_BASE", "http://127.0.0.1:8000/api"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Chat: ChatConfig{
			PollIntervalSeconds: getEnvAsInt("CHAT_POLL_INTERVAL_SECONDS", 5),
			MergePolicy:         strings.ToLower(getEnv("CHAT_MERGE_POLICY", MergePolicyReplace)),
		},
		List: ListConfig{
			DefaultLastPage: getEnvAsInt("TICKET_LIST_DEFAULT_LAST_PAGE", 1),
		},
		Display: DisplayConfig{
			TimezoneOffsetHours: getEnvAsInt("DISPLAY_TZ_OFFSET_HOURS", 7),
		},
		Session: SessionConfig{
			Source:      strings.ToLower(getEnv("SESSION_SOURCE", SessionSourceFile)),
			File:        getEnv("SESSION_FILE", defaultSessionFile()),
			RedisPrefix: getEnv("SESSION_REDIS_PREFIX", "helpdesk:session"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "json"),
			File:     os.Getenv("LOG_FILE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the client cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("HELPDESK_API_BASE is required")
	}
	switch c.Chat.MergePolicy {
	case MergePolicyReplace, MergePolicyMerge:
	default:
		return fmt.Errorf("invalid CHAT_MERGE_POLICY %q", c.Chat.MergePolicy)
	}
	switch c.Session.Source {
	case SessionSourceFile, SessionSourceRedis:
	default:
		return fmt.Errorf("invalid SESSION_SOURCE %q", c.Session.Source)
	}
	if c.Display.TimezoneOffsetHours < -12 || c.Display.TimezoneOffsetHours > 14 {
		return fmt.Errorf("invalid DISPLAY_TZ_OFFSET_HOURS %d", c.Display.TimezoneOffsetHours)
	}
	return nil
}

// RequestTimeout returns the configured request timeout duration. Zero leaves
// the transport default in place.
func (a APIConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// PollInterval returns the chat polling interval.
func (c ChatConfig) PollInterval() time.Duration {
	if c.PollIntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".helpdesk/session.json"
	}
	return home + "/.helpdesk/session.json"
}

func defaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "downloads"
	}
	return home + "/Downloads"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
