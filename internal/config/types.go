package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables. Credentials are environment-first: a value in the
// environment always wins over the config file so tokens never need to live
// on disk.
const (
	EnvTwitterBearerToken = "TWITTER_BEARER_TOKEN"
	EnvTelegramBotToken   = "TELEGRAM_BOT_TOKEN"
	EnvTelegramChatID     = "TELEGRAM_CHAT_ID"
	EnvCheckInterval      = "CHECK_INTERVAL_MINUTES"
	EnvMaxPerQuery        = "MAX_TWEETS_PER_CHECK"
)

type Config struct {
	// CheckInterval is a Go duration string (e.g. "15m"). Default 15m.
	CheckInterval string `json:"check_interval,omitempty"`

	// MaxResultsPerQuery bounds each category search. The API caps this at
	// 100; values outside [10,100] are clamped by the client. Default 50.
	MaxResultsPerQuery int `json:"max_results_per_query,omitempty"`

	// NotifyStartup controls the startup banner in continuous mode.
	// Pointer so "omitted" defaults to true.
	NotifyStartup *bool `json:"notify_startup,omitempty"`

	Twitter  TwitterConfig  `json:"twitter"`
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  *StorageConfig `json:"storage,omitempty"`

	// Categories overrides the built-in keyword registry when present.
	Categories []CategoryConfig `json:"categories,omitempty"`
}

type TwitterConfig struct {
	BearerToken string `json:"bearer_token,omitempty"`
	// Timeout is a Go duration string for one search call. Default "15s".
	Timeout  string `json:"timeout,omitempty"`
	RetryMax int    `json:"retry_max,omitempty"`
}

type TelegramConfig struct {
	BotToken string `json:"bot_token,omitempty"`
	ChatID   string `json:"chat_id,omitempty"`
	// RatePerSec paces outgoing messages. Default 1 (Telegram's per-chat limit).
	RatePerSec int `json:"rate_per_sec,omitempty"`
	RetryMax   int `json:"retry_max,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	storage:
//	  driver: file
//	  path: ./last_tweet_id.txt
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type CategoryConfig struct {
	Name     string   `json:"name"`
	Priority int      `json:"priority,omitempty"`
	Phrases  []string `json:"phrases"`
}

// Default returns a config with operational defaults and no credentials.
func Default() *Config {
	return &Config{
		CheckInterval:      "15m",
		MaxResultsPerQuery: 50,
		Logging: LoggingConfig{
			Level:   "INFO",
			Console: true,
			File:    LoggingFile{Enabled: true, Path: "./hackwatch.log"},
		},
		Storage: &StorageConfig{Driver: "file", Path: "./last_tweet_id.txt"},
	}
}

// ApplyEnv overlays environment values onto the config. Credentials always
// win from the environment; interval/limit envs only apply when set.
func (c *Config) ApplyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvTwitterBearerToken)); v != "" {
		c.Twitter.BearerToken = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelegramBotToken)); v != "" {
		c.Telegram.BotToken = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelegramChatID)); v != "" {
		c.Telegram.ChatID = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCheckInterval)); v != "" {
		mins, err := strconv.Atoi(v)
		if err != nil || mins <= 0 {
			return fmt.Errorf("%s: invalid minutes %q", EnvCheckInterval, v)
		}
		c.CheckInterval = (time.Duration(mins) * time.Minute).String()
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxPerQuery)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s: invalid count %q", EnvMaxPerQuery, v)
		}
		c.MaxResultsPerQuery = n
	}
	return nil
}

// Validate checks required credentials and field sanity. A failure here is
// fatal at startup: the process exits before the first cycle.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Twitter.BearerToken) == "" {
		missing = append(missing, EnvTwitterBearerToken)
	}
	if strings.TrimSpace(c.Telegram.BotToken) == "" {
		missing = append(missing, EnvTelegramBotToken)
	}
	if strings.TrimSpace(c.Telegram.ChatID) == "" {
		missing = append(missing, EnvTelegramChatID)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if _, err := c.ChatID(); err != nil {
		return err
	}
	if _, err := ParseDurationOrDefault("check_interval", c.CheckInterval, 15*time.Minute); err != nil {
		return err
	}
	if _, err := ParseDurationField("twitter.timeout", c.Twitter.Timeout); err != nil {
		return err
	}
	if c.Storage != nil {
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			return err
		}
	}
	for i, cat := range c.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			return fmt.Errorf("categories[%d]: name is required", i)
		}
		if len(cat.Phrases) == 0 {
			return fmt.Errorf("categories[%d] (%s): phrases are required", i, cat.Name)
		}
	}
	return nil
}

// ChatID parses the Telegram chat id (kept as a string in config/env to
// match BotFather's output, including negative group ids).
func (c *Config) ChatID() (int64, error) {
	raw := strings.TrimSpace(c.Telegram.ChatID)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram.chat_id: invalid chat id %q", raw)
	}
	return id, nil
}

// Interval returns the parsed check interval.
func (c *Config) Interval() time.Duration {
	d, err := ParseDurationOrDefault("check_interval", c.CheckInterval, 15*time.Minute)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}
