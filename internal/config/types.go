package config

import (
	"os"
	"slices"
	"strings"
	"time"
)

type GlobalConfig struct {
	MessageRetentionDays int    `koanf:"message_retention_days"`
	InterfaceLanguage    string `koanf:"interface_language"`
}

type HTTPConfig struct {
	proxy *string `koanf:"proxy"`
}

func (c HTTPConfig) GetProxy() string {
	if c.proxy != nil && *c.proxy != "" {
		return *c.proxy
	}
	for _, name := range []string{"HTTPS_PROXY", "https_proxy", "HTTP_PROXY", "http_proxy"} {
		if proxyURL := os.Getenv(name); proxyURL != "" {
			return proxyURL
		}
	}
	return ""
}

func (c HTTPConfig) GetNoProxy() []string {
	raw := os.Getenv("NO_PROXY")
	if raw == "" {
		raw = os.Getenv("no_proxy")
	}
	if raw == "" {
		return nil
	}
	var hosts []string
	for _, host := range strings.Split(raw, ",") {
		if host = strings.TrimSpace(host); host != "" {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

type LoggingConfig struct {
	Level       string `koanf:"level"`
	WriteInFile bool   `koanf:"write_in_file"`
	FilePath    string `koanf:"file_path"`
}

func (c LoggingConfig) IsDebug() bool {
	return c.Level == "debug" || c.Level == "trace"
}

type TelegramConfig struct {
	Token        string  `koanf:"token"`
	AllowedUsers []int64 `koanf:"allowed_users"`
	AllowedChats []int64 `koanf:"allowed_chats"`
}

func (c TelegramConfig) IsAllowed(userID int64, chatID int64) bool {
	return c.IsUserAllowed(userID) || c.IsChatAllowed(chatID)
}

// IsUserAllowed is a whitelist: an empty list allows nobody.
func (c TelegramConfig) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return false
	}
	return slices.Contains(c.AllowedUsers, userID)
}

// IsChatAllowed defaults open: an empty list allows every chat.
func (c TelegramConfig) IsChatAllowed(chatID int64) bool {
	if len(c.AllowedChats) == 0 {
		return true
	}
	return slices.Contains(c.AllowedChats, chatID)
}

type AIConfig struct {
	BaseURL      string        `koanf:"base_url"`
	APIKey       string        `koanf:"api_key"`
	EnvAPIKey    string        `koanf:"env_api_key"`
	Model        string        `koanf:"model"`
	UtilityModel string        `koanf:"utility_model"`
	Timeout      time.Duration `koanf:"timeout"`
	ModelParams  AIModelParams `koanf:"model_params"`
}

// ResolveAPIKey prefers the literal key, falling back to the
// environment variable named by env_api_key.
func (c AIConfig) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if c.EnvAPIKey != "" {
		return os.Getenv(c.EnvAPIKey)
	}
	return ""
}

// GetUtilityModel falls back to the main model when no cheaper
// utility model is configured.
func (c AIConfig) GetUtilityModel() string {
	if c.UtilityModel != "" {
		return c.UtilityModel
	}
	return c.Model
}

type AIModelParams struct {
	Temperature      float32 `koanf:"temperature"`
	FrequencyPenalty float32 `koanf:"frequency_penalty"`
	PresencePenalty  float32 `koanf:"presence_penalty"`
	TopP             float32 `koanf:"top_p"`
	MaxTokens        int     `koanf:"max_tokens"`
}

type SDConfig struct {
	Enabled     bool          `koanf:"enabled"`
	URL         string        `koanf:"url"`
	TraitWeight float64       `koanf:"trait_weight"`
	Timeout     time.Duration `koanf:"timeout"`
}

type StorageConfig struct {
	Root string `koanf:"root"`
}

type CommandConfig struct {
	Enabled bool
	Queue   QueueOptions
}

type QueueOptions struct {
	Enabled    bool
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
	Throttle   QueueThrottleOptions
}

type QueueThrottleOptions struct {
	Concurrency int
	Period      time.Duration
	Requests    int
}
