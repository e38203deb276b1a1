package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

const (
	GLOBAL_MESSAGE_RETENTION_DAYS = "global.message_retention_days"
	GLOBAL_LANGUAGE               = "global.interface_language"
	HTTP_PROXY                    = "http.proxy"
	TELEGRAM_TOKEN                = "telegram.token"
	TELEGRAM_ALLOWED_USERS        = "telegram.allowed_users"
	TELEGRAM_ALLOWED_CHATS        = "telegram.allowed_chats"
	AI_BASE_URL                   = "ai.base_url"
	AI_API_KEY                    = "ai.api_key"
	AI_ENV_API_KEY                = "ai.env_api_key"
	AI_MODEL                      = "ai.model"
	AI_UTILITY_MODEL              = "ai.utility_model"
	AI_TIMEOUT                    = "ai.timeout"
	SD_ENABLED                    = "sd.enabled"
	SD_URL                        = "sd.url"
	SD_TRAIT_WEIGHT               = "sd.trait_weight"
	SD_TIMEOUT                    = "sd.timeout"
	STORAGE_ROOT                  = "storage.root"
	DATABASE_DSN                  = "database.dsn"
	LOGGING_LEVEL                 = "logging.level"
	LOGGING_WRITE_IN_FILE         = "logging.write_in_file"
	LOGGING_FILE_PATH             = "logging.file_path"
)

var defaultSQLiteParams = map[string]string{
	"_journal":      "WAL",
	"_busy_timeout": "10000",
	"_synchronous":  "NORMAL",
	"_cache":        "shared",
	"_auto_vacuum":  "INCREMENTAL",
}

type Config struct {
	k *koanf.Koanf
}

var configPath string

func init() {
	flag.StringVar(&configPath, "config", "", "Path to config file")
}

func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]any{
		GLOBAL_MESSAGE_RETENTION_DAYS: 30,
		GLOBAL_LANGUAGE:               "en",
		HTTP_PROXY:                    nil,
		TELEGRAM_TOKEN:                "",
		AI_BASE_URL:                   "https://api.openai.com/v1",
		AI_API_KEY:                    "",
		AI_ENV_API_KEY:                "OPENAI_API_KEY",
		AI_MODEL:                      "gpt-4o-mini",
		AI_UTILITY_MODEL:              "",
		AI_TIMEOUT:                    2 * time.Minute,
		"ai.model_params.temperature":       1.0,
		"ai.model_params.frequency_penalty": 0.7,
		"ai.model_params.presence_penalty":  0.0,
		"ai.model_params.top_p":             1.0,
		"ai.model_params.max_tokens":        0,
		SD_ENABLED:                    false,
		SD_URL:                        "http://127.0.0.1:7860",
		SD_TRAIT_WEIGHT:               1.2,
		SD_TIMEOUT:                    5 * time.Minute,
		STORAGE_ROOT:                  ".",
		DATABASE_DSN:                  "bot.db?_journal=WAL&_busy_timeout=5000&_synchronous=NORMAL&_cache=shared",
		LOGGING_LEVEL:                 "info",
		LOGGING_WRITE_IN_FILE:         false,
		"commands.start.enabled":                   true,
		"commands.start.queue.enabled":             false,
		"commands.mode.enabled":                    true,
		"commands.mode.queue.enabled":              false,
		"commands.clear.enabled":                   true,
		"commands.clear.queue.enabled":             false,
		"commands.characters.enabled":              true,
		"commands.characters.queue.enabled":        false,
		"commands.chat.enabled":                    true,
		"commands.chat.queue.enabled":              true,
		"commands.chat.queue.max_retries":          0,
		"commands.chat.queue.timeout":              3 * time.Minute,
		"commands.chat.queue.throttle.period":      5 * time.Second,
		"commands.chat.queue.throttle.requests":    2,
		"commands.chat.queue.throttle.concurrency": 2,
	}
	k.Load(confmap.Provider(defaults, "."), nil)

	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("error loading config %s: %v", path, err)
			}
			break
		}
	}

	k.Load(env.Provider("FRACTAL_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "FRACTAL_")),
			"_", ".",
		)
	}), nil)

	if k.Get(TELEGRAM_TOKEN) == "" {
		return nil, fmt.Errorf("telegram token is required")
	}

	return &Config{k: k}, nil
}

func (c *Config) GetCommandConfig(name string) *CommandConfig {
	concurrency := c.k.Int(fmt.Sprintf("commands.%s.queue.throttle.concurrency", name))
	if concurrency == 0 {
		concurrency = 1
	}
	requests := c.k.Int(fmt.Sprintf("commands.%s.queue.throttle.requests", name))
	if requests == 0 {
		requests = 1
	}
	period := c.k.Duration(fmt.Sprintf("commands.%s.queue.throttle.period", name))
	if period == 0 {
		period = 10 * time.Second
	}
	timeout := c.k.Duration(fmt.Sprintf("commands.%s.queue.timeout", name))
	if timeout == 0 {
		timeout = 1 * time.Minute
	}
	return &CommandConfig{
		Enabled: c.k.Bool(fmt.Sprintf("commands.%s.enabled", name)),
		Queue: QueueOptions{
			Enabled:    c.k.Bool(fmt.Sprintf("commands.%s.queue.enabled", name)),
			MaxRetries: c.k.Int(fmt.Sprintf("commands.%s.queue.max_retries", name)),
			RetryDelay: c.k.Duration(fmt.Sprintf("commands.%s.queue.retry_delay", name)),
			Timeout:    timeout,
			Throttle: QueueThrottleOptions{
				Concurrency: concurrency,
				Period:      period,
				Requests:    requests,
			},
		},
	}
}

func (c *Config) Telegram() TelegramConfig {
	var cfg TelegramConfig
	if err := c.k.Unmarshal("telegram", &cfg); err != nil {
		log.Fatalf("telegramConfig unmarshal error: %v", err)
		return TelegramConfig{}
	}
	return cfg
}

func (c *Config) AI() AIConfig {
	var cfg AIConfig
	if err := c.k.Unmarshal("ai", &cfg); err != nil {
		log.Fatalf("aiConfig unmarshal error: %v", err)
		return AIConfig{}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = c.k.Duration(AI_TIMEOUT)
	}
	return cfg
}

func (c *Config) SD() SDConfig {
	return SDConfig{
		Enabled:     c.k.Bool(SD_ENABLED),
		URL:         c.k.String(SD_URL),
		TraitWeight: c.k.Float64(SD_TRAIT_WEIGHT),
		Timeout:     c.k.Duration(SD_TIMEOUT),
	}
}

func (c *Config) Storage() StorageConfig {
	return StorageConfig{
		Root: c.k.String(STORAGE_ROOT),
	}
}

func (c *Config) Log() LoggingConfig {
	return LoggingConfig{
		Level:       strings.ToLower(c.k.String(LOGGING_LEVEL)),
		WriteInFile: c.k.Bool(LOGGING_WRITE_IN_FILE),
		FilePath:    c.k.String(LOGGING_FILE_PATH),
	}
}

func (c *Config) Global() GlobalConfig {
	return GlobalConfig{
		MessageRetentionDays: c.k.Int(GLOBAL_MESSAGE_RETENTION_DAYS),
		InterfaceLanguage:    c.k.String(GLOBAL_LANGUAGE),
	}
}

func (c *Config) HTTP() HTTPConfig {
	var proxy string
	if proxyValue := c.k.Get(HTTP_PROXY); proxyValue != nil {
		proxy = proxyValue.(string)
	}

	return HTTPConfig{
		proxy: &proxy,
	}
}

func (c *Config) GetDatabaseDSN() string {
	dsn := c.k.String(DATABASE_DSN)
	parts := strings.Split(dsn, "?")
	path := parts[0]

	params := make(map[string]string)
	if len(parts) > 1 {
		for param := range strings.SplitSeq(parts[1], "&") {
			if kv := strings.Split(param, "="); len(kv) == 2 {
				params[kv[0]] = kv[1]
			}
		}
	}

	for k, v := range defaultSQLiteParams {
		if _, exists := params[k]; !exists {
			params[k] = v
		}
	}

	var queryParams []string
	for k, v := range params {
		queryParams = append(queryParams, k+"="+v)
	}
	sort.Strings(queryParams)

	if len(queryParams) > 0 {
		return path + "?" + strings.Join(queryParams, "&")
	}
	return path
}

func getConfigPaths() []string {
	if configPath != "" {
		return []string{configPath}
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		home, _ := os.UserHomeDir()
		xdgConfig = filepath.Join(home, ".config")
	}

	return []string{
		"fractal.toml",
		"config.toml",
		filepath.Join(xdgConfig, "fractal", "config.toml"),
		"/etc/fractal/config.toml",
	}
}
