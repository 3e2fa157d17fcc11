package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultModel          = "claude-sonnet-4-5-20250929"
	DefaultMaxTokens      = 4096
	DefaultTemperature    = 0.7
	DefaultHost           = "0.0.0.0"
	DefaultPort           = 18890
	DefaultFetchWindow    = 100
	DefaultUTCOffsetHours = 7
	DefaultNagSchedule    = "0 0 21 * * *"
)

type Config struct {
	Agent    AgentConfig    `json:"agent"`
	Provider ProviderConfig `json:"provider"`
	Telegram TelegramConfig `json:"telegram"`
	Trigger  TriggerConfig  `json:"trigger"`
	Goals    GoalsConfig    `json:"goals"`
	Streak   StreakConfig   `json:"streak"`
	Storage  StorageConfig  `json:"storage"`
	Nag      NagConfig      `json:"nag"`
}

type AgentConfig struct {
	Workspace   string  `json:"workspace"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
}

type ProviderConfig struct {
	Type    string `json:"type,omitempty"` // "anthropic" (default) or "openai"
	APIKey  string `json:"apiKey"`
	BaseURL string `json:"baseUrl,omitempty"`
}

type TelegramConfig struct {
	Token       string `json:"token"`
	ChatID      int64  `json:"chatId"`
	Proxy       string `json:"proxy,omitempty"`
	FetchWindow int    `json:"fetchWindow,omitempty"`
}

type TriggerConfig struct {
	Host   string `json:"host"`
	Port   int    `json:"port"`
	APIKey string `json:"apiKey"`
}

// GoalsConfig describes the fixed goal catalog and the tracked users.
// Targets maps goal name to the daily target count. Stickers maps a
// response-intensity category to a Telegram sticker file id; categories
// with no file id configured are skipped at delivery time.
type GoalsConfig struct {
	Targets  map[string]int    `json:"targets"`
	Users    []UserConfig      `json:"users"`
	Stickers map[string]string `json:"stickers,omitempty"`
}

type UserConfig struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type StreakConfig struct {
	UTCOffsetHours int `json:"utcOffsetHours"`
}

type StorageConfig struct {
	DBPath string `json:"dbPath,omitempty"`
}

type NagConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"`
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Agent: AgentConfig{
			Workspace:   filepath.Join(home, ".grindbot", "workspace"),
			Model:       DefaultModel,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
		},
		Provider: ProviderConfig{},
		Telegram: TelegramConfig{FetchWindow: DefaultFetchWindow},
		Trigger: TriggerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Goals: GoalsConfig{
			Targets: map[string]int{
				"leetcode":    3,
				"anki_new":    20,
				"anki_review": 100,
			},
		},
		Streak: StreakConfig{UTCOffsetHours: DefaultUTCOffsetHours},
		Nag: NagConfig{
			Enabled:  false,
			Schedule: DefaultNagSchedule,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".grindbot")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Agent.Workspace == "" {
		cfg.Agent.Workspace = DefaultConfig().Agent.Workspace
	}
	if cfg.Telegram.FetchWindow <= 0 {
		cfg.Telegram.FetchWindow = DefaultFetchWindow
	}
	if cfg.Nag.Schedule == "" {
		cfg.Nag.Schedule = DefaultNagSchedule
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if key := os.Getenv("GRINDBOT_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
		if cfg.Provider.Type == "" {
			cfg.Provider.Type = "openai"
		}
	}
	if url := os.Getenv("GRINDBOT_BASE_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if token := os.Getenv("GRINDBOT_TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if chat := os.Getenv("GRINDBOT_CHAT_ID"); chat != "" {
		if parsed, err := strconv.ParseInt(chat, 10, 64); err == nil {
			cfg.Telegram.ChatID = parsed
		}
	}
	if key := os.Getenv("GRINDBOT_TRIGGER_KEY"); key != "" {
		cfg.Trigger.APIKey = key
	}
	if port := os.Getenv("GRINDBOT_TRIGGER_PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			cfg.Trigger.Port = parsed
		}
	}
	if dbPath := os.Getenv("GRINDBOT_DB_PATH"); dbPath != "" {
		cfg.Storage.DBPath = dbPath
	}
	if offset := os.Getenv("GRINDBOT_UTC_OFFSET"); offset != "" {
		if parsed, err := strconv.Atoi(offset); err == nil {
			cfg.Streak.UTCOffsetHours = parsed
		}
	}
	if enabled := os.Getenv("GRINDBOT_NAG_ENABLED"); enabled != "" {
		if parsed, err := strconv.ParseBool(enabled); err == nil {
			cfg.Nag.Enabled = parsed
		}
	}
	if schedule := os.Getenv("GRINDBOT_NAG_SCHEDULE"); schedule != "" {
		cfg.Nag.Schedule = schedule
	}
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
