package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	DefaultModel            = "gpt-4o-mini"
	DefaultTemperature      = 0.9
	DefaultTopP             = 0.95
	DefaultTopK             = 40
	DefaultMaxOutputTokens  = 500
	DefaultMaxMessageLen    = 2000
	DefaultContextTokens    = 1500
	DefaultContextWindow    = 8
	DefaultSummaryThreshold = 10
	DefaultCompactKeep      = 4
	DefaultMaxSummaries     = 10
	DefaultHost             = "0.0.0.0"
	DefaultPort             = 18820
	DefaultRedisAddr        = "localhost:6379"
	DefaultSweepSpec        = "@every 1m"
	DefaultReportSpec       = "0 0 3 * * *"

	// TTLs applied by the memory store on save.
	ProfileTTL = 90 * 24 * time.Hour
	SessionTTL = 24 * time.Hour
)

type Config struct {
	Provider    ProviderConfig    `json:"provider"`
	Storage     StorageConfig     `json:"storage"`
	Engine      EngineConfig      `json:"engine"`
	Server      ServerConfig      `json:"server"`
	Maintenance MaintenanceConfig `json:"maintenance"`
	PersonaPath string            `json:"personaPath,omitempty"`
}

type ProviderConfig struct {
	APIKey          string  `json:"apiKey"`
	BaseURL         string  `json:"baseUrl,omitempty"`
	Model           string  `json:"model"`
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type StorageConfig struct {
	// Backend is "redis" or "memory". The in-process backend keeps nothing
	// across restarts and exists for demos and tests.
	Backend  string `json:"backend"`
	Addr     string `json:"addr"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db"`
}

type EngineConfig struct {
	ContextWindow    int  `json:"contextWindow"`
	SummaryThreshold int  `json:"summaryThreshold"`
	CompactKeep      int  `json:"compactKeep"`
	MaxSummaries     int  `json:"maxSummaries"`
	MaxMessageLen    int  `json:"maxMessageLen"`
	ContextTokens    int  `json:"contextTokens"`
	Safety           bool `json:"safety"`
	ToneAdaptation   bool `json:"toneAdaptation"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type MaintenanceConfig struct {
	Enabled    bool   `json:"enabled"`
	SweepSpec  string `json:"sweepSpec,omitempty"`
	ReportSpec string `json:"reportSpec,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Model:           DefaultModel,
			Temperature:     DefaultTemperature,
			TopP:            DefaultTopP,
			TopK:            DefaultTopK,
			MaxOutputTokens: DefaultMaxOutputTokens,
		},
		Storage: StorageConfig{
			Backend: "redis",
			Addr:    DefaultRedisAddr,
		},
		Engine: EngineConfig{
			ContextWindow:    DefaultContextWindow,
			SummaryThreshold: DefaultSummaryThreshold,
			CompactKeep:      DefaultCompactKeep,
			MaxSummaries:     DefaultMaxSummaries,
			MaxMessageLen:    DefaultMaxMessageLen,
			ContextTokens:    DefaultContextTokens,
			Safety:           true,
			ToneAdaptation:   true,
		},
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Maintenance: MaintenanceConfig{
			Enabled:    true,
			SweepSpec:  DefaultSweepSpec,
			ReportSpec: DefaultReportSpec,
		},
		PersonaPath: filepath.Join(ConfigDir(), "persona.yaml"),
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".luma")
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

	// Environment variable overrides
	if key := os.Getenv("LUMA_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
	}
	if url := os.Getenv("LUMA_BASE_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if model := os.Getenv("LUMA_MODEL"); model != "" {
		cfg.Provider.Model = model
	}
	if backend := os.Getenv("LUMA_STORAGE_BACKEND"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if addr := os.Getenv("LUMA_REDIS_ADDR"); addr != "" {
		cfg.Storage.Addr = addr
	}
	if password := os.Getenv("LUMA_REDIS_PASSWORD"); password != "" {
		cfg.Storage.Password = password
	}
	if db := os.Getenv("LUMA_REDIS_DB"); db != "" {
		if parsed, err := strconv.Atoi(db); err == nil {
			cfg.Storage.DB = parsed
		}
	}
	if path := os.Getenv("LUMA_PERSONA_PATH"); path != "" {
		cfg.PersonaPath = path
	}
	if port := os.Getenv("LUMA_PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = parsed
		}
	}

	if cfg.Provider.Model == "" {
		cfg.Provider.Model = DefaultModel
	}
	if cfg.Provider.MaxOutputTokens <= 0 {
		cfg.Provider.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if cfg.Engine.ContextWindow <= 0 {
		cfg.Engine.ContextWindow = DefaultContextWindow
	}
	if cfg.Engine.SummaryThreshold <= 0 {
		cfg.Engine.SummaryThreshold = DefaultSummaryThreshold
	}
	if cfg.Engine.CompactKeep <= 0 {
		cfg.Engine.CompactKeep = DefaultCompactKeep
	}
	if cfg.Engine.MaxSummaries <= 0 {
		cfg.Engine.MaxSummaries = DefaultMaxSummaries
	}
	if cfg.Engine.MaxMessageLen <= 0 {
		cfg.Engine.MaxMessageLen = DefaultMaxMessageLen
	}
	if cfg.Engine.ContextTokens <= 0 {
		cfg.Engine.ContextTokens = DefaultContextTokens
	}
	if cfg.PersonaPath == "" {
		cfg.PersonaPath = DefaultConfig().PersonaPath
	}

	return cfg, nil
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
