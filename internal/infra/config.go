package infra

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"cryptoverse/internal/domain"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent identifies the client to the market data API
	DefaultUserAgent = "cryptoverse/1.0 (+https://www.coingecko.com/en/api)"

	// DefaultBaseURL is the public CoinGecko v3 endpoint
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 .env 및 환경 변수를 통해 민감 내용을 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		BaseURL           string `yaml:"base_url"`
		APIKey            string `yaml:"api_key"`
		TimeoutSec        int    `yaml:"timeout_sec"`
		RequestsPerMinute int    `yaml:"requests_per_minute"`
	} `yaml:"api"`

	Cache struct {
		RetentionSec int `yaml:"retention_sec"`
	} `yaml:"cache"`

	Storage struct {
		Path    string `yaml:"path"`
		IconDir string `yaml:"icon_dir"`
	} `yaml:"storage"`

	Server struct {
		Addr            string `yaml:"addr"`
		PollIntervalSec int    `yaml:"poll_interval_sec"`
	} `yaml:"server"`

	UI struct {
		DarkModeDefault bool `yaml:"dark_mode_default"`
	} `yaml:"ui"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "cryptoverse"
	cfg.App.Version = "dev"
	cfg.API.BaseURL = DefaultBaseURL
	cfg.API.TimeoutSec = 10
	cfg.API.RequestsPerMinute = 30
	cfg.Cache.RetentionSec = 60
	cfg.Server.Addr = "localhost:8089"
	cfg.Server.PollIntervalSec = 60
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return &cfg
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
// 파일에 없는 값은 DefaultConfig 값을 유지합니다.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := finalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigOrDefault loads path, falling back to DefaultConfig when the file is missing.
func LoadConfigOrDefault(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if errors.Is(err, domain.ErrConfigNotFound) {
		cfg = DefaultConfig()
		if err := finalize(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return cfg, err
}

func finalize(cfg *Config) error {
	// 4원칙: 보안 우선 - .env 및 환경 변수 오버라이드 지원
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()
	overrideWithEnv(cfg)

	// 5원칙: 설정 유효성 검사
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &domain.ConfigError{Field: "api.base_url", Err: fmt.Errorf("invalid URL %q", c.API.BaseURL)}
	}
	if c.API.TimeoutSec <= 0 {
		return &domain.ConfigError{Field: "api.timeout_sec", Err: errors.New("must be positive")}
	}
	if c.API.RequestsPerMinute < 0 {
		return &domain.ConfigError{Field: "api.requests_per_minute", Err: errors.New("must not be negative")}
	}
	if c.Cache.RetentionSec < 0 {
		return &domain.ConfigError{Field: "cache.retention_sec", Err: errors.New("must not be negative")}
	}
	if c.Server.PollIntervalSec <= 0 {
		return &domain.ConfigError{Field: "server.poll_interval_sec", Err: errors.New("must be positive")}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error", "":
	default:
		return &domain.ConfigError{Field: "logging.level", Err: fmt.Errorf("unknown level %q", c.Logging.Level)}
	}
	return nil
}

// Timeout returns the HTTP client timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSec) * time.Second
}

// CacheRetention returns how long unused query results are kept.
func (c *Config) CacheRetention() time.Duration {
	return time.Duration(c.Cache.RetentionSec) * time.Second
}

// PollInterval returns the watchlist polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Server.PollIntervalSec) * time.Second
}

// DBPath returns the durable store location, defaulting under the workspace dir.
func (c *Config) DBPath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return DefaultDBPath()
}

// IconDir returns where resized coin icons are written.
func (c *Config) IconDir() string {
	if c.Storage.IconDir != "" {
		return c.Storage.IconDir
	}
	return DefaultIconDir()
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("CRYPTOVERSE_API_KEY"); key != "" {
		cfg.API.APIKey = key
	}
	if base := os.Getenv("CRYPTOVERSE_BASE_URL"); base != "" {
		cfg.API.BaseURL = strings.TrimRight(base, "/")
	}
	if path := os.Getenv("CRYPTOVERSE_DB_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if level := os.Getenv("CRYPTOVERSE_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = strings.ToLower(level)
	}
}
