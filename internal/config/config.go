package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Hermes   HermesConfig   `yaml:"hermes"`
	Ranking  RankingConfig  `yaml:"ranking"`
	Import   ImportConfig   `yaml:"import"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port        int      `yaml:"port"`
	MetricsPort int      `yaml:"metrics_port"`
	AdminToken  string   `yaml:"admin_token"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

type RankingConfig struct {
	// PassTopN marks the first N ranks as passing. Zero disables the limit.
	PassTopN int `yaml:"pass_top_n"`
	// PassThreshold is the minimum preference to pass. Zero disables it.
	PassThreshold float64 `yaml:"pass_threshold"`
	CacheEnabled  bool    `yaml:"cache_enabled"`
}

type ImportConfig struct {
	MaxRows int    `yaml:"max_rows"`
	Sheet   string `yaml:"sheet"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load builds the configuration from defaults, then the YAML file at path (if
// any), then ADMISSIONS_* environment variables. A .env file in the working
// directory is read first and never overrides variables already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		Hermes: HermesConfig{
			URL: "nats://localhost:4222",
		},
		Ranking: RankingConfig{
			PassTopN:     70,
			CacheEnabled: true,
		},
		Import: ImportConfig{
			MaxRows: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Ranking.PassTopN < 0 {
		return fmt.Errorf("ranking.pass_top_n must not be negative, got %d", c.Ranking.PassTopN)
	}
	if c.Ranking.PassThreshold < 0 || c.Ranking.PassThreshold > 1 {
		return fmt.Errorf("ranking.pass_threshold must be in [0, 1], got %v", c.Ranking.PassThreshold)
	}
	if c.Import.MaxRows <= 0 {
		return fmt.Errorf("import.max_rows must be positive, got %d", c.Import.MaxRows)
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	return nil
}

// NewLogger builds the process logger described by the logging section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Logging.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Logging.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ADMISSIONS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("ADMISSIONS_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("ADMISSIONS_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("ADMISSIONS_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("ADMISSIONS_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("ADMISSIONS_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("ADMISSIONS_PASS_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ranking.PassTopN = n
		}
	}
	if v := os.Getenv("ADMISSIONS_PASS_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Ranking.PassThreshold = f
		}
	}
	if v := os.Getenv("ADMISSIONS_CACHE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Ranking.CacheEnabled = b
		}
	}
	if v := os.Getenv("ADMISSIONS_IMPORT_MAX_ROWS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Import.MaxRows = n
		}
	}
	if v := os.Getenv("ADMISSIONS_IMPORT_SHEET"); v != "" {
		cfg.Import.Sheet = v
	}
	if v := os.Getenv("ADMISSIONS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ADMISSIONS_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
