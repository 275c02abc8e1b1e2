package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultFile is read when it exists and no explicit file is given.
const DefaultFile = "config.yaml"

type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Log      LogConfig      `mapstructure:"log"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Database DatabaseConfig `mapstructure:"database"`
}

type AnalysisConfig struct {
	IncludeSharedMedia bool `mapstructure:"include_shared_media"`
	Top                int  `mapstructure:"top"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
}

type WatchConfig struct {
	// Dir is the stage directory new decks are dropped into.
	Dir       string        `mapstructure:"dir"`
	ReportDir string        `mapstructure:"report_dir"`
	Settle    time.Duration `mapstructure:"settle"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Options  string `mapstructure:"options"`
}

// IsConfigured reports whether a report archive database was set up.
func (c *DatabaseConfig) IsConfigured() bool {
	return c.URL != "" || c.Host != ""
}

func (c *DatabaseConfig) GetConnectStr() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	port := c.Port
	if port == "" {
		port = "5432"
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, port, c.DBName, sslmode)

	if c.Options != "" {
		// Basic URL encoding for the options value: space -> %20
		encodedOptions := strings.ReplaceAll(c.Options, " ", "%20")
		connStr += fmt.Sprintf("&options=%s", encodedOptions)
	}

	return connStr
}

// LoadConfig reads .env, the config file and the environment, in rising
// order of precedence. path may be empty, in which case DefaultFile is used
// if present.
func LoadConfig(path string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()

	// Environment variable mappings
	mappings := []struct {
		key, env string
	}{
		{"analysis.include_shared_media", "INCLUDE_SHARED_MEDIA"},
		{"analysis.top", "TOP"},
		{"log.level", "LOG_LEVEL"},
		{"log.format", "LOG_FORMAT"},

		// Watch mode
		{"watch.dir", "WATCH_DIR"},
		{"watch.report_dir", "WATCH_REPORT_DIR"},
		{"watch.settle", "WATCH_SETTLE"},

		// Report archive
		{"database.url", "DB_URL"},
		{"database.host", "PG_HOST"},
		{"database.port", "PG_PORT"},
		{"database.user", "PG_USER"},
		{"database.password", "PG_PASSWORD"},
		{"database.dbname", "PG_DB"},
		{"database.sslmode", "PG_SSLMODE"},
		{"database.options", "PG_OPTIONS"},
	}

	for _, m := range mappings {
		if err := v.BindEnv(m.key, m.env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", m.env, err)
		}
	}

	// Defaults
	v.SetDefault("analysis.include_shared_media", false)
	v.SetDefault("analysis.top", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("watch.dir", "stage")
	v.SetDefault("watch.settle", "2s")

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found", path)
			}
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Watch.Settle < 0 {
		cfg.Watch.Settle = 0
	}

	return &cfg, nil
}
