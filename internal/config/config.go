// Package config loads blogdesk settings with Viper from .blogdesk.yml, BLOGDESK_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
	DriverBun    = "bun"

	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

var (
	drivers  = []string{DriverMemory, DriverSQLite, DriverBolt, DriverBun}
	dialects = []string{DialectSQLite, DialectPostgres}
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Content ContentConfig `mapstructure:"content"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PageSize     int           `mapstructure:"page_size"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type StoreConfig struct {
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
	Dialect string `mapstructure:"dialect"` // only used by the bun driver
	DataDir string `mapstructure:"data_dir"`
}

type ContentConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"` // yaml or toml frontmatter
	Watch  bool   `mapstructure:"watch"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EnvPrefix prefixes every environment override, e.g. BLOGDESK_SERVER_PORT.
const EnvPrefix = "BLOGDESK"

// Setup points the global viper instance at the config file and enables environment overrides.
// The file is cfgFile when set, else $BLOGDESK_CONFIG_FILE, else .blogdesk.yml in the working directory.
func Setup(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(EnvPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".blogdesk")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// Load reads the global viper instance into a Config, fills defaults and validates it.
func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// The root command binds --log-level outside the log section.
	if viper.IsSet("log-level") && !viper.IsSet("log.level") {
		config.Log.Level = viper.GetString("log-level")
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 3000
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 10 * time.Second
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 10 * time.Second
	}
	if config.Server.PageSize == 0 {
		config.Server.PageSize = 10
	}

	if config.Store.Driver == "" {
		config.Store.Driver = DriverSQLite
	}
	if config.Store.Dialect == "" {
		config.Store.Dialect = DialectSQLite
	}
	if config.Store.DataDir == "" {
		config.Store.DataDir = "data"
	}
	if config.Store.DSN == "" {
		switch config.Store.Driver {
		case DriverSQLite:
			config.Store.DSN = filepath.Join(config.Store.DataDir, "blogdesk.db")
		case DriverBun:
			if config.Store.Dialect == DialectSQLite {
				config.Store.DSN = "file:" + filepath.Join(config.Store.DataDir, "blogdesk-bun.db") + "?_fk=1&_busy_timeout=10000"
			}
		}
	}

	if config.Content.Dir == "" {
		config.Content.Dir = "content"
	}
	if config.Content.Format == "" {
		config.Content.Format = "yaml"
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server config: port %d out of range", c.Server.Port)
	}
	if c.Server.PageSize < 1 {
		return fmt.Errorf("server config: page_size must be positive")
	}

	if !slices.Contains(drivers, c.Store.Driver) {
		return fmt.Errorf("store config: unknown driver %q (want one of %s)", c.Store.Driver, strings.Join(drivers, ", "))
	}
	if c.Store.Driver == DriverBun {
		if !slices.Contains(dialects, c.Store.Dialect) {
			return fmt.Errorf("store config: unknown dialect %q (want one of %s)", c.Store.Dialect, strings.Join(dialects, ", "))
		}
		if c.Store.DSN == "" {
			return fmt.Errorf("store config: dsn is required for the %s dialect", c.Store.Dialect)
		}
	}

	if c.Content.Format != "yaml" && c.Content.Format != "toml" {
		return fmt.Errorf("content config: unknown frontmatter format %q", c.Content.Format)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log config: unknown format %q", c.Log.Format)
	}

	return nil
}
