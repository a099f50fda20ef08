// Package config loads portfolio configuration from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "PORTFOLIO"

type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	API     APIConfig     `mapstructure:"api"`
	Server  ServerConfig  `mapstructure:"server"`
	Session SessionConfig `mapstructure:"session"`
	Admin   AdminConfig   `mapstructure:"admin"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// APIConfig is read by clients of the REST API.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Addr       string        `mapstructure:"addr"`
	DataDir    string        `mapstructure:"data_dir"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

type SessionConfig struct {
	Path string `mapstructure:"path"`
}

// AdminConfig seeds the first superadmin account on an empty database.
type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// Load reads envFile (if present) into the process environment without
// overriding variables already set, then resolves PORTFOLIO_* variables.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if envMap, err := godotenv.Read(envFile); err == nil {
			for k, val := range envMap {
				if _, exists := os.LookupEnv(k); !exists {
					_ = os.Setenv(k, val)
				}
			}
		}
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	for _, k := range v.AllKeys() {
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")

	v.SetDefault("api.base_url", "http://localhost:8080/api")
	v.SetDefault("api.timeout", time.Duration(0))

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.data_dir", "data")
	v.SetDefault("server.token_ttl", 24*time.Hour)
	v.SetDefault("server.refresh_ttl", 30*24*time.Hour)

	v.SetDefault("session.path", defaultSessionPath())

	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "portfolio-session.db"
	}
	return dir + string(os.PathSeparator) + "portfolio" + string(os.PathSeparator) + "session.db"
}

func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("config: api.base_url is required")
	}
	if c.API.Timeout < 0 {
		return errors.New("config: api.timeout must not be negative")
	}
	if c.Server.TokenTTL <= 0 || c.Server.RefreshTTL <= 0 {
		return errors.New("config: token ttls must be positive")
	}
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		return errors.New("config: admin.email and admin.password must be set together")
	}
	return nil
}
