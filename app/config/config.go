package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreBadger = "badger"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

type Config struct {
	Addr            string
	Store           string
	DBPath          string
	LogLevel        string
	LogDev          bool
	ShutdownTimeout time.Duration
}

// Load reads settings from POSTS_* environment variables and, when file is
// not empty, from that config file. Environment variables take precedence.
func Load(file string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("posts")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("store", StoreBadger)
	v.SetDefault("db_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dev", false)
	v.SetDefault("shutdown_timeout", 10*time.Second)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := Config{
		Addr:            v.GetString("addr"),
		Store:           strings.ToLower(v.GetString("store")),
		DBPath:          v.GetString("db_path"),
		LogLevel:        v.GetString("log_level"),
		LogDev:          v.GetBool("log_dev"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
	}

	switch cfg.Store {
	case StoreBadger:
		if cfg.DBPath == "" {
			cfg.DBPath = "data/badger"
		}
	case StoreSQLite:
		if cfg.DBPath == "" {
			cfg.DBPath = "posts.db"
		}
	case StoreMemory:
	default:
		return Config{}, fmt.Errorf("unknown store %q", cfg.Store)
	}

	return cfg, nil
}
